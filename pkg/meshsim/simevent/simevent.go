// Package simevent defines the row shapes the node and driver packages emit
// and the logger consumes, decoupling the MAC state machine from any
// concrete CSV/file implementation — the same separation the teacher draws
// between internal/message.Packet (what's relayed) and internal/output
// (where it goes).
package simevent

import "github.com/go-meshsim/meshsim/pkg/meshsim/message"

// MessageEvent is one row of messages.csv: a single reception outcome
// (success, collision, or timeout) of a message at one receiver.
type MessageEvent struct {
	Timestamp    int64
	Msg          *message.Message
	TxNode       uint32
	RxNode       uint32
	RSSI         float64
	SNR          float64
	Collision    bool
	Complete     bool
}

// NodeEvent is one row of nodes.csv: a snapshot of a node's full state,
// emitted whenever that node's MAC state changes.
type NodeEvent struct {
	Time             int64
	NodeID           uint32
	LongName         string
	Role             string
	Position         [3]float64
	TxPower          float64
	NoiseLevel       float64
	FrequencyHz      float64
	LoRaMode         string
	State            string
	BackoffTimeUS    int64
	MessageQueueLen  int
	MessagesHeard    int
	KnownNodes       int
	RxSuccess        int
	RxFail           int
	RxDups           int
	RxUnicast        int
	TxDone           int
	Forwarded        int
	TxCancelled      int
	CollisionsCaused int
	TxOrigin         int
	MessagesConfirmed int
	TxTimeSumUS      int64
	RxTimeSumUS      int64
	BackoffTimeSumUS int64
	TxUtil           float64
	AirUtil          float64
}

// BackoffEvent is one row of backoff.csv: a single contention-window
// calculation.
type BackoffEvent struct {
	Time               int64
	NodeID             uint32
	LongName           string
	Role               string
	TxUtil             float64
	AirUtil            float64
	Rebroadcast        bool
	SNR                float64
	CWSize             int
	CalculatedBackoff  int64
}

// SummaryEvent is one row of the supplemental summary.csv (spec.md §2's
// aggregate/statistics component): a node's terminal counters.
type SummaryEvent struct {
	NodeID            uint32
	LongName          string
	Role              string
	TxOrigin          int
	MessagesConfirmed int
	RxSuccess         int
	RxFail            int
	RxDups            int
	RxUnicast         int
	Forwarded         int
	TxCancelled       int
	CollisionsCaused  int
	TxUtil            float64
	AirUtil           float64
}

// Sink receives simulation events for durable logging. Implementations
// must be safe to call from a single-threaded driver tick (no internal
// concurrency is assumed by callers).
type Sink interface {
	LogMessage(MessageEvent) error
	LogNode(NodeEvent) error
	LogBackoff(BackoffEvent) error
}
