package node

import (
	"github.com/go-meshsim/meshsim/pkg/meshsim/message"
	"github.com/go-meshsim/meshsim/pkg/meshsim/propagation"
)

// Role mirrors Meshtastic's config.proto Role enum (values taken from
// https://github.com/meshtastic/protobufs/.../meshtastic/config.proto#L21,
// as ported by the KSSM prototype this simulator is grounded on).
type Role int

const (
	Client Role = iota
	ClientMute
	Router
	RouterClient
	Repeater
	Tracker
	Sensor
	Tak
	ClientHidden
	LostAndFound
	TakTracker
	RouterLate
)

func (r Role) String() string {
	switch r {
	case Client:
		return "CLIENT"
	case ClientMute:
		return "CLIENT_MUTE"
	case Router:
		return "ROUTER"
	case RouterClient:
		return "ROUTER_CLIENT"
	case Repeater:
		return "REPEATER"
	case Tracker:
		return "TRACKER"
	case Sensor:
		return "SENSOR"
	case Tak:
		return "TAK"
	case ClientHidden:
		return "CLIENT_HIDDEN"
	case LostAndFound:
		return "LOST_AND_FOUND"
	case TakTracker:
		return "TAK_TRACKER"
	case RouterLate:
		return "ROUTER_LATE"
	default:
		return "UNKNOWN"
	}
}

// ParseRole resolves a config-file role string. Unknown names fall back to
// CLIENT per spec §6 ("unknown role → CLIENT"), unlike LoRaMode which is a
// ConfigError when unrecognized.
func ParseRole(name string) Role {
	for r := Client; r <= RouterLate; r++ {
		if r.String() == name {
			return r
		}
	}
	return Client
}

// IsUnconditionalForwarder reports whether the role rebroadcasts even after
// hearing duplicates.
func (r Role) IsUnconditionalForwarder() bool {
	switch r {
	case Router, Repeater, RouterClient, RouterLate:
		return true
	default:
		return false
	}
}

// IsHidden reports whether the role never originates beacons.
func (r Role) IsHidden() bool {
	return r == ClientHidden || r == Repeater
}

// IsForwarder reports whether the role processes hop_limit and rebroadcasts
// first-heard messages (unconditional forwarders plus CLIENT/CLIENT_HIDDEN).
func (r Role) IsForwarder() bool {
	if r.IsUnconditionalForwarder() {
		return true
	}
	return r == Client || r == ClientHidden
}

// State is the node's MAC state.
type State int

const (
	Idle State = iota
	WaitingToTx
	TxBusy
	RxBusy
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case WaitingToTx:
		return "WAITING_TO_TX"
	case TxBusy:
		return "TX_BUSY"
	case RxBusy:
		return "RX_BUSY"
	default:
		return "UNKNOWN"
	}
}

// Handle is the non-owning, resolve-by-id reference another node uses to
// read a peer's fixed radio parameters and mutate its counters. It
// deliberately exposes no way to read or change the peer's MAC state
// directly — only the two cross-node mutations the spec allows
// (collision blame, receipt confirmation) are methods here.
type Handle interface {
	ID() uint32
	Position() propagation.Point
	TxPowerDBm() float64
	FrequencyHz() float64
	BlameCollision()
	MessageConfirmed()
}

// Peer extends Handle with the ability to receive a transmission. The
// driver's Simulator satisfies Directory, handing out its *Node values as
// Peers.
type Peer interface {
	Handle
	Inform(informer Handle, msg *message.Message, stepIntervalUS int64) error
}

// Directory resolves node ids to Peer handles and enumerates every node in
// deterministic (insertion) order, per spec §9 ("non-owning, index-based
// handle to the collection for lookup-by-id").
type Directory interface {
	Peer(id uint32) (Peer, bool)
	Peers() []Peer
}
