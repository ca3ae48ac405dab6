// Package message defines the mesh message wire record and its time-on-air.
package message

import (
	"math/rand"

	"github.com/go-meshsim/meshsim/internal/simerr"
	"github.com/go-meshsim/meshsim/pkg/meshsim/modempreset"
)

// Type enumerates the Meshtastic application payload types this simulator
// tracks. TELEMETRY is carried end-to-end (constructed, forwarded, logged)
// even though nothing in the message generator originates it, matching the
// original KSSM MessageType enum which defines it as a fourth legitimate
// wire type.
type Type int

const (
	Text Type = iota
	Position
	NodeInfo
	Telemetry
)

func (t Type) String() string {
	switch t {
	case Text:
		return "TEXT"
	case Position:
		return "POSITION"
	case NodeInfo:
		return "NODEINFO"
	case Telemetry:
		return "TELEMETRY"
	default:
		return "UNKNOWN"
	}
}

// BroadcastAddr is the reserved destination address meaning "all nodes".
const BroadcastAddr uint32 = 0xFFFFFFFF

// Message is an immutable-at-rest mesh packet. HopLimit is the only field
// mutated after construction, by a forwarder decrementing it before
// re-enqueuing a Clone.
type Message struct {
	ID         uint32
	Type       Type
	Length     int
	HopStart   int
	HopLimit   int
	SenderAddr uint32
	DestAddr   uint32
	Preset     modempreset.Preset
	TxTimeUS   int
}

// Options configures New. ID is randomized if zero's not explicitly wanted;
// callers that want a deterministic ID set HasID.
type Options struct {
	ID         uint32
	HasID      bool
	Type       Type
	Length     int
	HopStart   int
	SenderAddr uint32
	DestAddr   uint32
	Preset     modempreset.Preset
	Rng        *rand.Rand
}

// New constructs and validates a Message, computing its time-on-air. Length
// out of [1,250] or HopStart out of [0,7] is a ConfigError per spec §7.
func New(opts Options) (*Message, error) {
	if opts.Length < 1 || opts.Length > 250 {
		return nil, simerr.NewConfig("message length %d out of range [1,250]", opts.Length)
	}
	if opts.HopStart < 0 || opts.HopStart > 7 {
		return nil, simerr.NewConfig("hop_start %d out of range [0,7]", opts.HopStart)
	}
	if opts.DestAddr == 0 {
		opts.DestAddr = BroadcastAddr
	}

	id := opts.ID
	if !opts.HasID {
		rng := opts.Rng
		if rng == nil {
			rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // simulator, not crypto
		}
		id = rng.Uint32()
	}

	txTime, err := opts.Preset.TxTimeUS(opts.Length)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:         id,
		Type:       opts.Type,
		Length:     opts.Length,
		HopStart:   opts.HopStart,
		HopLimit:   opts.HopStart,
		SenderAddr: opts.SenderAddr,
		DestAddr:   opts.DestAddr,
		Preset:     opts.Preset,
		TxTimeUS:   txTime,
	}, nil
}

// IsBroadcast reports whether the message targets every node.
func (m *Message) IsBroadcast() bool {
	return m.DestAddr == BroadcastAddr
}

// Clone deep-copies the message so a forwarder can mutate HopLimit on its
// own copy without affecting the sender's or any other receiver's record.
func (m *Message) Clone() *Message {
	cp := *m
	return &cp
}
