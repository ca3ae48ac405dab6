// Package nodesfile loads the nodes_data JSON array (spec §6) into
// validated descriptors, field-by-field with explicit defaults, the same
// way the teacher's internal/config loader binds viper keys rather than
// blind-unmarshaling into the domain type.
package nodesfile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-meshsim/meshsim/internal/simerr"
	"github.com/go-meshsim/meshsim/pkg/meshsim/modempreset"
	"github.com/go-meshsim/meshsim/pkg/meshsim/node"
	"github.com/go-meshsim/meshsim/pkg/meshsim/propagation"
)

// rawNode is the on-disk shape: every field optional. node_id must be a JSON
// string holding a hex id; a bare JSON number fails to decode.
type rawNode struct {
	NodeID                string    `json:"node_id"`
	LongName              string    `json:"long_name"`
	Position              []float64 `json:"position"`
	TxPower               *float64  `json:"tx_power"`
	NoiseLevel            *float64  `json:"noise_level"`
	Frequency             *float64  `json:"frequency"`
	LoRaMode              string    `json:"lora_mode"`
	HopStart              *int      `json:"hop_start"`
	Role                  string    `json:"role"`
	PositionInterval      *float64  `json:"position_interval"`
	NodeInfoInterval      *float64  `json:"nodeinfo_interval"`
	TextMessageMinInterval *float64 `json:"text_message_min_interval"`
	TextMessageMaxInterval *float64 `json:"text_message_max_interval"`
	Debug                 bool      `json:"debug"`
}

// Descriptor is one fully-resolved, validated node definition ready to
// build a node.Config from.
type Descriptor struct {
	ID       uint32
	LongName string
	Position propagation.Point

	TxPowerDBm    float64
	NoiseLevelDBm float64
	FrequencyHz   float64
	Mode          modempreset.Mode
	Role          node.Role
	HopStart      int

	NodeInfoIntervalUS int64
	PositionIntervalUS int64
	TextMinIntervalUS  int64
	TextMaxIntervalUS  int64

	Debug bool
}

// defaults mirror the KSSM prototype's Node.__init__ keyword defaults.
const (
	defaultTxPowerDBm    = 14.0
	defaultNoiseLevelDBm = -100.0
	defaultFrequencyHz   = 915_000_000.0
	defaultHopStart      = 3
)

// Load parses a nodes_data JSON byte slice into validated descriptors.
func Load(data []byte) ([]Descriptor, error) {
	var raw []rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, simerr.NewConfig("parsing nodes_data JSON: %v", err)
	}

	out := make([]Descriptor, 0, len(raw))
	seen := make(map[uint32]bool, len(raw))
	for i, r := range raw {
		d, err := toDescriptor(r)
		if err != nil {
			return nil, fmt.Errorf("nodes_data[%d]: %w", i, err)
		}
		if seen[d.ID] {
			return nil, simerr.NewConfig("duplicate node_id 0x%x at index %d", d.ID, i)
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out, nil
}

func toDescriptor(r rawNode) (Descriptor, error) {
	id, err := parseNodeID(r.NodeID)
	if err != nil {
		return Descriptor{}, err
	}

	pos := propagation.Point{}
	switch len(r.Position) {
	case 0:
	case 3:
		pos = propagation.Point{X: r.Position[0], Y: r.Position[1], Z: r.Position[2]}
	default:
		return Descriptor{}, simerr.NewConfig("node 0x%x: position must have exactly 3 components, got %d", id, len(r.Position))
	}

	mode := modempreset.LongFast
	if r.LoRaMode != "" {
		m, err := modempreset.ParseMode(r.LoRaMode)
		if err != nil {
			return Descriptor{}, err
		}
		mode = m
	}

	hopStart := defaultHopStart
	if r.HopStart != nil {
		hopStart = *r.HopStart
	}
	if hopStart < 0 || hopStart > 7 {
		return Descriptor{}, simerr.NewConfig("node 0x%x: hop_start %d out of range [0,7]", id, hopStart)
	}

	role := node.Client
	if r.Role != "" {
		role = node.ParseRole(r.Role)
	}

	d := Descriptor{
		ID:                 id,
		LongName:            r.LongName,
		Position:            pos,
		TxPowerDBm:          orFloat(r.TxPower, defaultTxPowerDBm),
		NoiseLevelDBm:       orFloat(r.NoiseLevel, defaultNoiseLevelDBm),
		FrequencyHz:         orFloat(r.Frequency, defaultFrequencyHz),
		Mode:                mode,
		Role:                role,
		HopStart:            hopStart,
		NodeInfoIntervalUS:  secondsToUS(r.NodeInfoInterval),
		PositionIntervalUS:  secondsToUS(r.PositionInterval),
		TextMinIntervalUS:   secondsToUS(r.TextMessageMinInterval),
		TextMaxIntervalUS:   secondsToUS(r.TextMessageMaxInterval),
		Debug:               r.Debug,
	}
	return d, nil
}

func orFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func secondsToUS(p *float64) int64 {
	if p == nil {
		return 0
	}
	return int64(*p * 1e6)
}

// parseNodeID accepts a hex string ("!a1b2c3d4" or "0xa1b2c3d4" or
// "a1b2c3d4"), masked to 32 bits per spec §6.
func parseNodeID(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, simerr.NewConfig("node_id is required")
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, simerr.NewConfig("node_id %q is not valid hex", s)
	}
	return uint32(n), nil
}
