// Package driver implements the simulator's time-stepping loop: it owns
// the node collection and a monotonic simulated clock, advancing every
// node one step per tick (spec §4.6).
package driver

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/go-meshsim/meshsim/internal/nodesfile"
	"github.com/go-meshsim/meshsim/internal/simerr"
	"github.com/go-meshsim/meshsim/pkg/meshsim/node"
	"github.com/go-meshsim/meshsim/pkg/meshsim/propagation"
	"github.com/go-meshsim/meshsim/pkg/meshsim/simevent"
)

// Config controls a simulation run. StepIntervalUS is the fixed tick size;
// ReportEveryTicks gates how often a status callback fires even when no
// node changed state, mirroring spec §4.6 step 3.
type Config struct {
	StepIntervalUS   int64
	Seed             int64
	PropagationModel string // resolved via propagation.ByName
	MinimalSNR       float64
	Sink             simevent.Sink
	ReportEveryTicks int64
}

// Simulator owns the node set and the clock. It satisfies node.Directory
// so that nodes can resolve peers by id without holding pointers to each
// other (spec §3/§9: non-owning, resolve-by-id neighbor access).
type Simulator struct {
	nodes []*node.Node
	byID  map[uint32]int

	currentTimeUS  int64
	stepIntervalUS int64
	reportEvery    int64
}

// NewFromNodesData builds a Simulator from loaded node descriptors,
// constructing one node.Node per descriptor with its own seeded RNG and a
// shared, cached propagation model (spec §4.6/§7).
func NewFromNodesData(descriptors []nodesfile.Descriptor, cfg Config) (*Simulator, error) {
	if len(descriptors) == 0 {
		return nil, simerr.NewConfig("nodes_data contains no nodes")
	}
	if cfg.StepIntervalUS <= 0 {
		return nil, simerr.NewConfig("time_resolution must be positive, got %d", cfg.StepIntervalUS)
	}

	model := propagation.NewCachedModel(propagation.ByName(cfg.PropagationModel))

	s := &Simulator{
		nodes:          make([]*node.Node, 0, len(descriptors)),
		byID:           make(map[uint32]int, len(descriptors)),
		stepIntervalUS: cfg.StepIntervalUS,
		reportEvery:    cfg.ReportEveryTicks,
	}

	for _, d := range descriptors {
		if _, exists := s.byID[d.ID]; exists {
			return nil, simerr.NewConfig("duplicate node id 0x%x", d.ID)
		}

		rng := rand.New(rand.NewSource(cfg.Seed ^ int64(d.ID)))
		n, err := node.New(node.Config{
			ID:                 d.ID,
			LongName:           d.LongName,
			Position:           d.Position,
			TxPowerDBm:         d.TxPowerDBm,
			NoiseLevelDBm:      d.NoiseLevelDBm,
			FrequencyHz:        d.FrequencyHz,
			Mode:               d.Mode,
			Role:               d.Role,
			HopStart:           d.HopStart,
			NodeInfoIntervalUS: d.NodeInfoIntervalUS,
			PositionIntervalUS: d.PositionIntervalUS,
			TextMinIntervalUS:  d.TextMinIntervalUS,
			TextMaxIntervalUS:  d.TextMaxIntervalUS,
			MinimalSNR:         cfg.MinimalSNR,
			Model:              model,
			Sink:               cfg.Sink,
			Rng:                rng,
		})
		if err != nil {
			return nil, fmt.Errorf("node 0x%x: %w", d.ID, err)
		}

		s.byID[d.ID] = len(s.nodes)
		s.nodes = append(s.nodes, n)
	}

	for _, n := range s.nodes {
		n.SetDirectory(s)
	}

	return s, nil
}

// --- node.Directory -----------------------------------------------------

func (s *Simulator) Peer(id uint32) (node.Peer, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return s.nodes[i], true
}

func (s *Simulator) Peers() []node.Peer {
	peers := make([]node.Peer, len(s.nodes))
	for i, n := range s.nodes {
		peers[i] = n
	}
	return peers
}

// Nodes returns the underlying node slice in insertion order, for
// summary/reporting code that needs direct read access.
func (s *Simulator) Nodes() []*node.Node { return s.nodes }

// CurrentTimeUS returns the simulator's current simulated clock value.
func (s *Simulator) CurrentTimeUS() int64 { return s.currentTimeUS }

// StatusFunc is invoked per spec §4.6 step 3: whenever a node changed
// state this tick, or on the fixed report cadence.
type StatusFunc func(ctx context.Context, currentTimeUS int64, tick int64)

// Run advances the simulation for the given number of ticks. Ticks is
// computed by the caller as (simulation_time_seconds * 1e6) /
// step_interval_us, per spec §4.6.
func (s *Simulator) Run(ctx context.Context, ticks int64, onStatus StatusFunc) error {
	for tick := int64(0); tick < ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.currentTimeUS += s.stepIntervalUS
		anyChanged := false
		for _, n := range s.nodes {
			before := n.State()
			if err := n.Step(s.stepIntervalUS); err != nil {
				return fmt.Errorf("node 0x%x at t=%d: %w", n.ID(), s.currentTimeUS, err)
			}
			if n.State() != before {
				anyChanged = true
			}
		}

		if onStatus != nil && (anyChanged || (s.reportEvery > 0 && tick%s.reportEvery == 0)) {
			onStatus(ctx, s.currentTimeUS, tick)
		}
	}
	return nil
}
