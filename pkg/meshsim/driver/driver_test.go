package driver

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"github.com/go-meshsim/meshsim/internal/nodesfile"
	"github.com/go-meshsim/meshsim/pkg/meshsim/message"
	"github.com/go-meshsim/meshsim/pkg/meshsim/modempreset"
	"github.com/go-meshsim/meshsim/pkg/meshsim/propagation"
	"github.com/go-meshsim/meshsim/pkg/meshsim/simevent"
	"github.com/go-meshsim/meshsim/pkg/meshsim/summary"
)

func descriptorAt(id uint32, x float64, txPower, noiseLevel float64) nodesfile.Descriptor {
	return nodesfile.Descriptor{
		ID:            id,
		Position:      propagation.Point{X: x},
		TxPowerDBm:    txPower,
		NoiseLevelDBm: noiseLevel,
		FrequencyHz:   915e6,
		Mode:          modempreset.LongFast,
		HopStart:      3,
	}
}

func runToCompletion(t *testing.T, sim *Simulator, ticks int64) {
	t.Helper()
	if err := sim.Run(context.Background(), ticks, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunDeliversWithinRange(t *testing.T) {
	descs := []nodesfile.Descriptor{
		descriptorAt(1, 0, 20, -120),
		descriptorAt(2, 50, 20, -120),
	}
	sim, err := NewFromNodesData(descs, Config{StepIntervalUS: 1000, Seed: 1, PropagationModel: "FSPL", MinimalSNR: -20})
	if err != nil {
		t.Fatalf("NewFromNodesData: %v", err)
	}

	originate(t, sim, 1)
	runToCompletion(t, sim, 5000)

	report := summary.Aggregate(sim.Nodes())
	if report.TotalRxSuccess == 0 {
		t.Fatal("expected at least one successful reception within range")
	}
	if report.TotalMessagesConfirmed == 0 {
		t.Error("expected the originator to receive a confirmation")
	}
}

func TestRunOutOfRangeNeverReceives(t *testing.T) {
	descs := []nodesfile.Descriptor{
		descriptorAt(1, 0, -80, 0),
		descriptorAt(2, 1_000_000, -80, 0),
	}
	sim, err := NewFromNodesData(descs, Config{StepIntervalUS: 1000, Seed: 1, PropagationModel: "FSPL", MinimalSNR: -20})
	if err != nil {
		t.Fatalf("NewFromNodesData: %v", err)
	}

	originate(t, sim, 1)
	runToCompletion(t, sim, 5000)

	report := summary.Aggregate(sim.Nodes())
	if report.TotalRxSuccess != 0 || report.TotalRxFail != 0 {
		t.Errorf("report = %+v, want no receptions at all for an undetectable signal", report)
	}
}

// TestRunThreeNodeCollision places nodes 1 and 2 far enough apart (and with
// a high enough noise floor) that they never hear each other and so back off
// independently, but within earshot of the sensitive receiver 3 sitting
// between them. Both originate on the same tick with a backoff window
// (<=8 slots) narrower than the message's time-on-air, so their two
// transmissions are guaranteed to overlap at node 3.
func TestRunThreeNodeCollision(t *testing.T) {
	descs := []nodesfile.Descriptor{
		descriptorAt(1, 0, 20, -20),
		descriptorAt(2, 100000, 20, -20),
		descriptorAt(3, 50000, 20, -150),
	}
	sim, err := NewFromNodesData(descs, Config{StepIntervalUS: 1000, Seed: 1, PropagationModel: "FSPL", MinimalSNR: -20})
	if err != nil {
		t.Fatalf("NewFromNodesData: %v", err)
	}

	originate(t, sim, 1)
	originate(t, sim, 2)
	runToCompletion(t, sim, 5000)

	three, ok := sim.Peer(3)
	if !ok {
		t.Fatal("node 3 missing")
	}
	snap := three.(interface{ Snapshot() simevent.NodeEvent }).Snapshot()
	if snap.RxFail == 0 {
		t.Fatalf("expected node 3 to observe a collision between the two simultaneous originators, got snapshot %+v", snap)
	}

	one, _ := sim.Peer(1)
	two, _ := sim.Peer(2)
	oneSnap := one.(interface{ Snapshot() simevent.NodeEvent }).Snapshot()
	twoSnap := two.(interface{ Snapshot() simevent.NodeEvent }).Snapshot()
	if oneSnap.RxSuccess != 0 || oneSnap.RxFail != 0 || twoSnap.RxSuccess != 0 || twoSnap.RxFail != 0 {
		t.Errorf("nodes 1 and 2 should never detect each other: node1=%+v node2=%+v", oneSnap, twoSnap)
	}
}

// TestRunGeneratesPeriodicTextMessages covers spec §8 scenario 6: nodes
// configured with a text-message interval must originate beacons on their
// own, with no external Enqueue call, over the course of a run.
func TestRunGeneratesPeriodicTextMessages(t *testing.T) {
	data := []byte(`[
		{"node_id": "1", "position": [0,0,0], "text_message_min_interval": 1, "text_message_max_interval": 2},
		{"node_id": "2", "position": [50,0,0], "text_message_min_interval": 1, "text_message_max_interval": 2}
	]`)
	descs, err := nodesfile.Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sim, err := NewFromNodesData(descs, Config{StepIntervalUS: 1000, Seed: 7, PropagationModel: "FSPL", MinimalSNR: -20})
	if err != nil {
		t.Fatalf("NewFromNodesData: %v", err)
	}

	runToCompletion(t, sim, 20000)

	report := summary.Aggregate(sim.Nodes())
	if report.TotalTxOrigin == 0 {
		t.Fatal("expected periodic text-message beacons to originate without any external Enqueue call")
	}
}

func TestRunIsDeterministicForASeed(t *testing.T) {
	data := []byte(`[
		{"node_id": "1", "position": [0,0,0], "text_message_min_interval": 1, "text_message_max_interval": 2},
		{"node_id": "2", "position": [50,0,0], "text_message_min_interval": 1, "text_message_max_interval": 2}
	]`)

	run := func() summary.Report {
		descs, err := nodesfile.Load(data)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		sim, err := NewFromNodesData(descs, Config{StepIntervalUS: 1000, Seed: 42, PropagationModel: "FSPL", MinimalSNR: -20})
		if err != nil {
			t.Fatalf("NewFromNodesData: %v", err)
		}
		runToCompletion(t, sim, 20000)
		return summary.Aggregate(sim.Nodes())
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two runs with the same seed and nodes_data diverged:\n%+v\n%+v", first, second)
	}
}

func originate(t *testing.T, sim *Simulator, fromID uint32) {
	t.Helper()
	p, ok := sim.Peer(fromID)
	if !ok {
		t.Fatalf("no such node %d", fromID)
	}
	msg, err := message.New(message.Options{
		Type: message.Text, Length: 40, HopStart: 3, SenderAddr: fromID,
		Preset: modempreset.LongFast.Preset(), Rng: rand.New(rand.NewSource(int64(fromID))),
	})
	if err != nil {
		t.Fatalf("message.New: %v", err)
	}
	enqueuer, ok := p.(interface{ Enqueue(*message.Message) bool })
	if !ok {
		t.Fatalf("node %d does not support direct enqueue", fromID)
	}
	if !enqueuer.Enqueue(msg) {
		t.Fatalf("node %d queue rejected the message", fromID)
	}
}
