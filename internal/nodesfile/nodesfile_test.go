package nodesfile

import (
	"strings"
	"testing"

	"github.com/go-meshsim/meshsim/pkg/meshsim/modempreset"
	"github.com/go-meshsim/meshsim/pkg/meshsim/node"
)

func TestLoadAppliesDefaults(t *testing.T) {
	data := []byte(`[{"node_id": "!00000001"}]`)
	descriptors, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(descriptors))
	}
	d := descriptors[0]
	if d.ID != 1 {
		t.Errorf("ID = 0x%x, want 0x1", d.ID)
	}
	if d.TxPowerDBm != defaultTxPowerDBm {
		t.Errorf("TxPowerDBm = %v, want default %v", d.TxPowerDBm, defaultTxPowerDBm)
	}
	if d.Mode != modempreset.LongFast {
		t.Errorf("Mode = %v, want default LongFast", d.Mode)
	}
	if d.Role != node.Client {
		t.Errorf("Role = %v, want default Client", d.Role)
	}
	if d.HopStart != defaultHopStart {
		t.Errorf("HopStart = %d, want default %d", d.HopStart, defaultHopStart)
	}
}

func TestLoadParsesFullRecord(t *testing.T) {
	data := []byte(`[{
		"node_id": "0xA1B2C3D4",
		"long_name": "Ridge Repeater",
		"position": [100.0, 200.0, 30.0],
		"tx_power": 20,
		"noise_level": -95,
		"frequency": 915000000,
		"lora_mode": "ShortFast",
		"hop_start": 5,
		"role": "ROUTER",
		"nodeinfo_interval": 300,
		"position_interval": 900,
		"text_message_min_interval": 600,
		"text_message_max_interval": 1200
	}]`)
	descriptors, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := descriptors[0]
	if d.ID != 0xA1B2C3D4 {
		t.Errorf("ID = 0x%x, want 0xa1b2c3d4", d.ID)
	}
	if d.LongName != "Ridge Repeater" {
		t.Errorf("LongName = %q", d.LongName)
	}
	if d.Position.X != 100 || d.Position.Y != 200 || d.Position.Z != 30 {
		t.Errorf("Position = %+v, want (100,200,30)", d.Position)
	}
	if d.Mode != modempreset.ShortFast {
		t.Errorf("Mode = %v, want ShortFast", d.Mode)
	}
	if d.Role != node.Router {
		t.Errorf("Role = %v, want Router", d.Role)
	}
	if d.HopStart != 5 {
		t.Errorf("HopStart = %d, want 5", d.HopStart)
	}
	if d.NodeInfoIntervalUS != 300_000_000 {
		t.Errorf("NodeInfoIntervalUS = %d, want 300000000", d.NodeInfoIntervalUS)
	}
}

func TestLoadUnknownRoleFallsBackToClient(t *testing.T) {
	data := []byte(`[{"node_id": "1", "role": "NOT_A_ROLE"}]`)
	descriptors, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if descriptors[0].Role != node.Client {
		t.Errorf("Role = %v, want Client fallback", descriptors[0].Role)
	}
}

func TestLoadUnknownModeIsConfigError(t *testing.T) {
	data := []byte(`[{"node_id": "1", "lora_mode": "Hyperspeed"}]`)
	if _, err := Load(data); err == nil {
		t.Fatal("expected an error for an unknown lora_mode")
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	data := []byte(`[{"node_id": "1"}, {"node_id": "0x1"}]`)
	_, err := Load(data)
	if err == nil {
		t.Fatal("expected an error for duplicate node ids")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error = %q, want it to mention duplicate", err.Error())
	}
}

func TestLoadRejectsBadPositionLength(t *testing.T) {
	data := []byte(`[{"node_id": "1", "position": [1.0, 2.0]}]`)
	if _, err := Load(data); err == nil {
		t.Fatal("expected an error for a 2-element position")
	}
}

func TestLoadRejectsHopStartOutOfRange(t *testing.T) {
	data := []byte(`[{"node_id": "1", "hop_start": 8}]`)
	if _, err := Load(data); err == nil {
		t.Fatal("expected an error for hop_start 8")
	}
}

func TestParseNodeIDAcceptsPrefixes(t *testing.T) {
	for _, s := range []string{"!a1b2c3d4", "0xa1b2c3d4", "a1b2c3d4"} {
		id, err := parseNodeID(s)
		if err != nil {
			t.Errorf("parseNodeID(%q): %v", s, err)
		}
		if id != 0xa1b2c3d4 {
			t.Errorf("parseNodeID(%q) = 0x%x, want 0xa1b2c3d4", s, id)
		}
	}
}
