package simlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-meshsim/meshsim/pkg/meshsim/message"
	"github.com/go-meshsim/meshsim/pkg/meshsim/modempreset"
	"github.com/go-meshsim/meshsim/pkg/meshsim/simevent"
)

func TestHelperFormatting(t *testing.T) {
	if boolCol(true) != "1" || boolCol(false) != "0" {
		t.Error("boolCol should render as 1/0")
	}
	if got := hexCol(0xA1B2); got != "0xa1b2" {
		t.Errorf("hexCol(0xA1B2) = %q, want 0xa1b2", got)
	}
	if got := f(3.14159); got != "3.1416" {
		t.Errorf("f(3.14159) = %q, want 3.1416 (4 decimal places)", got)
	}
	if got := i(-7); got != "-7" {
		t.Errorf("i(-7) = %q", got)
	}
	if got := i64(1 << 40); got != "1099511627776" {
		t.Errorf("i64 mismatch: %q", got)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv %s: %v", path, err)
	}
	return rows
}

func TestLoggerWritesHeaderOnceAndFlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msg, err := message.New(message.Options{
		Type: message.Text, Length: 10, HopStart: 3, HasID: true, ID: 1, SenderAddr: 2,
		Preset: modempreset.LongFast.Preset(),
	})
	if err != nil {
		t.Fatalf("message.New: %v", err)
	}
	if err := logger.LogMessage(simevent.MessageEvent{Timestamp: 100, Msg: msg, TxNode: 2, RxNode: 3, RSSI: -50, SNR: 10}); err != nil {
		t.Fatalf("LogMessage: %v", err)
	}
	if err := logger.LogNode(simevent.NodeEvent{Time: 100, NodeID: 3, Role: "CLIENT", State: "IDLE"}); err != nil {
		t.Fatalf("LogNode: %v", err)
	}
	if err := logger.LogBackoff(simevent.BackoffEvent{Time: 100, NodeID: 3, Role: "CLIENT", CWSize: 3, CalculatedBackoff: 500}); err != nil {
		t.Fatalf("LogBackoff: %v", err)
	}
	if err := logger.LogSummary(simevent.SummaryEvent{NodeID: 3, Role: "CLIENT", RxSuccess: 1}); err != nil {
		t.Fatalf("LogSummary: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "messages.csv"))
	if len(rows) != 2 {
		t.Fatalf("messages.csv has %d rows, want 2 (header + 1 data row)", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("header row = %v, want it to start with \"timestamp\"", rows[0])
	}
	if rows[1][1] != "0x1" {
		t.Errorf("message_id column = %q, want 0x1", rows[1][1])
	}
}

func TestLoggerAppendsWithoutRewritingHeaderOnReopen(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.LogSummary(simevent.SummaryEvent{NodeID: 1, Role: "CLIENT"}); err != nil {
		t.Fatalf("LogSummary: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := New(dir)
	if err != nil {
		t.Fatalf("reopen New: %v", err)
	}
	if err := second.LogSummary(simevent.SummaryEvent{NodeID: 2, Role: "ROUTER"}); err != nil {
		t.Fatalf("LogSummary: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "summary.csv"))
	if len(rows) != 3 {
		t.Fatalf("summary.csv has %d rows, want 3 (one header, two appended data rows)", len(rows))
	}
	headerCount := 0
	for _, r := range rows {
		if r[0] == "node_id" {
			headerCount++
		}
	}
	if headerCount != 1 {
		t.Errorf("found %d header rows, want exactly 1 across both logger instances", headerCount)
	}
}
