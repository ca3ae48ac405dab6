// Package simlog implements the append-only CSV row writers for a run: the
// three streams the simulator emits during a run (messages, nodes, backoff),
// matching the columns of spec §6, plus the end-of-run summary.csv. Adapted
// from the teacher's internal/output/file.go append-file pattern.
package simlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// stream wraps a single CSV file: one header written on first row, then
// buffered appends flushed explicitly on Close per spec §5 ("implementations
// may buffer but must flush on shutdown").
type stream struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	header []string
	wrote  bool
}

func newStream(path string, header []string) (*stream, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}

	existing, err := os.Stat(path)
	hadContent := err == nil && existing.Size() > 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &stream{file: f, writer: csv.NewWriter(f), header: header, wrote: hadContent}
	return s, nil
}

func (s *stream) writeRow(row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wrote {
		if err := s.writer.Write(s.header); err != nil {
			return err
		}
		s.wrote = true
	}
	return s.writer.Write(row)
}

func (s *stream) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	return s.writer.Error()
}

func (s *stream) close() error {
	if err := s.flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

// Logger owns the messages.csv, nodes.csv, backoff.csv, and summary.csv
// streams for one simulation run.
type Logger struct {
	messages *stream
	nodes    *stream
	backoff  *stream
	summary  *stream
}

var (
	messagesHeader = []string{
		"timestamp", "message_id", "sender_addr", "dest_addr", "message_type",
		"message_length", "message_tx_time", "hop_start", "hop_limit",
		"tx_node", "rx_node", "rssi", "snr", "collision", "complete_reception",
	}
	nodesHeader = []string{
		"time", "node_id", "long_name", "role", "position", "tx_power",
		"noise_level", "frequency", "lora_mode", "state", "backoff_time",
		"message_queue_len", "messages_heard", "known_nodes", "rx_success",
		"rx_fail", "rx_dups", "rx_unicast", "tx_done", "forwarded",
		"tx_cancelled", "collisions_caused", "tx_origin", "messages_confirmed",
		"tx_time_sum", "rx_time_sum", "backoff_time_sum", "tx_util", "air_util",
	}
	backoffHeader = []string{
		"time", "node_id", "long_name", "role", "tx_util", "air_util",
		"rebroadcast", "SNR", "CWsize", "calculated_backoff",
	}
	summaryHeader = []string{
		"node_id", "long_name", "role", "tx_origin", "messages_confirmed",
		"rx_success", "rx_fail", "rx_dups", "rx_unicast", "forwarded",
		"tx_cancelled", "collisions_caused", "tx_util", "air_util",
	}
)

// New opens (or appends to) the four CSV streams under resultsDir.
func New(resultsDir string) (*Logger, error) {
	msgs, err := newStream(filepath.Join(resultsDir, "messages.csv"), messagesHeader)
	if err != nil {
		return nil, err
	}
	nodes, err := newStream(filepath.Join(resultsDir, "nodes.csv"), nodesHeader)
	if err != nil {
		return nil, err
	}
	backoff, err := newStream(filepath.Join(resultsDir, "backoff.csv"), backoffHeader)
	if err != nil {
		return nil, err
	}
	summary, err := newStream(filepath.Join(resultsDir, "summary.csv"), summaryHeader)
	if err != nil {
		return nil, err
	}

	return &Logger{messages: msgs, nodes: nodes, backoff: backoff, summary: summary}, nil
}

// Close flushes and closes every stream. Errors are joined so that a
// failure on one stream doesn't hide failures on the others.
func (l *Logger) Close() error {
	var errs []error
	for _, s := range []*stream{l.messages, l.nodes, l.backoff, l.summary} {
		if err := s.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing logger streams: %v", errs)
	}
	return nil
}
