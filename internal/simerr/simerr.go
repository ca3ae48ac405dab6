// Package simerr defines the error taxonomy used across the simulator.
package simerr

import "fmt"

// Config reports a malformed input: bad node descriptor, unsupported
// propagation-model frequency band, or other configuration problem
// detected before the simulation starts. Callers surface it and exit
// with a nonzero status; there is no per-tick recovery.
type Config struct {
	Reason string
}

func (e *Config) Error() string {
	return fmt.Sprintf("config error: %s", e.Reason)
}

// NewConfig builds a Config error with a formatted reason.
func NewConfig(format string, args ...interface{}) *Config {
	return &Config{Reason: fmt.Sprintf(format, args...)}
}

// Invariant reports an illegal state transition. It indicates a logic
// bug in the simulator itself, never bad input, and should abort the
// run rather than be handled.
type Invariant struct {
	NodeID   uint32
	From     string
	To       string
	Detail   string
}

func (e *Invariant) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invariant violation on node %08x: %s -> %s (%s)", e.NodeID, e.From, e.To, e.Detail)
	}
	return fmt.Sprintf("invariant violation on node %08x: %s -> %s", e.NodeID, e.From, e.To)
}

// NewInvariant builds an Invariant error for an illegal state transition.
func NewInvariant(nodeID uint32, from, to, detail string) *Invariant {
	return &Invariant{NodeID: nodeID, From: from, To: to, Detail: detail}
}
