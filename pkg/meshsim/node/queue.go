package node

import "github.com/go-meshsim/meshsim/pkg/meshsim/message"

// txQueue is the node's outbound FIFO (spec §3: bounded, capacity 20,
// overflow dropped silently). Implemented as a plain slice since the
// per-tick traffic never approaches a size where this matters.
type txQueue struct {
	items []*message.Message
	cap   int
}

func newTxQueue(capacity int) *txQueue {
	if capacity <= 0 {
		capacity = 20
	}
	return &txQueue{cap: capacity}
}

func (q *txQueue) push(m *message.Message) bool {
	if len(q.items) >= q.cap {
		return false
	}
	q.items = append(q.items, m)
	return true
}

func (q *txQueue) pop() (*message.Message, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

func (q *txQueue) len() int { return len(q.items) }

// rxEntry tracks one in-progress reception from a single transmitter.
type rxEntry struct {
	RxTimeUS    int64
	Msg         *message.Message
	LastHeardUS int64
	CollisionUS int64
}

// rxMultiplexer holds the set of transmissions a node is currently
// receiving, keyed by the transmitting node's id. Iteration order follows
// insertion order (a plain map would randomize it), which the simulation's
// determinism requirement (spec §9: bit-identical output for a given seed)
// depends on whenever more than one reception is live at once.
type rxMultiplexer struct {
	order []uint32
	byID  map[uint32]*rxEntry
}

func newRxMultiplexer() *rxMultiplexer {
	return &rxMultiplexer{byID: make(map[uint32]*rxEntry)}
}

func (r *rxMultiplexer) get(id uint32) (*rxEntry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

func (r *rxMultiplexer) set(id uint32, e *rxEntry) {
	if _, exists := r.byID[id]; !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = e
}

func (r *rxMultiplexer) delete(id uint32) {
	if _, exists := r.byID[id]; !exists {
		return
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *rxMultiplexer) len() int { return len(r.order) }

func (r *rxMultiplexer) each(fn func(id uint32, e *rxEntry)) {
	for _, id := range r.order {
		fn(id, r.byID[id])
	}
}
