package connection

import (
	"sync"
	"sync/atomic"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
)

// Tracker assigns request sequence IDs and remembers which ids each
// subscribe request carried, so a partially rejected subscription can be
// resent without the rejected ids.
type Tracker struct {
	seq atomic.Int32

	mu      sync.Mutex
	pending map[int32][]protocol.NamedObjectID
}

// NewTracker creates an empty tracker. The first ID handed out is 1.
func NewTracker() *Tracker {
	return &Tracker{
		pending: make(map[int32][]protocol.NamedObjectID),
	}
}

// Next returns the next sequence ID.
func (t *Tracker) Next() int32 {
	return t.seq.Add(1)
}

// Track records the ids sent with seq.
func (t *Tracker) Track(seq int32, ids []protocol.NamedObjectID) {
	cp := make([]protocol.NamedObjectID, len(ids))
	copy(cp, ids)

	t.mu.Lock()
	t.pending[seq] = cp
	t.mu.Unlock()
}

// Pending returns the ids sent with seq, if still awaiting acknowledgement.
func (t *Tracker) Pending(seq int32) ([]protocol.NamedObjectID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids, ok := t.pending[seq]
	return ids, ok
}

// Ack forgets seq. It reports whether seq was pending; unknown and repeated
// acknowledgements are ignored.
func (t *Tracker) Ack(seq int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[seq]; !ok {
		return false
	}
	delete(t.pending, seq)
	return true
}

// Reset drops all pending entries. Sequence numbering continues.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.pending = make(map[int32][]protocol.NamedObjectID)
	t.mu.Unlock()
}

// Len returns the number of pending subscriptions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
