package connection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
)

func TestTracker_NextIsUniqueAndIncreasing(t *testing.T) {
	const (
		goroutines = 8
		perRoutine = 1000
	)

	tr := NewTracker()
	results := make([][]int32, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			ids := make([]int32, 0, perRoutine)
			for i := 0; i < perRoutine; i++ {
				ids = append(ids, tr.Next())
			}
			results[g] = ids
		}(g)
	}
	wg.Wait()

	seen := make(map[int32]struct{}, goroutines*perRoutine)
	for _, ids := range results {
		for i, id := range ids {
			if i > 0 {
				require.Greater(t, id, ids[i-1], "IDs seen by one goroutine must increase")
			}
			_, dup := seen[id]
			require.False(t, dup, "duplicate sequence ID %d", id)
			seen[id] = struct{}{}
		}
	}
	assert.Len(t, seen, goroutines*perRoutine)
	assert.Equal(t, int32(goroutines*perRoutine+1), tr.Next())
}

func TestTracker_FirstIDIsOne(t *testing.T) {
	assert.Equal(t, int32(1), NewTracker().Next())
}

func TestTracker_TrackAndAck(t *testing.T) {
	tr := NewTracker()
	ids := []protocol.NamedObjectID{{Name: "A"}, {Name: "B"}}

	seq := tr.Next()
	tr.Track(seq, ids)

	// The tracker keeps its own copy
	ids[0].Name = "changed"

	got, ok := tr.Pending(seq)
	require.True(t, ok)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, 1, tr.Len())

	assert.True(t, tr.Ack(seq))
	assert.False(t, tr.Ack(seq), "second ack must be a no-op")
	assert.False(t, tr.Ack(seq+100), "unknown IDs are ignored")

	_, ok = tr.Pending(seq)
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	tr.Track(tr.Next(), []protocol.NamedObjectID{{Name: "A"}})
	tr.Track(tr.Next(), []protocol.NamedObjectID{{Name: "B"}})

	tr.Reset()

	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, int32(3), tr.Next(), "numbering continues after reset")
}
