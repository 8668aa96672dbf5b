package task

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestStore_Begin(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour, testLogger())
	defer store.Close()

	id := store.Begin()

	assert.True(t, strings.HasPrefix(id, "task_"), "task ids carry the task_ prefix")
	assert.Len(t, id, len("task_")+8)

	entry, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, entry.Status)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestStore_Begin_UniqueIDs(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour, testLogger())
	defer store.Close()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := store.Begin()
		assert.False(t, seen[id], "task id %s reused", id)
		seen[id] = true
	}
}

func TestStore_StatusTransitions(t *testing.T) {
	t.Parallel()

	t.Run("processing then completed", func(t *testing.T) {
		t.Parallel()

		store := NewStore(time.Hour, testLogger())
		defer store.Close()

		id := store.Begin()
		store.Complete(id, "the answer")

		entry, ok := store.Get(id)
		require.True(t, ok)
		assert.Equal(t, StatusCompleted, entry.Status)
		assert.Equal(t, "the answer", entry.Answer)
		assert.Empty(t, entry.Error)
	})

	t.Run("processing then failed", func(t *testing.T) {
		t.Parallel()

		store := NewStore(time.Hour, testLogger())
		defer store.Close()

		id := store.Begin()
		store.Fail(id, "extraction broke")

		entry, ok := store.Get(id)
		require.True(t, ok)
		assert.Equal(t, StatusFailed, entry.Status)
		assert.Equal(t, "extraction broke", entry.Error)
		assert.Empty(t, entry.Answer)
	})

	t.Run("terminal state is final", func(t *testing.T) {
		t.Parallel()

		store := NewStore(time.Hour, testLogger())
		defer store.Close()

		id := store.Begin()
		store.Complete(id, "first")
		store.Fail(id, "too late")
		store.Complete(id, "also too late")

		entry, ok := store.Get(id)
		require.True(t, ok)
		assert.Equal(t, StatusCompleted, entry.Status)
		assert.Equal(t, "first", entry.Answer)
		assert.Empty(t, entry.Error)
	})

	t.Run("terminal write for unknown id is ignored", func(t *testing.T) {
		t.Parallel()

		store := NewStore(time.Hour, testLogger())
		defer store.Close()

		store.Complete("task_missing", "nobody asked")

		_, ok := store.Get("task_missing")
		assert.False(t, ok)
	})
}

func TestStore_Get_Unknown(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour, testLogger())
	defer store.Close()

	_, ok := store.Get("task_nope")
	assert.False(t, ok)
}

func TestStore_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour, testLogger())
	defer store.Close()

	// One writer per task id, many tasks in parallel: the documented
	// single-writer contract.
	const tasks = 50
	ids := make([]string, tasks)
	for i := range ids {
		ids[i] = store.Begin()
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			if i%2 == 0 {
				store.Complete(id, "done")
			} else {
				store.Fail(id, "broken")
			}
		}(i, id)
	}
	wg.Wait()

	assert.Equal(t, tasks, store.Len())
	for i, id := range ids {
		entry, ok := store.Get(id)
		require.True(t, ok)
		if i%2 == 0 {
			assert.Equal(t, StatusCompleted, entry.Status)
		} else {
			assert.Equal(t, StatusFailed, entry.Status)
		}
	}
}

func TestStore_JanitorEvictsTerminalEntries(t *testing.T) {
	t.Parallel()

	// Zero retention makes every terminal entry immediately evictable.
	store := NewStore(0, testLogger())
	defer store.Close()

	finished := store.Begin()
	store.Complete(finished, "done")
	running := store.Begin()

	assert.Equal(t, 1, store.evictExpired())

	_, ok := store.Get(finished)
	assert.False(t, ok, "terminal entry past retention should be evicted")

	entry, ok := store.Get(running)
	require.True(t, ok, "in-flight entries are never evicted")
	assert.Equal(t, StatusProcessing, entry.Status)
}
