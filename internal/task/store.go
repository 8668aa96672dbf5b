package task

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task. Transitions are one-way:
// processing moves to exactly one of completed or failed and never back.
type Status string

// Possible task status values
const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Entry is the tracked state of one task. Terminal entries carry a payload:
// the answer text on completion or an error message on failure.
type Entry struct {
	ID        string
	Status    Status
	Answer    string
	Error     string
	CreatedAt time.Time

	finishedAt time.Time
}

// Store is a process-local concurrent map of task id to task state. Each
// task id is written by exactly one worker unit, so writes need no
// compare-and-swap; the mutex only guards the map structure itself.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	retention time.Duration
	logger    *slog.Logger

	janitorOnce sync.Once
	done        chan struct{}
}

// NewStore creates an empty Store. Terminal entries older than retention are
// evicted once the janitor runs; until then they remain pollable.
func NewStore(retention time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		entries:   make(map[string]*Entry),
		retention: retention,
		logger:    logger.With(slog.String("component", "task_store")),
		done:      make(chan struct{}),
	}
}

// Begin registers a new task in processing state and returns its id.
// Ids are random and never reused.
func (s *Store) Begin() string {
	id := "task_" + uuid.NewString()[:8]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &Entry{
		ID:        id,
		Status:    StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}

	return id
}

// Complete marks the task completed with the given answer. A terminal task
// is never moved again; a second terminal write is logged and ignored.
func (s *Store) Complete(id, answer string) {
	s.finish(id, StatusCompleted, answer, "")
}

// Fail marks the task failed with the given error message.
func (s *Store) Fail(id, errMsg string) {
	s.finish(id, StatusFailed, "", errMsg)
}

func (s *Store) finish(id string, status Status, answer, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		s.logger.Warn("terminal write for unknown task", slog.String("task_id", id))
		return
	}

	if e.Status != StatusProcessing {
		s.logger.Warn("ignoring second terminal write",
			slog.String("task_id", id),
			slog.String("current_status", string(e.Status)),
			slog.String("attempted_status", string(status)))
		return
	}

	e.Status = status
	e.Answer = answer
	e.Error = errMsg
	e.finishedAt = time.Now().UTC()
}

// Get returns the entry for a task id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of tracked tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartJanitor begins periodic eviction of terminal entries older than the
// retention window, bounding task-map growth over the process lifetime.
func (s *Store) StartJanitor(interval time.Duration) {
	s.janitorOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-s.done:
					return
				case <-ticker.C:
					if n := s.evictExpired(); n > 0 {
						s.logger.Debug("evicted finished tasks", slog.Int("count", n))
					}
				}
			}
		}()
	})
}

// Close stops the janitor. The store itself needs no further teardown.
func (s *Store) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Store) evictExpired() int {
	cutoff := time.Now().UTC().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.entries {
		if e.Status != StatusProcessing && e.finishedAt.Before(cutoff) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}
