// Package registry owns the canonical task records and drives their
// lifecycle: launch, resume, cancel, lifecycle-signal consumption, the
// completion-notification protocol, and staleness reaping.
package registry

import (
	"sync"
	"time"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// Store is the in-memory task registry plus the pending-notification index.
// It is the only mutable shared state besides the admission counters; every
// mutation happens under its lock as a single atomic step.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*models.Task
	byHandle map[string]string
	pending  map[string][]models.PendingNotification
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tasks:    make(map[string]*models.Task),
		byHandle: make(map[string]string),
		pending:  make(map[string][]models.PendingNotification),
	}
}

// Add registers a new task.
func (s *Store) Add(t *models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	if t.ExecutionHandle != "" {
		s.byHandle[t.ExecutionHandle] = t.ID
	}
}

// Get returns a copy of the task with the given ID.
func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return *t, true
}

// ByHandle returns a copy of the task tracking the given execution handle.
func (s *Store) ByHandle(handle string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHandle[handle]
	if !ok {
		return models.Task{}, false
	}
	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return *t, true
}

// Update applies fn to the task with the given ID under the store lock.
// Returns false if the task does not exist. Status transitions are
// linearized here: no two writers ever see the same task concurrently.
func (s *Store) Update(id string, fn func(*models.Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	fn(t)
	return true
}

// Remove deletes the task record. Pending notifications are untouched;
// callers purge those separately.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		delete(s.byHandle, t.ExecutionHandle)
		delete(s.tasks, id)
	}
}

// Tasks returns copies of every tracked task.
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

// Running returns copies of every task currently in the running state.
func (s *Store) Running() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.Status == models.TaskStatusRunning {
			out = append(out, *t)
		}
	}
	return out
}

// RunningCount returns the number of running tasks.
func (s *Store) RunningCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.tasks {
		if t.Status == models.TaskStatusRunning {
			n++
		}
	}
	return n
}

// Children returns copies of the tasks whose parent handle is handle.
func (s *Store) Children(handle string) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.ParentHandle == handle {
			out = append(out, *t)
		}
	}
	return out
}

// EnqueuePending queues a completion notification for delivery.
func (s *Store) EnqueuePending(n models.PendingNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[n.ParentHandle] = append(s.pending[n.ParentHandle], n)
}

// PendingFor returns the queued notifications addressed to handle.
func (s *Store) PendingFor(handle string) []models.PendingNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PendingNotification(nil), s.pending[handle]...)
}

// PendingCount returns the total number of queued notifications.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, queue := range s.pending {
		n += len(queue)
	}
	return n
}

// RemovePendingForTask drops every queued notification for the given task.
func (s *Store) RemovePendingForTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for handle, queue := range s.pending {
		kept := queue[:0]
		for _, n := range queue {
			if n.TaskID != taskID {
				kept = append(kept, n)
			}
		}
		if len(kept) == 0 {
			delete(s.pending, handle)
		} else {
			s.pending[handle] = kept
		}
	}
}

// SweepPending drops notifications whose task started before cutoff or
// whose task record no longer exists and has aged out. This runs even when
// the task itself was removed through another path, so no notification
// outlives its window.
func (s *Store) SweepPending(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for handle, queue := range s.pending {
		kept := queue[:0]
		for _, n := range queue {
			if n.TaskStartedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) == 0 {
			delete(s.pending, handle)
		} else {
			s.pending[handle] = kept
		}
	}
	return removed
}
