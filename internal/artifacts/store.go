// Package artifacts accumulates structured findings per coordinating
// session so later routed tasks can build on prior results instead of
// re-deriving them.
package artifacts

import (
	"fmt"
	"sync"
	"time"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// Store holds artifacts grouped by coordinating session. Entries are
// append-only; prior artifacts are never mutated. A session's entries are
// cleared entirely when the session ends.
type Store struct {
	mu        sync.RWMutex
	bySession map[string][]models.Artifact
	now       func() time.Time
}

// NewStore creates an empty artifact store.
func NewStore() *Store {
	return &Store{
		bySession: make(map[string][]models.Artifact),
		now:       time.Now,
	}
}

// Add records an artifact for the session, assigning the next sequential
// id. The sequence is shared across agent types within a session, so ids
// read researcher_000, researcher_001, writer_002, and so on.
func (s *Store) Add(sessionID string, artifact models.Artifact) models.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact.ID = fmt.Sprintf("%s_%03d", artifact.AgentType, len(s.bySession[sessionID]))
	if artifact.Timestamp.IsZero() {
		artifact.Timestamp = s.now()
	}
	s.bySession[sessionID] = append(s.bySession[sessionID], artifact)
	return artifact
}

// Get returns the session's artifacts in insertion order.
func (s *Store) Get(sessionID string) []models.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Artifact(nil), s.bySession[sessionID]...)
}

// Count returns the number of artifacts recorded for the session.
func (s *Store) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySession[sessionID])
}

// ClearSession drops every artifact owned by the session.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bySession, sessionID)
}
