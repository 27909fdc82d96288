package store

import (
	"sync"
	"time"

	"github.com/AngelCh415/bidopt/internal/models"
)

// Run is one completed optimization: its summary plus the rendered report.
type Run struct {
	ID        string
	CreatedAt time.Time
	Summary   models.RunSummary
	Artifact  []byte // xlsx bytes
	Filename  string
}

// MemoryStore keeps completed runs for the lifetime of the process. Nothing
// is persisted; a restart starts clean.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string // insertion order, oldest first
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

// Put stores a run, refusing duplicates so retried requests stay idempotent.
func (s *MemoryStore) Put(r Run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; ok {
		return false
	}
	s.runs[r.ID] = &r
	s.order = append(s.order, r.ID)
	return true
}

func (s *MemoryStore) Get(id string) (Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return Run{}, false
	}
	return *r, true
}

// List returns runs newest first.
func (s *MemoryStore) List() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.runs[s.order[i]])
	}
	return out
}
