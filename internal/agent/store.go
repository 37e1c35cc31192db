package agent

import "sync"

// Store persists agent records. Saves are opportunistic: the controller
// treats a failure as a logged warning, never a fatal error.
type Store interface {
	// SaveAgentState persists a snapshot of an agent's record.
	SaveAgentState(id string, rec *Record) error

	// GetAgentState returns the last saved snapshot for an agent.
	GetAgentState(id string) (*Record, bool)
}

// MemoryStore is an in-memory Store. It is the default when no store is
// wired and the backing store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// SaveAgentState stores a copy of the record.
func (s *MemoryStore) SaveAgentState(id string, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec.clone()
	return nil
}

// GetAgentState returns a copy of the last saved record.
func (s *MemoryStore) GetAgentState(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// List returns copies of all saved records.
func (s *MemoryStore) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.clone())
	}
	return out
}
