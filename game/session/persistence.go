package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wricardo/spellground/game/service"
)

var (
	_ service.ResultStore = (*MemoryResultStore)(nil)
	_ service.ResultStore = (*FileResultStore)(nil)
)

// MemoryResultStore keeps archived results for the life of the process
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]*service.StoredResult
}

func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string]*service.StoredResult)}
}

// Save stores result, assigning an ID when it has none
func (s *MemoryResultStore) Save(ctx context.Context, result *service.StoredResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	cp := *result

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[cp.ID] = &cp
	return nil
}

// Load retrieves a result by ID
func (s *MemoryResultStore) Load(ctx context.Context, id string) (*service.StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, service.ErrResultNotFound
	}
	cp := *r
	return &cp, nil
}

// List returns every stored result in no particular order
func (s *MemoryResultStore) List(ctx context.Context) ([]*service.StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*service.StoredResult, 0, len(s.results))
	for _, r := range s.results {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}
