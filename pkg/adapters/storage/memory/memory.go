package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/graphpool/pkg/ports"
)

// InMemoryResultStorage implements ResultStorage using an in-memory map
type InMemoryResultStorage struct {
	results map[string]*ports.RunResult
	mu      sync.RWMutex
}

// NewInMemoryResultStorage creates a new in-memory result storage
func NewInMemoryResultStorage() *InMemoryResultStorage {
	return &InMemoryResultStorage{
		results: make(map[string]*ports.RunResult),
	}
}

// SaveResult stores a copy of result, replacing any previous one
func (s *InMemoryResultStorage) SaveResult(ctx context.Context, result *ports.RunResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("result ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.ID] = copyResult(result)
	return nil
}

// GetResult retrieves a copy of the stored result
func (s *InMemoryResultStorage) GetResult(ctx context.Context, id string) (*ports.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[id]
	if !ok {
		return nil, fmt.Errorf("result %s: %w", id, ports.ErrNotFound)
	}
	return copyResult(result), nil
}

// ListResults returns all stored results, oldest first
func (s *InMemoryResultStorage) ListResults(ctx context.Context) ([]*ports.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*ports.RunResult, 0, len(s.results))
	for _, r := range s.results {
		results = append(results, copyResult(r))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.Before(results[j].StartedAt)
	})
	return results, nil
}

// DeleteResult removes a stored result
func (s *InMemoryResultStorage) DeleteResult(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.results, id)
	return nil
}

func copyResult(r *ports.RunResult) *ports.RunResult {
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
