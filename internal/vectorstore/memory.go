package vectorstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store using brute-force cosine distance.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]map[string]Record{}}
}

// Upsert stores records, replacing those with the same id.
func (s *MemoryStore) Upsert(_ context.Context, collection string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		c = map[string]Record{}
		s.collections[collection] = c
	}
	for _, r := range records {
		c[r.ID] = r
	}
	return nil
}

// Query returns the k nearest records. Ties are broken by id.
func (s *MemoryStore) Query(_ context.Context, collection string, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.collections[collection]))
	for _, r := range s.collections[collection] {
		matches = append(matches, Match{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Distance: cosineDistance(vector, r.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of records in collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
