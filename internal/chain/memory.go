package chain

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
// It is primarily useful for testing and for single-process deployments
// that do not require durable persistence across restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks []Block // ascending by Seq
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// search returns the index where seq is or would be stored.
func (s *MemoryStore) search(seq int64) int {
	return sort.Search(len(s.blocks), func(i int) bool { return s.blocks[i].Seq >= seq })
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks), nil
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, b Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.search(b.Seq)
	if i < len(s.blocks) && s.blocks[i].Seq == b.Seq {
		return ErrDuplicateSeq
	}
	s.blocks = append(s.blocks, Block{})
	copy(s.blocks[i+1:], s.blocks[i:])
	s.blocks[i] = b
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out, nil
}

// Last implements Store.
func (s *MemoryStore) Last(_ context.Context) (Block, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return Block{}, false, nil
	}
	return s.blocks[len(s.blocks)-1], true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, seq int64) (Block, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.search(seq)
	if i < len(s.blocks) && s.blocks[i].Seq == seq {
		return s.blocks[i], true, nil
	}
	return Block{}, false, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, b Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.search(b.Seq)
	if i < len(s.blocks) && s.blocks[i].Seq == b.Seq {
		s.blocks[i] = b
		return nil
	}
	return ErrNotFound
}
