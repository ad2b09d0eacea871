package realtime

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is a process-local Store for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: map[string]map[string][]byte{}}
}

func (s *MemoryStore) Get(_ context.Context, collection, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.nodes[collection][key]
	if !ok {
		return nil, ErrNotFound
	}

	return slices.Clone(v), nil
}

func (s *MemoryStore) List(_ context.Context, collection string) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]Node, 0, len(s.nodes[collection]))
	for k, v := range s.nodes[collection] {
		nodes = append(nodes, Node{Key: k, Value: slices.Clone(v)})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })

	return nodes, nil
}

func (s *MemoryStore) Put(_ context.Context, collection, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nodes[collection] == nil {
		s.nodes[collection] = map[string][]byte{}
	}

	s.nodes[collection][key] = slices.Clone(value)

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.nodes[collection], key)

	return nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.nodes, collection)

	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
