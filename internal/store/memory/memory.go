// Package memory provides an in-process store implementation used by
// tests and local development.
package memory

import (
	"context"
	"sync"

	"backoffice-service/internal/store"
)

// Store keeps documents in memory behind a mutex. Documents are copied
// on the way in and out so callers never share state with the store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]store.Document
	// order preserves insertion order per collection so FindAll is
	// deterministic without an index.
	order map[string][]string
}

func New() *Store {
	return &Store{
		collections: map[string]map[string]store.Document{},
		order:       map[string][]string{},
	}
}

func (s *Store) Find(_ context.Context, collection, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.Clone(doc), nil
}

func (s *Store) FindAll(_ context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Document
	for _, id := range s.order[collection] {
		doc, ok := s.collections[collection][id]
		if !ok {
			continue
		}
		if store.Match(doc, filter) {
			out = append(out, store.Clone(doc))
		}
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, collection string, doc store.Document) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := doc["id"].(string)
	if s.collections[collection] == nil {
		s.collections[collection] = map[string]store.Document{}
	}
	if _, exists := s.collections[collection][id]; !exists {
		s.order[collection] = append(s.order[collection], id)
	}
	s.collections[collection][id] = store.Clone(doc)
	return store.Clone(doc), nil
}

func (s *Store) Update(_ context.Context, collection, id string, patch store.Document) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for k, v := range patch {
		doc[k] = v
	}
	s.collections[collection][id] = doc
	return store.Clone(doc), nil
}

func (s *Store) Destroy(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.collections[collection], id)

	ids := s.order[collection]
	for i, existing := range ids {
		if existing == id {
			s.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
