package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"cmms/internal/catalog"
	"cmms/internal/eligibility"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// MemoryStore is the in-memory catalog store used in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[id.CatalogID]catalog.Item
}

func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[id.CatalogID]catalog.Item)}
}

func (s *MemoryStore) CreateItem(_ context.Context, item catalog.Item) (catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if strings.EqualFold(existing.Code, item.Code) {
			return catalog.Item{}, sentinel.ErrConflict
		}
	}
	item.ID = id.CatalogID(uuid.New())
	s.items[item.ID] = item
	return item, nil
}

func (s *MemoryStore) UpdateItem(_ context.Context, item catalog.Item) (catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return catalog.Item{}, sentinel.ErrNotFound
	}
	for otherID, existing := range s.items {
		if otherID != item.ID && strings.EqualFold(existing.Code, item.Code) {
			return catalog.Item{}, sentinel.ErrConflict
		}
	}
	s.items[item.ID] = item
	return item, nil
}

func (s *MemoryStore) GetItem(_ context.Context, catalogID id.CatalogID) (catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[catalogID]
	if !ok {
		return catalog.Item{}, sentinel.ErrNotFound
	}
	return item, nil
}

func (s *MemoryStore) ListItems(_ context.Context, activeOnly bool) ([]catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []catalog.Item
	for _, item := range s.items {
		if activeOnly && !item.Active {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	return items, nil
}

func (s *MemoryStore) Requirements(_ context.Context, catalogID id.CatalogID) ([]eligibility.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[catalogID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]eligibility.Requirement{}, item.Requirements...), nil
}
