package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"cmms/internal/event"
	"cmms/internal/event/schema"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// MemoryStore is the in-memory event store used by unit and handler tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[id.EventID]event.Event
	fields map[id.EventID][]event.FormField
	slugs  map[string]id.EventID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		events: make(map[id.EventID]event.Event),
		fields: make(map[id.EventID][]event.FormField),
		slugs:  make(map[string]id.EventID),
	}
}

// CreateEventWithFields persists the event and its normalized field batch
// atomically. The batch arrives parents-first, so durable parent ids are
// always assigned before any child references them.
func (s *MemoryStore) CreateEventWithFields(_ context.Context, ev event.Event, fields []schema.Field) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.slugs[ev.Slug]; taken {
		return event.Event{}, sentinel.ErrConflict
	}

	ev.ID = id.EventID(uuid.New())

	refToID := make(map[string]id.FieldID, len(fields))
	stored := make([]event.FormField, 0, len(fields))
	for _, field := range fields {
		fieldID := id.FieldID(uuid.New())
		refToID[field.Ref] = fieldID

		record := event.FormField{
			ID:          fieldID,
			EventID:     ev.ID,
			Key:         field.Key,
			Label:       field.Label,
			Description: field.Description,
			Type:        field.Type,
			Options:     field.Options,
			IsRequired:  field.IsRequired,
			SortOrder:   field.SortOrder,
		}
		if field.ParentRef != "" {
			parentID, ok := refToID[field.ParentRef]
			if !ok {
				return event.Event{}, sentinel.ErrInvalidState
			}
			record.ParentFieldID = &parentID
		}
		stored = append(stored, record)
	}

	s.events[ev.ID] = ev
	s.fields[ev.ID] = stored
	s.slugs[ev.Slug] = ev.ID
	return ev, nil
}

func (s *MemoryStore) GetEvent(_ context.Context, eventID id.EventID) (event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[eventID]
	if !ok {
		return event.Event{}, sentinel.ErrNotFound
	}
	return ev, nil
}

func (s *MemoryStore) ListFields(_ context.Context, eventID id.EventID) ([]event.FormField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields := append([]event.FormField{}, s.fields[eventID]...)
	sort.Slice(fields, func(i, j int) bool { return fields[i].SortOrder < fields[j].SortOrder })
	return fields, nil
}

func (s *MemoryStore) RequiredFields(ctx context.Context, eventID id.EventID) ([]event.FormField, error) {
	fields, err := s.ListFields(ctx, eventID)
	if err != nil {
		return nil, err
	}
	required := fields[:0:0]
	for _, field := range fields {
		if field.IsRequired {
			required = append(required, field)
		}
	}
	return required, nil
}

func (s *MemoryStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, taken := s.slugs[slug]
	return taken, nil
}
