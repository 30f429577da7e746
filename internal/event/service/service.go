// Package service orchestrates event creation and the dynamic form schema.
// Fields are validated by the schema builder and persisted atomically with the
// event; after that the schema is read-only.
package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"cmms/internal/event"
	"cmms/internal/event/schema"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
	"cmms/pkg/platform/sentinel"
)

type EventStore interface {
	CreateEventWithFields(ctx context.Context, ev event.Event, fields []schema.Field) (event.Event, error)
	GetEvent(ctx context.Context, eventID id.EventID) (event.Event, error)
	ListFields(ctx context.Context, eventID id.EventID) ([]event.FormField, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Service manages events and their dynamic registration forms.
type Service struct {
	store  EventStore
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(store EventStore, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEventInput is everything needed to create an event and its form.
type CreateEventInput struct {
	Name                 string
	StartsAt             time.Time
	EndsAt               time.Time
	RegistrationOpensAt  time.Time
	RegistrationClosesAt time.Time
	LocationName         *string
	LocationAddress      *string
	CreatedBy            id.UserID
	FieldDrafts          []schema.Draft
}

// CreateEvent validates the event window and field batch, then persists the
// event and every field in one transaction. A field batch that fails
// validation leaves nothing behind.
func (s *Service) CreateEvent(ctx context.Context, input CreateEventInput) (event.Event, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return event.Event{}, dErrors.New(dErrors.CodeInvalidInput, "Event name is required.")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return event.Event{}, dErrors.New(dErrors.CodeInvalidInput, "Event end must be after the start.")
	}
	if !input.RegistrationClosesAt.After(input.RegistrationOpensAt) {
		return event.Event{}, dErrors.New(dErrors.CodeInvalidInput, "Registration close must be after the open.")
	}

	fields, err := schema.BuildSchema(input.FieldDrafts)
	if err != nil {
		var validationErr *schema.ValidationError
		if errors.As(err, &validationErr) {
			return event.Event{}, dErrors.New(dErrors.CodeInvalidInput, validationErr.Message)
		}
		return event.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate field batch")
	}

	slug := Slugify(name)
	taken, err := s.store.SlugExists(ctx, slug)
	if err != nil {
		return event.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check event slug")
	}
	if taken {
		return event.Event{}, dErrors.New(dErrors.CodeConflict, "An event with this name already exists.")
	}

	created, err := s.store.CreateEventWithFields(ctx, event.Event{
		Name:                 name,
		Slug:                 slug,
		StartsAt:             input.StartsAt,
		EndsAt:               input.EndsAt,
		RegistrationOpensAt:  input.RegistrationOpensAt,
		RegistrationClosesAt: input.RegistrationClosesAt,
		LocationName:         input.LocationName,
		LocationAddress:      input.LocationAddress,
		CreatedByUserID:      input.CreatedBy,
	}, fields)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return event.Event{}, dErrors.New(dErrors.CodeConflict, "An event with this name already exists.")
		}
		return event.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}

	s.logger.InfoContext(ctx, "event created",
		"event_id", created.ID,
		"slug", created.Slug,
		"field_count", len(fields),
	)
	return created, nil
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, eventID id.EventID) (event.Event, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return event.Event{}, dErrors.New(dErrors.CodeNotFound, "Event not found.")
		}
		return event.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return ev, nil
}

// GetForm returns the event's fields in submission order for the form
// renderer.
func (s *Service) GetForm(ctx context.Context, eventID id.EventID) ([]event.FormField, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	fields, err := s.store.ListFields(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load form fields")
	}
	return fields, nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the name and collapses every non-alphanumeric run into a
// single hyphen.
func Slugify(name string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
