// Package service orchestrates saving and submitting event registrations.
// Every save runs the payload through the assembler, then replaces the
// registration's rows in one store transaction; the receipt notification is
// published only after that transaction has committed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cmms/internal/event"
	"cmms/internal/notify"
	"cmms/internal/platform/metrics"
	"cmms/internal/registration"
	regstore "cmms/internal/registration/store"
	"cmms/internal/roster"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
	"cmms/pkg/platform/sentinel"
)

type RegistrationStore interface {
	SaveSubmission(ctx context.Context, params regstore.SaveParams) (registration.Registration, error)
	GetRegistration(ctx context.Context, regID id.RegistrationID) (registration.Registration, error)
	GetByEventAndClub(ctx context.Context, eventID id.EventID, clubID id.ClubID) (registration.Registration, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]registration.Registration, error)
	ListAttendees(ctx context.Context, regID id.RegistrationID) ([]registration.Attendee, error)
	ListResponses(ctx context.Context, regID id.RegistrationID) ([]registration.FormResponse, error)
}

type EventSource interface {
	GetEvent(ctx context.Context, eventID id.EventID) (event.Event, error)
	ListFields(ctx context.Context, eventID id.EventID) ([]event.FormField, error)
}

type RosterSource interface {
	ActiveMemberIDs(ctx context.Context, clubID id.ClubID) (map[id.RosterMemberID]struct{}, error)
	GetClub(ctx context.Context, clubID id.ClubID) (roster.Club, error)
}

type Publisher interface {
	PublishRegistrationSubmitted(ctx context.Context, event notify.RegistrationSubmitted) error
}

// Service orchestrates registration saves.
type Service struct {
	store     RegistrationStore
	events    EventSource
	rosters   RosterSource
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(store RegistrationStore, events EventSource, rosters RosterSource, opts ...Option) *Service {
	s := &Service{
		store:   store,
		events:  events,
		rosters: rosters,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveInput is one draft save or submission.
type SaveInput struct {
	EventID        id.EventID
	ClubID         id.ClubID
	Payload        registration.Payload
	Submit         bool
	RecipientEmail string
}

// Save assembles the payload against the event schema and the club's active
// roster, then persists it as an idempotent overwrite of the (event, club)
// registration. Submitting additionally stamps submittedAt and publishes the
// receipt notification after commit.
func (s *Service) Save(ctx context.Context, input SaveInput) (registration.Registration, error) {
	ev, err := s.events.GetEvent(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return registration.Registration{}, dErrors.New(dErrors.CodeNotFound, "Event not found.")
		}
		return registration.Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	now := s.now()
	if now.Before(ev.RegistrationOpensAt) || now.After(ev.RegistrationClosesAt) {
		return registration.Registration{}, dErrors.New(dErrors.CodeConflict, "Registration is not open for this event.")
	}

	fields, err := s.events.ListFields(ctx, input.EventID)
	if err != nil {
		return registration.Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load form fields")
	}
	validFieldIDs := make(map[id.FieldID]struct{}, len(fields))
	for _, field := range fields {
		validFieldIDs[field.ID] = struct{}{}
	}

	validAttendeeIDs, err := s.rosters.ActiveMemberIDs(ctx, input.ClubID)
	if err != nil {
		return registration.Registration{}, err
	}

	submission := registration.Assemble(input.Payload, validAttendeeIDs, validFieldIDs)
	if input.Submit && len(submission.AttendeeIDs) == 0 {
		return registration.Registration{}, dErrors.New(dErrors.CodeInvalidInput, "Select at least one attendee before submitting.")
	}

	reg, err := s.store.SaveSubmission(ctx, regstore.SaveParams{
		EventID:    input.EventID,
		ClubID:     input.ClubID,
		NewCode:    registration.NewRegistrationCode(now),
		Submit:     input.Submit,
		Now:        now,
		Submission: submission,
	})
	if err != nil {
		return registration.Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
	}

	if s.metrics != nil {
		s.metrics.RegistrationsSaved.WithLabelValues(string(reg.Status)).Inc()
	}
	s.logger.InfoContext(ctx, "registration saved",
		"registration_id", reg.ID,
		"event_id", input.EventID,
		"club_id", input.ClubID,
		"status", reg.Status,
		"attendee_count", len(submission.AttendeeIDs),
		"response_count", len(submission.Responses),
	)

	if input.Submit {
		s.publishReceipt(ctx, reg, ev, len(submission.AttendeeIDs), input.RecipientEmail)
	}
	return reg, nil
}

// publishReceipt runs after the save transaction committed. Failures are
// logged and counted; the registration stands regardless.
func (s *Service) publishReceipt(ctx context.Context, reg registration.Registration, ev event.Event, attendeeCount int, recipient string) {
	if s.publisher == nil {
		return
	}

	clubName := ""
	if club, err := s.rosters.GetClub(ctx, reg.ClubID); err == nil {
		clubName = club.Name
	}

	submittedAt := s.now()
	if reg.SubmittedAt != nil {
		submittedAt = *reg.SubmittedAt
	}
	err := s.publisher.PublishRegistrationSubmitted(ctx, notify.RegistrationSubmitted{
		RegistrationID:   reg.ID.String(),
		RegistrationCode: reg.RegistrationCode,
		EventName:        ev.Name,
		ClubName:         clubName,
		AttendeeCount:    attendeeCount,
		RecipientEmail:   recipient,
		SubmittedAt:      submittedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "receipt publish failed",
			"registration_id", reg.ID,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.NotificationsFailed.Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.NotificationsPublished.Inc()
	}
}

// Detail is a registration with its attendee selection and answers.
type Detail struct {
	Registration registration.Registration
	Attendees    []registration.Attendee
	Responses    []registration.FormResponse
}

// Get loads the club's registration for an event.
func (s *Service) Get(ctx context.Context, eventID id.EventID, clubID id.ClubID) (Detail, error) {
	reg, err := s.store.GetByEventAndClub(ctx, eventID, clubID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Detail{}, dErrors.New(dErrors.CodeNotFound, "No registration found for this event.")
		}
		return Detail{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return s.detail(ctx, reg)
}

// GetByID loads one registration regardless of club, for super-admin views.
func (s *Service) GetByID(ctx context.Context, regID id.RegistrationID) (Detail, error) {
	reg, err := s.store.GetRegistration(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Detail{}, dErrors.New(dErrors.CodeNotFound, "Registration not found.")
		}
		return Detail{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return s.detail(ctx, reg)
}

// ListByEvent returns every club's registration detail for an event.
func (s *Service) ListByEvent(ctx context.Context, eventID id.EventID) ([]Detail, error) {
	regs, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	details := make([]Detail, 0, len(regs))
	for _, reg := range regs {
		detail, err := s.detail(ctx, reg)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Service) detail(ctx context.Context, reg registration.Registration) (Detail, error) {
	attendees, err := s.store.ListAttendees(ctx, reg.ID)
	if err != nil {
		return Detail{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendees")
	}
	responses, err := s.store.ListResponses(ctx, reg.ID)
	if err != nil {
		return Detail{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load responses")
	}
	return Detail{Registration: reg, Attendees: attendees, Responses: responses}, nil
}
