// Package service drives the on-site arrival flow: the per-event dashboard of
// club registrations with their audit results, and marking a club's party as
// checked in at the gate.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cmms/internal/checkin"
	"cmms/internal/event"
	"cmms/internal/platform/metrics"
	"cmms/internal/registration"
	"cmms/internal/roster"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
	"cmms/pkg/platform/sentinel"
)

type RegistrationStore interface {
	GetRegistration(ctx context.Context, regID id.RegistrationID) (registration.Registration, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]registration.Registration, error)
	ListAttendees(ctx context.Context, regID id.RegistrationID) ([]registration.Attendee, error)
	ListResponses(ctx context.Context, regID id.RegistrationID) ([]registration.FormResponse, error)
	MarkCheckedIn(ctx context.Context, regID id.RegistrationID, now time.Time) (int, error)
}

type EventSource interface {
	RequiredFields(ctx context.Context, eventID id.EventID) ([]event.FormField, error)
}

type RosterSource interface {
	GetClub(ctx context.Context, clubID id.ClubID) (roster.Club, error)
}

// Service serves the check-in dashboard and arrival marking.
type Service struct {
	registrations RegistrationStore
	events        EventSource
	rosters       RosterSource
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
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

func New(registrations RegistrationStore, events EventSource, rosters RosterSource, opts ...Option) *Service {
	s := &Service{
		registrations: registrations,
		events:        events,
		rosters:       rosters,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DashboardRow is one club registration on the event's check-in dashboard.
type DashboardRow struct {
	Registration  registration.Registration
	ClubName      string
	AttendeeCount int
	Audit         checkin.Audit
}

// Dashboard audits every registration on the event against its required
// fields. Rows come back in registration creation order.
func (s *Service) Dashboard(ctx context.Context, eventID id.EventID) ([]DashboardRow, error) {
	requiredFields, err := s.events.RequiredFields(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load required fields")
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}

	rows := make([]DashboardRow, 0, len(regs))
	for _, reg := range regs {
		view, attendeeCount, err := s.registrationView(ctx, reg.ID)
		if err != nil {
			return nil, err
		}
		clubName := ""
		if club, err := s.rosters.GetClub(ctx, reg.ClubID); err == nil {
			clubName = club.Name
		}
		rows = append(rows, DashboardRow{
			Registration:  reg,
			ClubName:      clubName,
			AttendeeCount: attendeeCount,
			Audit:         checkin.AuditRegistration(view, requiredFields),
		})
	}
	return rows, nil
}

// AuditOne audits a single registration, for the drill-down view.
func (s *Service) AuditOne(ctx context.Context, regID id.RegistrationID) (DashboardRow, error) {
	reg, err := s.registrations.GetRegistration(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return DashboardRow{}, dErrors.New(dErrors.CodeNotFound, "Registration was not found.")
		}
		return DashboardRow{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	requiredFields, err := s.events.RequiredFields(ctx, reg.EventID)
	if err != nil {
		return DashboardRow{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load required fields")
	}
	view, attendeeCount, err := s.registrationView(ctx, regID)
	if err != nil {
		return DashboardRow{}, err
	}
	clubName := ""
	if club, err := s.rosters.GetClub(ctx, reg.ClubID); err == nil {
		clubName = club.Name
	}
	return DashboardRow{
		Registration:  reg,
		ClubName:      clubName,
		AttendeeCount: attendeeCount,
		Audit:         checkin.AuditRegistration(view, requiredFields),
	}, nil
}

func (s *Service) registrationView(ctx context.Context, regID id.RegistrationID) (checkin.RegistrationView, int, error) {
	attendees, err := s.registrations.ListAttendees(ctx, regID)
	if err != nil {
		return checkin.RegistrationView{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendees")
	}
	responses, err := s.registrations.ListResponses(ctx, regID)
	if err != nil {
		return checkin.RegistrationView{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list responses")
	}
	refs := make([]checkin.ResponseRef, 0, len(responses))
	for _, response := range responses {
		refs = append(refs, checkin.ResponseRef{
			FieldID:    response.FieldID,
			AttendeeID: response.AttendeeID,
		})
	}
	return checkin.RegistrationView{Attendees: attendees, Responses: refs}, len(attendees), nil
}

// CheckInResult reports one arrival marking.
type CheckInResult struct {
	AttendeesMarked int
}

// MarkRegistrationCheckedIn stamps every not-yet-arrived attendee on the
// registration and moves it to APPROVED. Re-running is harmless: already
// stamped attendees keep their original time.
func (s *Service) MarkRegistrationCheckedIn(ctx context.Context, regID id.RegistrationID) (CheckInResult, error) {
	marked, err := s.registrations.MarkCheckedIn(ctx, regID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return CheckInResult{}, dErrors.New(dErrors.CodeNotFound, "Registration was not found.")
		}
		return CheckInResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark registration checked in")
	}
	if s.metrics != nil {
		s.metrics.RegistrationsCheckedIn.Inc()
	}
	s.logger.InfoContext(ctx, "registration checked in",
		"registration_id", regID,
		"attendees_marked", marked,
	)
	return CheckInResult{AttendeesMarked: marked}, nil
}
