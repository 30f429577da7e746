// Package service runs the enroll state machine. The whole decision executes
// inside one locked store transaction: registration membership, offering
// identity, prerequisites, idempotency, and capacity are all judged against
// the same snapshot the insert commits into.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cmms/internal/eligibility"
	"cmms/internal/enrollment"
	enrollstore "cmms/internal/enrollment/store"
	"cmms/internal/platform/metrics"
	"cmms/internal/registration"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
	"cmms/pkg/platform/sentinel"
)

type EnrollmentStore interface {
	WithOfferingLock(ctx context.Context, offeringID id.OfferingID, fn func(view enrollstore.TxView) error) error
	CreateOffering(ctx context.Context, offering enrollment.Offering) (enrollment.Offering, error)
	GetOffering(ctx context.Context, offeringID id.OfferingID) (enrollment.Offering, error)
	ListOfferingsByEvent(ctx context.Context, eventID id.EventID) ([]enrollment.Offering, error)
	ListEnrollments(ctx context.Context, offeringID id.OfferingID) ([]enrollment.Enrollment, error)
}

// RegistrationSource reads the club's attendee selection for advisory views.
type RegistrationSource interface {
	GetByEventAndClub(ctx context.Context, eventID id.EventID, clubID id.ClubID) (registration.Registration, error)
	ListAttendees(ctx context.Context, regID id.RegistrationID) ([]registration.Attendee, error)
}

// SnapshotSource loads attendee eligibility snapshots outside the enroll
// transaction. The advisory view reads through here (possibly cached); Enroll
// never does, it reads inside its own transaction.
type SnapshotSource interface {
	EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error)
}

// CatalogSource loads a catalog item's requirement rows.
type CatalogSource interface {
	Requirements(ctx context.Context, catalogID id.CatalogID) ([]eligibility.Requirement, error)
}

// Service orchestrates offerings and enrollments.
type Service struct {
	store         EnrollmentStore
	registrations RegistrationSource
	snapshots     SnapshotSource
	catalogs      CatalogSource
	logger        *slog.Logger
	metrics       *metrics.Metrics
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

// New constructs a Service.
func New(store EnrollmentStore, registrations RegistrationSource, snapshots SnapshotSource, catalogs CatalogSource, opts ...Option) *Service {
	s := &Service{
		store:         store,
		registrations: registrations,
		snapshots:     snapshots,
		catalogs:      catalogs,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnrollInput identifies one enroll attempt.
type EnrollInput struct {
	EventID        id.EventID
	ClubID         id.ClubID
	RosterMemberID id.RosterMemberID
	OfferingID     id.OfferingID
}

// Enroll attempts to seat one registered attendee in one offering. Business
// failures come back as the Outcome, not as errors; only infrastructure
// faults error. The steps, in order, all inside the offering lock:
//
//  1. the member is on the club's registration for this event
//  2. the offering belongs to this event
//  3. the member passes the catalog item's requirements
//  4. an existing (offering, member) row is an idempotent success
//  5. a full class rejects
//  6. otherwise the seat is inserted
//
// The offering row is locked before step 1 runs, so an unknown offering
// reports OfferingNotFound even when the member is also unregistered.
func (s *Service) Enroll(ctx context.Context, input EnrollInput) (enrollment.Outcome, error) {
	var outcome enrollment.Outcome

	err := s.store.WithOfferingLock(ctx, input.OfferingID, func(view enrollstore.TxView) error {
		offering := view.Offering()

		registered, err := view.AttendeeRegistered(ctx, input.EventID, input.ClubID, input.RosterMemberID)
		if err != nil {
			return err
		}
		if !registered {
			outcome = enrollment.Outcome{Kind: enrollment.OutcomeAttendeeNotRegistered}
			return nil
		}

		if offering.EventID != input.EventID {
			outcome = enrollment.Outcome{Kind: enrollment.OutcomeOfferingNotFound}
			return nil
		}

		attendee, err := view.EligibilitySnapshot(ctx, input.RosterMemberID)
		if err != nil {
			return err
		}
		requirements, err := view.RequirementsForCatalog(ctx, offering.CatalogID)
		if err != nil {
			return err
		}
		if evaluation := eligibility.Evaluate(attendee, requirements); !evaluation.Eligible {
			outcome = enrollment.Outcome{
				Kind:     enrollment.OutcomePrerequisitesNotMet,
				Blockers: evaluation.Blockers,
			}
			return nil
		}

		exists, err := view.ExistingEnrollment(ctx, input.RosterMemberID)
		if err != nil {
			return err
		}
		if exists {
			outcome = enrollment.Outcome{Kind: enrollment.OutcomeAlreadyEnrolled}
			return nil
		}

		count, err := view.CountEnrollments(ctx)
		if err != nil {
			return err
		}
		if count >= offering.Capacity {
			outcome = enrollment.Outcome{Kind: enrollment.OutcomeClassFull}
			return nil
		}

		if err := view.InsertEnrollment(ctx, enrollment.Enrollment{
			OfferingID:     offering.ID,
			RosterMemberID: input.RosterMemberID,
		}); err != nil {
			return err
		}
		outcome = enrollment.Outcome{Kind: enrollment.OutcomeEnrolled}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			outcome = enrollment.Outcome{Kind: enrollment.OutcomeOfferingNotFound}
			s.countOutcome(outcome)
			return outcome, nil
		}
		return enrollment.Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll attendee")
	}

	s.countOutcome(outcome)
	s.logger.InfoContext(ctx, "enroll attempt finished",
		"offering_id", input.OfferingID,
		"roster_member_id", input.RosterMemberID,
		"outcome", outcomeLabel(outcome.Kind),
	)
	return outcome, nil
}

func (s *Service) countOutcome(outcome enrollment.Outcome) {
	if s.metrics == nil {
		return
	}
	if outcome.Kind == enrollment.OutcomeEnrolled {
		s.metrics.EnrollmentsTotal.Inc()
		return
	}
	if !outcome.Succeeded() {
		s.metrics.EnrollmentsRejected.WithLabelValues(outcomeLabel(outcome.Kind)).Inc()
	}
}

func outcomeLabel(kind enrollment.OutcomeKind) string {
	return strings.ToLower(kind.Code())
}

// CreateOfferingInput is everything needed to schedule a catalog item at an
// event.
type CreateOfferingInput struct {
	EventID          id.EventID
	CatalogID        id.CatalogID
	Capacity         int
	DayIndex         int
	StartsAt         time.Time
	EndsAt           time.Time
	Location         *string
	InstructorUserID *id.UserID
}

// CreateOffering schedules a catalog item at an event.
func (s *Service) CreateOffering(ctx context.Context, input CreateOfferingInput) (enrollment.Offering, error) {
	if input.Capacity < 0 {
		return enrollment.Offering{}, dErrors.New(dErrors.CodeInvalidInput, "Offering capacity must not be negative.")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return enrollment.Offering{}, dErrors.New(dErrors.CodeInvalidInput, "Offering end must be after the start.")
	}

	offering, err := s.store.CreateOffering(ctx, enrollment.Offering{
		EventID:          input.EventID,
		CatalogID:        input.CatalogID,
		Capacity:         input.Capacity,
		DayIndex:         input.DayIndex,
		StartsAt:         input.StartsAt,
		EndsAt:           input.EndsAt,
		Location:         input.Location,
		InstructorUserID: input.InstructorUserID,
	})
	if err != nil {
		return enrollment.Offering{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create offering")
	}
	return offering, nil
}

// ListOfferings returns an event's offerings with their current seat counts.
func (s *Service) ListOfferings(ctx context.Context, eventID id.EventID) ([]OfferingSummary, error) {
	offerings, err := s.store.ListOfferingsByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list offerings")
	}
	summaries := make([]OfferingSummary, 0, len(offerings))
	for _, offering := range offerings {
		enrollments, err := s.store.ListEnrollments(ctx, offering.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count enrollments")
		}
		summaries = append(summaries, OfferingSummary{
			Offering: offering,
			Enrolled: len(enrollments),
		})
	}
	return summaries, nil
}

// OfferingSummary pairs an offering with its seat usage.
type OfferingSummary struct {
	Offering enrollment.Offering
	Enrolled int
}

// AttendeeEligibility is one row of the advisory eligibility view.
type AttendeeEligibility struct {
	RosterMemberID id.RosterMemberID
	Eligible       bool
	Blockers       []string
}

// EligibilityView reports, per registered attendee of the club, whether the
// attendee would pass the offering's requirements. Advisory only: the
// authoritative check re-runs inside the Enroll transaction, so a stale
// snapshot here can never oversell or falsely admit.
func (s *Service) EligibilityView(ctx context.Context, eventID id.EventID, clubID id.ClubID, offeringID id.OfferingID) ([]AttendeeEligibility, error) {
	offering, err := s.store.GetOffering(ctx, offeringID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Class offering was not found for this event.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load offering")
	}
	if offering.EventID != eventID {
		return nil, dErrors.New(dErrors.CodeNotFound, "Class offering was not found for this event.")
	}

	reg, err := s.registrations.GetByEventAndClub(ctx, eventID, clubID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "No registration found for this event.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	attendees, err := s.registrations.ListAttendees(ctx, reg.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendees")
	}

	requirements, err := s.catalogs.Requirements(ctx, offering.CatalogID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requirements")
	}

	view := make([]AttendeeEligibility, 0, len(attendees))
	for _, attendee := range attendees {
		snapshot, err := s.snapshots.EligibilitySnapshot(ctx, attendee.RosterMemberID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member snapshot")
		}
		evaluation := eligibility.Evaluate(snapshot, requirements)
		view = append(view, AttendeeEligibility{
			RosterMemberID: attendee.RosterMemberID,
			Eligible:       evaluation.Eligible,
			Blockers:       evaluation.Blockers,
		})
	}
	return view, nil
}
