// Package service covers what instructors do during and after a class:
// marking which enrolled members actually showed up, and signing completed
// honors into member records once the class is over.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cmms/internal/catalog"
	"cmms/internal/enrollment"
	"cmms/internal/registration"
	"cmms/internal/roster"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
	"cmms/pkg/platform/sentinel"
)

type EnrollmentSource interface {
	GetOffering(ctx context.Context, offeringID id.OfferingID) (enrollment.Offering, error)
	ListEnrollments(ctx context.Context, offeringID id.OfferingID) ([]enrollment.Enrollment, error)
}

type CatalogSource interface {
	GetItem(ctx context.Context, catalogID id.CatalogID) (catalog.Item, error)
}

type RegistrationStore interface {
	AttendeeForMember(ctx context.Context, eventID id.EventID, memberID id.RosterMemberID) (registration.Attendee, error)
	SetAttendeeCheckedIn(ctx context.Context, attendeeID id.AttendeeID, checkedIn bool, now time.Time) error
}

type RosterStore interface {
	AddCompletedHonor(ctx context.Context, honor roster.CompletedHonor) error
}

// SnapshotInvalidator drops cached eligibility snapshots after a sign-off
// changes a member's completed honors.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, memberID id.RosterMemberID) error
}

// Service handles instructor operations on one offering.
type Service struct {
	enrollments   EnrollmentSource
	catalogs      CatalogSource
	registrations RegistrationStore
	rosters       RosterStore
	invalidator   SnapshotInvalidator
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSnapshotInvalidator wires the eligibility cache invalidation hook.
func WithSnapshotInvalidator(inv SnapshotInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

func New(enrollments EnrollmentSource, catalogs CatalogSource, registrations RegistrationStore, rosters RosterStore, opts ...Option) *Service {
	s := &Service{
		enrollments:   enrollments,
		catalogs:      catalogs,
		registrations: registrations,
		rosters:       rosters,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttendanceMark is one member's presence flag for a class session.
type AttendanceMark struct {
	RosterMemberID id.RosterMemberID
	Present        bool
}

// AttendanceResult reports how many marks were applied and which members were
// skipped because they hold no seat in the offering.
type AttendanceResult struct {
	Updated int
	Skipped []id.RosterMemberID
}

// UpdateClassAttendance applies presence marks to the offering's roster.
// Marks for members without a seat are skipped, not errors: instructors
// paste whole lists and a stale row must not abort the rest.
func (s *Service) UpdateClassAttendance(ctx context.Context, offeringID id.OfferingID, marks []AttendanceMark) (AttendanceResult, error) {
	offering, err := s.getOffering(ctx, offeringID)
	if err != nil {
		return AttendanceResult{}, err
	}
	enrolled, err := s.enrolledSet(ctx, offeringID)
	if err != nil {
		return AttendanceResult{}, err
	}

	now := s.now().UTC()
	var result AttendanceResult
	for _, mark := range marks {
		if _, ok := enrolled[mark.RosterMemberID]; !ok {
			result.Skipped = append(result.Skipped, mark.RosterMemberID)
			continue
		}
		attendee, err := s.registrations.AttendeeForMember(ctx, offering.EventID, mark.RosterMemberID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				result.Skipped = append(result.Skipped, mark.RosterMemberID)
				continue
			}
			return AttendanceResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve attendee")
		}
		if err := s.registrations.SetAttendeeCheckedIn(ctx, attendee.ID, mark.Present, now); err != nil {
			return AttendanceResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update attendance")
		}
		result.Updated++
	}
	return result, nil
}

// SignOffResult reports one honor sign-off pass.
type SignOffResult struct {
	SignedOff int
	Skipped   []id.RosterMemberID
}

// SignOffHonors writes the offering's honor code into each listed member's
// record. Only HONOR catalog items can be signed off; members without a seat
// are skipped. Re-signing an already earned honor is a no-op, so an
// instructor can safely submit the full class list twice.
func (s *Service) SignOffHonors(ctx context.Context, offeringID id.OfferingID, memberIDs []id.RosterMemberID, signedOffBy id.UserID, notes string) (SignOffResult, error) {
	offering, err := s.getOffering(ctx, offeringID)
	if err != nil {
		return SignOffResult{}, err
	}
	item, err := s.catalogs.GetItem(ctx, offering.CatalogID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return SignOffResult{}, dErrors.New(dErrors.CodeNotFound, "Catalog item was not found.")
		}
		return SignOffResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load catalog item")
	}
	if item.ClassType != catalog.TypeHonor {
		return SignOffResult{}, dErrors.New(dErrors.CodeInvalidInput, "Only honors can be signed off into member records.")
	}
	enrolled, err := s.enrolledSet(ctx, offeringID)
	if err != nil {
		return SignOffResult{}, err
	}

	if notes == "" {
		notes = "Completed in class: " + item.Title
	}
	now := s.now().UTC()

	var result SignOffResult
	for _, memberID := range memberIDs {
		if _, ok := enrolled[memberID]; !ok {
			result.Skipped = append(result.Skipped, memberID)
			continue
		}
		err := s.rosters.AddCompletedHonor(ctx, roster.CompletedHonor{
			RosterMemberID: memberID,
			HonorCode:      item.Code,
			CompletedAt:    now,
			Notes:          notes,
			SignedOffBy:    signedOffBy,
		})
		if err != nil {
			return SignOffResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record honor")
		}
		if s.invalidator != nil {
			if err := s.invalidator.Invalidate(ctx, memberID); err != nil {
				s.logger.WarnContext(ctx, "failed to invalidate eligibility snapshot",
					"roster_member_id", memberID,
					"error", err,
				)
			}
		}
		result.SignedOff++
	}

	s.logger.InfoContext(ctx, "honors signed off",
		"offering_id", offeringID,
		"honor_code", item.Code,
		"signed_off", result.SignedOff,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (s *Service) getOffering(ctx context.Context, offeringID id.OfferingID) (enrollment.Offering, error) {
	offering, err := s.enrollments.GetOffering(ctx, offeringID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return enrollment.Offering{}, dErrors.New(dErrors.CodeNotFound, "Class offering was not found.")
		}
		return enrollment.Offering{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load offering")
	}
	return offering, nil
}

func (s *Service) enrolledSet(ctx context.Context, offeringID id.OfferingID) (map[id.RosterMemberID]struct{}, error) {
	enrollments, err := s.enrollments.ListEnrollments(ctx, offeringID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	set := make(map[id.RosterMemberID]struct{}, len(enrollments))
	for _, e := range enrollments {
		set[e.RosterMemberID] = struct{}{}
	}
	return set, nil
}
