package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"cmms/internal/catalog"
	catalogstore "cmms/internal/catalog/store"
	"cmms/internal/enrollment"
	enrollservice "cmms/internal/enrollment/service"
	enrollstore "cmms/internal/enrollment/store"
	"cmms/internal/registration"
	regstore "cmms/internal/registration/store"
	"cmms/internal/roster"
	rosterstore "cmms/internal/roster/store"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// invalidationRecorder stands in for the eligibility cache; it records which
// member snapshots were dropped.
type invalidationRecorder struct {
	mu      sync.Mutex
	dropped []id.RosterMemberID
}

func (r *invalidationRecorder) Invalidate(_ context.Context, memberID id.RosterMemberID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, memberID)
	return nil
}

// ServiceSuite runs instructor operations over a fully seeded in-memory
// stack: members on a roster, registered for an event, enrolled in a class.
type ServiceSuite struct {
	suite.Suite
	ctx context.Context
	svc *Service
	now time.Time

	rosters       *rosterstore.MemoryStore
	registrations *regstore.MemoryStore
	invalidations *invalidationRecorder

	eventID    id.EventID
	clubID     id.ClubID
	offeringID id.OfferingID
	honorItem  catalog.Item
	enrolledID id.RosterMemberID
	otherID    id.RosterMemberID // registered but not enrolled
	teacherID  id.UserID
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, time.June, 11, 14, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.eventID = id.EventID(uuid.New())
	s.teacherID = id.UserID(uuid.New())

	s.rosters = rosterstore.NewMemory()
	club, err := s.rosters.CreateClub(s.ctx, roster.Club{Name: "Eastside Eagles", Code: "EAG"})
	require.NoError(s.T(), err)
	s.clubID = club.ID
	year, err := s.rosters.CreateYear(s.ctx, roster.RosterYear{
		ClubID:    club.ID,
		YearLabel: "2026",
		StartsOn:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:    time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	})
	require.NoError(s.T(), err)

	age := 12
	for _, target := range []*id.RosterMemberID{&s.enrolledID, &s.otherID} {
		member, err := s.rosters.SaveMember(s.ctx, roster.Member{
			RosterYearID: year.ID,
			FirstName:    "Member",
			LastName:     "Tester",
			AgeAtStart:   &age,
			MemberRole:   roster.RolePathfinder,
			IsActive:     true,
		})
		require.NoError(s.T(), err)
		*target = member.ID
	}

	s.registrations = regstore.NewMemory()
	_, err = s.registrations.SaveSubmission(s.ctx, regstore.SaveParams{
		EventID: s.eventID,
		ClubID:  club.ID,
		NewCode: "REG-TEST01-AAAAAA",
		Submit:  true,
		Now:     s.now,
		Submission: registration.Submission{
			AttendeeIDs: []id.RosterMemberID{s.enrolledID, s.otherID},
		},
	})
	require.NoError(s.T(), err)

	catalogs := catalogstore.NewMemory()
	s.honorItem, err = catalogs.CreateItem(s.ctx, catalog.Item{
		Code:      "KNOT_TYING",
		Title:     "Knot Tying",
		ClassType: catalog.TypeHonor,
		Active:    true,
	})
	require.NoError(s.T(), err)

	enrollments := enrollstore.NewMemory(s.rosters, s.registrations, catalogs)
	enrollSvc := enrollservice.New(enrollments, s.registrations, s.rosters, catalogs, enrollservice.WithLogger(logger))
	offering, err := enrollSvc.CreateOffering(s.ctx, enrollservice.CreateOfferingInput{
		EventID:   s.eventID,
		CatalogID: s.honorItem.ID,
		Capacity:  10,
		StartsAt:  s.now,
		EndsAt:    s.now.Add(time.Hour),
	})
	require.NoError(s.T(), err)
	s.offeringID = offering.ID

	outcome, err := enrollSvc.Enroll(s.ctx, enrollservice.EnrollInput{
		EventID:        s.eventID,
		ClubID:         club.ID,
		RosterMemberID: s.enrolledID,
		OfferingID:     offering.ID,
	})
	require.NoError(s.T(), err)
	require.True(s.T(), outcome.Succeeded())

	s.invalidations = &invalidationRecorder{}
	s.svc = New(enrollments, catalogs, s.registrations, s.rosters,
		WithLogger(logger),
		WithClock(func() time.Time { return s.now }),
		WithSnapshotInvalidator(s.invalidations))
}

func (s *ServiceSuite) TestUpdateClassAttendance_MarksPresent() {
	result, err := s.svc.UpdateClassAttendance(s.ctx, s.offeringID, []AttendanceMark{
		{RosterMemberID: s.enrolledID, Present: true},
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, result.Updated)
	assert.Empty(s.T(), result.Skipped)

	attendee, err := s.registrations.AttendeeForMember(s.ctx, s.eventID, s.enrolledID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), attendee.CheckedInAt)
	assert.Equal(s.T(), s.now, *attendee.CheckedInAt)
}

func (s *ServiceSuite) TestUpdateClassAttendance_SkipsUnenrolled() {
	result, err := s.svc.UpdateClassAttendance(s.ctx, s.offeringID, []AttendanceMark{
		{RosterMemberID: s.enrolledID, Present: true},
		{RosterMemberID: s.otherID, Present: true},
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, result.Updated)
	assert.Equal(s.T(), []id.RosterMemberID{s.otherID}, result.Skipped)
}

func (s *ServiceSuite) TestSignOffHonors_RecordsHonorAndInvalidates() {
	result, err := s.svc.SignOffHonors(s.ctx, s.offeringID, []id.RosterMemberID{s.enrolledID}, s.teacherID, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, result.SignedOff)

	codes, err := s.rosters.CompletedHonorCodes(s.ctx, s.enrolledID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"KNOT_TYING"}, codes)
	assert.Equal(s.T(), []id.RosterMemberID{s.enrolledID}, s.invalidations.dropped)
}

func (s *ServiceSuite) TestSignOffHonors_IdempotentPerMember() {
	for range 2 {
		_, err := s.svc.SignOffHonors(s.ctx, s.offeringID, []id.RosterMemberID{s.enrolledID}, s.teacherID, "")
		require.NoError(s.T(), err)
	}
	codes, err := s.rosters.CompletedHonorCodes(s.ctx, s.enrolledID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), codes, 1)
}

func (s *ServiceSuite) TestSignOffHonors_SkipsUnenrolled() {
	result, err := s.svc.SignOffHonors(s.ctx, s.offeringID, []id.RosterMemberID{s.otherID}, s.teacherID, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, result.SignedOff)
	assert.Equal(s.T(), []id.RosterMemberID{s.otherID}, result.Skipped)
}

func (s *ServiceSuite) TestSignOffHonors_RejectsPlainClasses() {
	catalogs := catalogstore.NewMemory()
	class, err := catalogs.CreateItem(s.ctx, catalog.Item{
		Code: "ARCHERY_CLINIC", Title: "Archery Clinic", ClassType: catalog.TypeClass, Active: true,
	})
	require.NoError(s.T(), err)

	enrollments := enrollstore.NewMemory(s.rosters, s.registrations, catalogs)
	offering, err := enrollments.CreateOffering(s.ctx, enrollmentOffering(s.eventID, class.ID))
	require.NoError(s.T(), err)

	svc := New(enrollments, catalogs, s.registrations, s.rosters,
		WithClock(func() time.Time { return s.now }))
	_, err = svc.SignOffHonors(s.ctx, offering.ID, []id.RosterMemberID{s.enrolledID}, s.teacherID, "")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestUnknownOffering() {
	_, err := s.svc.UpdateClassAttendance(s.ctx, id.OfferingID(uuid.New()), nil)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func enrollmentOffering(eventID id.EventID, catalogID id.CatalogID) enrollment.Offering {
	start := time.Date(2026, time.June, 11, 9, 0, 0, 0, time.UTC)
	return enrollment.Offering{
		EventID:   eventID,
		CatalogID: catalogID,
		Capacity:  10,
		StartsAt:  start,
		EndsAt:    start.Add(time.Hour),
	}
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
