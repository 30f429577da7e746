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
	"cmms/internal/eligibility"
	"cmms/internal/enrollment"
	enrollstore "cmms/internal/enrollment/store"
	"cmms/internal/registration"
	regstore "cmms/internal/registration/store"
	"cmms/internal/roster"
	rosterstore "cmms/internal/roster/store"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// ServiceSuite exercises the enroll state machine against real in-memory
// stores, with attendees drawn from an actual registration submission.
type ServiceSuite struct {
	suite.Suite
	ctx context.Context
	svc *Service

	store    *enrollstore.MemoryStore
	catalogs *catalogstore.MemoryStore

	eventID id.EventID
	clubID  id.ClubID

	older   id.RosterMemberID // age 12, registered
	younger id.RosterMemberID // age 8, registered
	third   id.RosterMemberID // age 12, registered
	bench   id.RosterMemberID // age 12, on the roster but not registered
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.eventID = id.EventID(uuid.New())

	rosters := rosterstore.NewMemory()
	club, err := rosters.CreateClub(s.ctx, roster.Club{Name: "Eastside Eagles", Code: "EAG"})
	require.NoError(s.T(), err)
	s.clubID = club.ID
	year, err := rosters.CreateYear(s.ctx, roster.RosterYear{
		ClubID:    club.ID,
		YearLabel: "2026",
		StartsOn:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:    time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	})
	require.NoError(s.T(), err)

	addMember := func(first string, age int) id.RosterMemberID {
		member, err := rosters.SaveMember(s.ctx, roster.Member{
			RosterYearID: year.ID,
			FirstName:    first,
			LastName:     "Tester",
			AgeAtStart:   &age,
			MemberRole:   roster.RolePathfinder,
			IsActive:     true,
		})
		require.NoError(s.T(), err)
		return member.ID
	}
	s.older = addMember("Jordan", 12)
	s.younger = addMember("Riley", 8)
	s.third = addMember("Casey", 12)
	s.bench = addMember("Morgan", 12)

	registrations := regstore.NewMemory()
	_, err = registrations.SaveSubmission(s.ctx, regstore.SaveParams{
		EventID: s.eventID,
		ClubID:  club.ID,
		NewCode: "REG-TEST01-AAAAAA",
		Submit:  true,
		Now:     time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC),
		Submission: registration.Submission{
			AttendeeIDs: []id.RosterMemberID{s.older, s.younger, s.third},
		},
	})
	require.NoError(s.T(), err)

	s.catalogs = catalogstore.NewMemory()
	s.store = enrollstore.NewMemory(rosters, registrations, s.catalogs)
	s.svc = New(s.store, registrations, rosters, s.catalogs, WithLogger(logger))
}

func (s *ServiceSuite) createOffering(capacity int, requirements ...eligibility.Requirement) enrollment.Offering {
	return s.createOfferingForEvent(s.eventID, capacity, requirements...)
}

func (s *ServiceSuite) createOfferingForEvent(eventID id.EventID, capacity int, requirements ...eligibility.Requirement) enrollment.Offering {
	item, err := s.catalogs.CreateItem(s.ctx, catalog.Item{
		Code:         "KNOT-" + uuid.NewString()[:8],
		Title:        "Knot Tying",
		ClassType:    catalog.TypeClass,
		Active:       true,
		Requirements: requirements,
	})
	require.NoError(s.T(), err)

	start := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)
	offering, err := s.svc.CreateOffering(s.ctx, CreateOfferingInput{
		EventID:   eventID,
		CatalogID: item.ID,
		Capacity:  capacity,
		DayIndex:  0,
		StartsAt:  start,
		EndsAt:    start.Add(time.Hour),
	})
	require.NoError(s.T(), err)
	return offering
}

func minAge(age int) eligibility.Requirement {
	return eligibility.Requirement{Kind: eligibility.KindMinAge, MinAge: &age}
}

func (s *ServiceSuite) enroll(memberID id.RosterMemberID, offeringID id.OfferingID) enrollment.Outcome {
	outcome, err := s.svc.Enroll(s.ctx, EnrollInput{
		EventID:        s.eventID,
		ClubID:         s.clubID,
		RosterMemberID: memberID,
		OfferingID:     offeringID,
	})
	require.NoError(s.T(), err)
	return outcome
}

func (s *ServiceSuite) TestEligibleMemberEnrolls() {
	offering := s.createOffering(10, minAge(10))

	outcome := s.enroll(s.older, offering.ID)
	assert.Equal(s.T(), enrollment.OutcomeEnrolled, outcome.Kind)
	assert.True(s.T(), outcome.Succeeded())

	enrollments, err := s.store.ListEnrollments(s.ctx, offering.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), enrollments, 1)
	assert.Equal(s.T(), s.older, enrollments[0].RosterMemberID)
}

func (s *ServiceSuite) TestUnderageMemberBlocked() {
	offering := s.createOffering(10, minAge(10))

	outcome := s.enroll(s.younger, offering.ID)
	assert.Equal(s.T(), enrollment.OutcomePrerequisitesNotMet, outcome.Kind)
	assert.Equal(s.T(), []string{"Requires Age 10+"}, outcome.Blockers)

	enrollments, err := s.store.ListEnrollments(s.ctx, offering.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), enrollments)
}

func (s *ServiceSuite) TestReEnrollIsIdempotent() {
	offering := s.createOffering(10)

	first := s.enroll(s.older, offering.ID)
	require.Equal(s.T(), enrollment.OutcomeEnrolled, first.Kind)

	second := s.enroll(s.older, offering.ID)
	assert.Equal(s.T(), enrollment.OutcomeAlreadyEnrolled, second.Kind)
	assert.True(s.T(), second.Succeeded())

	enrollments, err := s.store.ListEnrollments(s.ctx, offering.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), enrollments, 1)
}

func (s *ServiceSuite) TestFullClassRejects() {
	offering := s.createOffering(1)

	require.Equal(s.T(), enrollment.OutcomeEnrolled, s.enroll(s.older, offering.ID).Kind)

	outcome := s.enroll(s.third, offering.ID)
	assert.Equal(s.T(), enrollment.OutcomeClassFull, outcome.Kind)
	assert.Equal(s.T(), "This class is full. Please choose another class.", outcome.Message())
}

func (s *ServiceSuite) TestUnregisteredMemberRejected() {
	offering := s.createOffering(10)

	outcome := s.enroll(s.bench, offering.ID)
	assert.Equal(s.T(), enrollment.OutcomeAttendeeNotRegistered, outcome.Kind)
}

func (s *ServiceSuite) TestOfferingFromAnotherEventIsNotFound() {
	offering := s.createOfferingForEvent(id.EventID(uuid.New()), 10)

	outcome := s.enroll(s.older, offering.ID)
	assert.Equal(s.T(), enrollment.OutcomeOfferingNotFound, outcome.Kind)
}

func (s *ServiceSuite) TestUnknownOfferingIsNotFound() {
	outcome := s.enroll(s.older, id.OfferingID(uuid.New()))
	assert.Equal(s.T(), enrollment.OutcomeOfferingNotFound, outcome.Kind)
}

// The offering lock is taken before any attendee check, so a missing offering
// wins even over an unregistered member.
func (s *ServiceSuite) TestUnknownOfferingWinsOverUnregisteredMember() {
	outcome := s.enroll(s.bench, id.OfferingID(uuid.New()))
	assert.Equal(s.T(), enrollment.OutcomeOfferingNotFound, outcome.Kind)
}

// TestConcurrentLastSeat races two eligible members for a single seat. The
// offering lock must admit exactly one of them.
func (s *ServiceSuite) TestConcurrentLastSeat() {
	offering := s.createOffering(1)

	var wg sync.WaitGroup
	outcomes := make([]enrollment.Outcome, 2)
	for i, member := range []id.RosterMemberID{s.older, s.third} {
		wg.Add(1)
		go func(i int, member id.RosterMemberID) {
			defer wg.Done()
			outcome, err := s.svc.Enroll(s.ctx, EnrollInput{
				EventID:        s.eventID,
				ClubID:         s.clubID,
				RosterMemberID: member,
				OfferingID:     offering.ID,
			})
			assert.NoError(s.T(), err)
			outcomes[i] = outcome
		}(i, member)
	}
	wg.Wait()

	kinds := map[enrollment.OutcomeKind]int{}
	for _, outcome := range outcomes {
		kinds[outcome.Kind]++
	}
	assert.Equal(s.T(), 1, kinds[enrollment.OutcomeEnrolled])
	assert.Equal(s.T(), 1, kinds[enrollment.OutcomeClassFull])

	enrollments, err := s.store.ListEnrollments(s.ctx, offering.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), enrollments, 1)
}

func (s *ServiceSuite) TestEligibilityViewReportsPerAttendee() {
	offering := s.createOffering(10, minAge(10))

	view, err := s.svc.EligibilityView(s.ctx, s.eventID, s.clubID, offering.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), view, 3)

	byMember := map[id.RosterMemberID]AttendeeEligibility{}
	for _, row := range view {
		byMember[row.RosterMemberID] = row
	}
	assert.True(s.T(), byMember[s.older].Eligible)
	require.False(s.T(), byMember[s.younger].Eligible)
	assert.Equal(s.T(), []string{"Requires Age 10+"}, byMember[s.younger].Blockers)
}

func (s *ServiceSuite) TestCreateOfferingValidation() {
	start := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

	_, err := s.svc.CreateOffering(s.ctx, CreateOfferingInput{
		EventID:   s.eventID,
		CatalogID: id.CatalogID(uuid.New()),
		Capacity:  -1,
		StartsAt:  start,
		EndsAt:    start.Add(time.Hour),
	})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.svc.CreateOffering(s.ctx, CreateOfferingInput{
		EventID:   s.eventID,
		CatalogID: id.CatalogID(uuid.New()),
		Capacity:  5,
		StartsAt:  start,
		EndsAt:    start,
	})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestListOfferingsIncludesSeatCounts() {
	offering := s.createOffering(5)
	require.Equal(s.T(), enrollment.OutcomeEnrolled, s.enroll(s.older, offering.ID).Kind)

	summaries, err := s.svc.ListOfferings(s.ctx, s.eventID)
	require.NoError(s.T(), err)
	require.Len(s.T(), summaries, 1)
	assert.Equal(s.T(), offering.ID, summaries[0].Offering.ID)
	assert.Equal(s.T(), 1, summaries[0].Enrolled)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
