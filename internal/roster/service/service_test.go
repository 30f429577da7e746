package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmms/internal/roster"
	"cmms/internal/roster/store"
	dErrors "cmms/pkg/domain-errors"
)

func newService(t *testing.T, now time.Time) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemory()
	return New(mem, WithClock(func() time.Time { return now })), mem
}

func createClubWithYear(t *testing.T, svc *Service, label string) (roster.Club, roster.RosterYear) {
	t.Helper()
	ctx := context.Background()
	club, err := svc.CreateClub(ctx, "Eastside Eagles", "eag-042")
	require.NoError(t, err)
	year, err := svc.CreateYear(ctx, club.ID, label)
	require.NoError(t, err)
	return club, year
}

func TestCreateClub_UppercasesCode(t *testing.T) {
	svc, _ := newService(t, time.Now())

	club, err := svc.CreateClub(context.Background(), "Eastside Eagles", "eag-042")
	require.NoError(t, err)

	assert.Equal(t, "EAG-042", club.Code)
}

func TestCreateYear_FirstYearIsActive(t *testing.T) {
	svc, _ := newService(t, time.Now())
	_, year := createClubWithYear(t, svc, "2026")

	assert.True(t, year.IsActive)
	assert.Equal(t, 2026, year.StartsOn.Year())
	assert.Equal(t, time.January, year.StartsOn.Month())
	assert.Equal(t, time.December, year.EndsOn.Month())
}

func TestCreateYear_RejectsBadLabel(t *testing.T) {
	svc, _ := newService(t, time.Now())
	club, err := svc.CreateClub(context.Background(), "Eastside Eagles", "EAG")
	require.NoError(t, err)

	_, err = svc.CreateYear(context.Background(), club.ID, "next year")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestSaveMember_ComputesAgeAtYearStart(t *testing.T) {
	svc, _ := newService(t, time.Now())
	_, year := createClubWithYear(t, svc, "2026")

	// Born March 2014: 11 on Jan 1 2026, turns 12 mid-year.
	dob := time.Date(2014, time.March, 15, 0, 0, 0, 0, time.UTC)
	member, err := svc.SaveMember(context.Background(), SaveMemberInput{
		RosterYearID: year.ID,
		FirstName:    "Jordan",
		LastName:     "Avila",
		DateOfBirth:  &dob,
		MemberRole:   roster.RolePathfinder,
		IsActive:     true,
	})
	require.NoError(t, err)

	require.NotNil(t, member.AgeAtStart)
	assert.Equal(t, 11, *member.AgeAtStart)
	assert.Equal(t, roster.RolloverNew, member.RolloverStatus)
}

func TestSaveMember_NilBirthDateLeavesAgeUnknown(t *testing.T) {
	svc, _ := newService(t, time.Now())
	_, year := createClubWithYear(t, svc, "2026")

	member, err := svc.SaveMember(context.Background(), SaveMemberInput{
		RosterYearID: year.ID,
		FirstName:    "Sam",
		LastName:     "Okafor",
		MemberRole:   roster.RoleStaff,
		IsActive:     true,
	})
	require.NoError(t, err)

	assert.Nil(t, member.AgeAtStart)
}

func TestExecuteYearlyRollover_CopiesActiveMembers(t *testing.T) {
	svc, _ := newService(t, time.Now())
	club, year := createClubWithYear(t, svc, "2026")
	ctx := context.Background()

	dob := time.Date(2014, time.March, 15, 0, 0, 0, 0, time.UTC)
	active, err := svc.SaveMember(ctx, SaveMemberInput{
		RosterYearID: year.ID,
		FirstName:    "Jordan",
		LastName:     "Avila",
		DateOfBirth:  &dob,
		MemberRole:   roster.RolePathfinder,
		IsActive:     true,
	})
	require.NoError(t, err)
	_, err = svc.SaveMember(ctx, SaveMemberInput{
		RosterYearID: year.ID,
		FirstName:    "Gone",
		LastName:     "Lastyear",
		MemberRole:   roster.RolePathfinder,
		IsActive:     false,
	})
	require.NoError(t, err)

	result, err := svc.ExecuteYearlyRollover(ctx, club.ID, year.ID, "2027")
	require.NoError(t, err)

	assert.Equal(t, 1, result.MembersCopied)
	assert.True(t, result.Year.IsActive)
	require.NotNil(t, result.Year.CopiedFromYearID)
	assert.Equal(t, year.ID, *result.Year.CopiedFromYearID)

	// The previous year is no longer active.
	current, err := svc.CurrentYear(ctx, club.ID)
	require.NoError(t, err)
	assert.Equal(t, "2027", current.YearLabel)

	members, err := svc.ListActiveMembers(ctx, result.Year.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	copied := members[0]
	assert.NotEqual(t, active.ID, copied.ID)
	assert.Equal(t, roster.RolloverContinuing, copied.RolloverStatus)
	require.NotNil(t, copied.AgeAtStart)
	assert.Equal(t, 12, *copied.AgeAtStart, "age recomputed at the new year start")
}

func TestExecuteYearlyRollover_RejectsDuplicateLabel(t *testing.T) {
	svc, _ := newService(t, time.Now())
	club, year := createClubWithYear(t, svc, "2026")

	_, err := svc.ExecuteYearlyRollover(context.Background(), club.ID, year.ID, "2026")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestExecuteYearlyRollover_RejectsForeignYear(t *testing.T) {
	svc, _ := newService(t, time.Now())
	_, year := createClubWithYear(t, svc, "2026")
	other, err := svc.CreateClub(context.Background(), "Westside Wolves", "WOL")
	require.NoError(t, err)

	_, err = svc.ExecuteYearlyRollover(context.Background(), other.ID, year.ID, "2027")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestCurrentYear_FallsBackToDateSpan(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc, mem := newService(t, now)
	club, err := svc.CreateClub(context.Background(), "Eastside Eagles", "EAG")
	require.NoError(t, err)

	// An inactive year covering "today": created directly so no year is active.
	_, err = mem.CreateYear(context.Background(), roster.RosterYear{
		ClubID:    club.ID,
		YearLabel: "2026",
		StartsOn:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:    time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	year, err := svc.CurrentYear(context.Background(), club.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026", year.YearLabel)
}

func TestCurrentYear_NoYear(t *testing.T) {
	svc, _ := newService(t, time.Now())
	club, err := svc.CreateClub(context.Background(), "Eastside Eagles", "EAG")
	require.NoError(t, err)

	_, err = svc.CurrentYear(context.Background(), club.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
