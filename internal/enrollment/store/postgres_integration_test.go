//go:build integration

package store_test

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

	"cmms/internal/catalog"
	catalogstore "cmms/internal/catalog/store"
	"cmms/internal/enrollment"
	"cmms/internal/enrollment/service"
	enrollstore "cmms/internal/enrollment/store"
	"cmms/internal/event"
	eventstore "cmms/internal/event/store"
	"cmms/internal/registration"
	regstore "cmms/internal/registration/store"
	"cmms/internal/roster"
	rosterstore "cmms/internal/roster/store"
	id "cmms/pkg/domain"
	"cmms/pkg/testutil/containers"
)

// TestEnroll_ConcurrentLastSeat_Postgres races many writers for a single
// remaining seat against a real database. The row lock on the offering must
// serialize the count-then-insert so exactly one writer wins; the rest get a
// clean full-class rejection, never a constraint error.
func TestEnroll_ConcurrentLastSeat_Postgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t, "../../../migrations")
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rosters := rosterstore.NewPostgres(pg.Pool)
	registrations := regstore.NewPostgres(pg.Pool)
	events := eventstore.NewPostgres(pg.Pool)
	catalogs := catalogstore.NewPostgres(pg.Pool)
	enrollments := enrollstore.NewPostgres(pg.Pool)

	svc := service.New(enrollments, registrations, rosters, catalogs, service.WithLogger(logger))

	club, err := rosters.CreateClub(ctx, roster.Club{Name: "Eastside Eagles", Code: "EAG"})
	require.NoError(t, err)
	year, err := rosters.CreateYear(ctx, roster.RosterYear{
		ClubID:    club.ID,
		YearLabel: "2026",
		StartsOn:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:    time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	})
	require.NoError(t, err)

	const contenders = 8
	memberIDs := make([]id.RosterMemberID, contenders)
	for i := range memberIDs {
		age := 12
		member, err := rosters.SaveMember(ctx, roster.Member{
			RosterYearID:   year.ID,
			FirstName:      "Member",
			LastName:       string(rune('A' + i)),
			AgeAtStart:     &age,
			MemberRole:     roster.RolePathfinder,
			IsActive:       true,
			RolloverStatus: roster.RolloverNew,
		})
		require.NoError(t, err)
		memberIDs[i] = member.ID
	}

	created, err := events.CreateEventWithFields(ctx, event.Event{
		Name:                 "Spring Camporee",
		Slug:                 "spring-camporee",
		StartsAt:             time.Date(2026, time.June, 10, 9, 0, 0, 0, time.UTC),
		EndsAt:               time.Date(2026, time.June, 13, 9, 0, 0, 0, time.UTC),
		RegistrationOpensAt:  time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		RegistrationClosesAt: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		CreatedByUserID:      id.UserID(uuid.New()),
	}, nil)
	require.NoError(t, err)

	_, err = registrations.SaveSubmission(ctx, regstore.SaveParams{
		EventID:    created.ID,
		ClubID:     club.ID,
		NewCode:    "REG-ITEST1-AAAAAA",
		Submit:     true,
		Now:        time.Now().UTC(),
		Submission: registration.Submission{AttendeeIDs: memberIDs},
	})
	require.NoError(t, err)

	item, err := catalogs.CreateItem(ctx, catalog.Item{
		Code:      "KNOTS",
		Title:     "Knot Tying",
		ClassType: catalog.TypeClass,
		Active:    true,
	})
	require.NoError(t, err)

	offering, err := enrollments.CreateOffering(ctx, enrollment.Offering{
		EventID:   created.ID,
		CatalogID: item.ID,
		Capacity:  1,
		StartsAt:  time.Date(2026, time.June, 10, 10, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2026, time.June, 10, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	outcomes := make([]enrollment.Outcome, contenders)
	for i, memberID := range memberIDs {
		wg.Add(1)
		go func(i int, memberID id.RosterMemberID) {
			defer wg.Done()
			outcome, err := svc.Enroll(ctx, service.EnrollInput{
				EventID:        created.ID,
				ClubID:         club.ID,
				RosterMemberID: memberID,
				OfferingID:     offering.ID,
			})
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i, memberID)
	}
	wg.Wait()

	kinds := map[enrollment.OutcomeKind]int{}
	for _, outcome := range outcomes {
		kinds[outcome.Kind]++
	}
	assert.Equal(t, 1, kinds[enrollment.OutcomeEnrolled])
	assert.Equal(t, contenders-1, kinds[enrollment.OutcomeClassFull])

	seated, err := enrollments.ListEnrollments(ctx, offering.ID)
	require.NoError(t, err)
	assert.Len(t, seated, 1)
}
