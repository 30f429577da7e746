package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"cmms/internal/event/schema"
	eventservice "cmms/internal/event/service"
	eventstore "cmms/internal/event/store"
	"cmms/internal/registration"
	regstore "cmms/internal/registration/store"
	"cmms/internal/roster"
	rosterstore "cmms/internal/roster/store"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// ServiceSuite audits registrations assembled through the real stores.
type ServiceSuite struct {
	suite.Suite
	ctx context.Context
	svc *Service
	now time.Time

	registrations *regstore.MemoryStore
	eventID       id.EventID
	clubID        id.ClubID
	fieldIDs      map[string]id.FieldID
	memberIDs     []id.RosterMemberID
	regID         id.RegistrationID
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, time.June, 10, 8, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	events := eventstore.NewMemory()
	eventSvc := eventservice.New(events, eventservice.WithLogger(logger))
	created, err := eventSvc.CreateEvent(s.ctx, eventservice.CreateEventInput{
		Name:                 "Spring Camporee",
		StartsAt:             s.now.Add(24 * time.Hour),
		EndsAt:               s.now.Add(96 * time.Hour),
		RegistrationOpensAt:  s.now.Add(-60 * 24 * time.Hour),
		RegistrationClosesAt: s.now.Add(-24 * time.Hour),
		FieldDrafts: []schema.Draft{
			{ID: "f1", Key: "insurance_form", Label: "Insurance Form", Type: "SHORT_TEXT", IsRequired: true},
			{ID: "f2", Key: "attendee_tshirt", Label: "T-Shirt Size", Type: "SHORT_TEXT", IsRequired: true},
			{ID: "f3", Key: "campsite_notes", Label: "Campsite Notes", Type: "SHORT_TEXT"},
		},
	})
	require.NoError(s.T(), err)
	s.eventID = created.ID

	s.fieldIDs = make(map[string]id.FieldID)
	fields, err := events.ListFields(s.ctx, created.ID)
	require.NoError(s.T(), err)
	for _, field := range fields {
		s.fieldIDs[field.Key] = field.ID
	}

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

	s.memberIDs = nil
	for _, name := range []string{"Jordan", "Riley"} {
		age := 12
		member, err := rosters.SaveMember(s.ctx, roster.Member{
			RosterYearID: year.ID,
			FirstName:    name,
			LastName:     "Tester",
			AgeAtStart:   &age,
			MemberRole:   roster.RolePathfinder,
			IsActive:     true,
		})
		require.NoError(s.T(), err)
		s.memberIDs = append(s.memberIDs, member.ID)
	}

	s.registrations = regstore.NewMemory()
	s.svc = New(s.registrations, events, rosters,
		WithLogger(logger),
		WithClock(func() time.Time { return s.now }))
}

// saveRegistration submits attendees with a T-shirt answer for the first
// attendee only; the insurance form is deliberately left unanswered.
func (s *ServiceSuite) saveRegistration() {
	value, _, err := registration.ParseValue(json.RawMessage(`"YM"`))
	require.NoError(s.T(), err)

	reg, err := s.registrations.SaveSubmission(s.ctx, regstore.SaveParams{
		EventID: s.eventID,
		ClubID:  s.clubID,
		NewCode: "REG-TEST01-AAAAAA",
		Submit:  true,
		Now:     s.now,
		Submission: registration.Submission{
			AttendeeIDs: s.memberIDs,
			Responses: []registration.SubmissionResponse{
				{FieldID: s.fieldIDs["attendee_tshirt"], AttendeeID: &s.memberIDs[0], Value: value},
			},
		},
	})
	require.NoError(s.T(), err)
	s.regID = reg.ID
}

func (s *ServiceSuite) TestDashboard_ReportsMissingRequiredFields() {
	s.saveRegistration()

	rows, err := s.svc.Dashboard(s.ctx, s.eventID)
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 1)

	row := rows[0]
	assert.Equal(s.T(), "Eastside Eagles", row.ClubName)
	assert.Equal(s.T(), 2, row.AttendeeCount)
	assert.Equal(s.T(), 0, row.Audit.CheckedInCount)
	assert.True(s.T(), row.Audit.HasMissingRequiredFields())
	assert.Equal(s.T(), []string{
		"Insurance Form",
		"T-Shirt Size (1 attendee)",
	}, row.Audit.MissingRequiredFields)
}

func (s *ServiceSuite) TestMarkRegistrationCheckedIn() {
	s.saveRegistration()

	result, err := s.svc.MarkRegistrationCheckedIn(s.ctx, s.regID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, result.AttendeesMarked)

	row, err := s.svc.AuditOne(s.ctx, s.regID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, row.Audit.CheckedInCount)
	assert.Equal(s.T(), registration.StatusApproved, row.Registration.Status)
	require.NotNil(s.T(), row.Registration.ApprovedAt)
	assert.Equal(s.T(), s.now, *row.Registration.ApprovedAt)

	// second marking stamps nothing new
	again, err := s.svc.MarkRegistrationCheckedIn(s.ctx, s.regID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, again.AttendeesMarked)
}

func (s *ServiceSuite) TestMarkRegistrationCheckedIn_Unknown() {
	_, err := s.svc.MarkRegistrationCheckedIn(s.ctx, id.RegistrationID{})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
