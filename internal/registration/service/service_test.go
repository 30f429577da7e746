package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"cmms/internal/event"
	"cmms/internal/event/schema"
	eventservice "cmms/internal/event/service"
	eventstore "cmms/internal/event/store"
	"cmms/internal/notify"
	"cmms/internal/registration"
	regstore "cmms/internal/registration/store"
	"cmms/internal/roster"
	rosterservice "cmms/internal/roster/service"
	rosterstore "cmms/internal/roster/store"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// ServiceSuite runs the registration flow against real in-memory stores.
type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	svc       *Service
	publisher *notify.MemoryPublisher

	now     time.Time
	event   event.Event
	fields  map[string]id.FieldID
	club    roster.Club
	members []roster.Member
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	events := eventstore.NewMemory()
	eventSvc := eventservice.New(events, eventservice.WithLogger(logger))
	created, err := eventSvc.CreateEvent(s.ctx, eventservice.CreateEventInput{
		Name:                 "Spring Camporee",
		StartsAt:             s.now.Add(30 * 24 * time.Hour),
		EndsAt:               s.now.Add(33 * 24 * time.Hour),
		RegistrationOpensAt:  s.now.Add(-10 * 24 * time.Hour),
		RegistrationClosesAt: s.now.Add(10 * 24 * time.Hour),
		FieldDrafts: []schema.Draft{
			{ID: "f1", Key: "campsite_notes", Label: "Campsite Notes", Type: "SHORT_TEXT"},
			{ID: "f2", Key: "attendee_tshirt", Label: "T-Shirt Size", Type: "SHORT_TEXT", IsRequired: true},
		},
	})
	require.NoError(s.T(), err)
	s.event = created

	s.fields = make(map[string]id.FieldID)
	fields, err := events.ListFields(s.ctx, created.ID)
	require.NoError(s.T(), err)
	for _, field := range fields {
		s.fields[field.Key] = field.ID
	}

	rosters := rosterstore.NewMemory()
	rosterSvc := rosterservice.New(rosters,
		rosterservice.WithLogger(logger),
		rosterservice.WithClock(func() time.Time { return s.now }))
	s.club, err = rosterSvc.CreateClub(s.ctx, "Eastside Eagles", "EAG")
	require.NoError(s.T(), err)
	year, err := rosterSvc.CreateYear(s.ctx, s.club.ID, "2026")
	require.NoError(s.T(), err)

	s.members = nil
	for _, name := range []string{"Jordan", "Riley"} {
		member, err := rosterSvc.SaveMember(s.ctx, rosterservice.SaveMemberInput{
			RosterYearID: year.ID,
			FirstName:    name,
			LastName:     "Avila",
			MemberRole:   roster.RolePathfinder,
			IsActive:     true,
		})
		require.NoError(s.T(), err)
		s.members = append(s.members, member)
	}

	s.publisher = notify.NewMemoryPublisher()
	s.svc = New(regstore.NewMemory(), events, rosterSvc,
		WithLogger(logger),
		WithPublisher(s.publisher),
		WithClock(func() time.Time { return s.now }))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) payload() registration.Payload {
	attendee := s.members[0].ID.String()
	return registration.Payload{
		AttendeeIDs: []string{s.members[0].ID.String(), s.members[1].ID.String()},
		Responses: []registration.PayloadResponse{
			{FieldID: s.fields["campsite_notes"].String(), Value: []byte(`"near the lake"`)},
			{FieldID: s.fields["attendee_tshirt"].String(), AttendeeID: &attendee, Value: []byte(`"YM"`)},
		},
	}
}

func (s *ServiceSuite) TestSaveDraft() {
	reg, err := s.svc.Save(s.ctx, SaveInput{
		EventID: s.event.ID,
		ClubID:  s.club.ID,
		Payload: s.payload(),
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), registration.StatusDraft, reg.Status)
	assert.Nil(s.T(), reg.SubmittedAt)
	assert.Regexp(s.T(), `^REG-[0-9A-Z]+-[0-9A-Z]{6}$`, reg.RegistrationCode)
	assert.Empty(s.T(), s.publisher.Events(), "drafts do not trigger receipts")

	detail, err := s.svc.Get(s.ctx, s.event.ID, s.club.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), detail.Attendees, 2)
	assert.Len(s.T(), detail.Responses, 2)
}

func (s *ServiceSuite) TestSubmit_PublishesReceipt() {
	reg, err := s.svc.Save(s.ctx, SaveInput{
		EventID:        s.event.ID,
		ClubID:         s.club.ID,
		Payload:        s.payload(),
		Submit:         true,
		RecipientEmail: "director@example.org",
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), registration.StatusSubmitted, reg.Status)
	require.NotNil(s.T(), reg.SubmittedAt)

	events := s.publisher.Events()
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), reg.ID.String(), events[0].RegistrationID)
	assert.Equal(s.T(), "Spring Camporee", events[0].EventName)
	assert.Equal(s.T(), "Eastside Eagles", events[0].ClubName)
	assert.Equal(s.T(), 2, events[0].AttendeeCount)
	assert.Equal(s.T(), "director@example.org", events[0].RecipientEmail)
}

func (s *ServiceSuite) TestResave_IsIdempotentOverwrite() {
	first, err := s.svc.Save(s.ctx, SaveInput{EventID: s.event.ID, ClubID: s.club.ID, Payload: s.payload()})
	require.NoError(s.T(), err)

	// Second save drops one attendee and clears the global answer.
	smaller := registration.Payload{
		AttendeeIDs: []string{s.members[0].ID.String()},
		Responses: []registration.PayloadResponse{
			{FieldID: s.fields["campsite_notes"].String(), Value: []byte(`""`)},
		},
	}
	second, err := s.svc.Save(s.ctx, SaveInput{EventID: s.event.ID, ClubID: s.club.ID, Payload: smaller})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), first.ID, second.ID, "same (event, club) row")
	assert.Equal(s.T(), first.RegistrationCode, second.RegistrationCode, "code assigned once")

	detail, err := s.svc.Get(s.ctx, s.event.ID, s.club.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), detail.Attendees, 1)
	assert.Empty(s.T(), detail.Responses, "empty string means no answer")
}

func (s *ServiceSuite) TestDraftResave_ResetsSubmission() {
	submitted, err := s.svc.Save(s.ctx, SaveInput{
		EventID:        s.event.ID,
		ClubID:         s.club.ID,
		Payload:        s.payload(),
		Submit:         true,
		RecipientEmail: "director@example.org",
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), registration.StatusSubmitted, submitted.Status)
	require.NotNil(s.T(), submitted.SubmittedAt)

	// saving a draft afterwards pulls the registration back to DRAFT
	draft, err := s.svc.Save(s.ctx, SaveInput{EventID: s.event.ID, ClubID: s.club.ID, Payload: s.payload()})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), submitted.ID, draft.ID)
	assert.Equal(s.T(), registration.StatusDraft, draft.Status)
	assert.Nil(s.T(), draft.SubmittedAt)

	detail, err := s.svc.Get(s.ctx, s.event.ID, s.club.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), registration.StatusDraft, detail.Registration.Status)
	assert.Nil(s.T(), detail.Registration.SubmittedAt)
}

func (s *ServiceSuite) TestSave_DropsTamperedReferences() {
	payload := s.payload()
	payload.AttendeeIDs = append(payload.AttendeeIDs, "2e9b8a3c-0000-4000-8000-000000000001")
	payload.Responses = append(payload.Responses, registration.PayloadResponse{
		FieldID: "3f1c9b4d-0000-4000-8000-000000000002",
		Value:   []byte(`"tampered"`),
	})

	_, err := s.svc.Save(s.ctx, SaveInput{EventID: s.event.ID, ClubID: s.club.ID, Payload: payload})
	require.NoError(s.T(), err)

	detail, err := s.svc.Get(s.ctx, s.event.ID, s.club.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), detail.Attendees, 2)
	assert.Len(s.T(), detail.Responses, 2)
}

func (s *ServiceSuite) TestSubmit_RequiresAttendees() {
	_, err := s.svc.Save(s.ctx, SaveInput{
		EventID: s.event.ID,
		ClubID:  s.club.ID,
		Payload: registration.Payload{},
		Submit:  true,
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestSave_OutsideRegistrationWindow() {
	s.now = s.now.Add(30 * 24 * time.Hour)

	_, err := s.svc.Save(s.ctx, SaveInput{EventID: s.event.ID, ClubID: s.club.ID, Payload: s.payload()})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSave_UnknownEvent() {
	_, err := s.svc.Save(s.ctx, SaveInput{
		EventID: id.EventID{0x1},
		ClubID:  s.club.ID,
		Payload: s.payload(),
	})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}
