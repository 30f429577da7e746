package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"cmms/internal/event/schema"
	"cmms/internal/event/service"
	"cmms/internal/event/store"
	"cmms/internal/platform/middleware"
	id "cmms/pkg/domain"
)

// HandlerSuite uses a real in-memory store behind the real service; handler
// tests validate HTTP concerns only.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	actor  middleware.Actor
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewMemory(), service.WithLogger(logger))

	s.actor = middleware.Actor{
		UserID: id.UserID(uuid.New()),
		Role:   middleware.RoleSuperAdmin,
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithActor(req.Context(), s.actor)))
		})
	})
	New(svc, logger).Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) createEventRequest() CreateEventRequest {
	starts := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	return CreateEventRequest{
		Name:                 "Spring Camporee",
		StartsAt:             starts,
		EndsAt:               starts.Add(72 * time.Hour),
		RegistrationOpensAt:  starts.Add(-60 * 24 * time.Hour),
		RegistrationClosesAt: starts.Add(-7 * 24 * time.Hour),
		Fields: []schema.Draft{
			{ID: "f1", Key: "tshirt_size", Label: "T-Shirt Size", Type: "SHORT_TEXT", IsRequired: true},
			{ID: "f2", Key: "duty_first", Label: "First Duty Choice", Type: "MULTI_SELECT",
				OptionsJSON: `["Setup","Cleanup"]`},
		},
	}
}

func (s *HandlerSuite) postEvent(req CreateEventRequest) *httptest.ResponseRecorder {
	body, err := json.Marshal(req)
	require.NoError(s.T(), err)

	httpReq := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httpReq)
	return rec
}

func (s *HandlerSuite) TestCreateEvent_InvalidJSON() {
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCreateEvent_Valid() {
	rec := s.postEvent(s.createEventRequest())

	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var resp EventResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(s.T(), "Spring Camporee", resp.Name)
	assert.Equal(s.T(), "spring-camporee", resp.Slug)
	assert.NotEmpty(s.T(), resp.ID)
}

func (s *HandlerSuite) TestCreateEvent_DuplicateName() {
	first := s.postEvent(s.createEventRequest())
	require.Equal(s.T(), http.StatusCreated, first.Code)

	second := s.postEvent(s.createEventRequest())
	assert.Equal(s.T(), http.StatusConflict, second.Code)
}

func (s *HandlerSuite) TestCreateEvent_InvalidFieldBatch() {
	req := s.createEventRequest()
	req.Fields = append(req.Fields, schema.Draft{
		ID: "f3", Key: "tshirt_size", Label: "Duplicate", Type: "SHORT_TEXT",
	})

	rec := s.postEvent(req)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "tshirt_size")
}

func (s *HandlerSuite) TestCreateEvent_RequiresSuperAdmin() {
	s.actor.Role = middleware.RoleClubDirector

	rec := s.postEvent(s.createEventRequest())

	assert.Equal(s.T(), http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestGetForm_DerivesAttendeeScope() {
	req := s.createEventRequest()
	req.Fields = append(req.Fields, schema.Draft{
		ID: "f3", Key: "attendee_tshirt", Label: "Attendee Shirt", Type: "SHORT_TEXT",
	})
	created := s.postEvent(req)
	require.Equal(s.T(), http.StatusCreated, created.Code)

	var ev EventResponse
	require.NoError(s.T(), json.NewDecoder(created.Body).Decode(&ev))

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/"+ev.ID+"/form", nil))
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var fields []FieldResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&fields))
	require.Len(s.T(), fields, 3)

	byKey := make(map[string]FieldResponse, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}
	assert.False(s.T(), byKey["tshirt_size"].AttendeeSpecific)
	assert.True(s.T(), byKey["attendee_tshirt"].AttendeeSpecific)
}

func (s *HandlerSuite) TestGetEvent_NotFound() {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/"+uuid.NewString(), nil))

	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}
