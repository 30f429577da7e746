// Package handler wires registration endpoints to the registration service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cmms/internal/platform/middleware"
	"cmms/internal/registration"
	"cmms/internal/registration/service"
	"cmms/internal/transport/http/shared"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Service defines the registration operations the handler depends on.
type Service interface {
	Save(ctx context.Context, input service.SaveInput) (registration.Registration, error)
	Get(ctx context.Context, eventID id.EventID, clubID id.ClubID) (service.Detail, error)
}

// Handler serves the club-facing registration endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registration endpoints for club directors.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleClubDirector, middleware.RoleSuperAdmin))
		r.Get("/events/{eventID}/registration", h.HandleGet)
		r.Put("/events/{eventID}/registration", h.HandleSaveDraft)
		r.Post("/events/{eventID}/registration/submit", h.HandleSubmit)
	})
}

// RegistrationResponse is the HTTP representation of a registration.
type RegistrationResponse struct {
	ID               string     `json:"id"`
	EventID          string     `json:"eventId"`
	RegistrationCode string     `json:"registrationCode"`
	Status           string     `json:"status"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
}

func fromRegistration(reg registration.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:               reg.ID.String(),
		EventID:          reg.EventID.String(),
		RegistrationCode: reg.RegistrationCode,
		Status:           string(reg.Status),
		SubmittedAt:      reg.SubmittedAt,
		ApprovedAt:       reg.ApprovedAt,
	}
}

// DetailResponse adds the attendee selection and answers.
type DetailResponse struct {
	RegistrationResponse
	AttendeeIDs []string           `json:"attendeeIds"`
	Responses   []ResponseResponse `json:"responses"`
}

type ResponseResponse struct {
	FieldID    string          `json:"fieldId"`
	AttendeeID *string         `json:"attendeeId,omitempty"`
	Value      json.RawMessage `json:"value"`
}

func fromDetail(detail service.Detail) DetailResponse {
	out := DetailResponse{
		RegistrationResponse: fromRegistration(detail.Registration),
		AttendeeIDs:          make([]string, 0, len(detail.Attendees)),
		Responses:            make([]ResponseResponse, 0, len(detail.Responses)),
	}
	for _, attendee := range detail.Attendees {
		out.AttendeeIDs = append(out.AttendeeIDs, attendee.RosterMemberID.String())
	}
	for _, response := range detail.Responses {
		rr := ResponseResponse{
			FieldID: response.FieldID.String(),
			Value:   response.Value.JSON(),
		}
		if response.AttendeeID != nil {
			v := response.AttendeeID.String()
			rr.AttendeeID = &v
		}
		out.Responses = append(out.Responses, rr)
	}
	return out
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	detail, err := h.service.Get(ctx, eventID, actor.ClubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, fromDetail(detail))
}

func (h *Handler) HandleSaveDraft(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, false)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, true)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, submit bool) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if actor.ClubID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "You do not have permission to perform this action."))
		return
	}

	var payload registration.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}

	reg, err := h.service.Save(ctx, service.SaveInput{
		EventID:        eventID,
		ClubID:         actor.ClubID,
		Payload:        payload,
		Submit:         submit,
		RecipientEmail: actor.Email,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration save rejected",
			"event_id", eventID,
			"club_id", actor.ClubID,
			"submit", submit,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, fromRegistration(reg))
}
