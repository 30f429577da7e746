// Package handler wires the check-in dashboard and arrival marking endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cmms/internal/checkin/service"
	"cmms/internal/platform/middleware"
	"cmms/internal/transport/http/shared"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Service defines the check-in operations the handler depends on.
type Service interface {
	Dashboard(ctx context.Context, eventID id.EventID) ([]service.DashboardRow, error)
	AuditOne(ctx context.Context, regID id.RegistrationID) (service.DashboardRow, error)
	MarkRegistrationCheckedIn(ctx context.Context, regID id.RegistrationID) (service.CheckInResult, error)
}

// Handler serves the event gate endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints. The whole gate flow is super admin only: it
// spans every club at the event.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleSuperAdmin))
		r.Get("/events/{eventID}/checkin", h.HandleDashboard)
		r.Get("/registrations/{registrationID}/checkin", h.HandleAuditOne)
		r.Post("/registrations/{registrationID}/checkin", h.HandleMarkCheckedIn)
	})
}

// DashboardRowResponse is one club registration on the dashboard.
type DashboardRowResponse struct {
	RegistrationID        string     `json:"registration_id"`
	RegistrationCode      string     `json:"registration_code"`
	ClubName              string     `json:"club_name"`
	Status                string     `json:"status"`
	AttendeeCount         int        `json:"attendee_count"`
	CheckedInCount        int        `json:"checked_in_count"`
	MissingRequiredFields []string   `json:"missing_required_fields"`
	SubmittedAt           *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt            *time.Time `json:"approved_at,omitempty"`
}

func fromRow(row service.DashboardRow) DashboardRowResponse {
	return DashboardRowResponse{
		RegistrationID:        row.Registration.ID.String(),
		RegistrationCode:      row.Registration.RegistrationCode,
		ClubName:              row.ClubName,
		Status:                string(row.Registration.Status),
		AttendeeCount:         row.AttendeeCount,
		CheckedInCount:        row.Audit.CheckedInCount,
		MissingRequiredFields: row.Audit.MissingRequiredFields,
		SubmittedAt:           row.Registration.SubmittedAt,
		ApprovedAt:            row.Registration.ApprovedAt,
	}
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Event id must be a valid UUID."))
		return
	}
	rows, err := h.service.Dashboard(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]DashboardRowResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, fromRow(row))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleAuditOne(w http.ResponseWriter, r *http.Request) {
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Registration id must be a valid UUID."))
		return
	}
	row, err := h.service.AuditOne(r.Context(), regID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, fromRow(row))
}

func (h *Handler) HandleMarkCheckedIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Registration id must be a valid UUID."))
		return
	}
	result, err := h.service.MarkRegistrationCheckedIn(ctx, regID)
	if err != nil {
		h.logger.WarnContext(ctx, "check-in rejected",
			"registration_id", regID,
			"user_id", actor.UserID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"attendees_marked": result.AttendeesMarked})
}
