// Package handler wires event endpoints to the event service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cmms/internal/event"
	"cmms/internal/event/service"
	"cmms/internal/platform/middleware"
	"cmms/internal/transport/http/shared"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Service defines the event operations the handler depends on.
type Service interface {
	CreateEvent(ctx context.Context, input service.CreateEventInput) (event.Event, error)
	GetEvent(ctx context.Context, eventID id.EventID) (event.Event, error)
	GetForm(ctx context.Context, eventID id.EventID) ([]event.FormField, error)
}

// Handler serves the event management endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts event endpoints. Creation is restricted to super admins;
// the form is readable by any authenticated actor.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(middleware.RoleSuperAdmin)).
		Post("/events", h.HandleCreateEvent)
	r.Get("/events/{eventID}", h.HandleGetEvent)
	r.Get("/events/{eventID}/form", h.HandleGetForm)
}

func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}

	created, err := h.service.CreateEvent(ctx, service.CreateEventInput{
		Name:                 req.Name,
		StartsAt:             req.StartsAt,
		EndsAt:               req.EndsAt,
		RegistrationOpensAt:  req.RegistrationOpensAt,
		RegistrationClosesAt: req.RegistrationClosesAt,
		LocationName:         req.LocationName,
		LocationAddress:      req.LocationAddress,
		CreatedBy:            actor.UserID,
		FieldDrafts:          req.Fields,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "event creation rejected",
			"user_id", actor.UserID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, FromEvent(created))
}

func (h *Handler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	ev, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromEvent(ev))
}

func (h *Handler) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	fields, err := h.service.GetForm(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromFields(fields))
}
