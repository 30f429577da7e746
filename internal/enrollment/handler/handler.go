// Package handler wires offering and enrollment endpoints to the enrollment
// service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cmms/internal/enrollment"
	"cmms/internal/enrollment/service"
	"cmms/internal/platform/middleware"
	"cmms/internal/transport/http/shared"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Service defines the enrollment operations the handler depends on.
type Service interface {
	CreateOffering(ctx context.Context, input service.CreateOfferingInput) (enrollment.Offering, error)
	ListOfferings(ctx context.Context, eventID id.EventID) ([]service.OfferingSummary, error)
	Enroll(ctx context.Context, input service.EnrollInput) (enrollment.Outcome, error)
	EligibilityView(ctx context.Context, eventID id.EventID, clubID id.ClubID, offeringID id.OfferingID) ([]service.AttendeeEligibility, error)
}

// Handler serves the class offering and enrollment endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints. Scheduling offerings is a super admin
// operation; enrolling and the eligibility view are club-scoped.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(middleware.RoleSuperAdmin)).
		Post("/events/{eventID}/offerings", h.HandleCreateOffering)
	r.Get("/events/{eventID}/offerings", h.HandleListOfferings)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleClubDirector, middleware.RoleSuperAdmin))
		r.Post("/events/{eventID}/offerings/{offeringID}/enroll", h.HandleEnroll)
		r.Get("/events/{eventID}/offerings/{offeringID}/eligibility", h.HandleEligibilityView)
	})
}

func (h *Handler) HandleCreateOffering(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Event id must be a valid UUID."))
		return
	}
	var req CreateOfferingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}
	catalogID, err := id.ParseCatalogID(req.CatalogID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Catalog id must be a valid UUID."))
		return
	}
	input := service.CreateOfferingInput{
		EventID:   eventID,
		CatalogID: catalogID,
		Capacity:  req.Capacity,
		DayIndex:  req.DayIndex,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		Location:  req.Location,
	}
	if req.InstructorUserID != nil {
		instructorID, err := id.ParseUserID(*req.InstructorUserID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Instructor id must be a valid UUID."))
			return
		}
		input.InstructorUserID = &instructorID
	}

	offering, err := h.service.CreateOffering(ctx, input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, FromOffering(offering, 0))
}

func (h *Handler) HandleListOfferings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Event id must be a valid UUID."))
		return
	}
	summaries, err := h.service.ListOfferings(ctx, eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]OfferingResponse, 0, len(summaries))
	for _, summary := range summaries {
		resp = append(resp, FromOffering(summary.Offering, summary.Enrolled))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)
	if actor.ClubID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "You do not have access to this resource."))
		return
	}

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Event id must be a valid UUID."))
		return
	}
	offeringID, err := id.ParseOfferingID(chi.URLParam(r, "offeringID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Offering id must be a valid UUID."))
		return
	}
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}
	memberID, err := id.ParseRosterMemberID(req.RosterMemberID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Roster member id must be a valid UUID."))
		return
	}

	outcome, err := h.service.Enroll(ctx, service.EnrollInput{
		EventID:        eventID,
		ClubID:         actor.ClubID,
		RosterMemberID: memberID,
		OfferingID:     offeringID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "enroll attempt failed",
			"offering_id", offeringID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromOutcome(outcome))
}

func (h *Handler) HandleEligibilityView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)
	if actor.ClubID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "You do not have access to this resource."))
		return
	}

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Event id must be a valid UUID."))
		return
	}
	offeringID, err := id.ParseOfferingID(chi.URLParam(r, "offeringID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Offering id must be a valid UUID."))
		return
	}

	view, err := h.service.EligibilityView(ctx, eventID, actor.ClubID, offeringID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromEligibilityView(view))
}
