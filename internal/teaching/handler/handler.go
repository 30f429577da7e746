// Package handler wires instructor endpoints to the teaching service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cmms/internal/platform/middleware"
	"cmms/internal/teaching/service"
	"cmms/internal/transport/http/shared"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Service defines the teaching operations the handler depends on.
type Service interface {
	UpdateClassAttendance(ctx context.Context, offeringID id.OfferingID, marks []service.AttendanceMark) (service.AttendanceResult, error)
	SignOffHonors(ctx context.Context, offeringID id.OfferingID, memberIDs []id.RosterMemberID, signedOffBy id.UserID, notes string) (service.SignOffResult, error)
}

// Handler serves the instructor endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts instructor endpoints for staff teachers and super admins.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleStaffTeacher, middleware.RoleSuperAdmin))
		r.Put("/offerings/{offeringID}/attendance", h.HandleUpdateAttendance)
		r.Post("/offerings/{offeringID}/signoff", h.HandleSignOffHonors)
	})
}

// AttendanceRequest carries presence marks for one class session.
type AttendanceRequest struct {
	Marks []AttendanceMarkRequest `json:"marks"`
}

type AttendanceMarkRequest struct {
	RosterMemberID string `json:"roster_member_id"`
	Present        bool   `json:"present"`
}

// SignOffRequest lists the members who completed the honor.
type SignOffRequest struct {
	RosterMemberIDs []string `json:"roster_member_ids"`
	Notes           string   `json:"notes,omitempty"`
}

type resultResponse struct {
	Updated int      `json:"updated,omitempty"`
	Signed  int      `json:"signed_off,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

func (h *Handler) HandleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offeringID, err := id.ParseOfferingID(chi.URLParam(r, "offeringID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Offering id must be a valid UUID."))
		return
	}
	var req AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}
	marks := make([]service.AttendanceMark, 0, len(req.Marks))
	for _, mark := range req.Marks {
		memberID, err := id.ParseRosterMemberID(mark.RosterMemberID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Roster member id must be a valid UUID."))
			return
		}
		marks = append(marks, service.AttendanceMark{RosterMemberID: memberID, Present: mark.Present})
	}

	result, err := h.service.UpdateClassAttendance(ctx, offeringID, marks)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resultResponse{
		Updated: result.Updated,
		Skipped: memberIDStrings(result.Skipped),
	})
}

func (h *Handler) HandleSignOffHonors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)

	offeringID, err := id.ParseOfferingID(chi.URLParam(r, "offeringID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Offering id must be a valid UUID."))
		return
	}
	var req SignOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}
	memberIDs := make([]id.RosterMemberID, 0, len(req.RosterMemberIDs))
	for _, raw := range req.RosterMemberIDs {
		memberID, err := id.ParseRosterMemberID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Roster member id must be a valid UUID."))
			return
		}
		memberIDs = append(memberIDs, memberID)
	}

	result, err := h.service.SignOffHonors(ctx, offeringID, memberIDs, actor.UserID, req.Notes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resultResponse{
		Signed:  result.SignedOff,
		Skipped: memberIDStrings(result.Skipped),
	})
}

func memberIDStrings(memberIDs []id.RosterMemberID) []string {
	out := make([]string, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		out = append(out, memberID.String())
	}
	return out
}
