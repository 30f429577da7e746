// Package handler serves the super admin report endpoints: operational and
// medical views as JSON plus their CSV downloads.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cmms/internal/platform/middleware"
	"cmms/internal/report"
	"cmms/internal/report/service"
	"cmms/internal/transport/http/shared"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Service defines the report operations the handler depends on.
type Service interface {
	Operational(ctx context.Context, eventID id.EventID) (service.OperationalReport, error)
	MedicalManifest(ctx context.Context, eventID id.EventID) (service.MedicalReport, error)
	SpiritualCSV(ctx context.Context, eventID id.EventID) (service.CSVFile, error)
	DutyCSV(ctx context.Context, eventID id.EventID) (service.CSVFile, error)
	AVCSV(ctx context.Context, eventID id.EventID) (service.CSVFile, error)
	MasterAttendeesCSV(ctx context.Context, eventID id.EventID) (service.CSVFile, error)
}

// Handler serves the event report endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints. Reports span every club at the event, so the
// whole group is super admin only.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleSuperAdmin))
		r.Get("/events/{eventID}/reports/operational", h.HandleOperational)
		r.Get("/events/{eventID}/reports/medical", h.HandleMedical)
		r.Get("/events/{eventID}/reports/spiritual.csv", h.csvHandler(h.service.SpiritualCSV))
		r.Get("/events/{eventID}/reports/duties.csv", h.csvHandler(h.service.DutyCSV))
		r.Get("/events/{eventID}/reports/av.csv", h.csvHandler(h.service.AVCSV))
		r.Get("/events/{eventID}/reports/master-attendees.csv", h.csvHandler(h.service.MasterAttendeesCSV))
	})
}

type ClubRefResponse struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type SpiritualRowResponse struct {
	Club        ClubRefResponse `json:"club"`
	SourceLabel string          `json:"source_label"`
	Response    string          `json:"response"`
}

type DutyRowResponse struct {
	Assignment string            `json:"assignment"`
	Clubs      []ClubRefResponse `json:"clubs"`
}

type AVRowResponse struct {
	Club           ClubRefResponse `json:"club"`
	RequestedItems string          `json:"requested_items"`
}

type OperationalResponse struct {
	EventID   string                 `json:"event_id"`
	EventName string                 `json:"event_name"`
	Spiritual []SpiritualRowResponse `json:"spiritual"`
	Duty      []DutyRowResponse      `json:"duty"`
	AV        []AVRowResponse        `json:"av"`
}

func fromClubRef(ref report.ClubRef) ClubRefResponse {
	return ClubRefResponse{Name: ref.Name, Code: ref.Code}
}

func fromOperational(rep service.OperationalReport) OperationalResponse {
	resp := OperationalResponse{
		EventID:   rep.Event.ID.String(),
		EventName: rep.Event.Name,
		Spiritual: make([]SpiritualRowResponse, 0, len(rep.Operational.Spiritual)),
		Duty:      make([]DutyRowResponse, 0, len(rep.Operational.Duty)),
		AV:        make([]AVRowResponse, 0, len(rep.Operational.AV)),
	}
	for _, row := range rep.Operational.Spiritual {
		resp.Spiritual = append(resp.Spiritual, SpiritualRowResponse{
			Club:        fromClubRef(row.Club),
			SourceLabel: row.SourceLabel,
			Response:    row.Response,
		})
	}
	for _, row := range rep.Operational.Duty {
		clubs := make([]ClubRefResponse, 0, len(row.Clubs))
		for _, club := range row.Clubs {
			clubs = append(clubs, fromClubRef(club))
		}
		resp.Duty = append(resp.Duty, DutyRowResponse{Assignment: row.Assignment, Clubs: clubs})
	}
	for _, row := range rep.Operational.AV {
		resp.AV = append(resp.AV, AVRowResponse{Club: fromClubRef(row.Club), RequestedItems: row.RequestedItems})
	}
	return resp
}

type MedicalRowResponse struct {
	AttendeeName        string  `json:"attendee_name"`
	Age                 string  `json:"age"`
	Role                string  `json:"role"`
	ClubName            string  `json:"club_name"`
	EmergencyContact    string  `json:"emergency_contact"`
	DietaryRestrictions *string `json:"dietary_restrictions,omitempty"`
	MedicalFlags        *string `json:"medical_flags,omitempty"`
}

type MedicalResponse struct {
	EventID     string               `json:"event_id"`
	EventName   string               `json:"event_name"`
	DietaryRows []MedicalRowResponse `json:"dietary_rows"`
	MedicalRows []MedicalRowResponse `json:"medical_rows"`
}

func fromMedicalRows(rows []report.MedicalRow) []MedicalRowResponse {
	out := make([]MedicalRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, MedicalRowResponse{
			AttendeeName:        row.AttendeeName,
			Age:                 row.Age,
			Role:                string(row.Role),
			ClubName:            row.ClubName,
			EmergencyContact:    row.EmergencyContact,
			DietaryRestrictions: row.DietaryRestrictions,
			MedicalFlags:        row.MedicalFlags,
		})
	}
	return out
}

func (h *Handler) HandleOperational(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	rep, err := h.service.Operational(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, fromOperational(rep))
}

func (h *Handler) HandleMedical(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	rep, err := h.service.MedicalManifest(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, MedicalResponse{
		EventID:     rep.Event.ID.String(),
		EventName:   rep.Event.Name,
		DietaryRows: fromMedicalRows(rep.Manifest.DietaryRows),
		MedicalRows: fromMedicalRows(rep.Manifest.MedicalRows),
	})
}

func (h *Handler) csvHandler(load func(ctx context.Context, eventID id.EventID) (service.CSVFile, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := h.eventID(w, r)
		if !ok {
			return
		}
		file, err := load(r.Context(), eventID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteCSV(w, file.Name, file.Content)
	}
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (id.EventID, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Event id must be a valid UUID."))
		return id.EventID{}, false
	}
	return eventID, true
}
