// Package handler wires roster management endpoints to the roster service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cmms/internal/platform/middleware"
	"cmms/internal/roster"
	"cmms/internal/roster/service"
	"cmms/internal/transport/http/shared"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Service defines the roster operations the handler depends on.
type Service interface {
	CreateClub(ctx context.Context, name, code string) (roster.Club, error)
	CreateYear(ctx context.Context, clubID id.ClubID, yearLabel string) (roster.RosterYear, error)
	ExecuteYearlyRollover(ctx context.Context, clubID id.ClubID, previousYearID id.RosterYearID, yearLabel string) (service.RolloverResult, error)
	CurrentYear(ctx context.Context, clubID id.ClubID) (roster.RosterYear, error)
	SaveMember(ctx context.Context, input service.SaveMemberInput) (roster.Member, error)
	ListActiveMembers(ctx context.Context, yearID id.RosterYearID) ([]roster.Member, error)
}

// Handler serves roster endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts roster endpoints. Club creation is a super-admin concern;
// everything else belongs to the club's director.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequireRole(middleware.RoleSuperAdmin)).
		Post("/clubs", h.HandleCreateClub)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleSuperAdmin, middleware.RoleClubDirector))
		r.Post("/roster/years", h.HandleCreateYear)
		r.Post("/roster/rollover", h.HandleRollover)
		r.Get("/roster/members", h.HandleListMembers)
		r.Post("/roster/members", h.HandleSaveMember)
	})
}

type createClubRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type clubResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

func (h *Handler) HandleCreateClub(w http.ResponseWriter, r *http.Request) {
	var req createClubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}

	club, err := h.service.CreateClub(r.Context(), req.Name, req.Code)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, clubResponse{
		ID:   club.ID.String(),
		Name: club.Name,
		Code: club.Code,
	})
}

type createYearRequest struct {
	YearLabel string `json:"yearLabel"`
}

type yearResponse struct {
	ID        string    `json:"id"`
	YearLabel string    `json:"yearLabel"`
	StartsOn  time.Time `json:"startsOn"`
	EndsOn    time.Time `json:"endsOn"`
	IsActive  bool      `json:"isActive"`
}

func fromYear(year roster.RosterYear) yearResponse {
	return yearResponse{
		ID:        year.ID.String(),
		YearLabel: year.YearLabel,
		StartsOn:  year.StartsOn,
		EndsOn:    year.EndsOn,
		IsActive:  year.IsActive,
	}
}

func (h *Handler) HandleCreateYear(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	var req createYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}

	year, err := h.service.CreateYear(r.Context(), actor.ClubID, req.YearLabel)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, fromYear(year))
}

type rolloverRequest struct {
	PreviousYearID string `json:"previousYearId"`
	YearLabel      string `json:"yearLabel"`
}

type rolloverResponse struct {
	Year          yearResponse `json:"year"`
	MembersCopied int          `json:"membersCopied"`
}

func (h *Handler) HandleRollover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)

	var req rolloverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}
	previousYearID, err := id.ParseRosterYearID(req.PreviousYearID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.service.ExecuteYearlyRollover(ctx, actor.ClubID, previousYearID, req.YearLabel)
	if err != nil {
		h.logger.WarnContext(ctx, "roster rollover rejected",
			"club_id", actor.ClubID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, rolloverResponse{
		Year:          fromYear(result.Year),
		MembersCopied: result.MembersCopied,
	})
}

// MemberResponse is the HTTP representation of a roster member.
type MemberResponse struct {
	ID             string     `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	AgeAtStart     *int       `json:"ageAtStart,omitempty"`
	MemberRole     string     `json:"memberRole"`
	MasterGuide    bool       `json:"masterGuide"`
	IsActive       bool       `json:"isActive"`
	RolloverStatus string     `json:"rolloverStatus"`
}

func fromMember(member roster.Member) MemberResponse {
	return MemberResponse{
		ID:             member.ID.String(),
		FirstName:      member.FirstName,
		LastName:       member.LastName,
		DateOfBirth:    member.DateOfBirth,
		AgeAtStart:     member.AgeAtStart,
		MemberRole:     string(member.MemberRole),
		MasterGuide:    member.MasterGuide,
		IsActive:       member.IsActive,
		RolloverStatus: string(member.RolloverStatus),
	}
}

func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)

	year, err := h.service.CurrentYear(ctx, actor.ClubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	members, err := h.service.ListActiveMembers(ctx, year.ID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	out := make([]MemberResponse, 0, len(members))
	for _, member := range members {
		out = append(out, fromMember(member))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type saveMemberRequest struct {
	MemberID              string     `json:"memberId"`
	FirstName             string     `json:"firstName"`
	LastName              string     `json:"lastName"`
	DateOfBirth           *time.Time `json:"dateOfBirth"`
	MemberRole            string     `json:"memberRole"`
	MedicalFlags          *string    `json:"medicalFlags"`
	DietaryRestrictions   *string    `json:"dietaryRestrictions"`
	EmergencyContactName  *string    `json:"emergencyContactName"`
	EmergencyContactPhone *string    `json:"emergencyContactPhone"`
	IsFirstTime           bool       `json:"isFirstTime"`
	IsMedicalPersonnel    bool       `json:"isMedicalPersonnel"`
	MasterGuide           bool       `json:"masterGuide"`
	IsActive              bool       `json:"isActive"`
}

func (h *Handler) HandleSaveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := middleware.ActorFromContext(ctx)

	var req saveMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}

	year, err := h.service.CurrentYear(ctx, actor.ClubID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	input := service.SaveMemberInput{
		RosterYearID:          year.ID,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		DateOfBirth:           req.DateOfBirth,
		MemberRole:            roster.MemberRole(req.MemberRole),
		MedicalFlags:          req.MedicalFlags,
		DietaryRestrictions:   req.DietaryRestrictions,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		IsFirstTime:           req.IsFirstTime,
		IsMedicalPersonnel:    req.IsMedicalPersonnel,
		MasterGuide:           req.MasterGuide,
		IsActive:              req.IsActive,
	}
	if req.MemberID != "" {
		memberID, err := id.ParseRosterMemberID(req.MemberID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		input.MemberID = memberID
	}

	member, err := h.service.SaveMember(ctx, input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if req.MemberID != "" {
		status = http.StatusOK
	}
	shared.WriteJSON(w, status, fromMember(member))
}
