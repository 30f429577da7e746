// Package handler wires catalog management endpoints to the catalog service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cmms/internal/catalog"
	"cmms/internal/catalog/service"
	"cmms/internal/eligibility"
	"cmms/internal/platform/middleware"
	"cmms/internal/roster"
	"cmms/internal/transport/http/shared"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
)

// Service defines the catalog operations the handler depends on.
type Service interface {
	CreateItem(ctx context.Context, input service.SaveItemInput) (catalog.Item, error)
	UpdateItem(ctx context.Context, catalogID id.CatalogID, input service.SaveItemInput) (catalog.Item, error)
	GetItem(ctx context.Context, catalogID id.CatalogID) (catalog.Item, error)
	ListItems(ctx context.Context, activeOnly bool) ([]catalog.Item, error)
}

// Handler serves the class catalog endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts catalog endpoints. Reads are open to any authenticated
// actor; writes are restricted to super admins.
func (h *Handler) Register(r chi.Router) {
	r.Get("/catalog", h.HandleListItems)
	r.Get("/catalog/{catalogID}", h.HandleGetItem)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleSuperAdmin))
		r.Post("/catalog", h.HandleCreateItem)
		r.Put("/catalog/{catalogID}", h.HandleUpdateItem)
	})
}

// SaveItemRequest carries the writable fields of a catalog item.
type SaveItemRequest struct {
	Code         string               `json:"code"`
	Title        string               `json:"title"`
	Description  *string              `json:"description,omitempty"`
	ClassType    string               `json:"class_type"`
	Active       bool                 `json:"active"`
	Requirements []RequirementRequest `json:"requirements"`
}

// RequirementRequest is one eligibility rule; only the field matching Kind
// should be set.
type RequirementRequest struct {
	Kind                string  `json:"kind"`
	MinAge              *int    `json:"min_age,omitempty"`
	MaxAge              *int    `json:"max_age,omitempty"`
	RequiredMemberRole  *string `json:"required_member_role,omitempty"`
	RequiredHonorCode   *string `json:"required_honor_code,omitempty"`
	RequiredMasterGuide *bool   `json:"required_master_guide,omitempty"`
}

func (r SaveItemRequest) toInput() service.SaveItemInput {
	requirements := make([]eligibility.Requirement, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		requirement := eligibility.Requirement{
			Kind:                eligibility.RequirementKind(req.Kind),
			MinAge:              req.MinAge,
			MaxAge:              req.MaxAge,
			RequiredHonorCode:   req.RequiredHonorCode,
			RequiredMasterGuide: req.RequiredMasterGuide,
		}
		if req.RequiredMemberRole != nil {
			role := roster.MemberRole(*req.RequiredMemberRole)
			requirement.RequiredMemberRole = &role
		}
		requirements = append(requirements, requirement)
	}
	return service.SaveItemInput{
		Code:         r.Code,
		Title:        r.Title,
		Description:  r.Description,
		ClassType:    catalog.ClassType(r.ClassType),
		Active:       r.Active,
		Requirements: requirements,
	}
}

// ItemResponse is one catalog entry with requirement badges for display.
type ItemResponse struct {
	ID          string   `json:"id"`
	Code        string   `json:"code"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	ClassType   string   `json:"class_type"`
	Active      bool     `json:"active"`
	Badges      []string `json:"badges"`
}

func FromItem(item catalog.Item) ItemResponse {
	badges := make([]string, 0, len(item.Requirements))
	for _, req := range item.Requirements {
		badges = append(badges, req.BadgeLabel())
	}
	return ItemResponse{
		ID:          item.ID.String(),
		Code:        item.Code,
		Title:       item.Title,
		Description: item.Description,
		ClassType:   string(item.ClassType),
		Active:      item.Active,
		Badges:      badges,
	}
}

func (h *Handler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}
	item, err := h.service.CreateItem(ctx, req.toInput())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, FromItem(item))
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	catalogID, err := id.ParseCatalogID(chi.URLParam(r, "catalogID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Catalog id must be a valid UUID."))
		return
	}
	var req SaveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Request body must be valid JSON."))
		return
	}
	item, err := h.service.UpdateItem(ctx, catalogID, req.toInput())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromItem(item))
}

func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	catalogID, err := id.ParseCatalogID(chi.URLParam(r, "catalogID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Catalog id must be a valid UUID."))
		return
	}
	item, err := h.service.GetItem(r.Context(), catalogID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromItem(item))
}

func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	items, err := h.service.ListItems(r.Context(), activeOnly)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, FromItem(item))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
