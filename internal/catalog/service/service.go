package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cmms/internal/catalog"
	"cmms/internal/eligibility"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
	"cmms/pkg/platform/sentinel"
)

type CatalogStore interface {
	CreateItem(ctx context.Context, item catalog.Item) (catalog.Item, error)
	UpdateItem(ctx context.Context, item catalog.Item) (catalog.Item, error)
	GetItem(ctx context.Context, catalogID id.CatalogID) (catalog.Item, error)
	ListItems(ctx context.Context, activeOnly bool) ([]catalog.Item, error)
}

// Service manages the conference's master class catalog.
type Service struct {
	store  CatalogStore
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store CatalogStore, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveItemInput carries the writable fields of a catalog item.
type SaveItemInput struct {
	Code         string
	Title        string
	Description  *string
	ClassType    catalog.ClassType
	Active       bool
	Requirements []eligibility.Requirement
}

func (s *Service) CreateItem(ctx context.Context, input SaveItemInput) (catalog.Item, error) {
	item, err := s.validate(input)
	if err != nil {
		return catalog.Item{}, err
	}
	created, err := s.store.CreateItem(ctx, item)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return catalog.Item{}, dErrors.New(dErrors.CodeConflict, "A catalog item with this code already exists.")
		}
		return catalog.Item{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create catalog item")
	}
	s.logger.InfoContext(ctx, "catalog item created", "catalog_id", created.ID, "code", created.Code)
	return created, nil
}

// UpdateItem rewrites the item and replaces its requirement set. Existing
// enrollments are untouched; new enroll attempts see the new rules.
func (s *Service) UpdateItem(ctx context.Context, catalogID id.CatalogID, input SaveItemInput) (catalog.Item, error) {
	item, err := s.validate(input)
	if err != nil {
		return catalog.Item{}, err
	}
	item.ID = catalogID
	updated, err := s.store.UpdateItem(ctx, item)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return catalog.Item{}, dErrors.New(dErrors.CodeNotFound, "Catalog item was not found.")
		case errors.Is(err, sentinel.ErrConflict):
			return catalog.Item{}, dErrors.New(dErrors.CodeConflict, "A catalog item with this code already exists.")
		}
		return catalog.Item{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update catalog item")
	}
	return updated, nil
}

func (s *Service) GetItem(ctx context.Context, catalogID id.CatalogID) (catalog.Item, error) {
	item, err := s.store.GetItem(ctx, catalogID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return catalog.Item{}, dErrors.New(dErrors.CodeNotFound, "Catalog item was not found.")
		}
		return catalog.Item{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load catalog item")
	}
	return item, nil
}

func (s *Service) ListItems(ctx context.Context, activeOnly bool) ([]catalog.Item, error) {
	items, err := s.store.ListItems(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list catalog items")
	}
	return items, nil
}

func (s *Service) validate(input SaveItemInput) (catalog.Item, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return catalog.Item{}, dErrors.New(dErrors.CodeInvalidInput, "Catalog item code is required.")
	}
	if strings.TrimSpace(input.Title) == "" {
		return catalog.Item{}, dErrors.New(dErrors.CodeInvalidInput, "Catalog item title is required.")
	}
	if !input.ClassType.IsValid() {
		return catalog.Item{}, dErrors.New(dErrors.CodeInvalidInput, "Catalog item type must be HONOR or CLASS.")
	}
	for _, req := range input.Requirements {
		if err := validateRequirement(req); err != nil {
			return catalog.Item{}, err
		}
	}
	return catalog.Item{
		Code:         code,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		ClassType:    input.ClassType,
		Active:       input.Active,
		Requirements: input.Requirements,
	}, nil
}

func validateRequirement(req eligibility.Requirement) error {
	switch req.Kind {
	case eligibility.KindMinAge:
		if req.MinAge == nil || *req.MinAge < 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "A minimum age requirement needs a non-negative age.")
		}
	case eligibility.KindMaxAge:
		if req.MaxAge == nil || *req.MaxAge < 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "A maximum age requirement needs a non-negative age.")
		}
	case eligibility.KindMemberRole:
		if req.RequiredMemberRole == nil || !req.RequiredMemberRole.IsValid() {
			return dErrors.New(dErrors.CodeInvalidInput, "A member role requirement needs a valid role.")
		}
	case eligibility.KindCompletedHonor:
		if req.RequiredHonorCode == nil || strings.TrimSpace(*req.RequiredHonorCode) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "A completed honor requirement needs an honor code.")
		}
	case eligibility.KindMasterGuide:
		// no payload
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "Unknown requirement kind.")
	}
	return nil
}
