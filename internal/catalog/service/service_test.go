package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmms/internal/catalog"
	"cmms/internal/catalog/store"
	"cmms/internal/eligibility"
	dErrors "cmms/pkg/domain-errors"
)

func newService() *Service {
	return New(store.NewMemory())
}

func TestCreateItem_NormalizesCode(t *testing.T) {
	svc := newService()

	item, err := svc.CreateItem(context.Background(), SaveItemInput{
		Code:      "  knots ",
		Title:     "Knot Tying",
		ClassType: catalog.TypeClass,
		Active:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "KNOTS", item.Code)
}

func TestCreateItem_DuplicateCodeConflicts(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, SaveItemInput{Code: "KNOTS", Title: "Knot Tying", ClassType: catalog.TypeClass})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, SaveItemInput{Code: "knots", Title: "Knots Again", ClassType: catalog.TypeHonor})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCreateItem_RejectsInvalidRequirement(t *testing.T) {
	svc := newService()

	_, err := svc.CreateItem(context.Background(), SaveItemInput{
		Code:      "SWIM",
		Title:     "Swimming",
		ClassType: catalog.TypeHonor,
		Requirements: []eligibility.Requirement{
			{Kind: eligibility.KindMinAge}, // missing age
		},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestUpdateItem_ReplacesRequirements(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	minAge := 10
	item, err := svc.CreateItem(ctx, SaveItemInput{
		Code:         "SWIM",
		Title:        "Swimming",
		ClassType:    catalog.TypeHonor,
		Active:       true,
		Requirements: []eligibility.Requirement{{Kind: eligibility.KindMinAge, MinAge: &minAge}},
	})
	require.NoError(t, err)

	honor := "SWIMMING_BEGINNER"
	updated, err := svc.UpdateItem(ctx, item.ID, SaveItemInput{
		Code:         "SWIM",
		Title:        "Swimming Advanced",
		ClassType:    catalog.TypeHonor,
		Active:       true,
		Requirements: []eligibility.Requirement{{Kind: eligibility.KindCompletedHonor, RequiredHonorCode: &honor}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Swimming Advanced", updated.Title)

	reloaded, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Requirements, 1)
	assert.Equal(t, eligibility.KindCompletedHonor, reloaded.Requirements[0].Kind)
}

func TestListItems_ActiveFilter(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, SaveItemInput{Code: "A1", Title: "Active", ClassType: catalog.TypeClass, Active: true})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, SaveItemInput{Code: "R1", Title: "Retired", ClassType: catalog.TypeClass, Active: false})
	require.NoError(t, err)

	all, err := svc.ListItems(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListItems(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A1", active[0].Code)
}
