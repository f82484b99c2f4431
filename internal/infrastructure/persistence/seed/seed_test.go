package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/meal"
	"github.com/suppertime/v1/internal/infrastructure/persistence/memory"
)

func TestCatalog_StableIdentifiers(t *testing.T) {
	entries := Catalog()
	require.Len(t, entries, 12)

	ids := make(map[string]bool)
	keys := make(map[string]bool)
	for _, e := range entries {
		assert.False(t, ids[e.Meal.ID], "duplicate meal id %s", e.Meal.ID)
		assert.False(t, keys[e.Meal.CanonicalKey], "duplicate canonical key %s", e.Meal.CanonicalKey)
		ids[e.Meal.ID] = true
		keys[e.Meal.CanonicalKey] = true

		assert.True(t, e.Meal.Active)
		assert.True(t, e.Meal.CostBand.Valid())
		assert.Greater(t, e.Meal.EstMinutes, 0)
		assert.NotEmpty(t, e.Ingredients)

		for _, ing := range e.Ingredients {
			assert.Equal(t, e.Meal.ID, ing.MealID)
			assert.NotEmpty(t, ing.ID)
		}
	}
}

func TestCatalog_ChickenStirFry(t *testing.T) {
	var found *Entry
	for _, e := range Catalog() {
		if e.Meal.ID == "meal-012" {
			e := e
			found = &e
			break
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Chicken Stir-Fry", found.Meal.Title)

	var hasChicken bool
	for _, ing := range found.Ingredients {
		if ing.Name == "chicken breast" {
			hasChicken = true
			assert.False(t, ing.PantryStaple)
		}
	}
	assert.True(t, hasChicken)
}

func TestCatalog_PantryMealExists(t *testing.T) {
	var pantryFriendly int
	for _, e := range Catalog() {
		if meal.PantryFriendly(e.Ingredients) {
			pantryFriendly++
		}
	}
	assert.GreaterOrEqual(t, pantryFriendly, 1, "catalog needs a meal cookable from staples alone")
}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	households := memory.NewHouseholdRepository(store)
	meals := memory.NewMealRepository(store)
	items := memory.NewInventoryRepository(store)

	require.NoError(t, Apply(ctx, households, meals, items, zap.NewNop()))
	require.NoError(t, Apply(ctx, households, meals, items, zap.NewNop()))

	active, err := meals.FindActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 12)

	inv, err := items.FindByHousehold(ctx, DemoHouseholdKey)
	require.NoError(t, err)
	assert.Len(t, inv, len(DemoInventory(active[0].CreatedAt)))

	exists, err := households.Exists(ctx, DemoHouseholdKey)
	require.NoError(t, err)
	assert.True(t, exists)
}
