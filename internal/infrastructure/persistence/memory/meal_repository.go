package memory

import (
	"context"

	"github.com/suppertime/v1/internal/domain/meal"
	"github.com/suppertime/v1/internal/ports/outbound"
)

// MealRepository is the in-memory meal library.
type MealRepository struct {
	store *Store
}

// NewMealRepository creates the repository over a shared store.
func NewMealRepository(store *Store) outbound.MealRepository {
	return &MealRepository{store: store}
}

// Upsert writes the meal and replaces its ingredient list.
func (r *MealRepository) Upsert(ctx context.Context, m *meal.Meal, ingredients []meal.Ingredient) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.meals[m.ID]; !exists {
		r.store.mealOrder = append(r.store.mealOrder, m.ID)
	}
	r.store.meals[m.ID] = *m
	r.store.ingredients[m.ID] = append([]meal.Ingredient(nil), ingredients...)
	return nil
}

// FindByID returns the meal, or nil when absent.
func (r *MealRepository) FindByID(ctx context.Context, id string) (*meal.Meal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	m, ok := r.store.meals[id]
	if !ok {
		return nil, nil
	}
	out := m
	return &out, nil
}

// FindActive returns active meals in insertion order.
func (r *MealRepository) FindActive(ctx context.Context) ([]meal.Meal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []meal.Meal
	for _, id := range r.store.mealOrder {
		if m := r.store.meals[id]; m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

// FindIngredients returns the meal's ingredient list.
func (r *MealRepository) FindIngredients(ctx context.Context, mealID string) ([]meal.Ingredient, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return append([]meal.Ingredient(nil), r.store.ingredients[mealID]...), nil
}

// FindIngredientsByMeal returns ingredient lists keyed by meal id.
func (r *MealRepository) FindIngredientsByMeal(ctx context.Context, mealIDs []string) (map[string][]meal.Ingredient, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(map[string][]meal.Ingredient, len(mealIDs))
	for _, id := range mealIDs {
		if ings, ok := r.store.ingredients[id]; ok {
			out[id] = append([]meal.Ingredient(nil), ings...)
		}
	}
	return out, nil
}
