// Package seed loads the starter meal library and the demo household.
// Both cmd/seed and the in-memory boot path go through Apply, so the
// two database drivers start from the same catalog.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/suppertime/v1/internal/domain/household"
	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/meal"
	"github.com/suppertime/v1/internal/ports/outbound"
	"go.uber.org/zap"
)

// DemoHouseholdKey is the household cmd/seed provisions alongside the
// meal library. It matches the development auth fallback.
const DemoHouseholdKey = household.DefaultKey

// Entry pairs a meal with its ingredient list.
type Entry struct {
	Meal        meal.Meal
	Ingredients []meal.Ingredient
}

var catalogCreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Catalog returns the starter meal library. IDs are stable; decision
// events reference them forever, so entries are never renumbered.
func Catalog() []Entry {
	return []Entry{
		entry("meal-001", "spaghetti-marinara", "Spaghetti Marinara",
			"Boil spaghetti. Simmer crushed tomatoes with garlic and olive oil. Toss and top with parmesan.",
			25, meal.CostLow, []string{"pasta", "vegetarian", "comfort"},
			ing("spaghetti", "1 lb", false),
			ing("crushed tomatoes", "1 can", false),
			ing("garlic", "3 cloves", true),
			ing("olive oil", "2 tbsp", true),
			ing("parmesan", "1/4 cup", false),
		),
		entry("meal-002", "black-bean-tacos", "Black Bean Tacos",
			"Warm tortillas. Heat beans with cumin. Fill, top with cheese and salsa.",
			15, meal.CostLow, []string{"mexican", "vegetarian", "quick"},
			ing("tortillas", "8", false),
			ing("black beans", "1 can", false),
			ing("cheddar cheese", "1 cup", false),
			ing("salsa", "1/2 cup", false),
			ing("cumin", "1 tsp", true),
		),
		entry("meal-003", "veggie-fried-rice", "Veggie Fried Rice",
			"Scramble eggs, set aside. Fry rice with frozen vegetables, soy sauce, and sesame oil. Fold eggs back in.",
			20, meal.CostLow, []string{"asian", "vegetarian", "quick"},
			ing("eggs", "3", false),
			ing("frozen vegetables", "2 cups", false),
			ing("rice", "2 cups", true),
			ing("soy sauce", "2 tbsp", true),
			ing("sesame oil", "1 tsp", true),
		),
		entry("meal-004", "grilled-cheese-tomato-soup", "Grilled Cheese and Tomato Soup",
			"Butter bread, grill with cheddar until golden. Heat soup alongside.",
			15, meal.CostLow, []string{"comfort", "vegetarian", "quick"},
			ing("bread", "4 slices", false),
			ing("cheddar cheese", "4 slices", false),
			ing("tomato soup", "1 can", false),
			ing("butter", "2 tbsp", true),
		),
		entry("meal-005", "sheet-pan-sausage-peppers", "Sheet Pan Sausage and Peppers",
			"Slice sausage, peppers, and onion. Roast on one pan at 425F for 25 minutes.",
			35, meal.CostMedium, []string{"one-pan", "hearty"},
			ing("italian sausage", "1 lb", false),
			ing("bell peppers", "3", false),
			ing("onion", "1", false),
			ing("olive oil", "2 tbsp", true),
		),
		entry("meal-006", "baked-salmon-rice", "Baked Salmon and Rice",
			"Season salmon, bake at 400F for 12 minutes. Serve over rice with lemon.",
			30, meal.CostHigh, []string{"seafood", "healthy"},
			ing("salmon fillet", "1 lb", false),
			ing("lemon", "1", false),
			ing("rice", "1.5 cups", true),
			ing("olive oil", "1 tbsp", true),
		),
		entry("meal-007", "chickpea-curry", "Chickpea Curry",
			"Soften onion, bloom curry powder, add chickpeas and coconut milk. Simmer 15 minutes, serve over rice.",
			30, meal.CostLow, []string{"indian", "vegetarian", "pantry"},
			ing("chickpeas", "2 cans", false),
			ing("coconut milk", "1 can", false),
			ing("onion", "1", false),
			ing("curry powder", "2 tbsp", true),
			ing("rice", "1.5 cups", true),
		),
		entry("meal-008", "turkey-chili", "Turkey Chili",
			"Brown turkey with onion. Add beans, tomatoes, and chili powder. Simmer 30 minutes.",
			45, meal.CostMedium, []string{"hearty", "batch-cook"},
			ing("ground turkey", "1 lb", false),
			ing("kidney beans", "1 can", false),
			ing("crushed tomatoes", "1 can", false),
			ing("onion", "1", false),
			ing("chili powder", "2 tbsp", true),
		),
		entry("meal-009", "margherita-flatbread", "Margherita Flatbread",
			"Top flatbread with mozzarella and tomato. Bake at 450F for 8 minutes, finish with basil.",
			15, meal.CostMedium, []string{"italian", "vegetarian", "quick"},
			ing("flatbread", "2", false),
			ing("mozzarella", "8 oz", false),
			ing("tomato", "1", false),
			ing("basil", "1 bunch", false),
			ing("olive oil", "1 tbsp", true),
		),
		entry("meal-010", "beef-burrito-bowls", "Beef Burrito Bowls",
			"Brown beef with taco seasoning. Build bowls over rice with beans and salsa.",
			25, meal.CostMedium, []string{"mexican", "hearty"},
			ing("ground beef", "1 lb", false),
			ing("black beans", "1 can", false),
			ing("salsa", "1 cup", false),
			ing("rice", "1.5 cups", true),
			ing("taco seasoning", "2 tbsp", true),
		),
		entry("meal-011", "pantry-pasta-aglio-olio", "Pantry Pasta Aglio e Olio",
			"Boil pasta. Toast sliced garlic and pepper flakes in olive oil, toss with pasta and pasta water.",
			20, meal.CostLow, []string{"pasta", "pantry", "quick"},
			ing("pasta", "1 lb", true),
			ing("garlic", "6 cloves", true),
			ing("olive oil", "1/3 cup", true),
			ing("red pepper flakes", "1 tsp", true),
		),
		entry("meal-012", "chicken-stir-fry", "Chicken Stir-Fry",
			"Slice chicken breast, stir-fry hot with garlic. Add soy sauce, serve over rice.",
			25, meal.CostMedium, []string{"asian", "quick", "protein"},
			ing("chicken breast", "1 lb", false),
			ing("soy sauce", "3 tbsp", true),
			ing("garlic", "2 cloves", true),
			ing("rice", "1.5 cups", true),
		),
	}
}

// DemoHousehold returns the development household.
func DemoHousehold() household.Household {
	return household.Household{
		Key:       DemoHouseholdKey,
		Name:      "Demo Household",
		Timezone:  "America/Chicago",
		CreatedAt: catalogCreatedAt,
	}
}

// DemoInventory returns starter pantry items for the demo household.
// Quantities and confidences are set so a fresh environment can cook
// several catalog meals on day one.
func DemoInventory(now time.Time) []inventory.Item {
	qty := func(v float64) *float64 { return &v }

	items := []struct {
		name string
		qty  float64
		unit string
		conf float64
	}{
		{"chicken breast", 2, "lb", 0.90},
		{"eggs", 12, "", 0.95},
		{"tortillas", 8, "", 0.85},
		{"black beans", 2, "can", 0.90},
		{"cheddar cheese", 1, "lb", 0.80},
		{"crushed tomatoes", 2, "can", 0.90},
		{"frozen vegetables", 2, "bag", 0.85},
		{"spaghetti", 1, "lb", 0.90},
	}

	out := make([]inventory.Item, 0, len(items))
	for i, it := range items {
		out = append(out, inventory.Item{
			ID:              fmt.Sprintf("demo-item-%02d", i+1),
			HouseholdKey:    DemoHouseholdKey,
			Name:            it.name,
			QtyEstimated:    qty(it.qty),
			Unit:            it.unit,
			Confidence:      it.conf,
			Source:          inventory.SourceManual,
			LastSeenAt:      now,
			DecayRatePerDay: inventory.DefaultDecayRatePerDay,
			CreatedAt:       now,
		})
	}
	return out
}

// Apply seeds the meal library and demo household through the
// repository ports. Meals upsert idempotently; the demo household and
// its inventory are only created on first run.
func Apply(
	ctx context.Context,
	households outbound.HouseholdRepository,
	meals outbound.MealRepository,
	inventoryRepo outbound.InventoryRepository,
	logger *zap.Logger,
) error {
	for _, e := range Catalog() {
		m := e.Meal
		if err := meals.Upsert(ctx, &m, e.Ingredients); err != nil {
			return fmt.Errorf("seed meal %s: %w", m.ID, err)
		}
	}

	exists, err := households.Exists(ctx, DemoHouseholdKey)
	if err != nil {
		return fmt.Errorf("check demo household: %w", err)
	}
	if exists {
		logger.Info("Seed complete", zap.Int("meals", len(Catalog())), zap.Bool("household_created", false))
		return nil
	}

	demo := DemoHousehold()
	if err := households.Create(ctx, &demo); err != nil {
		return fmt.Errorf("create demo household: %w", err)
	}

	items := DemoInventory(time.Now().UTC())
	for _, item := range items {
		item := item
		if err := inventoryRepo.Insert(ctx, &item); err != nil {
			return fmt.Errorf("seed inventory %s: %w", item.Name, err)
		}
	}

	logger.Info("Seed complete",
		zap.Int("meals", len(Catalog())),
		zap.Bool("household_created", true),
		zap.Int("inventory_items", len(items)),
	)
	return nil
}

func entry(id, key, title, steps string, minutes int, band meal.CostBand, tags []string, ingredients ...meal.Ingredient) Entry {
	for i := range ingredients {
		ingredients[i].ID = fmt.Sprintf("%s-ing-%02d", id, i+1)
		ingredients[i].MealID = id
	}
	return Entry{
		Meal: meal.Meal{
			ID:           id,
			CanonicalKey: key,
			Title:        title,
			StepsShort:   steps,
			EstMinutes:   minutes,
			CostBand:     band,
			Tags:         tags,
			Active:       true,
			CreatedAt:    catalogCreatedAt,
		},
		Ingredients: ingredients,
	}
}

func ing(name, qtyText string, staple bool) meal.Ingredient {
	return meal.Ingredient{Name: name, QtyText: qtyText, PantryStaple: staple}
}
