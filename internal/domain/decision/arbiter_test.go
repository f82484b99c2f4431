package decision

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/meal"
)

func qty(v float64) *float64 { return &v }

func freshItem(name string, confidence float64, estimated float64, now time.Time) inventory.Item {
	return inventory.Item{
		Name:         name,
		Confidence:   confidence,
		QtyEstimated: qty(estimated),
		LastSeenAt:   now,
	}
}

func candidate(id, key string, active bool, ingredients ...meal.Ingredient) Candidate {
	return Candidate{
		Meal:        meal.Meal{ID: id, CanonicalKey: key, Title: key, Active: active},
		Ingredients: ingredients,
	}
}

func TestInventoryScore_StrongExactMatch(t *testing.T) {
	now := jan20(18, 0)
	items := []inventory.Item{freshItem("chicken breast boneless skinless organic pack", 1.0, 5, now)}
	ingredients := []meal.Ingredient{{Name: "chicken"}}

	score := InventoryScore(ingredients, items, now)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestInventoryScore_WeakMatchCapped(t *testing.T) {
	now := jan20(18, 0)
	items := []inventory.Item{freshItem("chicken breast salad wrap", 1.0, 5, now)}
	ingredients := []meal.Ingredient{{Name: "chicken breast rice"}}

	score := InventoryScore(ingredients, items, now)
	assert.InDelta(t, WeakMatchCap, score, 1e-9)
}

func TestInventoryScore_Rules(t *testing.T) {
	now := jan20(18, 0)

	t.Run("pantry staples always contribute in full", func(t *testing.T) {
		ingredients := []meal.Ingredient{
			{Name: "soy sauce", PantryStaple: true},
			{Name: "rice", PantryStaple: true},
		}
		assert.InDelta(t, 1.0, InventoryScore(ingredients, nil, now), 1e-9)
	})

	t.Run("no ingredients is neutral", func(t *testing.T) {
		assert.InDelta(t, NeutralScore, InventoryScore(nil, nil, now), 1e-9)
	})

	t.Run("unmatched ingredient contributes zero", func(t *testing.T) {
		items := []inventory.Item{freshItem("laundry detergent", 1.0, 5, now)}
		ingredients := []meal.Ingredient{{Name: "chicken breast"}}
		assert.Zero(t, InventoryScore(ingredients, items, now))
	})

	t.Run("depleted item contributes zero", func(t *testing.T) {
		item := freshItem("chicken breast", 1.0, 2, now)
		item.QtyUsed = 2
		ingredients := []meal.Ingredient{{Name: "chicken breast"}}
		assert.Zero(t, InventoryScore(ingredients, []inventory.Item{item}, now))
	})

	t.Run("low-confidence item contributes zero", func(t *testing.T) {
		items := []inventory.Item{freshItem("chicken breast", 0.40, 5, now)}
		ingredients := []meal.Ingredient{{Name: "chicken breast"}}
		assert.Zero(t, InventoryScore(ingredients, items, now))
	})

	t.Run("unknown quantity is treated as present", func(t *testing.T) {
		item := inventory.Item{Name: "chicken breast", Confidence: 0.90, LastSeenAt: now}
		ingredients := []meal.Ingredient{{Name: "chicken breast"}}
		assert.InDelta(t, 0.90, InventoryScore(ingredients, []inventory.Item{item}, now), 1e-9)
	})

	t.Run("mixed ingredients average", func(t *testing.T) {
		items := []inventory.Item{freshItem("chicken breast", 1.0, 5, now)}
		ingredients := []meal.Ingredient{
			{Name: "chicken breast"},
			{Name: "rice", PantryStaple: true},
			{Name: "saffron threads"},
		}
		// 1.0 + 1.0 + 0 over three ingredients.
		assert.InDelta(t, 2.0/3.0, InventoryScore(ingredients, items, now), 1e-9)
	})
}

func TestTasteValue(t *testing.T) {
	scores := map[string]float64{"meal-001": 5.0, "meal-002": -5.0, "meal-003": 0}

	assert.InDelta(t, 1/(1+math.Exp(-1)), TasteValue(scores, "meal-001"), 1e-9)
	assert.InDelta(t, 1/(1+math.Exp(1)), TasteValue(scores, "meal-002"), 1e-9)
	assert.InDelta(t, 0.5, TasteValue(scores, "meal-003"), 1e-9)
	assert.InDelta(t, NeutralScore, TasteValue(scores, "meal-unknown"), 1e-9)
	assert.InDelta(t, NeutralScore, TasteValue(nil, "meal-001"), 1e-9)
}

func TestRank_PicksBestInventory(t *testing.T) {
	now := jan20(18, 30)
	state := State{
		Candidates: []Candidate{
			candidate("meal-012", "chicken-stir-fry", true, meal.Ingredient{Name: "chicken breast"}),
			candidate("meal-001", "beef-tacos", true, meal.Ingredient{Name: "ground beef"}),
		},
		Inventory: []inventory.Item{freshItem("chicken breast", 0.90, 2, now)},
	}

	best := Rank(state, now, "")
	require.NotNil(t, best)
	assert.Equal(t, "meal-012", best.Candidate.Meal.ID)
	assert.Greater(t, best.InventoryScore, 0.0)
}

func TestRank_Determinism(t *testing.T) {
	now := jan20(18, 30)
	hash := "f00dc0ffee"
	state := State{
		Candidates: []Candidate{
			candidate("meal-001", "beef-tacos", true),
			candidate("meal-002", "lentil-soup", true),
			candidate("meal-003", "veggie-pasta", true),
		},
		TasteScores: map[string]float64{"meal-001": 1.2, "meal-002": 1.1, "meal-003": 0.9},
	}

	first := Rank(state, now, hash)
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		again := Rank(state, now, hash)
		require.NotNil(t, again)
		assert.Equal(t, first.Candidate.Meal.ID, again.Candidate.Meal.ID)
		assert.Equal(t, first.Total, again.Total)
	}
}

func TestRank_TieBreaksByCanonicalKey(t *testing.T) {
	now := jan20(18, 30)
	state := State{
		Candidates: []Candidate{
			candidate("meal-b", "zucchini-bake", true),
			candidate("meal-a", "apple-salad", true),
		},
	}

	// No inventory, no taste, no noise: identical totals either way.
	best := Rank(state, now, "")
	require.NotNil(t, best)
	assert.Equal(t, "apple-salad", best.Candidate.Meal.CanonicalKey)
}

func TestRank_FiltersInactiveAndRejected(t *testing.T) {
	now := jan20(18, 30)
	rejectedAt := now.Add(-2 * time.Hour)
	state := State{
		Candidates: []Candidate{
			candidate("meal-001", "beef-tacos", true),
			candidate("meal-002", "lentil-soup", false),
			candidate("meal-003", "veggie-pasta", true),
		},
		Recent: []Event{
			{UserAction: ActionRejected, MealID: "meal-001", DecidedAt: rejectedAt, ActionedAt: &rejectedAt},
		},
	}

	best := Rank(state, now, "")
	require.NotNil(t, best)
	assert.Equal(t, "meal-003", best.Candidate.Meal.ID)
}

func TestRank_DayOldRejectionNoLongerFilters(t *testing.T) {
	now := jan20(18, 30)
	rejectedAt := now.Add(-RecentRejectionWindow - time.Minute)
	state := State{
		Candidates: []Candidate{candidate("meal-001", "beef-tacos", true)},
		Recent: []Event{
			{UserAction: ActionRejected, MealID: "meal-001", DecidedAt: rejectedAt, ActionedAt: &rejectedAt},
		},
	}

	best := Rank(state, now, "")
	require.NotNil(t, best)
	assert.Equal(t, "meal-001", best.Candidate.Meal.ID)
}

func TestRank_NothingEligibleReturnsNil(t *testing.T) {
	now := jan20(18, 30)
	rejectedAt := now.Add(-time.Hour)

	assert.Nil(t, Rank(State{}, now, ""))

	state := State{
		Candidates: []Candidate{
			candidate("meal-001", "beef-tacos", true),
			candidate("meal-002", "lentil-soup", false),
		},
		Recent: []Event{
			{UserAction: ActionRejected, MealID: "meal-001", DecidedAt: rejectedAt, ActionedAt: &rejectedAt},
		},
	}
	assert.Nil(t, Rank(state, now, ""))
}

func TestRank_RotationPenaltyShiftsSelection(t *testing.T) {
	now := jan20(18, 30)
	approvedAt := now.AddDate(0, 0, -1)
	state := State{
		Candidates: []Candidate{
			candidate("meal-001", "beef-tacos", true),
			candidate("meal-002", "lentil-soup", true),
		},
		// Slight taste edge for meal-001, wiped out by rotation.
		TasteScores: map[string]float64{"meal-001": 0.5},
		Recent: []Event{
			{UserAction: ActionApproved, MealID: "meal-001", DecidedAt: approvedAt, ActionedAt: &approvedAt},
		},
	}

	best := Rank(state, now, "")
	require.NotNil(t, best)
	assert.Equal(t, "meal-002", best.Candidate.Meal.ID)

	noHistory := state
	noHistory.Recent = nil
	best = Rank(noHistory, now, "")
	require.NotNil(t, best)
	assert.Equal(t, "meal-001", best.Candidate.Meal.ID)
}

func TestRank_RotationWindowIsSevenApprovals(t *testing.T) {
	now := jan20(18, 30)

	// meal-001 was approved eighth-most-recently; seven other
	// approvals stand between it and now.
	var recent []Event
	for i := 0; i < 7; i++ {
		at := now.Add(-time.Duration(i+1) * time.Hour)
		recent = append(recent, Event{UserAction: ActionApproved, MealID: "meal-x", DecidedAt: at, ActionedAt: &at})
	}
	old := now.Add(-30 * time.Hour)
	recent = append(recent, Event{UserAction: ActionApproved, MealID: "meal-001", DecidedAt: old, ActionedAt: &old})

	state := State{
		Candidates: []Candidate{
			candidate("meal-001", "beef-tacos", true),
			candidate("meal-002", "lentil-soup", true),
		},
		TasteScores: map[string]float64{"meal-001": 0.5},
		Recent:      recent,
	}

	best := Rank(state, now, "")
	require.NotNil(t, best)
	assert.Equal(t, "meal-001", best.Candidate.Meal.ID, "falling outside the rotation window lifts the penalty")
}

func TestHouseholdScores(t *testing.T) {
	now := jan20(18, 0)

	t.Run("inventory is mean of top three", func(t *testing.T) {
		state := State{
			Candidates: []Candidate{
				candidate("m1", "k1", true),
				candidate("m2", "k2", true, meal.Ingredient{Name: "rice", PantryStaple: true}),
				candidate("m3", "k3", true, meal.Ingredient{Name: "unicorn steak"}),
				candidate("m4", "k4", true, meal.Ingredient{Name: "dragon fruit compote"}),
			},
		}
		// Scores are 0.5 (no ingredients), 1.0 (all staples), 0, 0.
		got := HouseholdInventoryScore(state, now)
		assert.InDelta(t, (1.0+0.5+0)/3.0, got, 1e-9)
	})

	t.Run("no active meals is neutral", func(t *testing.T) {
		assert.InDelta(t, NeutralScore, HouseholdInventoryScore(State{}, now), 1e-9)
		state := State{Candidates: []Candidate{candidate("m1", "k1", false)}}
		assert.InDelta(t, NeutralScore, HouseholdInventoryScore(state, now), 1e-9)
	})

	t.Run("taste is sigmoid of mean of top three raw scores", func(t *testing.T) {
		state := State{
			Candidates: []Candidate{
				candidate("m1", "k1", true),
				candidate("m2", "k2", true),
				candidate("m3", "k3", true),
				candidate("m4", "k4", true),
			},
			TasteScores: map[string]float64{"m1": 5, "m2": 3, "m3": 1, "m4": -4},
		}
		want := Sigmoid((5.0 + 3.0 + 1.0) / 3.0 / 5.0)
		assert.InDelta(t, want, HouseholdTasteScore(state), 1e-9)
	})

	t.Run("no scores is neutral", func(t *testing.T) {
		state := State{Candidates: []Candidate{candidate("m1", "k1", true)}}
		assert.InDelta(t, NeutralScore, HouseholdTasteScore(state), 1e-9)
	})
}
