package decision

import (
	"math"
	"sort"
	"time"

	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/matching"
	"github.com/suppertime/v1/internal/domain/meal"
)

// Scoring weights. Inventory and taste sum to 0.95, leaving headroom
// for the rotation penalty and exploration noise.
const (
	WeightInventory = 0.60
	WeightTaste     = 0.35

	// WeakMatchCap bounds what a weakly matched item may contribute,
	// so a high-confidence item that only partially matches an
	// ingredient cannot carry the whole meal.
	WeakMatchCap = 0.50

	RotationWindow  = 7
	RotationPenalty = 0.20

	NeutralScore = 0.5

	// TopKFallback is how many best meals feed the household-level
	// scores the autopilot gates inspect.
	TopKFallback = 3

	tasteScale = 5.0
)

// Candidate pairs a meal with its ingredient list.
type Candidate struct {
	Meal        meal.Meal
	Ingredients []meal.Ingredient
}

// State is the loaded household snapshot the arbiter scores against.
// Recent events are ordered newest first.
type State struct {
	Candidates  []Candidate
	Inventory   []inventory.Item
	Recent      []Event
	TasteScores map[string]float64
}

// Scored carries one candidate's score breakdown.
type Scored struct {
	Candidate      Candidate
	InventoryScore float64
	TasteValue     float64
	Rotation       float64
	Noise          float64
	Total          float64
}

// Sigmoid squashes a raw taste score into (0,1).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// InventoryScore is the mean per-ingredient availability for a meal.
// Pantry staples always count in full. Non-staples contribute decayed
// confidence times match score, zero when unmatched, depleted, or too
// stale to trust, and capped when the match itself is weak.
func InventoryScore(ingredients []meal.Ingredient, items []inventory.Item, now time.Time) float64 {
	if len(ingredients) == 0 {
		return NeutralScore
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	var sum float64
	for _, ing := range ingredients {
		if ing.PantryStaple {
			sum += 1.0
			continue
		}
		idx, m := matching.BestMatch(ing.Name, names)
		if idx < 0 {
			continue
		}
		item := items[idx]
		c := item.DecayedConfidence(now)
		if c < inventory.LikelyAvailableConfidence {
			continue
		}
		if remaining := item.Remaining(now); remaining != nil && *remaining <= 0 {
			continue
		}
		contribution := c * m
		if m < matching.StrongMatchThreshold && contribution > WeakMatchCap {
			contribution = WeakMatchCap
		}
		sum += contribution
	}
	return sum / float64(len(ingredients))
}

// TasteValue maps a meal's raw running score into (0,1). Meals the
// household has never judged sit at neutral.
func TasteValue(scores map[string]float64, mealID string) float64 {
	raw, ok := scores[mealID]
	if !ok {
		return NeutralScore
	}
	return Sigmoid(raw / tasteScale)
}

// Rank scores every eligible candidate and returns the single best,
// or nil when nothing is eligible. Ties break by canonical key
// ascending so selection never depends on input order.
func Rank(state State, now time.Time, contextHash string) *Scored {
	rejected := rejectedMealIDs(state.Recent, now)
	var best *Scored
	for _, cand := range state.Candidates {
		if !cand.Meal.Active {
			continue
		}
		if _, wasRejected := rejected[cand.Meal.ID]; wasRejected {
			continue
		}
		scored := scoreCandidate(cand, state, now, contextHash)
		if best == nil || betterThan(scored, *best) {
			s := scored
			best = &s
		}
	}
	return best
}

func scoreCandidate(cand Candidate, state State, now time.Time, contextHash string) Scored {
	inv := InventoryScore(cand.Ingredients, state.Inventory, now)
	taste := TasteValue(state.TasteScores, cand.Meal.ID)
	rotation := rotationPenalty(state.Recent, cand.Meal.ID)
	noise := ExplorationNoise(contextHash, cand.Meal.ID)
	return Scored{
		Candidate:      cand,
		InventoryScore: inv,
		TasteValue:     taste,
		Rotation:       rotation,
		Noise:          noise,
		Total:          WeightInventory*inv + WeightTaste*taste + rotation + noise,
	}
}

func betterThan(a, b Scored) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	return a.Candidate.Meal.CanonicalKey < b.Candidate.Meal.CanonicalKey
}

// rotationPenalty applies when the meal appears among the most recent
// RotationWindow approved meal events.
func rotationPenalty(recent []Event, mealID string) float64 {
	inspected := 0
	for _, e := range recent {
		if e.UserAction != ActionApproved || e.MealID == "" {
			continue
		}
		if e.MealID == mealID {
			return -RotationPenalty
		}
		inspected++
		if inspected >= RotationWindow {
			break
		}
	}
	return 0
}

// rejectedMealIDs collects meals rejected within the last 24 hours,
// boundary inclusive. These are filtered out before scoring.
func rejectedMealIDs(recent []Event, now time.Time) map[string]struct{} {
	cutoff := now.Add(-RecentRejectionWindow)
	out := make(map[string]struct{})
	for _, e := range recent {
		if e.UserAction == ActionRejected && e.MealID != "" && !e.EffectiveAt().Before(cutoff) {
			out[e.MealID] = struct{}{}
		}
	}
	return out
}

// HouseholdInventoryScore is the mean of the top-K active meals'
// inventory scores, the signal autopilot's low-inventory gate reads.
func HouseholdInventoryScore(state State, now time.Time) float64 {
	var scores []float64
	for _, cand := range state.Candidates {
		if !cand.Meal.Active {
			continue
		}
		scores = append(scores, InventoryScore(cand.Ingredients, state.Inventory, now))
	}
	if len(scores) == 0 {
		return NeutralScore
	}
	return meanTopK(scores, TopKFallback)
}

// HouseholdTasteScore is the sigmoid of the mean of the top-K raw
// taste scores across active meals.
func HouseholdTasteScore(state State) float64 {
	var raw []float64
	for _, cand := range state.Candidates {
		if !cand.Meal.Active {
			continue
		}
		if score, ok := state.TasteScores[cand.Meal.ID]; ok {
			raw = append(raw, score)
		}
	}
	if len(raw) == 0 {
		return NeutralScore
	}
	return Sigmoid(meanTopK(raw, TopKFallback) / tasteScale)
}

func meanTopK(values []float64, k int) float64 {
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	if len(values) < k {
		k = len(values)
	}
	var sum float64
	for _, v := range values[:k] {
		sum += v
	}
	return sum / float64(k)
}
