package decision

import (
	"sort"
	"time"

	"github.com/suppertime/v1/internal/domain/matching"
	"github.com/suppertime/v1/internal/domain/meal"
)

// Feedback weights. Signed so approvals and rejections pull the
// running per-meal score in opposite directions.
const (
	WeightApproved     = 1.0
	WeightRejected     = -1.0
	WeightDRMTriggered = -0.5
	WeightExpired      = -0.2

	// StressHour marks late-evening feedback. Actions taken at or
	// after 20:00 local carry more signal about what actually works
	// on a hard night.
	StressHour       = 20
	StressMultiplier = 1.10

	WeightClampMin = -2.0
	WeightClampMax = 2.0

	maxFeatureTokens = 20
)

// FeedbackWeight computes the signed taste weight for one feedback
// action. The local hour comes from the timestamp's own offset frame;
// a nil timestamp skips the stress multiplier.
func FeedbackWeight(action UserAction, actionedAt *time.Time) float64 {
	var base float64
	switch action {
	case ActionApproved:
		base = WeightApproved
	case ActionRejected:
		base = WeightRejected
	case ActionDRMTriggered:
		base = WeightDRMTriggered
	case ActionExpired:
		base = WeightExpired
	default:
		return 0
	}
	if actionedAt != nil && actionedAt.Hour() >= StressHour {
		base *= StressMultiplier
	}
	if base < WeightClampMin {
		return WeightClampMin
	}
	if base > WeightClampMax {
		return WeightClampMax
	}
	return base
}

// Features is the meal snapshot frozen into each taste signal. It
// records what the meal looked like when the user acted, so later
// edits to the library cannot rewrite history.
type Features struct {
	CanonicalKey     string   `json:"canonicalKey"`
	EstMinutes       int      `json:"estMinutes"`
	CostBand         string   `json:"costBand"`
	PantryFriendly   bool     `json:"pantryFriendly"`
	IngredientTokens []string `json:"ingredientTokens"`
}

// SnapshotFeatures builds the frozen feature record for a meal.
// Ingredient tokens are deduplicated, sorted alphabetically, and
// capped so the snapshot stays bounded.
func SnapshotFeatures(m meal.Meal, ingredients []meal.Ingredient) Features {
	seen := make(map[string]struct{})
	var tokens []string
	for _, ing := range ingredients {
		for _, tok := range matching.Tokenize(ing.Name) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	sort.Strings(tokens)
	if len(tokens) > maxFeatureTokens {
		tokens = tokens[:maxFeatureTokens]
	}
	return Features{
		CanonicalKey:     m.CanonicalKey,
		EstMinutes:       m.EstMinutes,
		CostBand:         string(m.CostBand),
		PantryFriendly:   meal.PantryFriendly(ingredients),
		IngredientTokens: tokens,
	}
}
