package decision

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/domain/matching"
	"github.com/suppertime/v1/internal/domain/meal"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

const (
	consumptionPrefilterTokens = 3
	consumptionCandidateLimit  = 50
)

// ConsumptionHook depletes matched inventory after an approved cook.
// Per-ingredient failures are collected, never fatal; pantry staples
// are never touched.
type ConsumptionHook struct {
	inventory outbound.InventoryRepository
	meals     outbound.MealRepository
	cache     outbound.CacheRepository
	logger    *zap.Logger
}

// NewConsumptionHook creates the hook.
func NewConsumptionHook(
	inventoryRepo outbound.InventoryRepository,
	meals outbound.MealRepository,
	cache outbound.CacheRepository,
	logger *zap.Logger,
) *ConsumptionHook {
	return &ConsumptionHook{
		inventory: inventoryRepo,
		meals:     meals,
		cache:     cache,
		logger:    logger.Named("consumption-hook"),
	}
}

// Run walks the meal's non-staple ingredients, matches each against
// the household inventory, and records estimated usage on the best
// match. Unmatched or untokenizable ingredients are skipped silently.
func (h *ConsumptionHook) Run(ctx context.Context, evt decision.Event) error {
	if evt.UserAction != decision.ActionApproved || evt.Type != decision.TypeCook || evt.MealID == "" {
		return nil
	}

	ingredients, err := h.meals.FindIngredients(ctx, evt.MealID)
	if err != nil {
		return errors.NewDatabaseError("load meal ingredients", err)
	}

	usedAt := evt.EffectiveAt()
	var failed []string
	touched := 0
	for _, ing := range ingredients {
		if ing.PantryStaple {
			continue
		}
		tokens := matching.PrefilterTokens(ing.Name, consumptionPrefilterTokens)
		if len(tokens) == 0 {
			continue
		}
		patterns := make([]string, len(tokens))
		for i, tok := range tokens {
			patterns[i] = "%" + tok + "%"
		}

		items, err := h.inventory.FindCandidates(ctx, evt.HouseholdKey, patterns, consumptionCandidateLimit)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", ing.Name, err))
			continue
		}
		names := make([]string, len(items))
		for i, item := range items {
			names[i] = item.Name
		}
		idx, _ := matching.BestMatch(ing.Name, names)
		if idx < 0 {
			continue
		}

		qty := meal.ParseQuantity(ing.QtyText)
		if err := h.inventory.RecordUse(ctx, items[idx].ID, qty, usedAt); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", ing.Name, err))
			continue
		}
		touched++
	}

	if touched > 0 {
		if err := h.cache.Delete(ctx, inventoryCacheKey(evt.HouseholdKey)); err != nil {
			h.logger.Debug("Inventory cache invalidation failed",
				zap.String("household_key", evt.HouseholdKey),
				zap.Error(err),
			)
		}
	}
	h.logger.Debug("Consumption applied",
		zap.String("meal_id", evt.MealID),
		zap.Int("items_used", touched),
		zap.Int("failures", len(failed)),
	)

	if len(failed) > 0 {
		return fmt.Errorf("consumption skipped %d ingredient(s): %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}
