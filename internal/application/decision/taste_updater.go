package decision

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

// TasteUpdater folds a fedback event into the taste model: one
// append-only signal row plus the per-meal running score. The signal
// insert is the idempotency anchor; a duplicate means this event was
// already folded in and nothing else should run.
type TasteUpdater struct {
	taste  outbound.TasteRepository
	meals  outbound.MealRepository
	cache  outbound.CacheRepository
	logger *zap.Logger
}

// NewTasteUpdater creates the updater.
func NewTasteUpdater(
	taste outbound.TasteRepository,
	meals outbound.MealRepository,
	cache outbound.CacheRepository,
	logger *zap.Logger,
) *TasteUpdater {
	return &TasteUpdater{
		taste:  taste,
		meals:  meals,
		cache:  cache,
		logger: logger.Named("taste-updater"),
	}
}

// Apply records the taste signal for evt and, unless the event is an
// autopilot undo or carries no meal, applies its weight to the meal
// score. An already-processed error surfaces unwrapped so the caller
// can tell "done before" from "failed".
func (u *TasteUpdater) Apply(ctx context.Context, evt decision.Event) error {
	weight := decision.FeedbackWeight(evt.UserAction, evt.ActionedAt)

	sig := &decision.TasteSignal{
		ID:              uuid.New().String(),
		HouseholdKey:    evt.HouseholdKey,
		DecidedAt:       evt.DecidedAt,
		ActionedAt:      evt.ActionedAt,
		DecisionEventID: evt.ID,
		MealID:          evt.MealID,
		DecisionType:    evt.Type,
		UserAction:      evt.UserAction,
		ContextHash:     evt.ContextHash,
		Features:        u.snapshotFeatures(ctx, evt.MealID),
		Weight:          weight,
	}
	if err := u.taste.InsertSignal(ctx, sig); err != nil {
		if errors.IsAlreadyProcessed(err) {
			return err
		}
		return errors.NewDatabaseError("insert taste signal", err)
	}

	if evt.MealID == "" || evt.Notes == decision.NotesUndoAutopilot {
		return nil
	}
	if err := u.taste.ApplyWeight(ctx, evt.HouseholdKey, evt.MealID, weight, evt.UserAction, evt.EffectiveAt()); err != nil {
		return errors.NewDatabaseError("upsert meal score", err)
	}

	if err := u.cache.Delete(ctx, tasteCacheKey(evt.HouseholdKey)); err != nil {
		u.logger.Debug("Taste cache invalidation failed",
			zap.String("household_key", evt.HouseholdKey),
			zap.Error(err),
		)
	}
	return nil
}

// snapshotFeatures captures the meal's stable features at feedback
// time. A missing meal only drops the snapshot.
func (u *TasteUpdater) snapshotFeatures(ctx context.Context, mealID string) json.RawMessage {
	if mealID == "" {
		return nil
	}
	m, err := u.meals.FindByID(ctx, mealID)
	if err != nil || m == nil {
		return nil
	}
	ingredients, err := u.meals.FindIngredients(ctx, mealID)
	if err != nil {
		return nil
	}
	raw, err := json.Marshal(decision.SnapshotFeatures(*m, ingredients))
	if err != nil {
		return nil
	}
	return raw
}
