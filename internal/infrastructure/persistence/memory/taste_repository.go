package memory

import (
	"context"
	"time"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

// TasteRepository is the in-memory taste model storage.
type TasteRepository struct {
	store *Store
}

// NewTasteRepository creates the repository over a shared store.
func NewTasteRepository(store *Store) outbound.TasteRepository {
	return &TasteRepository{store: store}
}

// InsertSignal appends one signal. A second signal for the same
// decision event fails with already-processed.
func (r *TasteRepository) InsertSignal(ctx context.Context, s *decision.TasteSignal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.signalIndex[s.DecisionEventID]; exists {
		return errors.NewAlreadyProcessedError("taste signal", s.DecisionEventID)
	}
	r.store.signalIndex[s.DecisionEventID] = len(r.store.signals)
	r.store.signals = append(r.store.signals, *s)
	return nil
}

// ApplyWeight upserts the per-meal running score.
func (r *TasteRepository) ApplyWeight(ctx context.Context, householdKey, mealID string, weight float64, action decision.UserAction, seenAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := scoreKey(householdKey, mealID)
	score, ok := r.store.scores[key]
	if !ok {
		score = decision.MealScore{HouseholdKey: householdKey, MealID: mealID}
	}
	score.Score += weight
	switch action {
	case decision.ActionApproved:
		score.Approvals++
	case decision.ActionRejected:
		score.Rejections++
	}
	score.LastSeenAt = seenAt
	score.UpdatedAt = time.Now()
	r.store.scores[key] = score
	return nil
}

// FindScores returns the household's scores keyed by meal id.
func (r *TasteRepository) FindScores(ctx context.Context, householdKey string) (map[string]float64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(map[string]float64)
	for _, score := range r.store.scores {
		if score.HouseholdKey == householdKey {
			out[score.MealID] = score.Score
		}
	}
	return out, nil
}

// FindMealScore returns one score row, or nil when the meal has no
// feedback yet.
func (r *TasteRepository) FindMealScore(ctx context.Context, householdKey, mealID string) (*decision.MealScore, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	score, ok := r.store.scores[scoreKey(householdKey, mealID)]
	if !ok {
		return nil, nil
	}
	out := score
	return &out, nil
}
