package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/ports/outbound"
	apperrors "github.com/suppertime/v1/pkg/errors"
)

// TasteRepository is the Postgres store for learning signals and the
// running per-meal scores.
type TasteRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewTasteRepository creates a new taste repository.
func NewTasteRepository(db *pgxpool.Pool, logger *zap.Logger) outbound.TasteRepository {
	return &TasteRepository{db: db, logger: logger}
}

// InsertSignal appends one learning signal. A second signal for the
// same decision event fails with already-processed so repeat feedback
// never double-counts.
func (r *TasteRepository) InsertSignal(ctx context.Context, s *decision.TasteSignal) error {
	query := `
		INSERT INTO taste_signals (
			id, household_key, decided_at, actioned_at, decision_event_id,
			meal_id, decision_type, user_action, context_hash, features, weight
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		s.ID, s.HouseholdKey, s.DecidedAt, s.ActionedAt, s.DecisionEventID,
		s.MealID, string(s.DecisionType), string(s.UserAction), s.ContextHash,
		s.Features, s.Weight,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return apperrors.NewAlreadyProcessedError("taste signal", s.DecisionEventID)
		}
		r.logger.Error("Failed to insert taste signal",
			zap.String("decision_event_id", s.DecisionEventID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// ApplyWeight upserts the (household, meal) score row, adding the
// weight and bumping the matching action counter.
func (r *TasteRepository) ApplyWeight(ctx context.Context, householdKey, mealID string, weight float64, action decision.UserAction, seenAt time.Time) error {
	approved := 0
	rejected := 0
	switch action {
	case decision.ActionApproved:
		approved = 1
	case decision.ActionRejected:
		rejected = 1
	}

	query := `
		INSERT INTO meal_scores (household_key, meal_id, score, approvals, rejections, last_seen_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (household_key, meal_id) DO UPDATE SET
			score        = meal_scores.score + EXCLUDED.score,
			approvals    = meal_scores.approvals + EXCLUDED.approvals,
			rejections   = meal_scores.rejections + EXCLUDED.rejections,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at   = now()`

	_, err := r.db.Exec(ctx, query, householdKey, mealID, weight, approved, rejected, seenAt)
	if err != nil {
		r.logger.Error("Failed to apply taste weight",
			zap.String("household_key", householdKey),
			zap.String("meal_id", mealID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// FindScores returns the household's scores keyed by meal id.
func (r *TasteRepository) FindScores(ctx context.Context, householdKey string) (map[string]float64, error) {
	query := `SELECT meal_id, score FROM meal_scores WHERE household_key = $1`

	rows, err := r.db.Query(ctx, query, householdKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var mealID string
		var score float64
		if err := rows.Scan(&mealID, &score); err != nil {
			return nil, err
		}
		out[mealID] = score
	}
	return out, rows.Err()
}

// FindMealScore returns one score row, or nil when the meal has no
// feedback yet.
func (r *TasteRepository) FindMealScore(ctx context.Context, householdKey, mealID string) (*decision.MealScore, error) {
	query := `
		SELECT household_key, meal_id, score, approvals, rejections, last_seen_at, updated_at
		FROM meal_scores
		WHERE household_key = $1 AND meal_id = $2`

	var score decision.MealScore
	err := r.db.QueryRow(ctx, query, householdKey, mealID).Scan(
		&score.HouseholdKey, &score.MealID, &score.Score,
		&score.Approvals, &score.Rejections, &score.LastSeenAt, &score.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &score, nil
}
