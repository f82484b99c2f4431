package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/household"
	"github.com/suppertime/v1/internal/ports/outbound"
	apperrors "github.com/suppertime/v1/pkg/errors"
)

// HouseholdRepository is the Postgres tenant identity store.
type HouseholdRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewHouseholdRepository creates a new household repository.
func NewHouseholdRepository(db *pgxpool.Pool, logger *zap.Logger) outbound.HouseholdRepository {
	return &HouseholdRepository{db: db, logger: logger}
}

// Create inserts a household row. A concurrent registration for the
// same key surfaces as already-processed so the caller can re-fetch.
func (r *HouseholdRepository) Create(ctx context.Context, h *household.Household) error {
	query := `
		INSERT INTO households (key, name, secret_hash, timezone, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, h.Key, h.Name, h.SecretHash, h.Timezone, h.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return apperrors.NewAlreadyProcessedError("household", h.Key)
		}
		r.logger.Error("Failed to create household",
			zap.String("household_key", h.Key),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// FindByKey returns the household, or nil when it is not registered.
func (r *HouseholdRepository) FindByKey(ctx context.Context, key string) (*household.Household, error) {
	query := `
		SELECT key, name, secret_hash, timezone, created_at
		FROM households
		WHERE key = $1`

	var h household.Household
	err := r.db.QueryRow(ctx, query, key).Scan(
		&h.Key, &h.Name, &h.SecretHash, &h.Timezone, &h.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

// Exists reports whether the key is registered.
func (r *HouseholdRepository) Exists(ctx context.Context, key string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM households WHERE key = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
