package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/ports/outbound"
	apperrors "github.com/suppertime/v1/pkg/errors"
)

// InventoryRepository is the Postgres pantry table.
type InventoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *pgxpool.Pool, logger *zap.Logger) outbound.InventoryRepository {
	return &InventoryRepository{db: db, logger: logger}
}

// Insert appends a pantry row, failing on a duplicate id.
func (r *InventoryRepository) Insert(ctx context.Context, item *inventory.Item) error {
	query := `
		INSERT INTO inventory_items (
			id, household_key, name, qty_estimated, qty_used, unit, confidence,
			source, last_seen_at, last_used_at, expires_at, decay_rate_per_day, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		item.ID, item.HouseholdKey, item.Name, item.QtyEstimated, item.QtyUsed,
		item.Unit, item.Confidence, string(item.Source), item.LastSeenAt,
		item.LastUsedAt, item.ExpiresAt, item.DecayRatePerDay, item.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return apperrors.NewAlreadyProcessedError("inventory item", item.ID)
		}
		r.logger.Error("Failed to insert inventory item",
			zap.String("item_id", item.ID),
			zap.String("household_key", item.HouseholdKey),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// FindByHousehold returns the household's rows in insertion order.
func (r *InventoryRepository) FindByHousehold(ctx context.Context, householdKey string) ([]inventory.Item, error) {
	query := selectInventoryColumns + `
		WHERE household_key = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, householdKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInventoryItems(rows)
}

// FindCandidates pre-filters rows whose name matches any pattern,
// ordered confidence descending then last-seen descending. The real
// matcher reruns over whatever comes back, so false positives here
// cost nothing.
func (r *InventoryRepository) FindCandidates(ctx context.Context, householdKey string, patterns []string, limit int) ([]inventory.Item, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	query := selectInventoryColumns + `
		WHERE household_key = $1 AND name ILIKE ANY($2)
		ORDER BY confidence DESC, last_seen_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, householdKey, patterns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInventoryItems(rows)
}

// RecordUse adds qty to the row's usage counter and stamps last-used.
func (r *InventoryRepository) RecordUse(ctx context.Context, id string, qty float64, usedAt time.Time) error {
	query := `
		UPDATE inventory_items
		SET qty_used = qty_used + $2, last_used_at = $3
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, qty, usedAt)
	if err != nil {
		r.logger.Error("Failed to record inventory use",
			zap.String("item_id", id),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("inventory item")
	}
	return nil
}

const selectInventoryColumns = `
	SELECT id, household_key, name, qty_estimated, qty_used, unit, confidence,
	       source, last_seen_at, last_used_at, expires_at, decay_rate_per_day, created_at
	FROM inventory_items`

func collectInventoryItems(rows pgx.Rows) ([]inventory.Item, error) {
	var out []inventory.Item
	for rows.Next() {
		var item inventory.Item
		var source string
		err := rows.Scan(
			&item.ID, &item.HouseholdKey, &item.Name, &item.QtyEstimated, &item.QtyUsed,
			&item.Unit, &item.Confidence, &source, &item.LastSeenAt,
			&item.LastUsedAt, &item.ExpiresAt, &item.DecayRatePerDay, &item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		item.Source = inventory.Source(source)
		out = append(out, item)
	}
	return out, rows.Err()
}
