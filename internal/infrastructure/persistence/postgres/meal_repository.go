package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/meal"
	"github.com/suppertime/v1/internal/ports/outbound"
)

// MealRepository is the Postgres meal library.
type MealRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewMealRepository creates a new meal repository.
func NewMealRepository(db *pgxpool.Pool, logger *zap.Logger) outbound.MealRepository {
	return &MealRepository{db: db, logger: logger}
}

// Upsert writes the meal and replaces its ingredient list in one
// transaction. The seeder calls this at boot; runtime never writes.
func (r *MealRepository) Upsert(ctx context.Context, m *meal.Meal, ingredients []meal.Ingredient) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	mealQuery := `
		INSERT INTO meals (id, canonical_key, title, steps_short, est_minutes, cost_band, tags, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			canonical_key = EXCLUDED.canonical_key,
			title         = EXCLUDED.title,
			steps_short   = EXCLUDED.steps_short,
			est_minutes   = EXCLUDED.est_minutes,
			cost_band     = EXCLUDED.cost_band,
			tags          = EXCLUDED.tags,
			active        = EXCLUDED.active`

	_, err = tx.Exec(ctx, mealQuery,
		m.ID, m.CanonicalKey, m.Title, m.StepsShort, m.EstMinutes,
		string(m.CostBand), m.Tags, m.Active, m.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert meal",
			zap.String("meal_id", m.ID),
			zap.Error(err),
		)
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM meal_ingredients WHERE meal_id = $1`, m.ID); err != nil {
		return err
	}

	ingredientQuery := `
		INSERT INTO meal_ingredients (id, meal_id, name, qty_text, pantry_staple)
		VALUES ($1, $2, $3, $4, $5)`
	for _, ing := range ingredients {
		if _, err := tx.Exec(ctx, ingredientQuery, ing.ID, ing.MealID, ing.Name, ing.QtyText, ing.PantryStaple); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// FindByID returns the meal, or nil when absent.
func (r *MealRepository) FindByID(ctx context.Context, id string) (*meal.Meal, error) {
	query := `
		SELECT id, canonical_key, title, steps_short, est_minutes, cost_band, tags, active, created_at
		FROM meals
		WHERE id = $1`

	m, err := scanMeal(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// FindActive returns active meals in creation order.
func (r *MealRepository) FindActive(ctx context.Context) ([]meal.Meal, error) {
	query := `
		SELECT id, canonical_key, title, steps_short, est_minutes, cost_band, tags, active, created_at
		FROM meals
		WHERE active
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []meal.Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// FindIngredients returns the meal's ingredient list.
func (r *MealRepository) FindIngredients(ctx context.Context, mealID string) ([]meal.Ingredient, error) {
	query := `
		SELECT id, meal_id, name, qty_text, pantry_staple
		FROM meal_ingredients
		WHERE meal_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, mealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []meal.Ingredient
	for rows.Next() {
		var ing meal.Ingredient
		if err := rows.Scan(&ing.ID, &ing.MealID, &ing.Name, &ing.QtyText, &ing.PantryStaple); err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

// FindIngredientsByMeal returns ingredient lists keyed by meal id in
// one round trip.
func (r *MealRepository) FindIngredientsByMeal(ctx context.Context, mealIDs []string) (map[string][]meal.Ingredient, error) {
	if len(mealIDs) == 0 {
		return map[string][]meal.Ingredient{}, nil
	}

	query := `
		SELECT id, meal_id, name, qty_text, pantry_staple
		FROM meal_ingredients
		WHERE meal_id = ANY($1)
		ORDER BY meal_id, id`

	rows, err := r.db.Query(ctx, query, mealIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]meal.Ingredient, len(mealIDs))
	for rows.Next() {
		var ing meal.Ingredient
		if err := rows.Scan(&ing.ID, &ing.MealID, &ing.Name, &ing.QtyText, &ing.PantryStaple); err != nil {
			return nil, err
		}
		out[ing.MealID] = append(out[ing.MealID], ing)
	}
	return out, rows.Err()
}

func scanMeal(row pgx.Row) (*meal.Meal, error) {
	var m meal.Meal
	var costBand string
	err := row.Scan(
		&m.ID, &m.CanonicalKey, &m.Title, &m.StepsShort, &m.EstMinutes,
		&costBand, &m.Tags, &m.Active, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.CostBand = meal.CostBand(costBand)
	return &m, nil
}
