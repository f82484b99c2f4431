package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/ports/outbound"
	apperrors "github.com/suppertime/v1/pkg/errors"
)

// EventRepository is the Postgres append-only decision log.
type EventRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewEventRepository creates a new decision event repository.
func NewEventRepository(db *pgxpool.Pool, logger *zap.Logger) outbound.DecisionEventRepository {
	return &EventRepository{db: db, logger: logger}
}

// Insert appends one event. Duplicate ids fail, as does a second
// autopilot row for the same (household, context hash). Concurrent
// dinner-time requests race to the partial unique index and the loser
// replays the winner's row.
func (r *EventRepository) Insert(ctx context.Context, e *decision.Event) error {
	query := `
		INSERT INTO decision_events (
			id, household_key, decided_at, type, meal_id, external_vendor_key,
			context_hash, payload, user_action, actioned_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		e.ID, e.HouseholdKey, e.DecidedAt, string(e.Type), e.MealID,
		e.ExternalVendorKey, e.ContextHash, e.Payload, string(e.UserAction),
		e.ActionedAt, e.Notes,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "uq_decision_events_autopilot" {
				return apperrors.NewAlreadyProcessedError("autopilot decision", e.ContextHash)
			}
			return apperrors.NewAlreadyProcessedError("decision event", e.ID)
		}
		r.logger.Error("Failed to insert decision event",
			zap.String("event_id", e.ID),
			zap.String("household_key", e.HouseholdKey),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// FindByID returns the event regardless of household, or nil.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*decision.Event, error) {
	query := selectEventColumns + ` WHERE id = $1`

	e, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// FindByIDForHousehold returns the event only when it belongs to the
// household, or nil.
func (r *EventRepository) FindByIDForHousehold(ctx context.Context, id, householdKey string) (*decision.Event, error) {
	query := selectEventColumns + ` WHERE id = $1 AND household_key = $2`

	e, err := scanEvent(r.db.QueryRow(ctx, query, id, householdKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// FindRecent returns the household's newest events, decided-at
// descending with later inserts first on equal timestamps.
func (r *EventRepository) FindRecent(ctx context.Context, householdKey string, limit int) ([]decision.Event, error) {
	query := selectEventColumns + `
		WHERE household_key = $1
		ORDER BY decided_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, householdKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []decision.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// FindAutopilotByContextHash returns the household's autopilot row
// for the context hash, or nil.
func (r *EventRepository) FindAutopilotByContextHash(ctx context.Context, householdKey, contextHash string) (*decision.Event, error) {
	query := selectEventColumns + `
		WHERE household_key = $1 AND context_hash = $2 AND notes = $3`

	e, err := scanEvent(r.db.QueryRow(ctx, query, householdKey, contextHash, decision.NotesAutopilot))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// CountByHousehold returns the household's total event count.
func (r *EventRepository) CountByHousehold(ctx context.Context, householdKey string) (int64, error) {
	query := `SELECT COUNT(1) FROM decision_events WHERE household_key = $1`

	var n int64
	if err := r.db.QueryRow(ctx, query, householdKey).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

const selectEventColumns = `
	SELECT id, household_key, decided_at, type, meal_id, external_vendor_key,
	       context_hash, payload, user_action, actioned_at, notes
	FROM decision_events`

func scanEvent(row pgx.Row) (*decision.Event, error) {
	var e decision.Event
	var eventType, userAction string
	err := row.Scan(
		&e.ID, &e.HouseholdKey, &e.DecidedAt, &eventType, &e.MealID,
		&e.ExternalVendorKey, &e.ContextHash, &e.Payload, &userAction,
		&e.ActionedAt, &e.Notes,
	)
	if err != nil {
		return nil, err
	}
	e.Type = decision.Type(eventType)
	e.UserAction = decision.UserAction(userAction)
	return &e, nil
}
