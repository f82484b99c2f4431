// Package testutils provides the Postgres harness for the tagged
// repository suites.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/persistence/migrations"
	"github.com/suppertime/v1/internal/infrastructure/persistence/postgres"
)

// TestDatabase wraps a real Postgres instance for repository tests.
// Connection settings come from the usual SUPPERTIME_DATABASE_*
// environment variables. Point them at a disposable database: the
// suites truncate every table between tests.
type TestDatabase struct {
	Pool   *pgxpool.Pool
	SQL    *sql.DB
	Config *config.Config
}

// SetupTestDatabase connects, migrates to the latest schema, and
// registers teardown on the test.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err, "load configuration")

	log := zap.NewNop()

	sqlDB, err := postgres.OpenSQL(cfg)
	require.NoError(t, err, "open migration handle")

	migrator, err := migrations.New(sqlDB, log)
	require.NoError(t, err, "build migrator")
	require.NoError(t, migrator.Up(), "apply migrations")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg, log)
	require.NoError(t, err, "connect pool")

	db := &TestDatabase{Pool: pool, SQL: sqlDB, Config: cfg}
	t.Cleanup(db.Close)
	return db
}

// TruncateAll clears every domain table, keeping the schema. Line
// items go first so the import cascade never fires mid-truncate.
func (db *TestDatabase) TruncateAll(ctx context.Context) error {
	tables := []string{
		"receipt_line_items",
		"receipt_imports",
		"taste_signals",
		"meal_scores",
		"decision_events",
		"inventory_items",
		"meal_ingredients",
		"meals",
		"households",
	}
	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// Close releases both database handles.
func (db *TestDatabase) Close() {
	db.Pool.Close()
	_ = db.SQL.Close()
}
