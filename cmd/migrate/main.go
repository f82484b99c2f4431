// Package main provides the schema migration CLI for the Suppertime
// database. Migrations are embedded in the binary; the CLI only needs
// a reachable Postgres.
package main

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/persistence/migrations"
	"github.com/suppertime/v1/internal/infrastructure/persistence/postgres"
	"github.com/suppertime/v1/pkg/logger"
)

const usage = `Usage: migrate <command> [args]

Commands:
  up           Apply all pending migrations
  down         Roll back the most recent migration
  steps <n>    Apply n migrations forward (negative n rolls back)
  version      Print the current schema version
  force <v>    Set the schema version without running migrations
  reset        Roll back everything and reapply from scratch
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Driver != "postgres" {
		fmt.Fprintln(os.Stderr, "migrate requires database.driver=postgres; the memory driver has no schema")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := postgres.OpenSQL(cfg)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	migrator, err := migrations.New(db, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}

	if err := run(migrator, os.Args[1:]); err != nil {
		log.Fatal("Migration command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func run(migrator *migrations.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return migrator.Up()

	case "down":
		return migrator.Down()

	case "steps":
		if len(args) < 2 {
			return fmt.Errorf("steps requires a count")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid step count %q: %w", args[1], err)
		}
		return migrator.Steps(n)

	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		state := "clean"
		if dirty {
			state = "dirty"
		}
		fmt.Printf("version %d (%s)\n", version, state)
		return nil

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force requires a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return migrator.Force(v)

	case "reset":
		return migrator.Reset()

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
