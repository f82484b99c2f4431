// Package main loads the starter meal library and demo household into
// Postgres. The in-memory driver self-seeds on boot, so this tool is
// only for persistent environments.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/persistence/postgres"
	"github.com/suppertime/v1/internal/infrastructure/persistence/seed"
	"github.com/suppertime/v1/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Driver != "postgres" {
		fmt.Fprintln(os.Stderr, "seed requires database.driver=postgres; the memory driver seeds itself on boot")
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

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	err = seed.Apply(ctx,
		postgres.NewHouseholdRepository(pool, log),
		postgres.NewMealRepository(pool, log),
		postgres.NewInventoryRepository(pool, log),
		log,
	)
	if err != nil {
		log.Fatal("Seed failed", zap.Error(err))
	}
}
