// Package testutils provides the in-memory service harness. The same
// stack the container wires for the memory driver, assembled without
// fx so tests control every piece directly.
package testutils

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	decisionapp "github.com/suppertime/v1/internal/application/decision"
	"github.com/suppertime/v1/internal/application/household"
	receiptapp "github.com/suppertime/v1/internal/application/receipt"
	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/meal"
	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/http/handlers"
	"github.com/suppertime/v1/internal/infrastructure/http/server"
	"github.com/suppertime/v1/internal/infrastructure/monitoring"
	"github.com/suppertime/v1/internal/infrastructure/ocr"
	"github.com/suppertime/v1/internal/infrastructure/persistence/memory"
	"github.com/suppertime/v1/internal/infrastructure/persistence/seed"
	"github.com/suppertime/v1/internal/infrastructure/security"
	"github.com/suppertime/v1/internal/ports/inbound"
	"github.com/suppertime/v1/internal/ports/outbound"
)

// Harness bundles the full service stack over the in-memory database.
type Harness struct {
	Store      *memory.Store
	Households outbound.HouseholdRepository
	Meals      outbound.MealRepository
	Inventory  outbound.InventoryRepository
	Events     outbound.DecisionEventRepository
	Taste      outbound.TasteRepository
	Receipts   outbound.ReceiptRepository
	Cache      outbound.CacheRepository
	Extractor  outbound.TextExtractor

	Decisions    inbound.DecisionService
	ReceiptsSvc  inbound.ReceiptService
	HouseholdSvc *household.Service

	// Metrics records every business counter observation the services
	// make during the test.
	Metrics *RecordingMetrics
}

// NewHarness assembles the stack over an empty store with the mock
// OCR extractor.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	return NewHarnessWithExtractor(t, ocr.NewMockExtractor(zap.NewNop()))
}

// NewHarnessWithExtractor assembles the stack with a caller-supplied
// extractor, for tests that script OCR outcomes.
func NewHarnessWithExtractor(t *testing.T, extractor outbound.TextExtractor) *Harness {
	t.Helper()

	store := memory.NewStore()
	log := zap.NewNop()

	h := &Harness{
		Store:      store,
		Households: memory.NewHouseholdRepository(store),
		Meals:      memory.NewMealRepository(store),
		Inventory:  memory.NewInventoryRepository(store),
		Events:     memory.NewEventRepository(store),
		Taste:      memory.NewTasteRepository(store),
		Receipts:   memory.NewReceiptRepository(store),
		Cache:      memory.NewCacheRepository(),
		Extractor:  extractor,
		Metrics:    NewRecordingMetrics(),
	}

	h.Decisions = decisionapp.NewService(h.Meals, h.Inventory, h.Events, h.Taste, h.Cache, h.Metrics, 0, log)
	h.ReceiptsSvc = receiptapp.NewService(h.Receipts, h.Inventory, h.Cache, extractor, h.Metrics, log)
	h.HouseholdSvc = household.NewService(h.Households, "harness-secret", log)

	return h
}

// SeedCatalog loads the starter meal library and demo household.
func (h *Harness) SeedCatalog(t *testing.T) {
	t.Helper()
	require.NoError(t, seed.Apply(context.Background(), h.Households, h.Meals, h.Inventory, zap.NewNop()))
}

// SeedMeal inserts one meal with its ingredients.
func (h *Harness) SeedMeal(t *testing.T, m meal.Meal, ingredients []meal.Ingredient) {
	t.Helper()
	require.NoError(t, h.Meals.Upsert(context.Background(), &m, ingredients))
}

// SeedItem inserts one inventory item.
func (h *Harness) SeedItem(t *testing.T, item inventory.Item) {
	t.Helper()
	require.NoError(t, h.Inventory.Insert(context.Background(), &item))
}

// SeedEvent inserts one decision event.
func (h *Harness) SeedEvent(t *testing.T, ev decision.Event) {
	t.Helper()
	require.NoError(t, h.Events.Insert(context.Background(), &ev))
}

// Config returns a development config suitable for the HTTP stack.
func (h *Harness) Config() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "suppertime"
	cfg.App.Version = "test"
	cfg.App.Environment = "development"
	cfg.Auth.JWTSecret = "harness-secret"
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second
	cfg.Monitoring.HealthCheckPath = "/health"
	cfg.Monitoring.ReadinessPath = "/ready"
	cfg.Decision.Deadline = 30 * time.Second
	return cfg
}

// Router composes the real HTTP server over the harness services and
// returns its handler. Auth runs in development mode: requests
// without a bearer token act as the default household.
func (h *Harness) Router(t *testing.T) http.Handler {
	t.Helper()
	return h.RouterWith(t, h.Config())
}

// RouterWith composes the server over a caller-adjusted config, for
// tests that need to flip the environment or timeouts.
func (h *Harness) RouterWith(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	log := zap.NewNop()

	validator := security.NewValidationService(log)
	authService := security.NewAuthService(cfg, h.HouseholdSvc, log)
	apiHandlers := handlers.NewAPIHandlers(cfg, h.Decisions, h.ReceiptsSvc, h.HouseholdSvc, validator, log)
	health := monitoring.NewHealthChecker(cfg.App.Name, cfg.App.Version, log)

	srv := server.NewServer(cfg, log, apiHandlers, authService, nil, health, nil)
	return srv.Router()
}
