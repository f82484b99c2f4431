// Package outbound defines the driven-side ports: persistence, cache,
// and OCR text extraction. The application layer talks to these
// interfaces only; Postgres, Redis, and in-memory adapters live under
// infrastructure.
package outbound

import (
	"context"
	"time"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/domain/household"
	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/meal"
	"github.com/suppertime/v1/internal/domain/receipt"
)

// HouseholdRepository persists tenant identities.
type HouseholdRepository interface {
	Create(ctx context.Context, h *household.Household) error
	FindByKey(ctx context.Context, key string) (*household.Household, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// MealRepository serves the seeded meal library. Writes exist for the
// seeder only; at runtime the library is read-only.
type MealRepository interface {
	Upsert(ctx context.Context, m *meal.Meal, ingredients []meal.Ingredient) error
	FindByID(ctx context.Context, id string) (*meal.Meal, error)
	FindActive(ctx context.Context) ([]meal.Meal, error)
	FindIngredients(ctx context.Context, mealID string) ([]meal.Ingredient, error)
	FindIngredientsByMeal(ctx context.Context, mealIDs []string) (map[string][]meal.Ingredient, error)
}

// InventoryRepository persists the probabilistic pantry. Items are
// never deleted; decay and usage tracking handle depletion. Multiple
// rows per (household, name) are expected.
type InventoryRepository interface {
	Insert(ctx context.Context, item *inventory.Item) error
	FindByHousehold(ctx context.Context, householdKey string) ([]inventory.Item, error)

	// FindCandidates pre-filters rows whose name matches any of the
	// ILIKE patterns, ordered confidence descending then last-seen
	// descending, capped at limit. A pure optimization: callers rerun
	// the real matcher over whatever comes back.
	FindCandidates(ctx context.Context, householdKey string, patterns []string, limit int) ([]inventory.Item, error)

	// RecordUse adds qty to the row's used counter and stamps
	// last-used. The row itself is never rewritten otherwise.
	RecordUse(ctx context.Context, id string, qty float64, usedAt time.Time) error
}

// DecisionEventRepository is the append-only event store. Insert must
// be exactly-once per id; autopilot rows are additionally unique per
// (household, context hash) and surface already-processed on replay.
type DecisionEventRepository interface {
	Insert(ctx context.Context, e *decision.Event) error
	FindByID(ctx context.Context, id string) (*decision.Event, error)
	FindByIDForHousehold(ctx context.Context, id, householdKey string) (*decision.Event, error)
	FindRecent(ctx context.Context, householdKey string, limit int) ([]decision.Event, error)
	FindAutopilotByContextHash(ctx context.Context, householdKey, contextHash string) (*decision.Event, error)
	CountByHousehold(ctx context.Context, householdKey string) (int64, error)
}

// TasteRepository persists feedback-derived signals and the running
// per-meal scores. InsertSignal must fail with already-processed on a
// duplicate decision event id.
type TasteRepository interface {
	InsertSignal(ctx context.Context, s *decision.TasteSignal) error
	ApplyWeight(ctx context.Context, householdKey, mealID string, weight float64, action decision.UserAction, seenAt time.Time) error
	FindScores(ctx context.Context, householdKey string) (map[string]float64, error)
	FindMealScore(ctx context.Context, householdKey, mealID string) (*decision.MealScore, error)
}

// ReceiptRepository persists ingestion attempts and parsed lines.
// InsertImport must fail with already-processed when a canonical row
// for (household, content hash) already exists.
type ReceiptRepository interface {
	InsertImport(ctx context.Context, imp *receipt.Import) error
	UpdateStatus(ctx context.Context, id string, status receipt.Status, errorMessage string) error
	FindImportByID(ctx context.Context, householdKey, id string) (*receipt.Import, error)
	FindCanonicalByHash(ctx context.Context, householdKey, contentHash string) (*receipt.Import, error)
	InsertLineItems(ctx context.Context, items []receipt.LineItem) error
	FindLineItems(ctx context.Context, importID string) ([]receipt.LineItem, error)
}

// CacheRepository is the derived-state cache over household reads.
// Implementations must treat it as a replica: a miss is never an
// error path and writes are best-effort.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// TextExtractor turns a receipt image into raw OCR text.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageBase64 string) (string, error)
	Provider() string
}

// BusinessMetrics records the domain-level counters. The services
// report outcomes the transport layer cannot see, such as which way
// the taste updater resolved.
type BusinessMetrics interface {
	DecisionServed(decisionType string)
	AutopilotEvaluated(eligible bool)
	DrmRecommended(reason string)
	ReceiptImported(status string)
	TasteUpdated(result string)
}

// NopBusinessMetrics discards every observation.
type NopBusinessMetrics struct{}

func (NopBusinessMetrics) DecisionServed(string)   {}
func (NopBusinessMetrics) AutopilotEvaluated(bool) {}
func (NopBusinessMetrics) DrmRecommended(string)   {}
func (NopBusinessMetrics) ReceiptImported(string)  {}
func (NopBusinessMetrics) TasteUpdated(string)     {}
