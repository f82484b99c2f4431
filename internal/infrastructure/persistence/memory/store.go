// Package memory provides the in-process database adapter. It mirrors
// the Postgres adapter's semantics closely enough that the same
// contract tests pass against either: exactly-once event inserts, the
// canonical-receipt and taste-signal uniqueness rules, and stable
// deterministic ordering on every query.
package memory

import (
	"sync"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/domain/household"
	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/meal"
	"github.com/suppertime/v1/internal/domain/receipt"
)

// Store is the process-local database. One mutex guards all tables.
// Reads return copies; callers never see shared slices or maps.
type Store struct {
	mu sync.RWMutex

	households map[string]household.Household

	meals       map[string]meal.Meal
	mealOrder   []string
	ingredients map[string][]meal.Ingredient

	items       []inventory.Item
	itemIndex   map[string]int
	events      []decision.Event
	eventIndex  map[string]int
	signals     []decision.TasteSignal
	signalIndex map[string]int
	scores      map[string]decision.MealScore

	imports     []receipt.Import
	importIndex map[string]int
	lineItems   map[string][]receipt.LineItem
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

// Reset drops every table. Tests call this between cases.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Store) reset() {
	s.households = make(map[string]household.Household)
	s.meals = make(map[string]meal.Meal)
	s.mealOrder = nil
	s.ingredients = make(map[string][]meal.Ingredient)
	s.items = nil
	s.itemIndex = make(map[string]int)
	s.events = nil
	s.eventIndex = make(map[string]int)
	s.signals = nil
	s.signalIndex = make(map[string]int)
	s.scores = make(map[string]decision.MealScore)
	s.imports = nil
	s.importIndex = make(map[string]int)
	s.lineItems = make(map[string][]receipt.LineItem)
}

func scoreKey(householdKey, mealID string) string {
	return householdKey + "|" + mealID
}
