package memory

import (
	"context"
	"sort"

	"github.com/suppertime/v1/internal/domain/decision"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

// EventRepository is the in-memory append-only decision log.
type EventRepository struct {
	store *Store
}

// NewEventRepository creates the repository over a shared store.
func NewEventRepository(store *Store) outbound.DecisionEventRepository {
	return &EventRepository{store: store}
}

// Insert appends one event. Duplicate ids fail, as does a second
// autopilot row for the same (household, context hash).
func (r *EventRepository) Insert(ctx context.Context, e *decision.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.eventIndex[e.ID]; exists {
		return errors.NewAlreadyProcessedError("decision event", e.ID)
	}
	if e.Notes == decision.NotesAutopilot {
		for _, existing := range r.store.events {
			if existing.HouseholdKey == e.HouseholdKey &&
				existing.ContextHash == e.ContextHash &&
				existing.Notes == decision.NotesAutopilot {
				return errors.NewAlreadyProcessedError("autopilot decision", e.ContextHash)
			}
		}
	}

	r.store.eventIndex[e.ID] = len(r.store.events)
	r.store.events = append(r.store.events, *e)
	return nil
}

// FindByID returns the event regardless of household, or nil.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*decision.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	idx, ok := r.store.eventIndex[id]
	if !ok {
		return nil, nil
	}
	out := r.store.events[idx]
	return &out, nil
}

// FindByIDForHousehold returns the event only when it belongs to the
// household, or nil.
func (r *EventRepository) FindByIDForHousehold(ctx context.Context, id, householdKey string) (*decision.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	idx, ok := r.store.eventIndex[id]
	if !ok || r.store.events[idx].HouseholdKey != householdKey {
		return nil, nil
	}
	out := r.store.events[idx]
	return &out, nil
}

// FindRecent returns the household's newest events, decided-at
// descending with later inserts first on equal timestamps.
func (r *EventRepository) FindRecent(ctx context.Context, householdKey string, limit int) ([]decision.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []decision.Event
	for i := len(r.store.events) - 1; i >= 0; i-- {
		if r.store.events[i].HouseholdKey == householdKey {
			out = append(out, r.store.events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DecidedAt.After(out[j].DecidedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindAutopilotByContextHash returns the household's autopilot row
// for the context hash, or nil.
func (r *EventRepository) FindAutopilotByContextHash(ctx context.Context, householdKey, contextHash string) (*decision.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.events {
		if e.HouseholdKey == householdKey &&
			e.ContextHash == contextHash &&
			e.Notes == decision.NotesAutopilot {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

// CountByHousehold returns the household's total event count.
func (r *EventRepository) CountByHousehold(ctx context.Context, householdKey string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var n int64
	for _, e := range r.store.events {
		if e.HouseholdKey == householdKey {
			n++
		}
	}
	return n, nil
}
