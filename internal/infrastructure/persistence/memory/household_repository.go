package memory

import (
	"context"

	"github.com/suppertime/v1/internal/domain/household"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

// HouseholdRepository is the in-memory household table.
type HouseholdRepository struct {
	store *Store
}

// NewHouseholdRepository creates the repository over a shared store.
func NewHouseholdRepository(store *Store) outbound.HouseholdRepository {
	return &HouseholdRepository{store: store}
}

// Create inserts a household, failing on a duplicate key.
func (r *HouseholdRepository) Create(ctx context.Context, h *household.Household) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.households[h.Key]; exists {
		return errors.NewAlreadyProcessedError("household", h.Key)
	}
	r.store.households[h.Key] = *h
	return nil
}

// FindByKey returns the household, or nil when absent.
func (r *HouseholdRepository) FindByKey(ctx context.Context, key string) (*household.Household, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	h, ok := r.store.households[key]
	if !ok {
		return nil, nil
	}
	out := h
	return &out, nil
}

// Exists reports whether the key is registered.
func (r *HouseholdRepository) Exists(ctx context.Context, key string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.households[key]
	return ok, nil
}
