package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

// InventoryRepository is the in-memory pantry table.
type InventoryRepository struct {
	store *Store
}

// NewInventoryRepository creates the repository over a shared store.
func NewInventoryRepository(store *Store) outbound.InventoryRepository {
	return &InventoryRepository{store: store}
}

// Insert appends a pantry row, failing on a duplicate id.
func (r *InventoryRepository) Insert(ctx context.Context, item *inventory.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.itemIndex[item.ID]; exists {
		return errors.NewAlreadyProcessedError("inventory item", item.ID)
	}
	r.store.itemIndex[item.ID] = len(r.store.items)
	r.store.items = append(r.store.items, *item)
	return nil
}

// FindByHousehold returns the household's rows in insertion order.
func (r *InventoryRepository) FindByHousehold(ctx context.Context, householdKey string) ([]inventory.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []inventory.Item
	for _, item := range r.store.items {
		if item.HouseholdKey == householdKey {
			out = append(out, item)
		}
	}
	return out, nil
}

// FindCandidates mimics the Postgres ILIKE pre-filter: rows whose
// name contains any pattern's text case-insensitively, ordered by
// confidence descending then last-seen descending, capped at limit.
func (r *InventoryRepository) FindCandidates(ctx context.Context, householdKey string, patterns []string, limit int) ([]inventory.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	needles := make([]string, 0, len(patterns))
	for _, p := range patterns {
		needle := strings.ToLower(strings.Trim(p, "%"))
		if needle != "" {
			needles = append(needles, needle)
		}
	}

	var out []inventory.Item
	for _, item := range r.store.items {
		if item.HouseholdKey != householdKey {
			continue
		}
		name := strings.ToLower(item.Name)
		for _, needle := range needles {
			if strings.Contains(name, needle) {
				out = append(out, item)
				break
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].LastSeenAt.After(out[j].LastSeenAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecordUse adds qty to the row's usage counter and stamps last-used.
func (r *InventoryRepository) RecordUse(ctx context.Context, id string, qty float64, usedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	idx, ok := r.store.itemIndex[id]
	if !ok {
		return errors.NewNotFoundError("inventory item")
	}
	item := r.store.items[idx]
	item.QtyUsed += qty
	item.LastUsedAt = &usedAt
	r.store.items[idx] = item
	return nil
}
