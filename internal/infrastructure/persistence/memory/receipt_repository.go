package memory

import (
	"context"

	"github.com/suppertime/v1/internal/domain/receipt"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

// ReceiptRepository is the in-memory receipt ingestion log.
type ReceiptRepository struct {
	store *Store
}

// NewReceiptRepository creates the repository over a shared store.
func NewReceiptRepository(store *Store) outbound.ReceiptRepository {
	return &ReceiptRepository{store: store}
}

// InsertImport appends one ingestion attempt. A second canonical row
// for the same (household, content hash) fails with already-processed,
// matching the partial unique index on the Postgres side.
func (r *ReceiptRepository) InsertImport(ctx context.Context, imp *receipt.Import) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.importIndex[imp.ID]; exists {
		return errors.NewAlreadyProcessedError("receipt import", imp.ID)
	}
	if !imp.IsDuplicate && imp.ContentHash != "" {
		for _, existing := range r.store.imports {
			if !existing.IsDuplicate &&
				existing.HouseholdKey == imp.HouseholdKey &&
				existing.ContentHash == imp.ContentHash {
				return errors.NewAlreadyProcessedError("canonical receipt", imp.ContentHash)
			}
		}
	}

	r.store.importIndex[imp.ID] = len(r.store.imports)
	r.store.imports = append(r.store.imports, *imp)
	return nil
}

// UpdateStatus transitions an import's status; the only mutation the
// row ever sees.
func (r *ReceiptRepository) UpdateStatus(ctx context.Context, id string, status receipt.Status, errorMessage string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	idx, ok := r.store.importIndex[id]
	if !ok {
		return errors.NewNotFoundError("receipt import")
	}
	imp := r.store.imports[idx]
	imp.Status = status
	imp.ErrorMessage = errorMessage
	r.store.imports[idx] = imp
	return nil
}

// FindImportByID returns the household's import, or nil.
func (r *ReceiptRepository) FindImportByID(ctx context.Context, householdKey, id string) (*receipt.Import, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	idx, ok := r.store.importIndex[id]
	if !ok || r.store.imports[idx].HouseholdKey != householdKey {
		return nil, nil
	}
	out := r.store.imports[idx]
	return &out, nil
}

// FindCanonicalByHash returns the household's canonical import for a
// content hash, or nil.
func (r *ReceiptRepository) FindCanonicalByHash(ctx context.Context, householdKey, contentHash string) (*receipt.Import, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, imp := range r.store.imports {
		if !imp.IsDuplicate &&
			imp.HouseholdKey == householdKey &&
			imp.ContentHash == contentHash {
			out := imp
			return &out, nil
		}
	}
	return nil, nil
}

// InsertLineItems appends parsed lines for an import.
func (r *ReceiptRepository) InsertLineItems(ctx context.Context, items []receipt.LineItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range items {
		r.store.lineItems[item.ReceiptImportID] = append(r.store.lineItems[item.ReceiptImportID], item)
	}
	return nil
}

// FindLineItems returns an import's parsed lines in insertion order.
func (r *ReceiptRepository) FindLineItems(ctx context.Context, importID string) ([]receipt.LineItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return append([]receipt.LineItem(nil), r.store.lineItems[importID]...), nil
}
