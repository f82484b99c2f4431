package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/receipt"
	"github.com/suppertime/v1/internal/ports/outbound"
	apperrors "github.com/suppertime/v1/pkg/errors"
)

// ReceiptRepository is the Postgres receipt ingestion log.
type ReceiptRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository.
func NewReceiptRepository(db *pgxpool.Pool, logger *zap.Logger) outbound.ReceiptRepository {
	return &ReceiptRepository{db: db, logger: logger}
}

// InsertImport appends one ingestion attempt. A second canonical row
// for the same (household, content hash) trips the partial unique
// index and surfaces as already-processed.
func (r *ReceiptRepository) InsertImport(ctx context.Context, imp *receipt.Import) error {
	query := `
		INSERT INTO receipt_imports (
			id, household_key, source, vendor_name, purchased_at, ocr_provider,
			ocr_raw_text, status, error_message, content_hash, is_duplicate,
			duplicate_of, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		imp.ID, imp.HouseholdKey, string(imp.Source), imp.VendorName,
		imp.PurchasedAt, imp.OCRProvider, imp.OCRRawText, string(imp.Status),
		imp.ErrorMessage, imp.ContentHash, imp.IsDuplicate, imp.DuplicateOf,
		imp.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "uq_receipt_imports_canonical" {
				return apperrors.NewAlreadyProcessedError("canonical receipt", imp.ContentHash)
			}
			return apperrors.NewAlreadyProcessedError("receipt import", imp.ID)
		}
		r.logger.Error("Failed to insert receipt import",
			zap.String("import_id", imp.ID),
			zap.String("household_key", imp.HouseholdKey),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// UpdateStatus transitions an import's status; the only mutation the
// row ever sees.
func (r *ReceiptRepository) UpdateStatus(ctx context.Context, id string, status receipt.Status, errorMessage string) error {
	query := `
		UPDATE receipt_imports
		SET status = $2, error_message = $3
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, string(status), errorMessage)
	if err != nil {
		r.logger.Error("Failed to update receipt status",
			zap.String("import_id", id),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("receipt import")
	}
	return nil
}

// FindImportByID returns the household's import, or nil.
func (r *ReceiptRepository) FindImportByID(ctx context.Context, householdKey, id string) (*receipt.Import, error) {
	query := selectImportColumns + ` WHERE id = $1 AND household_key = $2`

	imp, err := scanImport(r.db.QueryRow(ctx, query, id, householdKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return imp, nil
}

// FindCanonicalByHash returns the household's canonical import for a
// content hash, or nil.
func (r *ReceiptRepository) FindCanonicalByHash(ctx context.Context, householdKey, contentHash string) (*receipt.Import, error) {
	query := selectImportColumns + `
		WHERE household_key = $1 AND content_hash = $2 AND NOT is_duplicate`

	imp, err := scanImport(r.db.QueryRow(ctx, query, householdKey, contentHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return imp, nil
}

// InsertLineItems appends parsed lines for an import in one batch.
func (r *ReceiptRepository) InsertLineItems(ctx context.Context, items []receipt.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO receipt_line_items (
			id, receipt_import_id, raw_line, raw_item_name, raw_qty_text,
			raw_price, normalized_name, normalized_unit, qty_estimate, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.ReceiptImportID, item.RawLine, item.RawItemName,
			item.RawQtyText, item.RawPrice, item.NormalizedName,
			item.NormalizedUnit, item.QtyEstimate, item.Confidence,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			r.logger.Error("Failed to insert receipt line items", zap.Error(err))
			return err
		}
	}
	return nil
}

// FindLineItems returns an import's parsed lines in insertion order.
func (r *ReceiptRepository) FindLineItems(ctx context.Context, importID string) ([]receipt.LineItem, error) {
	query := `
		SELECT id, receipt_import_id, raw_line, raw_item_name, raw_qty_text,
		       raw_price, normalized_name, normalized_unit, qty_estimate, confidence
		FROM receipt_line_items
		WHERE receipt_import_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []receipt.LineItem
	for rows.Next() {
		var item receipt.LineItem
		err := rows.Scan(
			&item.ID, &item.ReceiptImportID, &item.RawLine, &item.RawItemName,
			&item.RawQtyText, &item.RawPrice, &item.NormalizedName,
			&item.NormalizedUnit, &item.QtyEstimate, &item.Confidence,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const selectImportColumns = `
	SELECT id, household_key, source, vendor_name, purchased_at, ocr_provider,
	       ocr_raw_text, status, error_message, content_hash, is_duplicate,
	       duplicate_of, created_at
	FROM receipt_imports`

func scanImport(row pgx.Row) (*receipt.Import, error) {
	var imp receipt.Import
	var source, status string
	err := row.Scan(
		&imp.ID, &imp.HouseholdKey, &source, &imp.VendorName, &imp.PurchasedAt,
		&imp.OCRProvider, &imp.OCRRawText, &status, &imp.ErrorMessage,
		&imp.ContentHash, &imp.IsDuplicate, &imp.DuplicateOf, &imp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	imp.Source = receipt.Source(source)
	imp.Status = receipt.Status(status)
	return &imp, nil
}
