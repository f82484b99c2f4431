// Package receipt orchestrates receipt ingestion: OCR extraction,
// duplicate detection, parsing, and propagation of confident lines
// into the household inventory.
package receipt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/inventory"
	"github.com/suppertime/v1/internal/domain/receipt"
	"github.com/suppertime/v1/internal/domain/shared"
	"github.com/suppertime/v1/internal/ports/inbound"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

var tracer = otel.Tracer("suppertime")

// textProviderNone marks imports whose text arrived pre-extracted.
const textProviderNone = "none"

// Service implements receipt ingestion.
type Service struct {
	receipts  outbound.ReceiptRepository
	inventory outbound.InventoryRepository
	cache     outbound.CacheRepository
	extractor outbound.TextExtractor
	metrics   outbound.BusinessMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the receipt service.
func NewService(
	receipts outbound.ReceiptRepository,
	inventoryRepo outbound.InventoryRepository,
	cache outbound.CacheRepository,
	extractor outbound.TextExtractor,
	metrics outbound.BusinessMetrics,
	logger *zap.Logger,
) inbound.ReceiptService {
	if metrics == nil {
		metrics = outbound.NopBusinessMetrics{}
	}
	return &Service{
		receipts:  receipts,
		inventory: inventoryRepo,
		cache:     cache,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger.Named("receipt-service"),
		now:       time.Now,
	}
}

// Import ingests one receipt. The import row is the audit record:
// every attempt gets one, including OCR failures and duplicates.
// Inventory writes happen only for the canonical import of a receipt.
func (s *Service) Import(ctx context.Context, householdKey string, req inbound.ReceiptImportRequest) (*inbound.ReceiptImportResponse, error) {
	source := receipt.Source(req.Source)
	if !source.Valid() {
		return nil, errors.NewValidationError("source must be one of image_upload, text, manual")
	}

	var purchasedAt *time.Time
	if req.PurchasedAtISO != "" {
		parsed, err := shared.ParseISO(req.PurchasedAtISO)
		if err != nil {
			return nil, errors.NewValidationError("purchasedAtIso must be an ISO-8601 timestamp")
		}
		purchasedAt = &parsed
	}

	text, provider, err := s.extractText(ctx, source, req)
	if err != nil {
		if errors.Is(err, errors.CodeValidationError) {
			return nil, err
		}
		return s.recordFailure(ctx, householdKey, source, provider, req.VendorName, purchasedAt, err)
	}

	parsed := receipt.Parse(text)
	vendor := req.VendorName
	if vendor == "" {
		vendor = parsed.Vendor
	}
	if purchasedAt == nil {
		purchasedAt = parsed.PurchasedAt
	}
	contentHash := receipt.ContentHash(text, vendor, purchasedAt)

	canonical, err := s.receipts.FindCanonicalByHash(ctx, householdKey, contentHash)
	if err != nil {
		return nil, errors.NewDatabaseError("look up canonical receipt", err)
	}
	if canonical != nil {
		return s.recordDuplicate(ctx, householdKey, source, provider, text, vendor, purchasedAt, contentHash, canonical)
	}

	imp := &receipt.Import{
		ID:           uuid.New().String(),
		HouseholdKey: householdKey,
		Source:       source,
		VendorName:   vendor,
		PurchasedAt:  purchasedAt,
		OCRProvider:  provider,
		OCRRawText:   text,
		Status:       receipt.StatusReceived,
		ContentHash:  contentHash,
		CreatedAt:    s.now(),
	}
	if err := s.receipts.InsertImport(ctx, imp); err != nil {
		if errors.IsAlreadyProcessed(err) {
			// Lost the canonical slot to a concurrent identical import.
			canonical, ferr := s.receipts.FindCanonicalByHash(ctx, householdKey, contentHash)
			if ferr != nil || canonical == nil {
				return nil, errors.NewDatabaseError("load canonical receipt", ferr)
			}
			return s.recordDuplicate(ctx, householdKey, source, provider, text, vendor, purchasedAt, contentHash, canonical)
		}
		return nil, errors.NewDatabaseError("insert receipt import", err)
	}

	lineItems, propagated := s.buildLineItems(parsed, imp.ID)
	if len(lineItems) > 0 {
		if err := s.receipts.InsertLineItems(ctx, lineItems); err != nil {
			if uerr := s.receipts.UpdateStatus(ctx, imp.ID, receipt.StatusFailed, "store line items: "+err.Error()); uerr != nil {
				s.logger.Error("Failed import could not be marked failed",
					zap.String("receipt_import_id", imp.ID),
					zap.Error(uerr),
				)
			}
			s.metrics.ReceiptImported(string(receipt.StatusFailed))
			return &inbound.ReceiptImportResponse{
				ReceiptImportID: imp.ID,
				Status:          string(receipt.StatusFailed),
			}, nil
		}
	}

	created := s.propagateInventory(ctx, householdKey, propagated, purchasedAt)

	if err := s.receipts.UpdateStatus(ctx, imp.ID, receipt.StatusParsed, ""); err != nil {
		return nil, errors.NewDatabaseError("mark receipt parsed", err)
	}

	if created > 0 {
		s.invalidateHousehold(ctx, householdKey)
	}

	s.metrics.ReceiptImported(string(receipt.StatusParsed))
	s.logger.Info("Receipt imported",
		zap.String("household_key", householdKey),
		zap.String("receipt_import_id", imp.ID),
		zap.String("source", string(source)),
		zap.String("vendor", vendor),
		zap.Int("lines_seen", parsed.LinesSeen),
		zap.Int("lines_kept", len(lineItems)),
		zap.Int("inventory_items", created),
	)
	return &inbound.ReceiptImportResponse{
		ReceiptImportID: imp.ID,
		Status:          string(receipt.StatusParsed),
	}, nil
}

// GetImport reports one import's stored status.
func (s *Service) GetImport(ctx context.Context, householdKey, importID string) (*inbound.ReceiptImportResponse, error) {
	imp, err := s.receipts.FindImportByID(ctx, householdKey, importID)
	if err != nil {
		return nil, errors.NewDatabaseError("load receipt import", err)
	}
	if imp == nil {
		return nil, errors.NewNotFoundError("Receipt import")
	}
	return &inbound.ReceiptImportResponse{
		ReceiptImportID: imp.ID,
		Status:          string(imp.Status),
		IsDuplicate:     imp.IsDuplicate,
	}, nil
}

// extractText resolves the raw receipt text for the request's channel.
func (s *Service) extractText(ctx context.Context, source receipt.Source, req inbound.ReceiptImportRequest) (string, string, error) {
	if source == receipt.SourceImageUpload {
		if req.ReceiptImageBase64 == "" {
			return "", "", errors.NewValidationError("receiptImageBase64 is required for image_upload")
		}
		ctx, span := tracer.Start(ctx, "receipt.extract_text",
			trace.WithAttributes(attribute.String("ocr.provider", s.extractor.Provider())))
		defer span.End()
		text, err := s.extractor.ExtractText(ctx, req.ReceiptImageBase64)
		if err != nil {
			span.RecordError(err)
			return "", s.extractor.Provider(), errors.NewOCRProviderError(s.extractor.Provider(), err)
		}
		return text, s.extractor.Provider(), nil
	}
	if req.ReceiptText == "" {
		return "", "", errors.NewValidationError("receiptText is required for text and manual sources")
	}
	return req.ReceiptText, textProviderNone, nil
}

// recordFailure stores the failed attempt. Failed rows carry no
// content hash, so a later successful retry of the same receipt can
// still claim the canonical slot.
func (s *Service) recordFailure(ctx context.Context, householdKey string, source receipt.Source, provider, vendor string, purchasedAt *time.Time, cause error) (*inbound.ReceiptImportResponse, error) {
	imp := &receipt.Import{
		ID:           uuid.New().String(),
		HouseholdKey: householdKey,
		Source:       source,
		VendorName:   vendor,
		PurchasedAt:  purchasedAt,
		OCRProvider:  provider,
		Status:       receipt.StatusFailed,
		ErrorMessage: cause.Error(),
		CreatedAt:    s.now(),
	}
	if err := s.receipts.InsertImport(ctx, imp); err != nil {
		return nil, errors.NewDatabaseError("insert failed receipt import", err)
	}
	s.metrics.ReceiptImported(string(receipt.StatusFailed))
	s.logger.Warn("Receipt import failed",
		zap.String("household_key", householdKey),
		zap.String("receipt_import_id", imp.ID),
		zap.String("provider", provider),
		zap.Error(cause),
	)
	return &inbound.ReceiptImportResponse{
		ReceiptImportID: imp.ID,
		Status:          string(receipt.StatusFailed),
	}, nil
}

// recordDuplicate stores the repeat attempt pointing at the canonical
// import. Duplicates never touch line items or inventory.
func (s *Service) recordDuplicate(ctx context.Context, householdKey string, source receipt.Source, provider, text, vendor string, purchasedAt *time.Time, contentHash string, canonical *receipt.Import) (*inbound.ReceiptImportResponse, error) {
	imp := &receipt.Import{
		ID:           uuid.New().String(),
		HouseholdKey: householdKey,
		Source:       source,
		VendorName:   vendor,
		PurchasedAt:  purchasedAt,
		OCRProvider:  provider,
		OCRRawText:   text,
		Status:       receipt.StatusParsed,
		ContentHash:  contentHash,
		IsDuplicate:  true,
		DuplicateOf:  canonical.ID,
		CreatedAt:    s.now(),
	}
	if err := s.receipts.InsertImport(ctx, imp); err != nil {
		return nil, errors.NewDatabaseError("insert duplicate receipt import", err)
	}
	s.metrics.ReceiptImported("duplicate")
	s.logger.Info("Duplicate receipt detected",
		zap.String("household_key", householdKey),
		zap.String("receipt_import_id", imp.ID),
		zap.String("duplicate_of", canonical.ID),
	)
	return &inbound.ReceiptImportResponse{
		ReceiptImportID: imp.ID,
		Status:          string(receipt.StatusParsed),
		IsDuplicate:     true,
	}, nil
}

// buildLineItems normalizes every kept line and splits out the ones
// confident enough to reach inventory.
func (s *Service) buildLineItems(parsed receipt.ParseResult, importID string) ([]receipt.LineItem, []receipt.LineItem) {
	var items []receipt.LineItem
	var propagated []receipt.LineItem
	for _, line := range parsed.Lines {
		norm := receipt.Normalize(line)
		item := receipt.LineItem{
			ID:              uuid.New().String(),
			ReceiptImportID: importID,
			RawLine:         line.Raw,
			RawItemName:     line.Name,
			RawQtyText:      line.QtyText,
			RawPrice:        line.Price,
			NormalizedName:  norm.Name,
			NormalizedUnit:  norm.Unit,
			QtyEstimate:     norm.Qty,
			Confidence:      norm.Confidence,
		}
		items = append(items, item)
		if item.Confidence >= receipt.MinInventoryConfidence {
			propagated = append(propagated, item)
		}
	}
	return items, propagated
}

// propagateInventory inserts one pantry row per confident line. Each
// insert stands alone; one bad line does not block the rest, and the
// import itself stays parsed.
func (s *Service) propagateInventory(ctx context.Context, householdKey string, lines []receipt.LineItem, purchasedAt *time.Time) int {
	ctx, span := tracer.Start(ctx, "receipt.propagate_inventory",
		trace.WithAttributes(attribute.Int("receipt.lines", len(lines))))
	defer span.End()

	seenAt := s.now()
	if purchasedAt != nil {
		seenAt = *purchasedAt
	}
	created := 0
	for _, line := range lines {
		// A receipt line with no readable quantity still bought one of
		// the thing.
		qty := line.QtyEstimate
		if qty == nil {
			one := 1.0
			qty = &one
		}
		item := &inventory.Item{
			ID:           uuid.New().String(),
			HouseholdKey: householdKey,
			Name:         line.NormalizedName,
			QtyEstimated: qty,
			Unit:         line.NormalizedUnit,
			Confidence:   line.Confidence,
			Source:       inventory.SourceReceipt,
			LastSeenAt:   seenAt,
			CreatedAt:    s.now(),
		}
		if err := s.inventory.Insert(ctx, item); err != nil {
			s.logger.Warn("Inventory propagation skipped a line",
				zap.String("household_key", householdKey),
				zap.String("normalized_name", line.NormalizedName),
				zap.Error(err),
			)
			continue
		}
		created++
	}
	span.SetAttributes(attribute.Int("receipt.inventory_created", created))
	return created
}

// invalidateHousehold drops every cached read for the household so
// the next decision sees the new pantry state.
func (s *Service) invalidateHousehold(ctx context.Context, householdKey string) {
	if err := s.cache.DeleteByPrefix(ctx, "household:"+householdKey+":"); err != nil {
		s.logger.Debug("Household cache invalidation failed",
			zap.String("household_key", householdKey),
			zap.Error(err),
		)
	}
}
