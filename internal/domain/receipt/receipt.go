// Package receipt turns raw OCR text into normalized line items and a
// stable content fingerprint. Parsing and normalization are pure; the
// keyword and abbreviation tables are part of the external contract
// because they change what reaches inventory.
package receipt

import "time"

// Source identifies how a receipt entered the system.
type Source string

const (
	SourceImageUpload Source = "image_upload"
	SourceText        Source = "text"
	SourceManual      Source = "manual"
)

// Valid reports whether the source is a known ingestion channel.
func (s Source) Valid() bool {
	switch s {
	case SourceImageUpload, SourceText, SourceManual:
		return true
	}
	return false
}

// Status tracks the lifecycle of one ingestion attempt. The only
// legal transitions are received to parsed and received to failed.
type Status string

const (
	StatusReceived Status = "received"
	StatusParsed   Status = "parsed"
	StatusFailed   Status = "failed"
)

// Import is one ingestion attempt. At most one canonical row exists
// per (household, content hash); later identical imports carry
// IsDuplicate=true and point back at the canonical row.
type Import struct {
	ID           string
	HouseholdKey string
	Source       Source
	VendorName   string
	PurchasedAt  *time.Time
	OCRProvider  string
	OCRRawText   string
	Status       Status
	ErrorMessage string
	ContentHash  string
	IsDuplicate  bool
	DuplicateOf  string
	CreatedAt    time.Time
}

// LineItem is one parsed and normalized receipt line. Lines below the
// propagation threshold are stored for audit but never touch
// inventory.
type LineItem struct {
	ID              string
	ReceiptImportID string
	RawLine         string
	RawItemName     string
	RawQtyText      string
	RawPrice        *float64
	NormalizedName  string
	NormalizedUnit  string
	QtyEstimate     *float64
	Confidence      float64
}

// MinInventoryConfidence is the lowest normalized-line confidence
// that may create or update an inventory item.
const MinInventoryConfidence = 0.60
