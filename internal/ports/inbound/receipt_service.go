package inbound

import "context"

// ReceiptService ingests receipts and reports import status.
type ReceiptService interface {
	Import(ctx context.Context, householdKey string, req ReceiptImportRequest) (*ReceiptImportResponse, error)
	GetImport(ctx context.Context, householdKey, importID string) (*ReceiptImportResponse, error)
}

// ReceiptImportRequest carries one ingestion attempt. Image uploads
// send base64; text and manual sources send the raw text directly.
type ReceiptImportRequest struct {
	HouseholdKey       string `json:"householdKey"`
	Source             string `json:"source" validate:"required,oneof=image_upload text manual"`
	ReceiptImageBase64 string `json:"receiptImageBase64,omitempty" validate:"base64_image"`
	ReceiptText        string `json:"receiptText,omitempty"`
	VendorName         string `json:"vendorName,omitempty"`
	PurchasedAtISO     string `json:"purchasedAtIso,omitempty" validate:"iso_timestamp"`
}

// ReceiptImportResponse reports the stored import.
type ReceiptImportResponse struct {
	ReceiptImportID string `json:"receiptImportId"`
	Status          string `json:"status"`
	IsDuplicate     bool   `json:"isDuplicate"`
}
