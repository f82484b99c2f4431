// Package ocr provides the receipt text extraction adapters: a
// deterministic mock for development, an OpenAI vision provider, and
// a hosted OCR HTTP provider.
package ocr

import (
	"context"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/ports/outbound"
)

// Fixture markers recognized inside a mock image payload. Anything
// else returns the full receipt, so behavior is keyed on content and
// never on payload length.
const (
	markerEmpty   = "MOCK_OCR_EMPTY"
	markerMinimal = "MOCK_OCR_MINIMAL"
	markerChicken = "MOCK_OCR_CHICKEN"
)

const fixtureEmpty = `CORNER MARKET
THANK YOU FOR SHOPPING
TOTAL 0.00`

const fixtureMinimal = `CORNER MARKET
2026-03-02
WHL MLK 3.49
TOTAL 3.49`

const fixtureChicken = `FRESH FOODS MARKET
2026-03-02
CHK BRST 1.5 LB 8.99
RICE 2 LB 3.29
SOY SAUCE 2.99
TOTAL 15.27`

const fixtureFull = `TRADER JOE'S
2026-03-02
CHK BRST 1.5 LB 8.99
WHL MLK 3.49
EGGS LRG 12 CT 4.29
CHDR CHS 8 OZ 3.99
BROC CROWNS 2.49
GRND BF 1 LB 6.99
TOTAL 30.24`

// MockExtractor returns canned receipt text without any network call.
// Selected automatically when no OCR API key is configured.
type MockExtractor struct {
	logger *zap.Logger
}

// NewMockExtractor creates the deterministic mock provider.
func NewMockExtractor(logger *zap.Logger) outbound.TextExtractor {
	return &MockExtractor{logger: logger}
}

// ExtractText decodes the payload and matches fixture markers inside
// it. Unknown payloads get the full receipt.
func (m *MockExtractor) ExtractText(ctx context.Context, imageBase64 string) (string, error) {
	content := imageBase64
	if decoded, err := base64.StdEncoding.DecodeString(imageBase64); err == nil {
		content = string(decoded)
	}

	var fixture, name string
	switch {
	case strings.Contains(content, markerEmpty):
		fixture, name = fixtureEmpty, "empty"
	case strings.Contains(content, markerMinimal):
		fixture, name = fixtureMinimal, "minimal"
	case strings.Contains(content, markerChicken):
		fixture, name = fixtureChicken, "chicken"
	default:
		fixture, name = fixtureFull, "full"
	}

	m.logger.Debug("Mock OCR returned fixture", zap.String("fixture", name))
	return fixture, nil
}

// Provider identifies the extractor in import rows.
func (m *MockExtractor) Provider() string {
	return "mock"
}
