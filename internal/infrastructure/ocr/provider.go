package ocr

import (
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/ports/outbound"
)

// NewExtractor selects the text extractor for the configured provider.
// "auto" picks the hosted provider when an API key is present and the
// mock otherwise, so a keyless environment always stays functional.
func NewExtractor(cfg *config.Config, logger *zap.Logger) outbound.TextExtractor {
	provider := cfg.OCR.Provider
	if provider == "" || provider == "auto" {
		if cfg.OCR.APIKey != "" {
			provider = "hosted"
		} else {
			provider = "mock"
		}
	}

	switch provider {
	case "openai":
		logger.Info("OCR provider selected", zap.String("provider", "openai"))
		return NewOpenAIExtractor(&cfg.OCR, logger)
	case "hosted":
		logger.Info("OCR provider selected", zap.String("provider", "hosted"))
		return NewHostedExtractor(&cfg.OCR, logger)
	default:
		logger.Info("OCR provider selected", zap.String("provider", "mock"))
		return NewMockExtractor(logger)
	}
}
