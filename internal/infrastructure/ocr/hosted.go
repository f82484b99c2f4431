package ocr

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

const defaultHostedEndpoint = "https://api.ocr.space/parse/image"

// hostedResponse mirrors the OCR.space parse response shape.
type hostedResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool     `json:"IsErroredOnProcessing"`
	ErrorMessage          []string `json:"ErrorMessage"`
}

// HostedExtractor reads receipt images through a hosted OCR HTTP API.
type HostedExtractor struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	logger   *zap.Logger
}

// NewHostedExtractor creates the hosted provider from configuration.
func NewHostedExtractor(cfg *config.OCRConfig, logger *zap.Logger) outbound.TextExtractor {
	endpoint := cfg.HostedEndpoint
	if endpoint == "" {
		endpoint = defaultHostedEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &HostedExtractor{
		client:   client,
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		logger:   logger,
	}
}

// ExtractText posts the image and returns the parsed text.
func (e *HostedExtractor) ExtractText(ctx context.Context, imageBase64 string) (string, error) {
	image := imageBase64
	if !strings.HasPrefix(image, "data:") {
		image = "data:image/jpeg;base64," + imageBase64
	}

	var out hostedResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("apikey", e.apiKey).
		SetFormData(map[string]string{
			"base64Image": image,
			"language":    "eng",
			"isTable":     "true",
			"OCREngine":   "2",
		}).
		SetResult(&out).
		Post(e.endpoint)
	if err != nil {
		e.logger.Warn("Hosted OCR request failed", zap.Error(err))
		return "", errors.NewOCRProviderError(e.Provider(), err)
	}
	if resp.IsError() {
		e.logger.Warn("Hosted OCR returned error status",
			zap.Int("status", resp.StatusCode()),
		)
		return "", errors.NewOCRProviderError(e.Provider(), nil)
	}
	if out.IsErroredOnProcessing || len(out.ParsedResults) == 0 {
		e.logger.Warn("Hosted OCR could not process image",
			zap.Strings("provider_errors", out.ErrorMessage),
		)
		return "", errors.NewOCRProviderError(e.Provider(), nil)
	}

	var parts []string
	for _, result := range out.ParsedResults {
		if text := strings.TrimSpace(result.ParsedText); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", errors.NewOCRProviderError(e.Provider(), nil)
	}
	return strings.Join(parts, "\n"), nil
}

// Provider identifies the extractor in import rows.
func (e *HostedExtractor) Provider() string {
	return "hosted"
}
