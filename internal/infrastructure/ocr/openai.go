package ocr

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

const visionPrompt = "Transcribe this grocery receipt exactly as printed, " +
	"one line per receipt line, including the store name, date, item " +
	"abbreviations, quantities, and prices. Output only the transcription."

// OpenAIExtractor reads receipt images through the OpenAI vision API.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIExtractor creates the vision provider from configuration.
func NewOpenAIExtractor(cfg *config.OCRConfig, logger *zap.Logger) outbound.TextExtractor {
	model := cfg.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIExtractor{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		logger: logger,
	}
}

// ExtractText sends the image as a data URL and returns the model's
// transcription.
func (e *OpenAIExtractor) ExtractText(ctx context.Context, imageBase64 string) (string, error) {
	imageURL := imageBase64
	if !strings.HasPrefix(imageURL, "data:") {
		imageURL = "data:image/jpeg;base64," + imageBase64
	}

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		MaxTokens: 2048,
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		e.logger.Warn("OpenAI vision request failed", zap.Error(err))
		return "", errors.NewOCRProviderError(e.Provider(), err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.NewOCRProviderError(e.Provider(), nil)
	}

	e.logger.Debug("OpenAI vision transcription complete",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// Provider identifies the extractor in import rows.
func (e *OpenAIExtractor) Provider() string {
	return "openai"
}
