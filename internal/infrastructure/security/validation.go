// Package security provides request validation for the HTTP boundary.
package security

import (
	"encoding/base64"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/domain/household"
	"github.com/suppertime/v1/internal/domain/shared"
	"github.com/suppertime/v1/pkg/errors"
)

// maxReceiptTextBytes bounds inline receipt text; anything larger is
// noise or abuse, not a grocery receipt.
const maxReceiptTextBytes = 64 * 1024

// maxImageBase64Bytes bounds uploaded receipt images at roughly 6 MB
// of encoded payload.
const maxImageBase64Bytes = 8 * 1024 * 1024

// ValidationService validates request DTOs at the boundary before
// they reach the application layer.
type ValidationService struct {
	logger    *zap.Logger
	validator *validator.Validate
}

// NewValidationService creates a validation service with the domain's
// custom rules registered.
func NewValidationService(logger *zap.Logger) *ValidationService {
	validate := validator.New()

	validate.RegisterValidation("household_key", validateHouseholdKey)
	validate.RegisterValidation("iso_timestamp", validateISOTimestamp)
	validate.RegisterValidation("base64_image", validateBase64Image)

	return &ValidationService{
		logger:    logger,
		validator: validate,
	}
}

// ValidateStruct checks a DTO against its validate tags and returns a
// validation error naming every failing field.
func (v *ValidationService) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return errors.NewValidationError("request body is invalid")
	}

	v.logger.Debug("Request validation failed",
		zap.String("field", fieldErrs[0].Field()),
		zap.String("rule", fieldErrs[0].Tag()),
		zap.Int("failing_fields", len(fieldErrs)),
	)
	if len(fieldErrs) == 1 {
		return errors.NewValidationError(fieldMessage(fieldErrs[0]))
	}

	details := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, errors.ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return errors.NewValidationErrors(details)
}

// SanitizeReceiptText normalizes pasted receipt text: CRLF to LF,
// trimmed, capped at the receipt size bound.
func (v *ValidationService) SanitizeReceiptText(input string) string {
	result := strings.ReplaceAll(input, "\r\n", "\n")
	result = strings.TrimSpace(result)
	if len(result) > maxReceiptTextBytes {
		result = result[:maxReceiptTextBytes]
	}
	return result
}

// CheckImageSize rejects encoded payloads over the upload bound.
func (v *ValidationService) CheckImageSize(imageBase64 string) error {
	if len(imageBase64) > maxImageBase64Bytes {
		return errors.NewValidationError("imageBase64 exceeds the maximum upload size")
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "household_key":
		return field + " must be 3-64 lowercase letters, digits, hyphens, or underscores"
	case "iso_timestamp":
		return field + " must be an ISO-8601 timestamp"
	case "base64_image":
		return field + " must be base64-encoded image data"
	default:
		return field + " is invalid"
	}
}

func validateHouseholdKey(fl validator.FieldLevel) bool {
	return household.ValidKey(fl.Field().String())
}

func validateISOTimestamp(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := shared.ParseISO(value)
	return err == nil
}

func validateBase64Image(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if idx := strings.IndexByte(value, ','); idx >= 0 && strings.HasPrefix(value, "data:") {
		value = value[idx+1:]
	}
	_, err := base64.StdEncoding.DecodeString(value)
	return err == nil
}
