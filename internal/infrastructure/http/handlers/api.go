// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/security"
	"github.com/suppertime/v1/internal/ports/inbound"
	apperrors "github.com/suppertime/v1/pkg/errors"
	"go.uber.org/zap"
)

// maxJSONBodyBytes bounds ordinary request bodies. Receipt imports get
// a larger bound because they can carry an encoded image.
const (
	maxJSONBodyBytes    = 1 << 20
	maxReceiptBodyBytes = 12 << 20
)

// APIHandlers handles REST API requests
type APIHandlers struct {
	decisionService inbound.DecisionService
	receiptService  inbound.ReceiptService
	authService     inbound.AuthService
	validator       *security.ValidationService
	devMode         bool
	logger          *zap.Logger
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(
	cfg *config.Config,
	decisionService inbound.DecisionService,
	receiptService inbound.ReceiptService,
	authService inbound.AuthService,
	validator *security.ValidationService,
	logger *zap.Logger,
) *APIHandlers {
	return &APIHandlers{
		decisionService: decisionService,
		receiptService:  receiptService,
		authService:     authService,
		validator:       validator,
		devMode:         cfg.IsDevelopment(),
		logger:          logger,
	}
}

// HandleDecision handles POST /api/v1/decision
func (h *APIHandlers) HandleDecision(w http.ResponseWriter, r *http.Request) {
	var req inbound.DecisionRequest
	if !h.decode(w, r, &req, maxJSONBodyBytes) {
		return
	}

	householdKey := security.HouseholdKeyFromContext(r.Context())
	resp, err := h.decisionService.Decide(r.Context(), householdKey, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleFeedback handles POST /api/v1/feedback
func (h *APIHandlers) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req inbound.FeedbackRequest
	if !h.decode(w, r, &req, maxJSONBodyBytes) {
		return
	}

	householdKey := security.HouseholdKeyFromContext(r.Context())
	resp, err := h.decisionService.RecordFeedback(r.Context(), householdKey, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleRescue handles POST /api/v1/drm
func (h *APIHandlers) HandleRescue(w http.ResponseWriter, r *http.Request) {
	var req inbound.RescueRequest
	if !h.decode(w, r, &req, maxJSONBodyBytes) {
		return
	}

	householdKey := security.HouseholdKeyFromContext(r.Context())
	resp, err := h.decisionService.Rescue(r.Context(), householdKey, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleReceiptImport handles POST /api/v1/receipt/import
func (h *APIHandlers) HandleReceiptImport(w http.ResponseWriter, r *http.Request) {
	var req inbound.ReceiptImportRequest
	if !h.decode(w, r, &req, maxReceiptBodyBytes) {
		return
	}

	req.ReceiptText = h.validator.SanitizeReceiptText(req.ReceiptText)
	if req.ReceiptImageBase64 != "" {
		if err := h.validator.CheckImageSize(req.ReceiptImageBase64); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	householdKey := security.HouseholdKeyFromContext(r.Context())
	resp, err := h.receiptService.Import(r.Context(), householdKey, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleReceiptStatus handles GET /api/v1/receipt/import/{importID}
func (h *APIHandlers) HandleReceiptStatus(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")
	if importID == "" {
		h.writeError(w, r, apperrors.NewValidationError("importID is required"))
		return
	}

	householdKey := security.HouseholdKeyFromContext(r.Context())
	resp, err := h.receiptService.GetImport(r.Context(), householdKey, importID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleToken handles POST /api/v1/auth/token. Token issuance is a
// development convenience; the route does not exist in production.
func (h *APIHandlers) HandleToken(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		h.writeError(w, r, apperrors.NewNotFoundError("route"))
		return
	}

	var req inbound.TokenRequest
	if !h.decode(w, r, &req, maxJSONBodyBytes) {
		return
	}

	resp, err := h.authService.IssueToken(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// decode reads and validates a JSON request body. It writes the error
// response itself and reports whether the handler should continue.
func (h *APIHandlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.writeError(w, r, apperrors.NewValidationError("request body exceeds the maximum size"))
		case errors.Is(err, io.EOF):
			h.writeError(w, r, apperrors.NewValidationError("request body is required"))
		default:
			h.writeError(w, r, apperrors.NewValidationError("request body is not valid JSON"))
		}
		return false
	}

	if err := h.validator.ValidateStruct(dst); err != nil {
		h.writeError(w, r, err)
		return false
	}

	return true
}

// writeJSON writes a JSON response
func (h *APIHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeError maps an error to the API error envelope
func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.Wrap(err, "request failed")

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(appErr),
		)
	}

	requestID := chimiddleware.GetReqID(r.Context())
	h.writeJSON(w, status, apperrors.ToErrorResponse(appErr, requestID))
}
