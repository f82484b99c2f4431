// Package testutils provides domain assertions shared by the
// integration suites.
package testutils

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suppertime/v1/internal/ports/inbound"
	apperrors "github.com/suppertime/v1/pkg/errors"
)

// DecisionAssertions checks decision response shapes.
type DecisionAssertions struct {
	t *testing.T
}

// NewDecisionAssertions creates a decision assertions helper.
func NewDecisionAssertions(t *testing.T) *DecisionAssertions {
	return &DecisionAssertions{t: t}
}

// ServedMeal asserts that the response presents the given meal as a
// cook decision, with the identifiers downstream calls need.
func (da *DecisionAssertions) ServedMeal(resp *inbound.DecisionResponse, mealID string) {
	da.t.Helper()
	require.NotNil(da.t, resp, "decision response should not be nil")
	require.NotNil(da.t, resp.Decision, "a decision should be presented")
	assert.False(da.t, resp.DrmRecommended, "a served decision never recommends rescue")
	assert.Equal(da.t, "cook", resp.Decision.DecisionType)
	assert.Equal(da.t, mealID, resp.Decision.MealID)
	assert.NotEmpty(da.t, resp.Decision.DecisionEventID, "decision should carry its event id")
	assert.NotEmpty(da.t, resp.Decision.ContextHash, "decision should carry its context hash")
	assert.NotEmpty(da.t, resp.Decision.Title)
}

// RescueRecommended asserts the null-decision shape with the given
// reason.
func (da *DecisionAssertions) RescueRecommended(resp *inbound.DecisionResponse, reason string) {
	da.t.Helper()
	require.NotNil(da.t, resp, "decision response should not be nil")
	assert.Nil(da.t, resp.Decision, "rescue recommendation carries no decision")
	assert.True(da.t, resp.DrmRecommended)
	assert.Equal(da.t, reason, resp.Reason)
	assert.Nil(da.t, resp.Autopilot, "autopilot never appears without a decision")
}

// Autopilot asserts the autopilot flag on a served decision.
func (da *DecisionAssertions) Autopilot(resp *inbound.DecisionResponse, want bool) {
	da.t.Helper()
	require.NotNil(da.t, resp, "decision response should not be nil")
	require.NotNil(da.t, resp.Autopilot, "served decision should carry the autopilot flag")
	assert.Equal(da.t, want, *resp.Autopilot)
}

// ReceiptAssertions checks receipt import response shapes.
type ReceiptAssertions struct {
	t *testing.T
}

// NewReceiptAssertions creates a receipt assertions helper.
func NewReceiptAssertions(t *testing.T) *ReceiptAssertions {
	return &ReceiptAssertions{t: t}
}

// Parsed asserts a canonical, successfully parsed import.
func (ra *ReceiptAssertions) Parsed(resp *inbound.ReceiptImportResponse) {
	ra.t.Helper()
	require.NotNil(ra.t, resp, "import response should not be nil")
	assert.Equal(ra.t, "parsed", resp.Status)
	assert.False(ra.t, resp.IsDuplicate)
	assert.NotEmpty(ra.t, resp.ReceiptImportID)
}

// Duplicate asserts a duplicate import acknowledgement.
func (ra *ReceiptAssertions) Duplicate(resp *inbound.ReceiptImportResponse) {
	ra.t.Helper()
	require.NotNil(ra.t, resp, "import response should not be nil")
	assert.Equal(ra.t, "parsed", resp.Status)
	assert.True(ra.t, resp.IsDuplicate)
	assert.NotEmpty(ra.t, resp.ReceiptImportID)
}

// Failed asserts a recorded failure.
func (ra *ReceiptAssertions) Failed(resp *inbound.ReceiptImportResponse) {
	ra.t.Helper()
	require.NotNil(ra.t, resp, "import response should not be nil")
	assert.Equal(ra.t, "failed", resp.Status)
	assert.NotEmpty(ra.t, resp.ReceiptImportID, "failures still get an audit row")
}

// HTTPAssertions checks recorded HTTP responses.
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates an HTTP assertions helper.
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// Status asserts the recorded status code.
func (ha *HTTPAssertions) Status(rec *httptest.ResponseRecorder, want int) {
	ha.t.Helper()
	assert.Equal(ha.t, want, rec.Code, "unexpected status, body: %s", rec.Body.String())
}

// DecodeJSON asserts a JSON content type and decodes the body.
func (ha *HTTPAssertions) DecodeJSON(rec *httptest.ResponseRecorder, target interface{}) {
	ha.t.Helper()
	contentType := rec.Header().Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"expected JSON content type, got %q", contentType)
	require.NoError(ha.t, json.Unmarshal(rec.Body.Bytes(), target),
		"body should be valid JSON: %s", rec.Body.String())
}

// ErrorReason asserts the error envelope's machine-readable reason.
func (ha *HTTPAssertions) ErrorReason(rec *httptest.ResponseRecorder, reason string) {
	ha.t.Helper()
	var envelope apperrors.ErrorResponse
	ha.DecodeJSON(rec, &envelope)
	assert.Equal(ha.t, reason, envelope.Error.Reason)
	assert.NotEmpty(ha.t, envelope.Error.Message)
}
