// Package testutils provides scripted doubles for the outbound ports.
package testutils

import (
	"context"
	"strconv"
	"sync"
)

// ScriptedExtractor implements the OCR port with a queue of scripted
// outcomes. Each ExtractText call consumes the next entry; when the
// queue is empty the last entry repeats. Every submitted image is
// recorded for inspection.
type ScriptedExtractor struct {
	mu       sync.Mutex
	queue    []extraction
	last     extraction
	images   []string
	provider string
}

type extraction struct {
	text string
	err  error
}

// NewScriptedExtractor creates an extractor that answers text until
// scripted otherwise.
func NewScriptedExtractor(text string) *ScriptedExtractor {
	return &ScriptedExtractor{
		last:     extraction{text: text},
		provider: "scripted",
	}
}

// QueueText scripts one successful extraction.
func (s *ScriptedExtractor) QueueText(text string) *ScriptedExtractor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, extraction{text: text})
	return s
}

// QueueError scripts one failing extraction.
func (s *ScriptedExtractor) QueueError(err error) *ScriptedExtractor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, extraction{err: err})
	return s
}

// ExtractText returns the next scripted outcome.
func (s *ScriptedExtractor) ExtractText(_ context.Context, imageBase64 string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = append(s.images, imageBase64)
	if len(s.queue) > 0 {
		s.last = s.queue[0]
		s.queue = s.queue[1:]
	}
	return s.last.text, s.last.err
}

// Provider names the scripted provider.
func (s *ScriptedExtractor) Provider() string { return s.provider }

// Images returns every image submitted so far.
func (s *ScriptedExtractor) Images() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	images := make([]string, len(s.images))
	copy(images, s.images)
	return images
}

// RecordingMetrics implements the business metrics port by counting
// observations per label, so tests can assert on what the services
// reported without a Prometheus registry.
type RecordingMetrics struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewRecordingMetrics creates an empty recorder.
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{counts: make(map[string]int)}
}

func (r *RecordingMetrics) inc(key string) {
	r.mu.Lock()
	r.counts[key]++
	r.mu.Unlock()
}

// DecisionServed counts a served decision by type.
func (r *RecordingMetrics) DecisionServed(decisionType string) {
	r.inc("decision:" + decisionType)
}

// AutopilotEvaluated counts an autopilot gate outcome.
func (r *RecordingMetrics) AutopilotEvaluated(eligible bool) {
	r.inc("autopilot:" + strconv.FormatBool(eligible))
}

// DrmRecommended counts a rescue recommendation by reason.
func (r *RecordingMetrics) DrmRecommended(reason string) {
	r.inc("drm:" + reason)
}

// ReceiptImported counts an import attempt by final status.
func (r *RecordingMetrics) ReceiptImported(status string) {
	r.inc("receipt:" + status)
}

// TasteUpdated counts a feedback recording outcome.
func (r *RecordingMetrics) TasteUpdated(result string) {
	r.inc("taste:" + result)
}

// Decisions returns how many decisions of decisionType were served.
func (r *RecordingMetrics) Decisions(decisionType string) int {
	return r.count("decision:" + decisionType)
}

// Autopilot returns how many gate evaluations matched eligible.
func (r *RecordingMetrics) Autopilot(eligible bool) int {
	return r.count("autopilot:" + strconv.FormatBool(eligible))
}

// Drm returns how many rescue recommendations carried reason.
func (r *RecordingMetrics) Drm(reason string) int {
	return r.count("drm:" + reason)
}

// Receipts returns how many imports ended with status.
func (r *RecordingMetrics) Receipts(status string) int {
	return r.count("receipt:" + status)
}

// Taste returns how many feedback recordings resolved as result.
func (r *RecordingMetrics) Taste(result string) int {
	return r.count("taste:" + result)
}

func (r *RecordingMetrics) count(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[key]
}

// Reset clears every recorded observation.
func (r *RecordingMetrics) Reset() {
	r.mu.Lock()
	r.counts = make(map[string]int)
	r.mu.Unlock()
}
