// Package inbound defines the driving-side ports: the service
// interfaces HTTP handlers call, plus the request and response
// contracts. JSON field names here are part of the external contract.
package inbound

import "context"

// DecisionService is the primary port: one decision, feedback on it,
// and the rescue path when no decision should be shown.
type DecisionService interface {
	Decide(ctx context.Context, householdKey string, req DecisionRequest) (*DecisionResponse, error)
	RecordFeedback(ctx context.Context, householdKey string, req FeedbackRequest) (*FeedbackResponse, error)
	Rescue(ctx context.Context, householdKey string, req RescueRequest) (*RescueResponse, error)
}

// DecisionRequest asks for tonight's single action. The household key
// in the body is advisory; the authenticated key wins.
type DecisionRequest struct {
	HouseholdKey string        `json:"householdKey"`
	NowISO       string        `json:"nowIso" validate:"required,iso_timestamp"`
	Signal       SignalPayload `json:"signal" validate:"required"`
}

// SignalPayload carries the request context signal.
type SignalPayload struct {
	TimeWindow       string `json:"timeWindow" validate:"required,oneof=breakfast lunch dinner"`
	Energy           string `json:"energy" validate:"required,oneof=low normal high"`
	CalendarConflict bool   `json:"calendarConflict"`
}

// DecisionResponse is the full reply shape. Decision is null when
// rescue mode is recommended; autopilot appears only alongside a
// decision. No arrays ever appear anywhere in this shape.
type DecisionResponse struct {
	Decision       *DecisionDTO `json:"decision"`
	DrmRecommended bool         `json:"drmRecommended"`
	Autopilot      *bool        `json:"autopilot,omitempty"`
	Reason         string       `json:"reason,omitempty"`
}

// DecisionDTO is the single presented action.
type DecisionDTO struct {
	DecisionType    string `json:"decisionType"`
	DecisionEventID string `json:"decisionEventId"`
	MealID          string `json:"mealId,omitempty"`
	VendorKey       string `json:"vendorKey,omitempty"`
	Title           string `json:"title"`
	StepsShort      string `json:"stepsShort"`
	EstMinutes      int    `json:"estMinutes"`
	ContextHash     string `json:"contextHash"`
}

// FeedbackRequest records the user's verdict on a prior event.
type FeedbackRequest struct {
	EventID    string `json:"eventId" validate:"required"`
	UserAction string `json:"userAction" validate:"required,oneof=approved rejected drm_triggered expired undo"`
	Notes      string `json:"notes,omitempty"`
	ActionedAt string `json:"actionedAt" validate:"required,iso_timestamp"`
}

// FeedbackResponse always reports recorded; downstream hook failures
// never leak here.
type FeedbackResponse struct {
	Recorded bool `json:"recorded"`
}

// RescueRequest enters Dinner Rescue Mode with an explicit reason.
type RescueRequest struct {
	TriggerReason string `json:"triggerReason" validate:"required"`
}

// RescueResponse presents one rescue option plus the exhaustion flag
// that tells the client to stop offering rescues.
type RescueResponse struct {
	Rescue    *RescueDTO `json:"rescue"`
	Exhausted bool       `json:"exhausted"`
}

// RescueDTO is the single rescue option.
type RescueDTO struct {
	RescueType      string `json:"rescueType"`
	DecisionEventID string `json:"decisionEventId"`
	Title           string `json:"title"`
	EstMinutes      int    `json:"estMinutes"`
	VendorKey       string `json:"vendorKey,omitempty"`
	DeepLinkURL     string `json:"deepLinkUrl,omitempty"`
}
