package decision

import (
	"encoding/json"
	"time"
)

// TasteSignal is one append-only row derived from a feedback copy.
// The unique index on DecisionEventID gives at-most-once downstream
// processing per source event.
type TasteSignal struct {
	ID              string
	HouseholdKey    string
	DecidedAt       time.Time
	ActionedAt      *time.Time
	DecisionEventID string
	MealID          string
	DecisionType    Type
	UserAction      UserAction
	ContextHash     string
	Features        json.RawMessage
	Weight          float64
}

// MealScore is the mutable per-(household, meal) running score,
// upserted on every non-undo feedback.
type MealScore struct {
	HouseholdKey string
	MealID       string
	Score        float64
	Approvals    int
	Rejections   int
	LastSeenAt   time.Time
	UpdatedAt    time.Time
}
