// Package decision holds the arbiter and everything that feeds it:
// the append-only decision event model, taste weighting, rescue-mode
// triggers, and the autopilot gates. All functions here are pure;
// persistence and orchestration live in the application layer.
package decision

import (
	"encoding/json"
	"time"
)

// Type is the single action a decision presents.
type Type string

const (
	TypeCook     Type = "cook"
	TypeOrder    Type = "order"
	TypeZeroCook Type = "zero_cook"
)

// Valid reports whether the type is a known decision action.
func (t Type) Valid() bool {
	switch t {
	case TypeCook, TypeOrder, TypeZeroCook:
		return true
	}
	return false
}

// UserAction is the stored disposition of an event row.
type UserAction string

const (
	ActionPending      UserAction = "pending"
	ActionApproved     UserAction = "approved"
	ActionRejected     UserAction = "rejected"
	ActionDRMTriggered UserAction = "drm_triggered"
	ActionExpired      UserAction = "expired"
)

// Valid reports whether the action is a known disposition.
func (a UserAction) Valid() bool {
	switch a {
	case ActionPending, ActionApproved, ActionRejected, ActionDRMTriggered, ActionExpired:
		return true
	}
	return false
}

// Notes markers with contractual meaning. Autopilot rows are deduped
// on (context_hash, notes="autopilot"); undo rows suppress autopilot
// for 72 hours and skip the per-meal score upsert.
const (
	NotesAutopilot     = "autopilot"
	NotesUndoAutopilot = "undo_autopilot"
)

// Signal is the caller-supplied context for one decision request.
type Signal struct {
	TimeWindow       string
	Energy           string
	CalendarConflict bool
}

const (
	WindowDinner = "dinner"
	EnergyLow    = "low"
)

// Event is one row of the append-only decision log. Original rows are
// inserted as pending and never mutated; feedback arrives as copies.
type Event struct {
	ID                string
	HouseholdKey      string
	DecidedAt         time.Time
	Type              Type
	MealID            string
	ExternalVendorKey string
	ContextHash       string
	Payload           json.RawMessage
	UserAction        UserAction
	ActionedAt        *time.Time
	Notes             string
}

// FeedbackCopy derives the feedback row for this event: every field
// carries over except id, user action, actioned-at, and notes. The
// receiver is left untouched.
func (e Event) FeedbackCopy(newID string, action UserAction, actionedAt time.Time, notes string) Event {
	out := e
	out.ID = newID
	out.UserAction = action
	out.ActionedAt = &actionedAt
	out.Notes = notes
	return out
}

// EffectiveAt is the timestamp policy windows reason about: the
// feedback time when present, otherwise the decision time.
func (e Event) EffectiveAt() time.Time {
	if e.ActionedAt != nil {
		return *e.ActionedAt
	}
	return e.DecidedAt
}
