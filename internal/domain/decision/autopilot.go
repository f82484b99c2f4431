package decision

import (
	"time"

	"github.com/suppertime/v1/internal/domain/shared"
)

// Autopilot gate reasons, reported as the first failing gate in
// evaluation order, or all_gates_passed.
const (
	ReasonAllGatesPassed    = "all_gates_passed"
	ReasonOutsideWindow     = "outside_autopilot_window"
	ReasonCalendarConflict  = "calendar_conflict"
	ReasonLowEnergy         = "low_energy"
	ReasonLowInventoryScore = "low_inventory_score"
	ReasonLowTasteScore     = "low_taste_score"
	ReasonMealUsedRecently  = "meal_used_recently"
	ReasonLowApprovalRate   = "low_approval_rate"
	ReasonRecentRejection   = "recent_rejection"
)

// Autopilot window bounds, minutes since local midnight, both ends
// inclusive.
const (
	AutopilotWindowStart = 17 * 60
	AutopilotWindowEnd   = 18*60 + 15
)

// Autopilot thresholds.
const (
	AutopilotMinInventoryScore = 0.85
	AutopilotMinTasteScore     = 0.70
	MealReuseDays              = 3
	ApprovalRateWindow         = 7 * 24 * time.Hour
	MinApprovalRate            = 0.70
	RecentRejectionWindow      = 24 * time.Hour
	UndoThrottleWindow         = 72 * time.Hour
)

// AutopilotInput carries everything the gates inspect. Scores are the
// household-level fallback scores, not the chosen meal's own.
type AutopilotInput struct {
	Now            time.Time
	Signal         Signal
	InventoryScore float64
	TasteScore     float64
	MealID         string
	Recent         []Event
}

// GateResult reports eligibility plus the deciding reason.
type GateResult struct {
	Eligible bool
	Reason   string
}

// EvaluateAutopilot runs the eight gates in fixed order and reports
// the first failure. The 72-hour undo throttle is not a gate; callers
// apply it before asking.
func EvaluateAutopilot(in AutopilotInput) GateResult {
	minutes := in.Now.Hour()*60 + in.Now.Minute()
	if minutes < AutopilotWindowStart || minutes > AutopilotWindowEnd {
		return GateResult{Reason: ReasonOutsideWindow}
	}
	if in.Signal.CalendarConflict {
		return GateResult{Reason: ReasonCalendarConflict}
	}
	if in.Signal.Energy == EnergyLow {
		return GateResult{Reason: ReasonLowEnergy}
	}
	if in.InventoryScore < AutopilotMinInventoryScore {
		return GateResult{Reason: ReasonLowInventoryScore}
	}
	if in.TasteScore < AutopilotMinTasteScore {
		return GateResult{Reason: ReasonLowTasteScore}
	}
	if mealApprovedRecently(in.Recent, in.MealID, in.Now) {
		return GateResult{Reason: ReasonMealUsedRecently}
	}
	if approvalRate(in.Recent, in.Now) < MinApprovalRate {
		return GateResult{Reason: ReasonLowApprovalRate}
	}
	if hasRejectionWithin(in.Recent, in.Now, RecentRejectionWindow) {
		return GateResult{Reason: ReasonRecentRejection}
	}
	return GateResult{Eligible: true, Reason: ReasonAllGatesPassed}
}

// HasRecentUndo reports whether an undo_autopilot feedback exists
// within the throttle window. Any undo suppresses autopilot entirely.
func HasRecentUndo(events []Event, now time.Time) bool {
	cutoff := now.Add(-UndoThrottleWindow)
	for _, e := range events {
		if e.Notes == NotesUndoAutopilot && !e.EffectiveAt().Before(cutoff) {
			return true
		}
	}
	return false
}

// mealApprovedRecently checks the reuse guard: the same meal approved
// on any of the last MealReuseDays calendar days, counted in the
// request's local frame.
func mealApprovedRecently(events []Event, mealID string, now time.Time) bool {
	if mealID == "" {
		return false
	}
	for _, e := range events {
		if e.UserAction != ActionApproved || e.MealID != mealID {
			continue
		}
		days := shared.LocalDaysBetween(e.EffectiveAt(), now)
		if days >= 0 && days < MealReuseDays {
			return true
		}
	}
	return false
}

// approvalRate is approvals over approvals plus rejections inside the
// rolling window. An empty window gets the benefit of the doubt.
func approvalRate(events []Event, now time.Time) float64 {
	cutoff := now.Add(-ApprovalRateWindow)
	approved, rejected := 0, 0
	for _, e := range events {
		if e.EffectiveAt().Before(cutoff) {
			continue
		}
		switch e.UserAction {
		case ActionApproved:
			approved++
		case ActionRejected:
			rejected++
		}
	}
	if approved+rejected == 0 {
		return 1.0
	}
	return float64(approved) / float64(approved+rejected)
}

// hasRejectionWithin treats the boundary as recent: a rejection at
// exactly the window edge still counts.
func hasRejectionWithin(events []Event, now time.Time, window time.Duration) bool {
	cutoff := now.Add(-window)
	for _, e := range events {
		if e.UserAction == ActionRejected && !e.EffectiveAt().Before(cutoff) {
			return true
		}
	}
	return false
}
