package decision

import (
	"time"

	"github.com/suppertime/v1/internal/domain/shared"
)

// DRMReason names why rescue mode fired. Ordering in the evaluator is
// the contract: the first matching condition wins.
type DRMReason string

const (
	DRMCalendarConflict DRMReason = "calendar_conflict"
	DRMLowEnergy        DRMReason = "low_energy"
	DRMTwoRejections    DRMReason = "two_rejections"
	DRMLateNoAction     DRMReason = "late_no_action"
)

const (
	rejectionBurstWindow = 30 * time.Minute
	rejectionBurstCount  = 2

	lateHour      = 20
	earlyLateHour = 18
)

// EvaluateDRM checks the rescue triggers in priority order against
// the request signal and the household's recent events. Later rules
// are not evaluated once one fires.
func EvaluateDRM(now time.Time, sig Signal, recent []Event) (bool, DRMReason) {
	if sig.CalendarConflict {
		return true, DRMCalendarConflict
	}
	if sig.Energy == EnergyLow {
		return true, DRMLowEnergy
	}
	if countRejectionsSince(recent, now.Add(-rejectionBurstWindow)) >= rejectionBurstCount {
		return true, DRMTwoRejections
	}
	if sig.TimeWindow == WindowDinner {
		hour := now.Hour()
		if hour >= lateHour {
			return true, DRMLateNoAction
		}
		if hour >= earlyLateHour && engagedToday(recent, now) && !approvedToday(recent, now) {
			return true, DRMLateNoAction
		}
	}
	return false, ""
}

func countRejectionsSince(events []Event, cutoff time.Time) int {
	n := 0
	for _, e := range events {
		if e.UserAction == ActionRejected && !e.EffectiveAt().Before(cutoff) {
			n++
		}
	}
	return n
}

// engagedToday reports whether the household touched dinner at all
// today without resolving it: a pending, rejected, or expired event
// on the request's local day.
func engagedToday(events []Event, now time.Time) bool {
	for _, e := range events {
		if !shared.SameLocalDay(e.EffectiveAt(), now) {
			continue
		}
		switch e.UserAction {
		case ActionPending, ActionRejected, ActionExpired:
			return true
		}
	}
	return false
}

func approvedToday(events []Event, now time.Time) bool {
	for _, e := range events {
		if e.UserAction == ActionApproved && shared.SameLocalDay(e.EffectiveAt(), now) {
			return true
		}
	}
	return false
}
