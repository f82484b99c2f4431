package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// passingInput builds an input that clears all eight gates at 17:30.
func passingInput() AutopilotInput {
	return AutopilotInput{
		Now:            jan20(17, 30),
		Signal:         Signal{TimeWindow: "dinner", Energy: "normal"},
		InventoryScore: 0.90,
		TasteScore:     0.80,
		MealID:         "meal-012",
	}
}

func TestEvaluateAutopilot_AllGatesPassed(t *testing.T) {
	result := EvaluateAutopilot(passingInput())
	assert.True(t, result.Eligible)
	assert.Equal(t, ReasonAllGatesPassed, result.Reason)
}

func TestEvaluateAutopilot_WindowBoundaries(t *testing.T) {
	cases := []struct {
		hour, minute int
		eligible     bool
	}{
		{17, 0, true},
		{17, 30, true},
		{18, 15, true},
		{16, 59, false},
		{18, 16, false},
		{12, 0, false},
		{20, 0, false},
	}
	for _, tc := range cases {
		in := passingInput()
		in.Now = jan20(tc.hour, tc.minute)
		result := EvaluateAutopilot(in)
		if tc.eligible {
			assert.True(t, result.Eligible, "%02d:%02d", tc.hour, tc.minute)
		} else {
			assert.False(t, result.Eligible, "%02d:%02d", tc.hour, tc.minute)
			assert.Equal(t, ReasonOutsideWindow, result.Reason, "%02d:%02d", tc.hour, tc.minute)
		}
	}
}

func TestEvaluateAutopilot_FirstFailureWins(t *testing.T) {
	// Break every gate at once and peel failures off front to back.
	in := passingInput()
	in.Now = jan20(12, 0)
	in.Signal = Signal{TimeWindow: "dinner", Energy: "low", CalendarConflict: true}
	in.InventoryScore = 0.10
	in.TasteScore = 0.10
	in.Recent = []Event{
		{UserAction: ActionApproved, MealID: "meal-012", DecidedAt: jan20(12, 0).AddDate(0, 0, -1)},
		actionedEvent(ActionRejected, jan20(11, 0)),
		actionedEvent(ActionRejected, jan20(10, 0)),
		actionedEvent(ActionRejected, jan20(9, 0)),
	}

	expect := func(reason string) {
		result := EvaluateAutopilot(in)
		assert.False(t, result.Eligible)
		assert.Equal(t, reason, result.Reason)
	}

	expect(ReasonOutsideWindow)
	in.Now = jan20(17, 30)

	expect(ReasonCalendarConflict)
	in.Signal.CalendarConflict = false

	expect(ReasonLowEnergy)
	in.Signal.Energy = "normal"

	expect(ReasonLowInventoryScore)
	in.InventoryScore = 0.85

	expect(ReasonLowTasteScore)
	in.TasteScore = 0.70

	expect(ReasonMealUsedRecently)
	in.MealID = "meal-999"

	expect(ReasonLowApprovalRate)
	in.Recent = append(in.Recent,
		actionedEvent(ActionApproved, jan20(8, 0)),
		actionedEvent(ActionApproved, jan20(7, 0)),
		actionedEvent(ActionApproved, jan20(6, 0)),
		actionedEvent(ActionApproved, jan20(5, 0)),
		actionedEvent(ActionApproved, jan20(4, 0)),
		actionedEvent(ActionApproved, jan20(3, 0)),
	)

	expect(ReasonRecentRejection)
	in.Recent = filterRejections(in.Recent)

	result := EvaluateAutopilot(in)
	assert.True(t, result.Eligible)
	assert.Equal(t, ReasonAllGatesPassed, result.Reason)
}

func filterRejections(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.UserAction != ActionRejected {
			out = append(out, e)
		}
	}
	return out
}

func TestEvaluateAutopilot_ThresholdBoundaries(t *testing.T) {
	t.Run("inventory exactly at threshold passes", func(t *testing.T) {
		in := passingInput()
		in.InventoryScore = AutopilotMinInventoryScore
		assert.True(t, EvaluateAutopilot(in).Eligible)
	})

	t.Run("taste exactly at threshold passes", func(t *testing.T) {
		in := passingInput()
		in.TasteScore = AutopilotMinTasteScore
		assert.True(t, EvaluateAutopilot(in).Eligible)
	})

	// Keep the approval rate healthy so the recency gate is what
	// decides.
	withApprovals := func(in AutopilotInput) AutopilotInput {
		for i := 1; i <= 7; i++ {
			in.Recent = append(in.Recent, actionedEvent(ActionApproved, in.Now.Add(-time.Duration(i)*26*time.Hour)))
		}
		return in
	}

	t.Run("rejection exactly 24 hours ago is still recent", func(t *testing.T) {
		in := passingInput()
		in.Recent = []Event{actionedEvent(ActionRejected, in.Now.Add(-RecentRejectionWindow))}
		in = withApprovals(in)
		result := EvaluateAutopilot(in)
		assert.False(t, result.Eligible)
		assert.Equal(t, ReasonRecentRejection, result.Reason)
	})

	t.Run("rejection just past 24 hours is forgotten", func(t *testing.T) {
		in := passingInput()
		in.Recent = []Event{actionedEvent(ActionRejected, in.Now.Add(-RecentRejectionWindow-time.Second))}
		in = withApprovals(in)
		assert.True(t, EvaluateAutopilot(in).Eligible)
	})
}

func TestEvaluateAutopilot_MealReuseWindow(t *testing.T) {
	approvedDaysAgo := func(days int) Event {
		at := jan20(18, 0).AddDate(0, 0, -days)
		return Event{UserAction: ActionApproved, MealID: "meal-012", DecidedAt: at, ActionedAt: &at}
	}

	t.Run("approved two days ago blocks", func(t *testing.T) {
		in := passingInput()
		in.Recent = []Event{approvedDaysAgo(2)}
		result := EvaluateAutopilot(in)
		assert.Equal(t, ReasonMealUsedRecently, result.Reason)
	})

	t.Run("approved three days ago is fine", func(t *testing.T) {
		in := passingInput()
		in.Recent = []Event{approvedDaysAgo(3)}
		assert.True(t, EvaluateAutopilot(in).Eligible)
	})

	t.Run("a different meal never blocks", func(t *testing.T) {
		in := passingInput()
		e := approvedDaysAgo(1)
		e.MealID = "meal-777"
		in.Recent = []Event{e}
		assert.True(t, EvaluateAutopilot(in).Eligible)
	})
}

func TestEvaluateAutopilot_ApprovalRate(t *testing.T) {
	t.Run("empty window gets the benefit of the doubt", func(t *testing.T) {
		assert.True(t, EvaluateAutopilot(passingInput()).Eligible)
	})

	t.Run("rate exactly at threshold passes", func(t *testing.T) {
		in := passingInput()
		// 7 approvals, 3 rejections, all older than 24h but inside 7d.
		base := in.Now.AddDate(0, 0, -3)
		for i := 0; i < 7; i++ {
			in.Recent = append(in.Recent, actionedEvent(ActionApproved, base.Add(time.Duration(i)*time.Hour)))
		}
		for i := 0; i < 3; i++ {
			in.Recent = append(in.Recent, actionedEvent(ActionRejected, base.Add(time.Duration(7+i)*time.Hour)))
		}
		result := EvaluateAutopilot(in)
		assert.NotEqual(t, ReasonLowApprovalRate, result.Reason)
	})

	t.Run("heavy rejection week fails", func(t *testing.T) {
		in := passingInput()
		base := in.Now.AddDate(0, 0, -3)
		for i := 0; i < 3; i++ {
			in.Recent = append(in.Recent, actionedEvent(ActionApproved, base.Add(time.Duration(i)*time.Hour)))
		}
		for i := 0; i < 2; i++ {
			in.Recent = append(in.Recent, actionedEvent(ActionRejected, base.Add(time.Duration(3+i)*time.Hour)))
		}
		result := EvaluateAutopilot(in)
		assert.Equal(t, ReasonLowApprovalRate, result.Reason)
	})

	t.Run("events older than seven days are out of scope", func(t *testing.T) {
		in := passingInput()
		in.Recent = []Event{actionedEvent(ActionRejected, in.Now.AddDate(0, 0, -8))}
		assert.True(t, EvaluateAutopilot(in).Eligible)
	})
}

func TestHasRecentUndo(t *testing.T) {
	now := jan20(17, 30)
	undoAt := func(age time.Duration) Event {
		at := now.Add(-age)
		return Event{UserAction: ActionRejected, Notes: NotesUndoAutopilot, DecidedAt: at, ActionedAt: &at}
	}

	assert.False(t, HasRecentUndo(nil, now))
	assert.True(t, HasRecentUndo([]Event{undoAt(time.Hour)}, now))
	assert.True(t, HasRecentUndo([]Event{undoAt(UndoThrottleWindow)}, now))
	assert.False(t, HasRecentUndo([]Event{undoAt(UndoThrottleWindow + time.Minute)}, now))

	plain := actionedEvent(ActionRejected, now.Add(-time.Hour))
	assert.False(t, HasRecentUndo([]Event{plain}, now))
}
