package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var cst = time.FixedZone("CST", -6*3600)

func jan20(hour, minute int) time.Time {
	return time.Date(2026, time.January, 20, hour, minute, 0, 0, cst)
}

func actionedEvent(action UserAction, at time.Time) Event {
	return Event{UserAction: action, DecidedAt: at, ActionedAt: &at}
}

func TestEvaluateDRM_PriorityOrder(t *testing.T) {
	// Stack every condition at once; the earliest rule must win.
	now := jan20(20, 30)
	rejections := []Event{
		actionedEvent(ActionRejected, jan20(20, 10)),
		actionedEvent(ActionRejected, jan20(20, 15)),
	}

	triggered, reason := EvaluateDRM(now, Signal{TimeWindow: "dinner", Energy: "low", CalendarConflict: true}, rejections)
	assert.True(t, triggered)
	assert.Equal(t, DRMCalendarConflict, reason)

	triggered, reason = EvaluateDRM(now, Signal{TimeWindow: "dinner", Energy: "low"}, rejections)
	assert.True(t, triggered)
	assert.Equal(t, DRMLowEnergy, reason)

	triggered, reason = EvaluateDRM(now, Signal{TimeWindow: "dinner", Energy: "normal"}, rejections)
	assert.True(t, triggered)
	assert.Equal(t, DRMTwoRejections, reason)

	triggered, reason = EvaluateDRM(now, Signal{TimeWindow: "dinner", Energy: "normal"}, nil)
	assert.True(t, triggered)
	assert.Equal(t, DRMLateNoAction, reason)
}

func TestEvaluateDRM_TwoQuickRejections(t *testing.T) {
	events := []Event{
		actionedEvent(ActionRejected, jan20(18, 50)),
		actionedEvent(ActionRejected, jan20(18, 55)),
	}
	triggered, reason := EvaluateDRM(jan20(19, 0), Signal{TimeWindow: "dinner", Energy: "normal"}, events)
	assert.True(t, triggered)
	assert.Equal(t, DRMTwoRejections, reason)
}

func TestEvaluateDRM_StaleRejectionsDoNotCount(t *testing.T) {
	events := []Event{
		actionedEvent(ActionRejected, jan20(10, 0)),
		actionedEvent(ActionRejected, jan20(10, 5)),
	}
	triggered, _ := EvaluateDRM(jan20(17, 0), Signal{TimeWindow: "dinner", Energy: "normal"}, events)
	assert.False(t, triggered)
}

func TestEvaluateDRM_SingleRejectionIsNotABurst(t *testing.T) {
	events := []Event{actionedEvent(ActionRejected, jan20(16, 55))}
	triggered, _ := EvaluateDRM(jan20(17, 0), Signal{TimeWindow: "dinner", Energy: "normal"}, events)
	assert.False(t, triggered)
}

func TestEvaluateDRM_LateEvening(t *testing.T) {
	t.Run("hour 20 triggers regardless of engagement", func(t *testing.T) {
		triggered, reason := EvaluateDRM(jan20(20, 0), Signal{TimeWindow: "dinner", Energy: "normal"}, nil)
		assert.True(t, triggered)
		assert.Equal(t, DRMLateNoAction, reason)
	})

	t.Run("hour 18 with unresolved engagement triggers", func(t *testing.T) {
		events := []Event{actionedEvent(ActionExpired, jan20(17, 30))}
		triggered, reason := EvaluateDRM(jan20(18, 30), Signal{TimeWindow: "dinner", Energy: "normal"}, events)
		assert.True(t, triggered)
		assert.Equal(t, DRMLateNoAction, reason)
	})

	t.Run("hour 18 with an approval today stays calm", func(t *testing.T) {
		events := []Event{
			actionedEvent(ActionExpired, jan20(17, 0)),
			actionedEvent(ActionApproved, jan20(17, 45)),
		}
		triggered, _ := EvaluateDRM(jan20(18, 30), Signal{TimeWindow: "dinner", Energy: "normal"}, events)
		assert.False(t, triggered)
	})

	t.Run("hour 18 with no engagement stays calm", func(t *testing.T) {
		triggered, _ := EvaluateDRM(jan20(18, 30), Signal{TimeWindow: "dinner", Energy: "normal"}, nil)
		assert.False(t, triggered)
	})

	t.Run("yesterday's engagement does not carry over", func(t *testing.T) {
		yesterday := time.Date(2026, time.January, 19, 19, 0, 0, 0, cst)
		events := []Event{actionedEvent(ActionRejected, yesterday)}
		triggered, _ := EvaluateDRM(jan20(18, 30), Signal{TimeWindow: "dinner", Energy: "normal"}, events)
		assert.False(t, triggered)
	})

	t.Run("only the dinner window goes late", func(t *testing.T) {
		triggered, _ := EvaluateDRM(jan20(21, 0), Signal{TimeWindow: "lunch", Energy: "normal"}, nil)
		assert.False(t, triggered)
	})
}

func TestEvaluateDRM_CalmEarlyEvening(t *testing.T) {
	triggered, reason := EvaluateDRM(jan20(17, 30), Signal{TimeWindow: "dinner", Energy: "normal"}, nil)
	assert.False(t, triggered)
	assert.Empty(t, reason)
}
