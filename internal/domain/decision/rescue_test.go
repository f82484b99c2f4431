package decision

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rescueEvent(t *testing.T, key string, at time.Time) Event {
	t.Helper()
	payload, err := json.Marshal(RescuePayload{
		TriggerReason: "low_energy",
		Rescue:        RescueOption{Key: key},
	})
	require.NoError(t, err)
	e := actionedEvent(ActionDRMTriggered, at)
	e.Payload = payload
	return e
}

func TestRescueCatalog_ConfidenceOrdering(t *testing.T) {
	catalog := RescueCatalog()
	require.NotEmpty(t, catalog)

	for _, opt := range catalog {
		assert.NotEmpty(t, opt.Key)
		assert.True(t, opt.Type.Valid())
		assert.Greater(t, opt.EstMinutes, 0)
		assert.Greater(t, opt.Confidence, 0.0)
		if opt.Type == TypeOrder {
			assert.NotEmpty(t, opt.VendorKey, "order options need a vendor key")
		} else {
			assert.Empty(t, opt.VendorKey)
		}
	}
}

func TestSelectRescue_PicksHighestConfidence(t *testing.T) {
	got := SelectRescue(RescueCatalog(), nil, jan20(19, 0))
	assert.Equal(t, "order-pizza", got.Key)
}

func TestSelectRescue_ThrottledPatternRests(t *testing.T) {
	now := jan20(19, 0)
	recent := []Event{rescueEvent(t, "order-pizza", jan20(18, 0))}

	got := SelectRescue(RescueCatalog(), recent, now)
	assert.Equal(t, "zero-cook-breakfast", got.Key)

	// Two patterns resting pushes selection down the catalog.
	recent = append(recent, rescueEvent(t, "zero-cook-breakfast", jan20(17, 0)))
	got = SelectRescue(RescueCatalog(), recent, now)
	assert.Equal(t, "order-thai", got.Key)
}

func TestSelectRescue_ThrottleExpiresAfterWindow(t *testing.T) {
	now := jan20(19, 0)
	recent := []Event{rescueEvent(t, "order-pizza", now.Add(-RescueThrottleWindow-time.Minute))}

	got := SelectRescue(RescueCatalog(), recent, now)
	assert.Equal(t, "order-pizza", got.Key)
}

func TestSelectRescue_AllThrottledStillServes(t *testing.T) {
	now := jan20(19, 0)
	var recent []Event
	for _, opt := range RescueCatalog() {
		recent = append(recent, rescueEvent(t, opt.Key, jan20(12, 0)))
	}

	got := SelectRescue(RescueCatalog(), recent, now)
	assert.Equal(t, "order-pizza", got.Key, "exhausting the catalog falls back to the best option")
}

func TestSelectRescue_IgnoresNonRescueEvents(t *testing.T) {
	// A rejected cook event with a meal payload must not throttle
	// anything, even within the window.
	e := actionedEvent(ActionRejected, jan20(18, 0))
	e.Payload = json.RawMessage(`{"title":"Chicken Stir-Fry"}`)

	got := SelectRescue(RescueCatalog(), []Event{e}, jan20(19, 0))
	assert.Equal(t, "order-pizza", got.Key)
}

func TestRescueStreak(t *testing.T) {
	newestFirst := []Event{
		rescueEvent(t, "order-pizza", jan20(19, 0)),
		rescueEvent(t, "zero-cook-breakfast", jan20(18, 0)),
		actionedEvent(ActionRejected, jan20(17, 30)),
		rescueEvent(t, "order-thai", jan20(17, 0)),
	}
	assert.Equal(t, 3, RescueStreak(newestFirst), "rejections do not break the streak")

	withApproval := []Event{
		rescueEvent(t, "order-pizza", jan20(19, 0)),
		actionedEvent(ActionApproved, jan20(18, 30)),
		rescueEvent(t, "zero-cook-breakfast", jan20(18, 0)),
	}
	assert.Equal(t, 1, RescueStreak(withApproval), "approval resets the count")

	assert.Equal(t, 0, RescueStreak(nil))
}
