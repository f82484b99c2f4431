package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestRemaining_LinearDecay(t *testing.T) {
	now := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)

	item := &Item{
		QtyEstimated:    ptr(2),
		QtyUsed:         0,
		LastSeenAt:      now.Add(-10 * 24 * time.Hour),
		DecayRatePerDay: 0.05,
	}

	// 10 days at 0.05/day leaves half the base quantity.
	remaining := item.Remaining(now)
	assert.NotNil(t, remaining)
	assert.InDelta(t, 1.0, *remaining, 1e-9)
}

func TestRemaining_NilWhenUnestimated(t *testing.T) {
	item := &Item{LastSeenAt: time.Now()}
	assert.Nil(t, item.Remaining(time.Now()))
}

func TestRemaining_NeverNegative(t *testing.T) {
	now := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)

	// Used more than estimated.
	overUsed := &Item{QtyEstimated: ptr(1), QtyUsed: 3, LastSeenAt: now}
	assert.Equal(t, 0.0, *overUsed.Remaining(now))

	// Fully decayed after far more days than the rate supports.
	stale := &Item{
		QtyEstimated:    ptr(5),
		LastSeenAt:      now.Add(-40 * 24 * time.Hour),
		DecayRatePerDay: 0.05,
	}
	assert.Equal(t, 0.0, *stale.Remaining(now))
}

func TestRemaining_FutureOrZeroLastSeen(t *testing.T) {
	now := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)

	future := &Item{QtyEstimated: ptr(2), LastSeenAt: now.Add(24 * time.Hour)}
	assert.InDelta(t, 2.0, *future.Remaining(now), 1e-9)

	unset := &Item{QtyEstimated: ptr(2)}
	assert.InDelta(t, 2.0, *unset.Remaining(now), 1e-9)
}

func TestRemaining_DefaultsDecayRate(t *testing.T) {
	now := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)

	item := &Item{QtyEstimated: ptr(1), LastSeenAt: now.Add(-10 * 24 * time.Hour)}
	remaining := item.Remaining(now)
	assert.InDelta(t, 1-10*DefaultDecayRatePerDay, *remaining, 1e-9)
}

func TestDecayedConfidence(t *testing.T) {
	now := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)

	fresh := &Item{Confidence: 0.90, LastSeenAt: now}
	assert.InDelta(t, 0.90, fresh.DecayedConfidence(now), 1e-9)

	tenDays := &Item{Confidence: 0.90, LastSeenAt: now.Add(-10 * 24 * time.Hour)}
	assert.InDelta(t, 0.90*0.70, tenDays.DecayedConfidence(now), 1e-9)

	// Multiplier floors at 0.20 no matter how stale.
	ancient := &Item{Confidence: 1.0, LastSeenAt: now.Add(-365 * 24 * time.Hour)}
	assert.InDelta(t, 0.20, ancient.DecayedConfidence(now), 1e-9)
}

func TestLikelyAvailable(t *testing.T) {
	now := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)

	available := &Item{Confidence: 0.90, QtyEstimated: ptr(2), LastSeenAt: now}
	assert.True(t, available.LikelyAvailable(now))

	// Unknown quantity counts as present when confidence holds.
	unknownQty := &Item{Confidence: 0.80, LastSeenAt: now}
	assert.True(t, unknownQty.LikelyAvailable(now))

	depleted := &Item{Confidence: 0.90, QtyEstimated: ptr(1), QtyUsed: 1, LastSeenAt: now}
	assert.False(t, depleted.LikelyAvailable(now))

	lowConfidence := &Item{Confidence: 0.30, QtyEstimated: ptr(5), LastSeenAt: now}
	assert.False(t, lowConfidence.LikelyAvailable(now))
}

func TestLikelyAvailable_ConfidenceBoundaryInclusive(t *testing.T) {
	now := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)

	// Exactly 0.60 counts as available.
	item := &Item{Confidence: 0.60, QtyEstimated: ptr(1), LastSeenAt: now}
	assert.InDelta(t, 0.60, item.DecayedConfidence(now), 1e-9)
	assert.True(t, item.LikelyAvailable(now))
}

func TestSourceValid(t *testing.T) {
	assert.True(t, SourceReceipt.Valid())
	assert.True(t, SourceInferred.Valid())
	assert.True(t, SourceManual.Valid())
	assert.False(t, Source("purchased").Valid())
}
