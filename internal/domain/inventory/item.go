// Package inventory models probabilistic pantry state. Rows are
// uncertainties, not SKUs: several rows may describe the same physical
// ingredient, each with its own confidence and freshness. Nothing here
// is ever deleted; time decay handles depletion.
package inventory

import "time"

// Source records how an item entered the pantry estimate.
type Source string

const (
	SourceReceipt  Source = "receipt"
	SourceInferred Source = "inferred"
	SourceManual   Source = "manual"
)

// Valid reports whether the source is one of the known origins.
func (s Source) Valid() bool {
	switch s {
	case SourceReceipt, SourceInferred, SourceManual:
		return true
	}
	return false
}

const (
	// DefaultDecayRatePerDay erodes remaining quantity estimates.
	DefaultDecayRatePerDay = 0.05

	// confidence decays slower than quantity and never drops below the
	// floor multiplier.
	confidenceDecayPerDay = 0.03
	confidenceFloor       = 0.20

	// LikelyAvailableConfidence is the decayed-confidence cutoff for
	// treating an item as present.
	LikelyAvailableConfidence = 0.60
)

// Item is one probabilistic pantry row scoped to a household.
type Item struct {
	ID              string
	HouseholdKey    string
	Name            string
	QtyEstimated    *float64
	QtyUsed         float64
	Unit            string
	Confidence      float64
	Source          Source
	LastSeenAt      time.Time
	LastUsedAt      *time.Time
	ExpiresAt       *time.Time
	DecayRatePerDay float64
	CreatedAt       time.Time
}

// DaysSinceSeen returns fractional days between last_seen_at and now,
// floored at zero. Zero-valued or future timestamps yield zero.
func (i *Item) DaysSinceSeen(now time.Time) float64 {
	if i.LastSeenAt.IsZero() {
		return 0
	}
	days := now.Sub(i.LastSeenAt).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

// Remaining estimates the quantity left after consumption and linear
// time decay. A nil result means the quantity was never estimated:
// unknown, treat as present.
func (i *Item) Remaining(now time.Time) *float64 {
	if i.QtyEstimated == nil {
		return nil
	}

	base := *i.QtyEstimated - i.QtyUsed
	if base < 0 {
		base = 0
	}

	rate := i.DecayRatePerDay
	if rate <= 0 {
		rate = DefaultDecayRatePerDay
	}

	multiplier := 1 - i.DaysSinceSeen(now)*rate
	if multiplier < 0 {
		multiplier = 0
	}

	remaining := base * multiplier
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// DecayedConfidence erodes the stored confidence by elapsed time with
// a hard floor, clamped to [0,1].
func (i *Item) DecayedConfidence(now time.Time) float64 {
	multiplier := 1 - i.DaysSinceSeen(now)*confidenceDecayPerDay
	if multiplier < confidenceFloor {
		multiplier = confidenceFloor
	}

	c := i.Confidence * multiplier
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// LikelyAvailable reports whether the item should count as present:
// decayed confidence at or above the cutoff, and either some quantity
// remaining or no quantity estimate at all.
func (i *Item) LikelyAvailable(now time.Time) bool {
	if i.DecayedConfidence(now) < LikelyAvailableConfidence {
		return false
	}
	remaining := i.Remaining(now)
	return remaining == nil || *remaining > 0
}
