// Package shared holds domain primitives used across aggregates.
//
// The decision windows in this system (autopilot hours, stress hour,
// late-evening rescue) are defined on the wall clock of the caller's
// ISO-8601 timestamp. Parsing keeps the supplied offset so that
// Hour()/Minute() read the caller's local clock without conversion.
package shared

import (
	"fmt"
	"strings"
	"time"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISO parses an ISO-8601 timestamp. Offsets and Z are preserved;
// naive timestamps are read as-is (treated as their own local frame).
func ParseISO(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("parse iso timestamp: empty value")
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse iso timestamp %q: unrecognized format", value)
}

// DayKey returns the calendar date of t's own wall clock, formatted
// YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// InFrameOf converts t into ref's location, so calendar comparisons
// happen in the frame the caller supplied.
func InFrameOf(t, ref time.Time) time.Time {
	return t.In(ref.Location())
}

// SameLocalDay reports whether t falls on ref's calendar date when
// viewed in ref's frame.
func SameLocalDay(t, ref time.Time) bool {
	return DayKey(InFrameOf(t, ref)) == DayKey(ref)
}

// LocalDaysBetween returns the whole calendar days separating t from
// ref, both viewed in ref's frame. Same day yields 0; yesterday 1.
func LocalDaysBetween(t, ref time.Time) int {
	lt := InFrameOf(t, ref)
	ty, tm, td := lt.Date()
	ry, rm, rd := ref.Date()
	a := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	b := time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
