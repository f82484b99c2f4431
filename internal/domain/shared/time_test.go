package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISO_KeepsSuppliedOffset(t *testing.T) {
	ts, err := ParseISO("2026-01-20T18:30:00-06:00")
	require.NoError(t, err)

	assert.Equal(t, 18, ts.Hour())
	assert.Equal(t, 30, ts.Minute())
	assert.Equal(t, "2026-01-20", DayKey(ts))
}

func TestParseISO_AcceptsUTCAndNaiveForms(t *testing.T) {
	cases := map[string]int{
		"2026-01-20T20:05:00Z":     20,
		"2026-01-20T17:00:00":      17,
		"2026-01-20T17:00":         17,
		"2026-01-20T18:15:00.250Z": 18,
	}
	for input, hour := range cases {
		ts, err := ParseISO(input)
		require.NoError(t, err, input)
		assert.Equal(t, hour, ts.Hour(), input)
	}

	_, err := ParseISO("")
	assert.Error(t, err)
	_, err = ParseISO("not-a-timestamp")
	assert.Error(t, err)
}

func TestSameLocalDay_UsesReferenceFrame(t *testing.T) {
	ref, err := ParseISO("2026-01-20T19:00:00-06:00")
	require.NoError(t, err)

	// 01:30Z on the 21st is still the evening of the 20th at -06:00.
	event, err := ParseISO("2026-01-21T01:30:00Z")
	require.NoError(t, err)
	assert.True(t, SameLocalDay(event, ref))

	// 07:00Z on the 21st has crossed midnight in the -06:00 frame.
	event, err = ParseISO("2026-01-21T07:00:00Z")
	require.NoError(t, err)
	assert.False(t, SameLocalDay(event, ref))
}

func TestLocalDaysBetween(t *testing.T) {
	ref, err := ParseISO("2026-01-20T18:00:00-06:00")
	require.NoError(t, err)

	sameDay, _ := ParseISO("2026-01-20T08:00:00-06:00")
	yesterday, _ := ParseISO("2026-01-19T23:59:00-06:00")
	threeDays, _ := ParseISO("2026-01-17T18:00:00-06:00")

	assert.Equal(t, 0, LocalDaysBetween(sameDay, ref))
	assert.Equal(t, 1, LocalDaysBetween(yesterday, ref))
	assert.Equal(t, 3, LocalDaysBetween(threeDays, ref))
}
