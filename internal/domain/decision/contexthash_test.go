package decision

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dinnerSignal = Signal{TimeWindow: "dinner", Energy: "normal", CalendarConflict: false}

func TestContextHash_DeterministicPerDay(t *testing.T) {
	early := time.Date(2026, time.January, 20, 17, 5, 0, 0, time.FixedZone("CST", -6*3600))
	late := time.Date(2026, time.January, 20, 18, 10, 0, 0, time.FixedZone("CST", -6*3600))

	h1, err := ContextHash("default", early, dinnerSignal)
	require.NoError(t, err)
	h2, err := ContextHash("default", late, dinnerSignal)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), h1)
	assert.Equal(t, h1, h2, "same household, signal, and local day must collide")
}

func TestContextHash_Discriminates(t *testing.T) {
	now := time.Date(2026, time.January, 20, 18, 0, 0, 0, time.UTC)
	base, err := ContextHash("default", now, dinnerSignal)
	require.NoError(t, err)

	otherHousehold, err := ContextHash("casa-verde", now, dinnerSignal)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherHousehold)

	nextDay, err := ContextHash("default", now.AddDate(0, 0, 1), dinnerSignal)
	require.NoError(t, err)
	assert.NotEqual(t, base, nextDay)

	lowEnergy, err := ContextHash("default", now, Signal{TimeWindow: "dinner", Energy: "low"})
	require.NoError(t, err)
	assert.NotEqual(t, base, lowEnergy)

	conflicted, err := ContextHash("default", now, Signal{TimeWindow: "dinner", Energy: "normal", CalendarConflict: true})
	require.NoError(t, err)
	assert.NotEqual(t, base, conflicted)
}

func TestExplorationNoise_Bounds(t *testing.T) {
	hash, err := ContextHash("default", time.Now(), dinnerSignal)
	require.NoError(t, err)

	for _, mealID := range []string{"meal-001", "meal-002", "meal-012", "meal-999"} {
		n := ExplorationNoise(hash, mealID)
		assert.GreaterOrEqual(t, n, 0.0)
		assert.LessOrEqual(t, n, MaxExplorationNoise)
	}
}

func TestExplorationNoise_DeterministicAndKeyed(t *testing.T) {
	assert.Equal(t,
		ExplorationNoise("abc123", "meal-001"),
		ExplorationNoise("abc123", "meal-001"),
	)
	assert.NotEqual(t,
		ExplorationNoise("abc123", "meal-001"),
		ExplorationNoise("abc123", "meal-002"),
	)
	assert.NotEqual(t,
		ExplorationNoise("abc123", "meal-001"),
		ExplorationNoise("def456", "meal-001"),
	)
}

func TestExplorationNoise_ZeroWithoutContext(t *testing.T) {
	assert.Zero(t, ExplorationNoise("", "meal-001"))
}
