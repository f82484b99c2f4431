package decision

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/suppertime/v1/internal/domain/shared"
)

// contextFingerprint is the canonical input record a context hash is
// computed over. Key order is irrelevant; RFC 8785 sorts them.
type contextFingerprint struct {
	HouseholdKey     string `json:"householdKey"`
	Date             string `json:"date"`
	TimeWindow       string `json:"timeWindow"`
	Energy           string `json:"energy"`
	CalendarConflict bool   `json:"calendarConflict"`
}

// ContextHash fingerprints the inputs to one decision. Requests from
// the same household with the same signal on the same local day hash
// identically, which is what makes the autopilot insert idempotent
// across retries.
func ContextHash(householdKey string, now time.Time, sig Signal) (string, error) {
	raw, err := json.Marshal(contextFingerprint{
		HouseholdKey:     householdKey,
		Date:             shared.DayKey(now),
		TimeWindow:       sig.TimeWindow,
		Energy:           sig.Energy,
		CalendarConflict: sig.CalendarConflict,
	})
	if err != nil {
		return "", fmt.Errorf("marshal context fingerprint: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize context fingerprint: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// MaxExplorationNoise bounds the deterministic jitter added to meal
// scores so near-ties rotate between visits instead of locking in.
const MaxExplorationNoise = 0.05

// ExplorationNoise maps (contextHash, mealID) to a uniform value in
// [0, MaxExplorationNoise]. An empty context hash yields 0 so tests
// that need strict determinism can simply omit it.
func ExplorationNoise(contextHash, mealID string) float64 {
	if contextHash == "" {
		return 0
	}
	sum := sha256.Sum256([]byte(contextHash + "|" + mealID))
	u := binary.BigEndian.Uint64(sum[:8])
	return float64(u) / float64(math.MaxUint64) * MaxExplorationNoise
}
