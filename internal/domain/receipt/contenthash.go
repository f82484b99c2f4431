package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// ContentHash fingerprints a receipt for duplicate detection. The
// same receipt re-imported through a different channel or with OCR
// whitespace jitter must hash identically, so text and vendor are
// folded before hashing and the date is reduced to its day.
func ContentHash(ocrText, vendor string, purchasedAt *time.Time) string {
	datePart := ""
	if purchasedAt != nil {
		datePart = purchasedAt.Format("2006-01-02")
	}
	payload := foldForHash(ocrText) + "|" + foldForHash(vendor) + "|" + datePart
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// foldForHash trims, lowercases, strips non-printable runes, and
// collapses whitespace runs to single spaces.
func foldForHash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
