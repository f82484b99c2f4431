// Package matching reconciles free-form ingredient names against
// free-form pantry item names. Everything in here is deterministic:
// fixed token rules, fixed keyword tables, lexicographic tie-breaks.
// The stopword and category tables change matching behavior and are
// part of the external contract; additions are safe, removals are not.
package matching

import "strings"

// MaxTokens caps the token sequence produced for any input.
const MaxTokens = 10

// MinTokenLength drops short fragments and two-letter units.
const MinTokenLength = 3

// stopwords are descriptors that carry no identity: freshness and
// quality marketing, sizes, packaging, spelled-out units, filler.
var stopwords = map[string]struct{}{
	// freshness / quality
	"fresh": {}, "organic": {}, "natural": {}, "premium": {}, "select": {},
	"choice": {}, "grade": {}, "quality": {}, "finest": {}, "classic": {},
	"original": {}, "traditional": {}, "homestyle": {}, "artisan": {},
	// fat / calorie variants
	"fat": {}, "free": {}, "low": {}, "lite": {}, "light": {},
	"reduced": {}, "nonfat": {}, "lowfat": {}, "diet": {},
	// size
	"large": {}, "small": {}, "medium": {}, "mini": {}, "jumbo": {},
	"giant": {}, "king": {}, "size": {}, "extra": {},
	// packaging
	"pack": {}, "pkg": {}, "package": {}, "bag": {}, "box": {},
	"bottle": {}, "jar": {}, "carton": {}, "container": {}, "bunch": {},
	"each": {}, "family": {}, "value": {}, "case": {}, "count": {},
	// units (two-letter forms fall to the length rule)
	"lbs": {}, "gal": {}, "gallon": {}, "quart": {}, "pint": {},
	"doz": {}, "dozen": {}, "ounce": {}, "ounces": {}, "pound": {},
	"pounds": {}, "liter": {}, "litre": {}, "grams": {},
	// filler
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "per": {},
	"new": {}, "all": {}, "style": {}, "brand": {}, "item": {},
	"misc": {}, "assorted": {}, "variety": {},
}

// IsStopword reports whether a lowercase token is in the stopword set.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Tokenize lowercases the input, collapses every run of characters
// outside [a-z0-9] into a single space, splits, drops stopwords and
// tokens shorter than MinTokenLength, dedupes preserving first
// occurrence, and caps the result at MaxTokens. Empty or symbol-only
// input yields an empty sequence.
func Tokenize(input string) []string {
	if input == "" {
		return nil
	}

	lowered := strings.ToLower(input)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) < MinTokenLength {
			continue
		}
		if IsStopword(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
		if len(tokens) == MaxTokens {
			break
		}
	}

	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
