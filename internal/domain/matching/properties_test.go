//go:build property
// +build property

// Property-based checks for the tokenizer and matcher guarantees that
// the rest of the system leans on: bounded token sequences, unit-range
// scores, and the threshold/selection contract.
package matching_test

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/suppertime/v1/internal/domain/matching"
)

func TestTokenizeInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("tokens are bounded, lowercase, unique, stopword-free", prop.ForAll(
		func(input string) bool {
			tokens := matching.Tokenize(input)
			if len(tokens) > matching.MaxTokens {
				return false
			}
			seen := map[string]bool{}
			for _, tok := range tokens {
				if len(tok) < matching.MinTokenLength {
					return false
				}
				if tok != strings.ToLower(tok) {
					return false
				}
				if matching.IsStopword(tok) {
					return false
				}
				if seen[tok] {
					return false
				}
				seen[tok] = true
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("tokenizing is deterministic", prop.ForAll(
		func(input string) bool {
			a := matching.Tokenize(input)
			b := matching.Tokenize(input)
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestMatcherInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("scores stay in the unit interval", prop.ForAll(
		func(ingredient string, items []string) bool {
			_, score := matching.BestMatch(ingredient, items)
			return score >= 0.0 && score <= 1.0
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("a candidate is returned iff the score meets the threshold", prop.ForAll(
		func(ingredient string, items []string) bool {
			idx, score := matching.BestMatch(ingredient, items)
			if score >= matching.MatchThreshold {
				return idx >= 0 && idx < len(items)
			}
			return idx == -1
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("selection is deterministic", prop.ForAll(
		func(ingredient string, items []string) bool {
			idx1, score1 := matching.BestMatch(ingredient, items)
			idx2, score2 := matching.BestMatch(ingredient, items)
			return idx1 == idx2 && score1 == score2
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
