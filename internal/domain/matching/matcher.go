package matching

import "strings"

// MatchThreshold is the minimum overlap score for a usable match.
const MatchThreshold = 0.66

// StrongMatchThreshold separates strong matches from weak ones; weak
// matches get their inventory contribution capped downstream.
const StrongMatchThreshold = 0.80

const (
	exactCredit  = 1.0
	prefixCredit = 0.80

	// Constrained prefix rule: accepts tomato↔tomatoes while blocking
	// egg→eggplant (too many extra chars) and butter→butternut
	// (length ratio under the floor). Substrings never match.
	maxPrefixExtraChars  = 3
	minPrefixLengthRatio = 0.70
)

// TokenScore scores a single ingredient token against a single item
// token: 1.0 for an exact hit, 0.80 for a constrained prefix hit,
// otherwise 0.
func TokenScore(a, b string) float64 {
	if a == b {
		return exactCredit
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 || len(shorter) == len(longer) {
		return 0
	}
	if !strings.HasPrefix(longer, shorter) {
		return 0
	}
	if len(longer)-len(shorter) > maxPrefixExtraChars {
		return 0
	}
	if float64(len(shorter))/float64(len(longer)) < minPrefixLengthRatio {
		return 0
	}
	return prefixCredit
}

// OverlapScore scores ingredient tokens against item tokens: each
// ingredient token contributes its best per-token score, the sum is
// divided by the ingredient token count, and the result is capped at
// 1.0. An empty ingredient sequence scores 0.
func OverlapScore(ingredientTokens, itemTokens []string) float64 {
	if len(ingredientTokens) == 0 || len(itemTokens) == 0 {
		return 0
	}

	var sum float64
	for _, it := range ingredientTokens {
		var best float64
		for _, jt := range itemTokens {
			if s := TokenScore(it, jt); s > best {
				best = s
				if best == exactCredit {
					break
				}
			}
		}
		sum += best
	}

	score := sum / float64(len(ingredientTokens))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// BestMatch scores an ingredient name against candidate item names and
// returns the index of the winning candidate plus its score, or -1
// when nothing reaches MatchThreshold. Candidates whose inferred
// category conflicts with the ingredient's are skipped entirely; ties
// break on the lexicographically smaller item name.
func BestMatch(ingredientName string, itemNames []string) (int, float64) {
	ingredientTokens := Tokenize(ingredientName)
	if len(ingredientTokens) == 0 {
		return -1, 0
	}
	ingredientCat := InferCategory(ingredientTokens)

	bestIdx := -1
	bestScore := 0.0
	for i, name := range itemNames {
		itemTokens := Tokenize(name)
		if len(itemTokens) == 0 {
			continue
		}
		if !Compatible(ingredientCat, InferCategory(itemTokens)) {
			continue
		}
		score := OverlapScore(ingredientTokens, itemTokens)
		switch {
		case score > bestScore:
			bestIdx, bestScore = i, score
		case score == bestScore && bestIdx >= 0 && score > 0:
			if strings.Compare(name, itemNames[bestIdx]) < 0 {
				bestIdx = i
			}
		}
	}

	if bestScore < MatchThreshold {
		return -1, bestScore
	}
	return bestIdx, bestScore
}

// PrefilterTokens returns up to the n longest ingredient tokens,
// longest first, for use as ILIKE patterns when narrowing candidate
// queries. Narrowing is an optimization only; it must never change
// which candidate wins.
func PrefilterTokens(ingredientName string, n int) []string {
	tokens := Tokenize(ingredientName)
	if len(tokens) == 0 || n <= 0 {
		return nil
	}

	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	// stable by length desc, original order for equal lengths
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && len(sorted[j]) > len(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
