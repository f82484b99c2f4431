package matching

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type MatcherTestSuite struct {
	suite.Suite
}

func (s *MatcherTestSuite) TestTokenScore() {
	s.Run("ExactToken_ScoresFull", func() {
		s.Equal(1.0, TokenScore("chicken", "chicken"))
	})

	s.Run("PluralPrefix_ScoresPrefixCredit", func() {
		s.Equal(0.80, TokenScore("tomato", "tomatoes"))
		s.Equal(0.80, TokenScore("tomatoes", "tomato"))
		s.Equal(0.80, TokenScore("chick", "chicken"))
	})

	s.Run("TooManyExtraChars_Rejected", func() {
		// egg → eggplant adds five characters
		s.Equal(0.0, TokenScore("egg", "eggplant"))
	})

	s.Run("LengthRatioUnderFloor_Rejected", func() {
		// butter → butternut: 3 extra chars but 6/9 ratio is under 0.70
		s.Equal(0.0, TokenScore("butter", "butternut"))
	})

	s.Run("SubstringIsNotPrefix_Rejected", func() {
		// ham appears inside shampoo but never as a prefix
		s.Equal(0.0, TokenScore("ham", "shampoo"))
	})

	s.Run("UnrelatedTokens_Rejected", func() {
		s.Equal(0.0, TokenScore("milk", "bread"))
	})
}

func (s *MatcherTestSuite) TestOverlapScore() {
	s.Run("SingleExactToken_FullScore", func() {
		score := OverlapScore(
			Tokenize("chicken"),
			Tokenize("chicken breast boneless skinless organic pack"),
		)
		s.Equal(1.0, score)
	})

	s.Run("PartialOverlap_WeakMatchRange", func() {
		// two of three ingredient tokens hit
		score := OverlapScore(
			Tokenize("chicken breast rice"),
			Tokenize("chicken breast salad wrap"),
		)
		s.InDelta(2.0/3.0, score, 1e-9)
		s.GreaterOrEqual(score, MatchThreshold)
		s.Less(score, StrongMatchThreshold)
	})

	s.Run("EmptyIngredientTokens_Zero", func() {
		s.Equal(0.0, OverlapScore(nil, Tokenize("chicken")))
		s.Equal(0.0, OverlapScore(Tokenize("chicken"), nil))
	})

	s.Run("ScoreStaysInUnitInterval", func() {
		score := OverlapScore(
			Tokenize("tomato"),
			Tokenize("tomato tomatoes roma"),
		)
		s.GreaterOrEqual(score, 0.0)
		s.LessOrEqual(score, 1.0)
	})
}

func (s *MatcherTestSuite) TestBestMatch() {
	s.Run("PicksHighestScoringCandidate", func() {
		idx, score := BestMatch("chicken breast", []string{
			"ground beef",
			"chicken breast boneless",
			"whole milk",
		})
		s.Equal(1, idx)
		s.Equal(1.0, score)
	})

	s.Run("RejectsBelowThreshold", func() {
		idx, score := BestMatch("chicken breast rice noodles", []string{
			"chicken thighs",
		})
		s.Equal(-1, idx)
		s.Less(score, MatchThreshold)
	})

	s.Run("TieBreaksOnLexicographicName", func() {
		idx, score := BestMatch("chicken", []string{
			"chicken thighs",
			"chicken breast",
		})
		s.Equal(1, idx)
		s.Equal(1.0, score)
	})

	s.Run("EmptyIngredient_NoMatch", func() {
		idx, score := BestMatch("2 lb oz", []string{"chicken breast"})
		s.Equal(-1, idx)
		s.Equal(0.0, score)
	})

	s.Run("NoCandidates_NoMatch", func() {
		idx, score := BestMatch("chicken", nil)
		s.Equal(-1, idx)
		s.Equal(0.0, score)
	})

	s.Run("MatchedIffScoreMeetsThreshold", func() {
		candidates := []string{
			"chicken breast salad wrap",
			"shampoo bottle",
			"eggplant",
		}
		for _, ingredient := range []string{"chicken breast rice", "egg", "ham", "butter"} {
			idx, score := BestMatch(ingredient, candidates)
			if score >= MatchThreshold {
				s.GreaterOrEqual(idx, 0, ingredient)
			} else {
				s.Equal(-1, idx, ingredient)
			}
			s.GreaterOrEqual(score, 0.0, ingredient)
			s.LessOrEqual(score, 1.0, ingredient)
		}
	})
}

func (s *MatcherTestSuite) TestPrefilterTokens() {
	s.Run("LongestTokensFirst", func() {
		got := PrefilterTokens("boneless skinless chicken breast", 3)
		s.Equal([]string{"boneless", "skinless", "chicken"}, got)
	})

	s.Run("FewerTokensThanRequested", func() {
		s.Equal([]string{"milk"}, PrefilterTokens("milk", 3))
	})

	s.Run("EmptyInput", func() {
		s.Nil(PrefilterTokens("", 3))
		s.Nil(PrefilterTokens("chicken", 0))
	})
}

func TestMatcherTestSuite(t *testing.T) {
	suite.Run(t, new(MatcherTestSuite))
}
