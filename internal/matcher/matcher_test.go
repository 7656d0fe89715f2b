package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, Similarity("alice", "alice"))
	assert.Equal(t, 100, Similarity("Alice", "ALICE"), "comparison is case-insensitive")
	assert.Equal(t, 0, Similarity("", "alice"))
	assert.Equal(t, 0, Similarity("alice", ""))

	// One edit over five runes: 100 - 100*1/5 = 80
	assert.Equal(t, 80, Similarity("alice", "alise"))

	// Completely different strings stay non-negative
	assert.GreaterOrEqual(t, Similarity("abc", "xyz"), 0)
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"john_doe", "johndoe"},
		{"alice99", "alice"},
		{"cat", "dog"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%s vs %s", p[0], p[1])
	}
}

func TestTolerance_Threshold(t *testing.T) {
	assert.Equal(t, 80, ToleranceLow.Threshold())
	assert.Equal(t, 70, ToleranceMedium.Threshold())
	assert.Equal(t, 60, ToleranceHigh.Threshold())
}

func TestFuzzyMatch(t *testing.T) {
	candidates := []string{"alice", "alise", "bob", "alicia", "alice99"}

	matches := FuzzyMatch("alice", candidates, 70, 10)

	assert.NotEmpty(t, matches)
	assert.Equal(t, "alice", matches[0].Candidate, "exact match ranks first")
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i].Score, matches[i-1].Score, "scores descend")
	}
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 70)
	}
}

func TestFuzzyMatch_Limit(t *testing.T) {
	candidates := []string{"alice", "alicf", "alicg", "alich"}

	matches := FuzzyMatch("alice", candidates, 60, 2)

	assert.Len(t, matches, 2)
}

func TestMatchType(t *testing.T) {
	assert.Equal(t, MatchExact, MatchType("alice", "Alice", 100))
	assert.Equal(t, MatchVariation, MatchType("john_doe", "john.doe", 88))
	assert.Equal(t, MatchFuzzy, MatchType("alice", "alise", 80))
	assert.Equal(t, MatchPattern, MatchType("alice", "al", 40))
}
