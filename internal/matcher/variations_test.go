package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariations_SeparatorSwaps(t *testing.T) {
	vars := Variations("john_doe", 0)

	assert.Contains(t, vars, "john.doe")
	assert.Contains(t, vars, "john-doe")
	assert.Contains(t, vars, "johndoe")
}

func TestVariations_Leet(t *testing.T) {
	vars := Variations("alice", DefaultMaxVariations)

	assert.Contains(t, vars, "4lice", "leet substitution for 'a'")
	assert.Contains(t, vars, "al1ce", "leet substitution for 'i'")
}

func TestVariations_NumericSuffixes(t *testing.T) {
	// Leet variants come first in family order; a generous cap lets the
	// later suffix families through
	vars := Variations("alice", 500)

	assert.Contains(t, vars, "alice123")
	assert.Contains(t, vars, "alice007")
	assert.Contains(t, vars, "thealice")
	assert.Contains(t, vars, "alice_official")
}

func TestVariations_StripTrailingDigits(t *testing.T) {
	vars := Variations("alice99", 500)

	assert.Contains(t, vars, "alice")
	assert.Contains(t, vars, "alice_99", "separator at the digit boundary")
}

func TestVariations_ExcludesBaseAndDuplicates(t *testing.T) {
	vars := Variations("alice", 0)

	seen := make(map[string]int)
	for _, v := range vars {
		assert.NotEqual(t, "alice", strings.ToLower(v), "the base handle is not a variation")
		seen[strings.ToLower(v)]++
	}
	for v, n := range seen {
		assert.Equal(t, 1, n, "duplicate variation %q", v)
	}
}

func TestVariations_RespectsMax(t *testing.T) {
	vars := Variations("alice", 10)
	assert.LessOrEqual(t, len(vars), 10)

	vars = Variations("alice", 0)
	assert.LessOrEqual(t, len(vars), DefaultMaxVariations)
}

func TestVariations_Deterministic(t *testing.T) {
	first := Variations("alice_99", DefaultMaxVariations)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Variations("alice_99", DefaultMaxVariations),
			"truncated output must not depend on iteration order")
	}
}

func TestVariations_EmptyHandle(t *testing.T) {
	assert.Nil(t, Variations("", 0))
	assert.Nil(t, Variations("@", 0))
}

func TestFromEmail(t *testing.T) {
	handles := FromEmail("John.Smith+news@example.com")

	assert.Contains(t, handles, "john.smith+news", "full local part survives")
	assert.Contains(t, handles, "john.smith", "+tag is stripped")
	assert.Contains(t, handles, "johnsmith")
	assert.Contains(t, handles, "john_smith")
	assert.Contains(t, handles, "john-smith")
}

func TestFromEmail_NoAt(t *testing.T) {
	assert.Nil(t, FromEmail("not-an-email"))
}

func TestFromName(t *testing.T) {
	handles := FromName("John Smith")

	assert.Contains(t, handles, "john")
	assert.Contains(t, handles, "smith")
	assert.Contains(t, handles, "johnsmith")
	assert.Contains(t, handles, "john_smith")
	assert.Contains(t, handles, "jsmith")
	assert.Contains(t, handles, "johns", "first name plus last initial")
	assert.Contains(t, handles, "smithjohn", "reversed order")
}

func TestFromName_MiddleInitial(t *testing.T) {
	handles := FromName("John Quincy Smith")

	assert.Contains(t, handles, "johnqsmith")
	assert.Contains(t, handles, "jqsmith")
}

func TestFromName_SingleToken(t *testing.T) {
	handles := FromName("Cher")
	assert.Equal(t, []string{"cher"}, handles)
}

func TestFromPhone(t *testing.T) {
	handles := FromPhone("+1 (415) 555-2671")

	assert.Contains(t, handles, "2671", "last four digits")
	assert.Contains(t, handles, "552671", "last six digits")
	assert.Contains(t, handles, "5552671", "last seven digits")

	// T9 decodings of the last four digits are present; the trailing
	// digit 1 carries no letters and stays as is
	decoded := 0
	for _, h := range handles {
		if len(h) == 4 && strings.ContainsAny(h, "abcdefghijklmnopqrstuvwxyz") {
			decoded++
		}
	}
	require.Greater(t, decoded, 0, "expected at least one T9 decoding")
}

func TestFromPhone_TooShort(t *testing.T) {
	assert.Nil(t, FromPhone("12"))
}
