package creds

import (
	"encoding/base64"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Tokens_PlainAndMissing(t *testing.T) {
	p, err := NewProvider(map[string]string{
		"TWITTER_TOKENS": "aaa, bbb,,ccc",
		"GITHUB_TOKEN":   "single",
	})
	require.NoError(t, err)

	tokens, err := p.Tokens("twitter")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, tokens)

	tokens, err = p.Tokens("github")
	require.NoError(t, err)
	assert.Equal(t, []string{"single"}, tokens)

	// No tokens is a valid no-auth configuration
	tokens, err = p.Tokens("reddit")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestProvider_Tokens_PluralWinsOverSingular(t *testing.T) {
	p, err := NewProvider(map[string]string{
		"TWITTER_TOKENS": "many1,many2",
		"TWITTER_TOKEN":  "lonely",
	})
	require.NoError(t, err)

	tokens, err := p.Tokens("twitter")
	require.NoError(t, err)
	assert.Equal(t, []string{"many1", "many2"}, tokens)
}

func TestProvider_NextToken_RoundRobin(t *testing.T) {
	p, err := NewProvider(map[string]string{"TWITTER_TOKENS": "a,b,c"})
	require.NoError(t, err)

	var got []string
	for i := 0; i < 4; i++ {
		tok, ok, err := p.NextToken("twitter")
		require.NoError(t, err)
		require.True(t, ok)
		got = append(got, tok)
	}

	assert.Equal(t, []string{"a", "b", "c", "a"}, got, "cursor wraps around")
}

func TestProvider_NextToken_NoAuth(t *testing.T) {
	p, err := NewProvider(map[string]string{})
	require.NoError(t, err)

	_, ok, err := p.NextToken("twitter")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_EncValueWithoutKey(t *testing.T) {
	p, err := NewProvider(map[string]string{"TWITTER_TOKEN": "ENC(Zm9v)"})
	require.NoError(t, err)

	_, err = p.Tokens("twitter")
	assert.ErrorIs(t, err, ErrMissingFernetKey)
}

func TestProvider_EncValueRoundTrip(t *testing.T) {
	var key fernet.Key
	require.NoError(t, key.Generate())

	sealed, err := fernet.EncryptAndSign([]byte("super-secret"), &key)
	require.NoError(t, err)

	p, err := NewProvider(map[string]string{
		FernetKeyVar:    key.Encode(),
		"TWITTER_TOKEN": "ENC(" + base64.StdEncoding.EncodeToString(sealed) + ")",
	})
	require.NoError(t, err)

	tokens, err := p.Tokens("twitter")
	require.NoError(t, err)
	assert.Equal(t, []string{"super-secret"}, tokens)
}

func TestNewProvider_BadKey(t *testing.T) {
	_, err := NewProvider(map[string]string{FernetKeyVar: "not-a-key"})
	assert.Error(t, err)
}
