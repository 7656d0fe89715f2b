package sources

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/Socialrecon/internal/creds"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/transport"
)

// fakeTransport раздает заготовленные ответы по префиксу URL и
// записывает все запросы.
type fakeTransport struct {
	responses map[string]*transport.Response
	requests  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{responses: make(map[string]*transport.Response)}
}

func (f *fakeTransport) on(prefix string, status int, body string) {
	f.responses[prefix] = &transport.Response{Status: status, Body: body}
}

func (f *fakeTransport) lookup(rawURL string) *transport.Response {
	f.requests = append(f.requests, rawURL)
	for prefix, resp := range f.responses {
		if strings.HasPrefix(rawURL, prefix) {
			return resp
		}
	}
	return &transport.Response{Status: 404, Body: "not found"}
}

func (f *fakeTransport) Get(_ context.Context, rawURL string, _ map[string]string) (*transport.Response, error) {
	return f.lookup(rawURL), nil
}

func (f *fakeTransport) Post(_ context.Context, rawURL string, _ []byte, _ map[string]string) (*transport.Response, error) {
	return f.lookup(rawURL), nil
}

func (f *fakeTransport) PostForm(_ context.Context, rawURL string, _ url.Values, _ map[string]string) (*transport.Response, error) {
	return f.lookup(rawURL), nil
}

func testDeps(t *testing.T, tr transport.Transport, env map[string]string) Deps {
	t.Helper()
	provider, err := creds.NewProvider(env)
	require.NoError(t, err)
	return Deps{Transport: tr, Creds: provider, Logger: zerolog.Nop()}
}

// seqTransport выдает ответы по порядку вызовов, последний — до упора.
type seqTransport struct {
	responses []*transport.Response
	calls     int
}

func (s *seqTransport) next() *transport.Response {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i]
}

func (s *seqTransport) Get(context.Context, string, map[string]string) (*transport.Response, error) {
	return s.next(), nil
}

func (s *seqTransport) Post(context.Context, string, []byte, map[string]string) (*transport.Response, error) {
	return s.next(), nil
}

func (s *seqTransport) PostForm(context.Context, string, url.Values, map[string]string) (*transport.Response, error) {
	return s.next(), nil
}

func fastRetry() limits.RetryPolicy {
	return limits.RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestNewAll_CoversAllPlatforms(t *testing.T) {
	adapters := NewAll(testDeps(t, newFakeTransport(), nil), map[string]string{})

	assert.Len(t, adapters, 13)
	for platform, a := range adapters {
		assert.Equal(t, platform, a.Platform())
		assert.NotEmpty(t, a.ProfileURL("alice"), platform)
	}
}

func TestGitHub_FetchProfile(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://api.github.com/users/alice", 200, `{
		"login": "Alice",
		"name": "Alice Doe",
		"bio": "hacker",
		"location": "Berlin",
		"followers": 42,
		"following": 7,
		"public_repos": 12,
		"avatar_url": "https://avatars.example/alice",
		"created_at": "2015-04-01T10:00:00Z"
	}`)

	g := NewGitHub(testDeps(t, tr, nil))
	profile, err := g.FetchProfile(context.Background(), "alice")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "github", profile.Platform)
	assert.Equal(t, "alice", profile.Username, "usernames are normalized to lowercase")
	assert.Equal(t, "Alice Doe", profile.DisplayName)
	assert.Equal(t, "hacker", profile.Bio)
	require.NotNil(t, profile.FollowerCount)
	assert.Equal(t, int64(42), *profile.FollowerCount)
	require.NotNil(t, profile.CreatedAt)
	assert.Equal(t, 2015, profile.CreatedAt.Year())
}

func TestGitHub_FetchProfile_NotFound(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://api.github.com/users/ghost", 404, `{"message":"Not Found"}`)

	g := NewGitHub(testDeps(t, tr, nil))
	profile, err := g.FetchProfile(context.Background(), "ghost")

	assert.Nil(t, profile)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, tr.requests, 1, "404 is final, no retries")
}

func TestGitHub_FetchProfile_RateLimited(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://api.github.com/users/alice", 429, `{"message":"rate limited"}`)

	g := NewGitHub(testDeps(t, tr, nil))
	g.retry = fastRetry()
	_, err := g.FetchProfile(context.Background(), "alice")

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, tr.requests, 4, "429 is retried until attempts run out")
}

func TestGitHub_FetchProfile_RetriesServerErrors(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://api.github.com/users/alice", 503, `{"message":"unavailable"}`)

	g := NewGitHub(testDeps(t, tr, nil))
	g.retry = fastRetry()
	_, err := g.FetchProfile(context.Background(), "alice")

	assert.ErrorIs(t, err, ErrSource)
	assert.Len(t, tr.requests, 4, "5xx is transient and retried on every attempt")
}

func TestGitHub_FetchProfile_ServerErrorRecovers(t *testing.T) {
	tr := &seqTransport{responses: []*transport.Response{
		{Status: 503, Body: `{"message":"unavailable"}`},
		{Status: 200, Body: `{"login":"alice"}`},
	}}

	g := NewGitHub(testDeps(t, tr, nil))
	g.retry = fastRetry()
	profile, err := g.FetchProfile(context.Background(), "alice")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 2, tr.calls, "second attempt succeeds, no further retries")
}

func TestGitHub_FetchProfile_UsesTokenWhenPresent(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://api.github.com", 200, `{"login":"alice"}`)

	g := NewGitHub(testDeps(t, tr, map[string]string{"GITHUB_TOKEN": "tok"}))
	_, err := g.FetchProfile(context.Background(), "alice")

	require.NoError(t, err)
	require.NotEmpty(t, tr.requests)
}

func TestGitHub_MineCommitEmails(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://api.github.com/users/alice/repos", 200, `[
		{"full_name": "alice/tool", "fork": false},
		{"full_name": "alice/forked", "fork": true}
	]`)
	tr.on("https://api.github.com/repos/alice/tool/commits", 200, `[
		{"commit": {"author": {"email": "Alice@Example.com"}}},
		{"commit": {"author": {"email": "12345+alice@users.noreply.github.com"}}},
		{"commit": {"author": {"email": "alice@example.com"}}}
	]`)

	g := NewGitHub(testDeps(t, tr, nil))
	emails, err := g.MineCommitEmails(context.Background(), "alice", 5, 30)

	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, emails, "noreply and duplicates are dropped")

	for _, req := range tr.requests {
		assert.NotContains(t, req, "alice/forked", "forks are skipped")
	}
}

func TestTwitter_FetchProfile_NoAuthReturnsNil(t *testing.T) {
	tw := NewTwitter(testDeps(t, newFakeTransport(), nil))

	profile, err := tw.FetchProfile(context.Background(), "alice")

	assert.NoError(t, err)
	assert.Nil(t, profile, "no bearer token means the OG fallback takes over")
}

func TestTwitter_FetchProfile_WithToken(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://api.twitter.com/2/users/by/username/alice", 200, `{
		"data": {
			"id": "100",
			"username": "Alice",
			"name": "Alice Doe",
			"description": "dev",
			"verified": true,
			"public_metrics": {"followers_count": 10, "following_count": 5, "tweet_count": 99}
		}
	}`)

	tw := NewTwitter(testDeps(t, tr, map[string]string{"TWITTER_TOKEN": "bearer123"}))
	profile, err := tw.FetchProfile(context.Background(), "@alice")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
	require.NotNil(t, profile.Verified)
	assert.True(t, *profile.Verified)
	require.NotNil(t, profile.PostCount)
	assert.Equal(t, int64(99), *profile.PostCount)
}

func TestFallback_Profile(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://example.com/alice", 200, `<html><head>
		<meta property="og:title" content="Alice Doe">
		<meta property="og:description" content="just a profile">
		<meta property="og:image" content="https://img.example/a.png">
	</head><body></body></html>`)

	f := NewFallback(tr, zerolog.Nop())
	profile, err := f.Profile(context.Background(), "instagram", "Alice", "https://example.com/alice")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "Alice Doe", profile.DisplayName)
	assert.Equal(t, "just a profile", profile.Bio)
	assert.Equal(t, true, profile.Raw["scrape_fallback"], "synthesized profiles are marked")
}

func TestFallback_Profile_NoMetaTags(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://example.com/empty", 200, `<html><head><title>nothing</title></head></html>`)

	f := NewFallback(tr, zerolog.Nop())
	profile, err := f.Profile(context.Background(), "twitter", "ghost", "https://example.com/empty")

	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestFallback_Profile_NotFound(t *testing.T) {
	tr := newFakeTransport()
	tr.on("https://example.com/gone", 404, "")

	f := NewFallback(tr, zerolog.Nop())
	_, err := f.Profile(context.Background(), "twitter", "ghost", "https://example.com/gone")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBase_StatusErr(t *testing.T) {
	b := newBase("github", testDeps(t, newFakeTransport(), nil), limits.DefaultRateLimitPolicy())

	assert.NoError(t, b.statusErr(&transport.Response{Status: 200}))
	assert.ErrorIs(t, b.statusErr(&transport.Response{Status: 404}), ErrNotFound)
	assert.ErrorIs(t, b.statusErr(&transport.Response{Status: 429}), ErrRateLimited)
	assert.ErrorIs(t, b.statusErr(&transport.Response{Status: 500}), ErrSource)

	var herr *HTTPError
	require.ErrorAs(t, b.statusErr(&transport.Response{Status: 503}), &herr)
	assert.Equal(t, 503, herr.Status)
	assert.Equal(t, "github", herr.Platform)
}
