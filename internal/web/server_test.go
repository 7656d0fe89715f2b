package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/Socialrecon/internal/cache"
	"github.com/BetterCallFirewall/Socialrecon/internal/config"
	"github.com/BetterCallFirewall/Socialrecon/internal/matcher"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
	"github.com/BetterCallFirewall/Socialrecon/internal/orchestrator"
	"github.com/BetterCallFirewall/Socialrecon/internal/sources"
	"github.com/BetterCallFirewall/Socialrecon/internal/storage"
	"github.com/BetterCallFirewall/Socialrecon/internal/transport"
	"github.com/BetterCallFirewall/Socialrecon/internal/websocket"
)

type stubAdapter struct {
	platform string
	profile  *models.NormalizedProfile
	err      error
}

func (s *stubAdapter) Platform() string { return s.platform }

func (s *stubAdapter) ProfileURL(username string) string {
	return "https://" + s.platform + ".example/" + username
}

func (s *stubAdapter) FetchProfile(context.Context, string) (*models.NormalizedProfile, error) {
	return s.profile, s.err
}

func (s *stubAdapter) FetchPosts(context.Context, string, int) ([]models.NormalizedPost, error) {
	return []models.NormalizedPost{{PostID: "1", Content: "hi"}}, nil
}

type noTransport struct{}

func (noTransport) Get(context.Context, string, map[string]string) (*transport.Response, error) {
	return &transport.Response{Status: 404}, nil
}
func (noTransport) Post(context.Context, string, []byte, map[string]string) (*transport.Response, error) {
	return &transport.Response{Status: 404}, nil
}
func (noTransport) PostForm(context.Context, string, url.Values, map[string]string) (*transport.Response, error) {
	return &transport.Response{Status: 404}, nil
}

func testHandler(t *testing.T) http.Handler {
	t.Helper()

	store, err := storage.OpenSQLite(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	adapters := map[string]sources.Adapter{
		"twitter": &stubAdapter{platform: "twitter", profile: &models.NormalizedProfile{
			Platform: "twitter", Username: "alice", Bio: "hello",
		}},
		"github": &stubAdapter{platform: "github", err: sources.ErrNotFound},
	}

	cfg := config.FanoutConfig{
		MaxConcurrency:   5,
		RequestTimeout:   5 * time.Second,
		SearchCacheTTL:   time.Minute,
		DetailedCacheTTL: time.Minute,
	}
	hub := websocket.NewHub(zerolog.Nop())
	orc := orchestrator.New(
		adapters,
		sources.NewFallback(noTransport{}, zerolog.Nop()),
		cache.New(time.Minute, time.Minute),
		store,
		storage.NopGraph{},
		matcher.NewResolver(store, zerolog.Nop()),
		hub,
		cfg,
		zerolog.Nop(),
	)

	server := NewServer(config.WebConfig{ListenAddr: ":0"}, orc, store, hub, zerolog.Nop())
	return server.routes()
}

func TestHandleSearch(t *testing.T) {
	handler := testHandler(t)

	body := `{"username": "alice", "platforms": ["twitter", "github"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/search/social-profiles", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Username string   `json:"username"`
		FoundOn  []string `json:"found_on"`
		Results  []struct {
			Platform string `json:"platform"`
			Status   string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, []string{"twitter"}, resp.FoundOn)
	assert.Len(t, resp.Results, 2)
}

func TestHandleSearch_MissingUsername(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/search/social-profiles", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_UnknownPlatform(t *testing.T) {
	handler := testHandler(t)

	body := `{"username": "alice", "platforms": ["myspace"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/search/social-profiles", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProfile(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/results/social-profile/alice/twitter", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.DetailedProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Profile)
	assert.Equal(t, "alice", resp.Profile.Username)
	assert.Len(t, resp.Posts, 1)
}

func TestHandleProfile_NotFound(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/results/social-profile/ghost/github", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePosts(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/results/social-posts/alice/twitter?page=1&page_size=10", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Page  int                     `json:"page"`
		Posts []models.NormalizedPost `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Len(t, resp.Posts, 1)
}

func TestHandleLinkedAccounts_NotFound(t *testing.T) {
	handler := testHandler(t)

	body := `{"username": "ghost", "platform": "github"}`
	req := httptest.NewRequest(http.MethodPost, "/api/search/linked-accounts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRefresh_BadRequest(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh/social-data", strings.NewReader(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRefresh_UpstreamFailureIs400(t *testing.T) {
	handler := testHandler(t)

	body := `{"username": "ghost", "platform": "github"}`
	req := httptest.NewRequest(http.MethodPost, "/api/refresh/social-data", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, "source failures surface as 400, never 5xx")

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "refresh failed")
}

func TestHandlePlatforms(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/platforms", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Platforms []string `json:"platforms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"github", "twitter"}, resp.Platforms)
}

func TestHealthz(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
