package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

const (
	twitchOAuthURL = "https://id.twitch.tv/oauth2/token"
	twitchAPIBase  = "https://api.twitch.tv/helix"
)

// Twitch требует client id + secret: app access token получается через
// client-credentials flow и кэшируется в адаптере до истечения.
type Twitch struct {
	base
	clientID     string
	clientSecret string

	tokenMu     sync.Mutex
	appToken    string
	tokenExpiry time.Time
}

func NewTwitch(deps Deps, clientID, clientSecret string) *Twitch {
	return &Twitch{
		base:         newBase(extract.PlatformTwitch, deps, limits.RateLimitPolicy{Requests: 60, Per: time.Minute}),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (t *Twitch) Platform() string { return extract.PlatformTwitch }

func (t *Twitch) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformTwitch, username)
}

// appAccessToken возвращает кэшированный app token, обновляя его при
// истечении. Один писатель: обновление сериализовано мьютексом.
func (t *Twitch) appAccessToken(ctx context.Context) (string, error) {
	if t.clientID == "" || t.clientSecret == "" {
		return "", nil
	}

	t.tokenMu.Lock()
	defer t.tokenMu.Unlock()

	if t.appToken != "" && time.Now().Before(t.tokenExpiry) {
		return t.appToken, nil
	}

	form := url.Values{
		"client_id":     {t.clientID},
		"client_secret": {t.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	resp, err := t.postForm(ctx, twitchOAuthURL, form, nil)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("twitch oauth responded %d: %w", resp.Status, ErrSource)
	}

	token := resp.JSON().Get("access_token").String()
	if token == "" {
		return "", fmt.Errorf("twitch oauth returned no access_token: %w", ErrSource)
	}
	expiresIn := resp.JSON().Get("expires_in").Int()
	t.appToken = token
	t.tokenExpiry = time.Now().Add(time.Duration(expiresIn-60) * time.Second)
	return token, nil
}

func (t *Twitch) helixHeaders(ctx context.Context) (map[string]string, error) {
	token, err := t.appAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	return map[string]string{
		"Authorization": "Bearer " + token,
		"Client-Id":     t.clientID,
	}, nil
}

func (t *Twitch) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))

	headers, err := t.helixHeaders(ctx)
	if err != nil {
		return nil, err
	}
	if headers == nil {
		t.log.Debug().Msg("no client credentials, skipping helix lookup")
		return nil, nil
	}

	resp, err := t.get(ctx, twitchAPIBase+"/users?login="+url.QueryEscape(username), headers)
	if err != nil {
		return nil, err
	}
	if err := t.statusErr(resp); err != nil {
		return nil, err
	}

	user := resp.JSON().Get("data.0")
	if !user.Exists() {
		return nil, ErrNotFound
	}

	return &models.NormalizedProfile{
		Platform:        extract.PlatformTwitch,
		Username:        strings.ToLower(user.Get("login").String()),
		ProfileURL:      t.ProfileURL(username),
		DisplayName:     user.Get("display_name").String(),
		Bio:             user.Get("description").String(),
		ProfileImageURL: user.Get("profile_image_url").String(),
		BannerImageURL:  user.Get("offline_image_url").String(),
		CreatedAt:       parseTime(user.Get("created_at").String()),
		Raw:             rawMap(user),
	}, nil
}

func (t *Twitch) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	headers, err := t.helixHeaders(ctx)
	if err != nil || headers == nil {
		return nil, err
	}

	profile, err := t.FetchProfile(ctx, username)
	if err != nil || profile == nil {
		return nil, err
	}
	userID, _ := profile.Raw["id"].(string)
	if userID == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/videos?user_id=%s&first=%d", twitchAPIBase, url.QueryEscape(userID), min(maxItems, 100))
	resp, err := t.get(ctx, endpoint, headers)
	if err != nil {
		return nil, err
	}
	if err := t.statusErr(resp); err != nil {
		return nil, err
	}

	var posts []models.NormalizedPost
	for _, video := range resp.JSON().Get("data").Array() {
		if len(posts) >= maxItems {
			break
		}
		posts = append(posts, models.NormalizedPost{
			Platform:  extract.PlatformTwitch,
			Username:  profile.Username,
			PostID:    video.Get("id").String(),
			URL:       video.Get("url").String(),
			Title:     video.Get("title").String(),
			Content:   video.Get("description").String(),
			CreatedAt: parseTime(video.Get("created_at").String()),
			ViewCount: optInt(video.Get("view_count")),
			Raw:       rawMap(video),
		})
	}
	return posts, nil
}
