package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// Mastodon разбирает handle вида user@instance (по умолчанию
// mastodon.social) и ищет аккаунт через api/v2/search на его инстансе.
type Mastodon struct {
	base
}

func NewMastodon(deps Deps) *Mastodon {
	return &Mastodon{
		base: newBase(extract.PlatformMastodon, deps, limits.RateLimitPolicy{Requests: 30, Per: time.Minute}),
	}
}

func (m *Mastodon) Platform() string { return extract.PlatformMastodon }

func (m *Mastodon) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformMastodon, username)
}

// lookupAccount возвращает аккаунт-узел и инстанс, на котором он найден.
func (m *Mastodon) lookupAccount(ctx context.Context, handle string) (map[string]any, string, error) {
	user, instance := extract.SplitMastodonHandle(handle)

	endpoint := fmt.Sprintf("https://%s/api/v2/search?q=%s&type=accounts&limit=5",
		instance, url.QueryEscape(user))
	resp, err := m.get(ctx, endpoint, nil)
	if err != nil {
		return nil, instance, err
	}
	if err := m.statusErr(resp); err != nil {
		return nil, instance, err
	}

	for _, acct := range resp.JSON().Get("accounts").Array() {
		name := acct.Get("username").String()
		if strings.EqualFold(name, user) {
			return rawMap(acct), instance, nil
		}
	}
	return nil, instance, ErrNotFound
}

func (m *Mastodon) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	acct, instance, err := m.lookupAccount(ctx, username)
	if err != nil {
		return nil, err
	}

	str := func(key string) string {
		v, _ := acct[key].(string)
		return v
	}
	num := func(key string) *int64 {
		v, ok := acct[key].(float64)
		if !ok {
			return nil
		}
		n := int64(v)
		return &n
	}

	user, _ := extract.SplitMastodonHandle(username)
	profile := &models.NormalizedProfile{
		Platform:        extract.PlatformMastodon,
		Username:        strings.ToLower(user + "@" + instance),
		ProfileURL:      "https://" + instance + "/@" + user,
		DisplayName:     str("display_name"),
		Bio:             stripHTMLTags(str("note")),
		FollowerCount:   num("followers_count"),
		FollowingCount:  num("following_count"),
		PostCount:       num("statuses_count"),
		ProfileImageURL: str("avatar"),
		BannerImageURL:  str("header"),
		CreatedAt:       parseTime(str("created_at")),
		Raw:             acct,
	}
	return profile, nil
}

func (m *Mastodon) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	acct, instance, err := m.lookupAccount(ctx, username)
	if err != nil {
		return nil, err
	}
	id, _ := acct["id"].(string)
	if id == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("https://%s/api/v1/accounts/%s/statuses?limit=%d",
		instance, url.PathEscape(id), min(maxItems, 40))
	resp, err := m.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := m.statusErr(resp); err != nil {
		return nil, err
	}

	user, _ := extract.SplitMastodonHandle(username)
	lower := strings.ToLower(user + "@" + instance)

	var posts []models.NormalizedPost
	for _, status := range resp.JSON().Array() {
		if len(posts) >= maxItems {
			break
		}
		content := stripHTMLTags(status.Get("content").String())
		var media []string
		for _, att := range status.Get("media_attachments").Array() {
			media = append(media, att.Get("url").String())
		}
		posts = append(posts, models.NormalizedPost{
			Platform:     extract.PlatformMastodon,
			Username:     lower,
			PostID:       status.Get("id").String(),
			URL:          status.Get("url").String(),
			Content:      content,
			CreatedAt:    parseTime(status.Get("created_at").String()),
			LikeCount:    optInt(status.Get("favourites_count")),
			CommentCount: optInt(status.Get("replies_count")),
			ShareCount:   optInt(status.Get("reblogs_count")),
			MediaURLs:    media,
			Hashtags:     extract.Hashtags(content),
			Mentions:     extract.Mentions(content),
			Raw:          rawMap(status),
		})
	}
	return posts, nil
}
