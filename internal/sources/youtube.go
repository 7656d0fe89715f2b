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

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// YouTube требует API-ключ (YOUTUBE_TOKENS); без ключа адаптер отдает
// nil и профиль уходит в OG fallback.
type YouTube struct {
	base
}

func NewYouTube(deps Deps) *YouTube {
	return &YouTube{
		base: newBase(extract.PlatformYouTube, deps, limits.RateLimitPolicy{Requests: 30, Per: time.Minute}),
	}
}

func (y *YouTube) Platform() string { return extract.PlatformYouTube }

func (y *YouTube) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformYouTube, username)
}

func (y *YouTube) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	handle := strings.TrimPrefix(username, "@")

	key, ok, err := y.token(extract.PlatformYouTube)
	if err != nil {
		return nil, err
	}
	if !ok {
		y.log.Debug().Msg("no API key, skipping channel lookup")
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/channels?part=snippet,statistics&forHandle=%s&key=%s",
		youtubeAPIBase, url.QueryEscape("@"+handle), url.QueryEscape(key))
	resp, err := y.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := y.statusErr(resp); err != nil {
		return nil, err
	}

	item := resp.JSON().Get("items.0")
	if !item.Exists() {
		return nil, ErrNotFound
	}

	return &models.NormalizedProfile{
		Platform:        extract.PlatformYouTube,
		Username:        strings.ToLower(handle),
		ProfileURL:      y.ProfileURL(handle),
		DisplayName:     item.Get("snippet.title").String(),
		Bio:             item.Get("snippet.description").String(),
		Location:        item.Get("snippet.country").String(),
		FollowerCount:   optInt(item.Get("statistics.subscriberCount")),
		PostCount:       optInt(item.Get("statistics.videoCount")),
		ProfileImageURL: item.Get("snippet.thumbnails.high.url").String(),
		CreatedAt:       parseTime(item.Get("snippet.publishedAt").String()),
		Raw:             rawMap(item),
	}, nil
}

func (y *YouTube) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	key, ok, err := y.token(extract.PlatformYouTube)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	profile, err := y.FetchProfile(ctx, username)
	if err != nil || profile == nil {
		return nil, err
	}
	channelID, _ := profile.Raw["id"].(string)
	if channelID == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/search?part=snippet&channelId=%s&order=date&type=video&maxResults=%d&key=%s",
		youtubeAPIBase, url.QueryEscape(channelID), min(maxItems, 50), url.QueryEscape(key))
	resp, err := y.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := y.statusErr(resp); err != nil {
		return nil, err
	}

	var posts []models.NormalizedPost
	for _, item := range resp.JSON().Get("items").Array() {
		if len(posts) >= maxItems {
			break
		}
		videoID := item.Get("id.videoId").String()
		posts = append(posts, models.NormalizedPost{
			Platform:  extract.PlatformYouTube,
			Username:  profile.Username,
			PostID:    videoID,
			URL:       "https://www.youtube.com/watch?v=" + videoID,
			Title:     item.Get("snippet.title").String(),
			Content:   item.Get("snippet.description").String(),
			CreatedAt: parseTime(item.Get("snippet.publishedAt").String()),
			MediaURLs: []string{item.Get("snippet.thumbnails.high.url").String()},
			Raw:       rawMap(item),
		})
	}
	return posts, nil
}
