package sources

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// Medium не имеет публичного API: метаданные RSS-канала играют роль
// профиля, его item'ы — посты. Лента скачивается нашим транспортом,
// чтобы лимитер и ретраи оставались в силе, и парсится gofeed.
type Medium struct {
	base
	parser *gofeed.Parser
}

func NewMedium(deps Deps) *Medium {
	return &Medium{
		base:   newBase(extract.PlatformMedium, deps, limits.RateLimitPolicy{Requests: 30, Per: time.Minute}),
		parser: gofeed.NewParser(),
	}
}

func (m *Medium) Platform() string { return extract.PlatformMedium }

func (m *Medium) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformMedium, username)
}

func (m *Medium) feedURL(username string) string {
	return "https://medium.com/feed/@" + strings.TrimPrefix(username, "@")
}

func (m *Medium) fetchFeed(ctx context.Context, username string) (*gofeed.Feed, error) {
	resp, err := m.get(ctx, m.feedURL(username), nil)
	if err != nil {
		return nil, err
	}
	if err := m.statusErr(resp); err != nil {
		return nil, err
	}

	feed, err := m.parser.ParseString(resp.Body)
	if err != nil {
		m.log.Warn().Err(err).Msg("feed unparseable")
		return nil, nil
	}
	return feed, nil
}

func (m *Medium) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	feed, err := m.fetchFeed(ctx, username)
	if err != nil || feed == nil {
		return nil, err
	}

	lower := strings.ToLower(strings.TrimPrefix(username, "@"))
	postCount := int64(len(feed.Items))
	profile := &models.NormalizedProfile{
		Platform:    extract.PlatformMedium,
		Username:    lower,
		ProfileURL:  m.ProfileURL(username),
		DisplayName: strings.TrimPrefix(feed.Title, "Stories by "),
		Bio:         feed.Description,
		PostCount:   &postCount,
		Raw: map[string]any{
			"feed_title": feed.Title,
			"feed_link":  feed.Link,
			"updated":    feed.Updated,
		},
	}
	if feed.Image != nil {
		profile.ProfileImageURL = feed.Image.URL
	}
	return profile, nil
}

func (m *Medium) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	feed, err := m.fetchFeed(ctx, username)
	if err != nil || feed == nil {
		return nil, err
	}

	lower := strings.ToLower(strings.TrimPrefix(username, "@"))
	var posts []models.NormalizedPost
	for _, item := range feed.Items {
		if len(posts) >= maxItems {
			break
		}
		content := item.Description
		if content == "" {
			content = item.Content
		}
		posts = append(posts, models.NormalizedPost{
			Platform:  extract.PlatformMedium,
			Username:  lower,
			PostID:    item.GUID,
			URL:       item.Link,
			Title:     item.Title,
			Content:   content,
			CreatedAt: item.PublishedParsed,
			Hashtags:  item.Categories,
			Raw:       map[string]any{"guid": item.GUID, "categories": item.Categories},
		})
	}
	return posts, nil
}
