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

const blueskyAPIBase = "https://public.api.bsky.app/xrpc"

// Bluesky работает через публичные XRPC-эндпоинты AppView без авторизации.
type Bluesky struct {
	base
}

func NewBluesky(deps Deps) *Bluesky {
	return &Bluesky{
		base: newBase(extract.PlatformBluesky, deps, limits.RateLimitPolicy{Requests: 60, Per: time.Minute}),
	}
}

func (b *Bluesky) Platform() string { return extract.PlatformBluesky }

func (b *Bluesky) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformBluesky, username)
}

// actor нормализует handle: голые имена дополняются .bsky.social.
func (b *Bluesky) actor(username string) string {
	u := strings.TrimPrefix(strings.TrimSpace(username), "@")
	if !strings.Contains(u, ".") {
		u += ".bsky.social"
	}
	return u
}

func (b *Bluesky) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	actor := b.actor(username)

	endpoint := fmt.Sprintf("%s/app.bsky.actor.getProfile?actor=%s", blueskyAPIBase, url.QueryEscape(actor))
	resp, err := b.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	// AppView отвечает 400 InvalidRequest на несуществующий handle.
	if resp.Status == 400 && strings.Contains(resp.Body, "Profile not found") {
		return nil, ErrNotFound
	}
	if err := b.statusErr(resp); err != nil {
		return nil, err
	}

	data := resp.JSON()
	if data.Get("handle").String() == "" {
		return nil, ErrNotFound
	}

	return &models.NormalizedProfile{
		Platform:        extract.PlatformBluesky,
		Username:        strings.ToLower(data.Get("handle").String()),
		ProfileURL:      b.ProfileURL(actor),
		DisplayName:     data.Get("displayName").String(),
		Bio:             data.Get("description").String(),
		FollowerCount:   optInt(data.Get("followersCount")),
		FollowingCount:  optInt(data.Get("followsCount")),
		PostCount:       optInt(data.Get("postsCount")),
		ProfileImageURL: data.Get("avatar").String(),
		BannerImageURL:  data.Get("banner").String(),
		CreatedAt:       parseTime(data.Get("createdAt").String()),
		Raw:             rawMap(data),
	}, nil
}

func (b *Bluesky) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	actor := b.actor(username)
	lower := strings.ToLower(actor)

	var posts []models.NormalizedPost
	cursor := ""
	for len(posts) < maxItems {
		endpoint := fmt.Sprintf("%s/app.bsky.feed.getAuthorFeed?actor=%s&limit=100", blueskyAPIBase, url.QueryEscape(actor))
		if cursor != "" {
			endpoint += "&cursor=" + url.QueryEscape(cursor)
		}

		resp, err := b.get(ctx, endpoint, nil)
		if err != nil {
			return posts, err
		}
		if err := b.statusErr(resp); err != nil {
			return posts, err
		}

		feed := resp.JSON().Get("feed").Array()
		if len(feed) == 0 {
			break
		}
		for _, entry := range feed {
			if len(posts) >= maxItems {
				break
			}
			post := entry.Get("post")
			text := post.Get("record.text").String()
			uri := post.Get("uri").String()
			rkey := uri[strings.LastIndexByte(uri, '/')+1:]
			posts = append(posts, models.NormalizedPost{
				Platform:     extract.PlatformBluesky,
				Username:     lower,
				PostID:       uri,
				URL:          "https://bsky.app/profile/" + actor + "/post/" + rkey,
				Content:      text,
				CreatedAt:    parseTime(post.Get("record.createdAt").String()),
				LikeCount:    optInt(post.Get("likeCount")),
				CommentCount: optInt(post.Get("replyCount")),
				ShareCount:   optInt(post.Get("repostCount")),
				Hashtags:     extract.Hashtags(text),
				Mentions:     extract.Mentions(text),
				Raw:          rawMap(post),
			})
		}

		cursor = resp.JSON().Get("cursor").String()
		if cursor == "" {
			break
		}
	}
	return posts, nil
}
