package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

const redditBase = "https://www.reddit.com"

// Reddit ходит в публичные .json эндпоинты без авторизации.
type Reddit struct {
	base
}

func NewReddit(deps Deps) *Reddit {
	return &Reddit{
		base: newBase(extract.PlatformReddit, deps, limits.RateLimitPolicy{Requests: 60, Per: time.Minute}),
	}
}

func (r *Reddit) Platform() string { return extract.PlatformReddit }

func (r *Reddit) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformReddit, username)
}

func (r *Reddit) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	username = strings.TrimPrefix(username, "@")

	endpoint := fmt.Sprintf("%s/user/%s/about.json", redditBase, url.PathEscape(username))
	resp, err := r.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := r.statusErr(resp); err != nil {
		return nil, err
	}

	data := resp.JSON().Get("data")
	if !data.Exists() || data.Get("name").String() == "" {
		return nil, ErrNotFound
	}

	karma := data.Get("link_karma").Int() + data.Get("comment_karma").Int()
	profile := &models.NormalizedProfile{
		Platform:        extract.PlatformReddit,
		Username:        strings.ToLower(data.Get("name").String()),
		ProfileURL:      r.ProfileURL(username),
		DisplayName:     data.Get("subreddit.title").String(),
		Bio:             data.Get("subreddit.public_description").String(),
		Verified:        optBool(data.Get("verified")),
		FollowerCount:   optInt(data.Get("subreddit.subscribers")),
		PostCount:       &karma,
		ProfileImageURL: strings.SplitN(data.Get("icon_img").String(), "?", 2)[0],
		BannerImageURL:  strings.SplitN(data.Get("subreddit.banner_img").String(), "?", 2)[0],
		CreatedAt:       unixTime(data.Get("created_utc").Float()),
		Raw:             rawMap(data),
	}
	return profile, nil
}

// FetchPosts собирает сначала submissions, затем комментарии, каждый
// листинг пагинируется курсором after до maxItems либо пустой страницы.
func (r *Reddit) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	username = strings.TrimPrefix(username, "@")

	var posts []models.NormalizedPost
	for _, listing := range []string{"submitted", "comments"} {
		if len(posts) >= maxItems {
			break
		}
		page, err := r.fetchListing(ctx, username, listing, maxItems-len(posts))
		if err != nil {
			// Частичный сбой одного листинга не роняет весь батч.
			r.log.Info().Err(err).Str("listing", listing).Msg("listing fetch failed, keeping partial posts")
			continue
		}
		posts = append(posts, page...)
	}
	return posts, nil
}

func (r *Reddit) fetchListing(ctx context.Context, username, listing string, maxItems int) ([]models.NormalizedPost, error) {
	var posts []models.NormalizedPost
	after := ""
	for len(posts) < maxItems {
		endpoint := fmt.Sprintf("%s/user/%s/%s.json?limit=100", redditBase, url.PathEscape(username), listing)
		if after != "" {
			endpoint += "&after=" + url.QueryEscape(after)
		}

		resp, err := r.get(ctx, endpoint, nil)
		if err != nil {
			return posts, err
		}
		if err := r.statusErr(resp); err != nil {
			return posts, err
		}

		children := resp.JSON().Get("data.children").Array()
		if len(children) == 0 {
			break
		}
		for _, child := range children {
			if len(posts) >= maxItems {
				break
			}
			if post, ok := r.normalizeThing(username, child); ok {
				posts = append(posts, post)
			}
		}

		after = resp.JSON().Get("data.after").String()
		if after == "" {
			break
		}
	}
	return posts, nil
}

// normalizeThing ветвится по kind: t3 — пост, t1 — комментарий.
func (r *Reddit) normalizeThing(username string, child gjson.Result) (models.NormalizedPost, bool) {
	data := child.Get("data")
	if !data.Exists() {
		return models.NormalizedPost{}, false
	}

	post := models.NormalizedPost{
		Platform:     extract.PlatformReddit,
		Username:     strings.ToLower(username),
		PostID:       data.Get("name").String(),
		URL:          redditBase + data.Get("permalink").String(),
		CreatedAt:    unixTime(data.Get("created_utc").Float()),
		LikeCount:    optInt(data.Get("score")),
		CommentCount: optInt(data.Get("num_comments")),
		Raw:          rawMap(data),
	}

	switch child.Get("kind").String() {
	case "t3":
		post.Title = data.Get("title").String()
		post.Content = data.Get("selftext").String()
		if media := data.Get("url_overridden_by_dest").String(); media != "" {
			post.MediaURLs = []string{media}
		}
	case "t1":
		post.Content = data.Get("body").String()
	default:
		return models.NormalizedPost{}, false
	}

	post.Hashtags = extract.Hashtags(post.Content)
	post.Mentions = extract.Mentions(post.Content)
	return post, true
}
