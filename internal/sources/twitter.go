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

const twitterAPIBase = "https://api.twitter.com/2"

// Twitter работает через v2 API и требует bearer-токен: без токена
// профиль уходит в OG fallback, посты пропускаются.
type Twitter struct {
	base
}

func NewTwitter(deps Deps) *Twitter {
	return &Twitter{
		base: newBase(extract.PlatformTwitter, deps, limits.RateLimitPolicy{Requests: 15, Per: 15 * time.Minute}),
	}
}

func (t *Twitter) Platform() string { return extract.PlatformTwitter }

func (t *Twitter) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformTwitter, username)
}

func (t *Twitter) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	username = strings.TrimPrefix(username, "@")

	token, ok, err := t.token(extract.PlatformTwitter)
	if err != nil {
		return nil, err
	}
	if !ok {
		t.log.Debug().Msg("no bearer token, skipping API profile fetch")
		return nil, nil
	}

	endpoint := fmt.Sprintf(
		"%s/users/by/username/%s?user.fields=created_at,description,location,profile_image_url,public_metrics,verified,url",
		twitterAPIBase, url.PathEscape(username),
	)
	resp, err := t.get(ctx, endpoint, map[string]string{"Authorization": "Bearer " + token})
	if err != nil {
		return nil, err
	}
	if err := t.statusErr(resp); err != nil {
		return nil, err
	}

	data := resp.JSON().Get("data")
	if !data.Exists() || data.Get("username").String() == "" {
		// 2xx без пригодного тела трактуем как not found.
		return nil, ErrNotFound
	}

	verified := optBool(data.Get("verified"))
	profile := &models.NormalizedProfile{
		Platform:        extract.PlatformTwitter,
		Username:        strings.ToLower(data.Get("username").String()),
		ProfileURL:      t.ProfileURL(username),
		DisplayName:     data.Get("name").String(),
		Bio:             data.Get("description").String(),
		Location:        data.Get("location").String(),
		Verified:        verified,
		FollowerCount:   optInt(data.Get("public_metrics.followers_count")),
		FollowingCount:  optInt(data.Get("public_metrics.following_count")),
		PostCount:       optInt(data.Get("public_metrics.tweet_count")),
		ProfileImageURL: data.Get("profile_image_url").String(),
		CreatedAt:       parseTime(data.Get("created_at").String()),
		Raw:             rawMap(data),
	}
	return profile, nil
}

func (t *Twitter) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	token, ok, err := t.token(extract.PlatformTwitter)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Посты без bearer-токена недоступны в принципе.
		return nil, nil
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	profile, err := t.FetchProfile(ctx, username)
	if err != nil || profile == nil {
		return nil, err
	}
	userID, _ := profile.Raw["id"].(string)
	if userID == "" {
		return nil, nil
	}

	var posts []models.NormalizedPost
	nextToken := ""
	for len(posts) < maxItems {
		endpoint := fmt.Sprintf(
			"%s/users/%s/tweets?max_results=100&tweet.fields=created_at,public_metrics,entities",
			twitterAPIBase, userID,
		)
		if nextToken != "" {
			endpoint += "&pagination_token=" + url.QueryEscape(nextToken)
		}

		resp, err := t.get(ctx, endpoint, headers)
		if err != nil {
			return posts, err
		}
		if err := t.statusErr(resp); err != nil {
			return posts, err
		}

		page := resp.JSON()
		tweets := page.Get("data").Array()
		if len(tweets) == 0 {
			break
		}
		for _, tw := range tweets {
			if len(posts) >= maxItems {
				break
			}
			text := tw.Get("text").String()
			posts = append(posts, models.NormalizedPost{
				Platform:     extract.PlatformTwitter,
				Username:     profile.Username,
				PostID:       tw.Get("id").String(),
				URL:          "https://x.com/" + profile.Username + "/status/" + tw.Get("id").String(),
				Content:      text,
				CreatedAt:    parseTime(tw.Get("created_at").String()),
				LikeCount:    optInt(tw.Get("public_metrics.like_count")),
				CommentCount: optInt(tw.Get("public_metrics.reply_count")),
				ShareCount:   optInt(tw.Get("public_metrics.retweet_count")),
				Hashtags:     extract.Hashtags(text),
				Mentions:     extract.Mentions(text),
				Raw:          rawMap(tw),
			})
		}

		nextToken = page.Get("meta.next_token").String()
		if nextToken == "" {
			break
		}
	}
	return posts, nil
}
