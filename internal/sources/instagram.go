package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// sharedDataPattern вырезает window._sharedData из HTML профиля.
var sharedDataPattern = regexp.MustCompile(`window\._sharedData\s*=\s*(\{.+?\});</script>`)

// Instagram — чистый best-effort скрейп: сначала ?__a=1 JSON, на промахе
// window._sharedData из HTML. Смена недокументированной формы ответа
// дает nil-профиль с warn-логом, не ошибку.
type Instagram struct {
	base
}

func NewInstagram(deps Deps) *Instagram {
	return &Instagram{
		base: newBase(extract.PlatformInstagram, deps, limits.RateLimitPolicy{Requests: 20, Per: time.Minute}),
	}
}

func (i *Instagram) Platform() string { return extract.PlatformInstagram }

func (i *Instagram) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformInstagram, username)
}

func (i *Instagram) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	user, err := i.fetchUserNode(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return i.normalizeUser(username, *user), nil
}

func (i *Instagram) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	user, err := i.fetchUserNode(ctx, username)
	if err != nil || user == nil {
		return nil, err
	}

	lower := strings.ToLower(strings.TrimPrefix(username, "@"))
	var posts []models.NormalizedPost
	for _, edge := range user.Get("edge_owner_to_timeline_media.edges").Array() {
		if len(posts) >= maxItems {
			break
		}
		node := edge.Get("node")
		caption := node.Get("edge_media_to_caption.edges.0.node.text").String()
		posts = append(posts, models.NormalizedPost{
			Platform:     extract.PlatformInstagram,
			Username:     lower,
			PostID:       node.Get("shortcode").String(),
			URL:          "https://www.instagram.com/p/" + node.Get("shortcode").String() + "/",
			Content:      caption,
			CreatedAt:    unixTime(node.Get("taken_at_timestamp").Float()),
			LikeCount:    optInt(node.Get("edge_liked_by.count")),
			CommentCount: optInt(node.Get("edge_media_to_comment.count")),
			MediaURLs:    []string{node.Get("display_url").String()},
			Hashtags:     extract.Hashtags(caption),
			Mentions:     extract.Mentions(caption),
			Raw:          rawMap(node),
		})
	}
	return posts, nil
}

// fetchUserNode возвращает graphql-узел пользователя либо nil, когда обе
// формы ответа недоступны.
func (i *Instagram) fetchUserNode(ctx context.Context, username string) (*gjson.Result, error) {
	username = strings.TrimPrefix(username, "@")

	endpoint := fmt.Sprintf("https://www.instagram.com/%s/?__a=1&__d=dis", url.PathEscape(username))
	resp, err := i.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == 404 {
		return nil, ErrNotFound
	}
	if resp.OK() {
		if user := resp.JSON().Get("graphql.user"); user.Exists() {
			return &user, nil
		}
	}

	// Fallback: HTML с window._sharedData.
	htmlResp, err := i.get(ctx, i.ProfileURL(username), nil)
	if err != nil {
		return nil, err
	}
	if htmlResp.Status == 404 {
		return nil, ErrNotFound
	}
	if !htmlResp.OK() {
		i.log.Warn().Int("status", htmlResp.Status).Msg("profile page unavailable")
		return nil, nil
	}

	m := sharedDataPattern.FindStringSubmatch(htmlResp.Body)
	if m == nil {
		i.log.Warn().Msg("sharedData payload missing, page shape changed")
		return nil, nil
	}
	user := gjson.Parse(m[1]).Get("entry_data.ProfilePage.0.graphql.user")
	if !user.Exists() {
		i.log.Warn().Msg("sharedData present but user node missing")
		return nil, nil
	}
	return &user, nil
}

func (i *Instagram) normalizeUser(username string, user gjson.Result) *models.NormalizedProfile {
	name := user.Get("username").String()
	if name == "" {
		name = strings.TrimPrefix(username, "@")
	}
	return &models.NormalizedProfile{
		Platform:        extract.PlatformInstagram,
		Username:        strings.ToLower(name),
		ProfileURL:      i.ProfileURL(name),
		DisplayName:     user.Get("full_name").String(),
		Bio:             user.Get("biography").String(),
		Verified:        optBool(user.Get("is_verified")),
		FollowerCount:   optInt(user.Get("edge_followed_by.count")),
		FollowingCount:  optInt(user.Get("edge_follow.count")),
		PostCount:       optInt(user.Get("edge_owner_to_timeline_media.count")),
		ProfileImageURL: user.Get("profile_pic_url_hd").String(),
		Raw:             rawMap(user),
	}
}
