package sources

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// sigiStatePattern вырезает JSON из <script id="SIGI_STATE">.
var sigiStatePattern = regexp.MustCompile(`<script id="SIGI_STATE"[^>]*>(\{.+?\})</script>`)

// TikTok извлекает SIGI_STATE JSON из HTML страницы профиля; профиль и
// посты приходят одним и тем же payload.
type TikTok struct {
	base
}

func NewTikTok(deps Deps) *TikTok {
	return &TikTok{
		base: newBase(extract.PlatformTikTok, deps, limits.RateLimitPolicy{Requests: 20, Per: time.Minute}),
	}
}

func (t *TikTok) Platform() string { return extract.PlatformTikTok }

func (t *TikTok) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformTikTok, username)
}

func (t *TikTok) fetchState(ctx context.Context, username string) (gjson.Result, bool, error) {
	resp, err := t.get(ctx, t.ProfileURL(username), nil)
	if err != nil {
		return gjson.Result{}, false, err
	}
	if resp.Status == 404 {
		return gjson.Result{}, false, ErrNotFound
	}
	if !resp.OK() {
		t.log.Warn().Int("status", resp.Status).Msg("profile page unavailable")
		return gjson.Result{}, false, nil
	}

	m := sigiStatePattern.FindStringSubmatch(resp.Body)
	if m == nil {
		t.log.Warn().Msg("SIGI_STATE missing, page shape changed")
		return gjson.Result{}, false, nil
	}
	return gjson.Parse(m[1]), true, nil
}

func (t *TikTok) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	lower := strings.ToLower(strings.TrimPrefix(username, "@"))

	state, ok, err := t.fetchState(ctx, username)
	if err != nil || !ok {
		return nil, err
	}

	user := state.Get("UserModule.users." + lower)
	if !user.Exists() {
		t.log.Warn().Msg("user node missing in SIGI_STATE")
		return nil, nil
	}
	stats := state.Get("UserModule.stats." + lower)

	return &models.NormalizedProfile{
		Platform:        extract.PlatformTikTok,
		Username:        lower,
		ProfileURL:      t.ProfileURL(lower),
		DisplayName:     user.Get("nickname").String(),
		Bio:             user.Get("signature").String(),
		Verified:        optBool(user.Get("verified")),
		FollowerCount:   optInt(stats.Get("followerCount")),
		FollowingCount:  optInt(stats.Get("followingCount")),
		PostCount:       optInt(stats.Get("videoCount")),
		ProfileImageURL: user.Get("avatarLarger").String(),
		CreatedAt:       unixTime(user.Get("createTime").Float()),
		Raw:             rawMap(user),
	}, nil
}

func (t *TikTok) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	lower := strings.ToLower(strings.TrimPrefix(username, "@"))

	state, ok, err := t.fetchState(ctx, username)
	if err != nil || !ok {
		return nil, err
	}

	var posts []models.NormalizedPost
	state.Get("ItemModule").ForEach(func(_, item gjson.Result) bool {
		if len(posts) >= maxItems {
			return false
		}
		if !strings.EqualFold(item.Get("author").String(), lower) {
			return true
		}
		desc := item.Get("desc").String()
		posts = append(posts, models.NormalizedPost{
			Platform:     extract.PlatformTikTok,
			Username:     lower,
			PostID:       item.Get("id").String(),
			URL:          "https://www.tiktok.com/@" + lower + "/video/" + item.Get("id").String(),
			Content:      desc,
			CreatedAt:    unixTime(item.Get("createTime").Float()),
			LikeCount:    optInt(item.Get("stats.diggCount")),
			CommentCount: optInt(item.Get("stats.commentCount")),
			ShareCount:   optInt(item.Get("stats.shareCount")),
			ViewCount:    optInt(item.Get("stats.playCount")),
			Hashtags:     extract.Hashtags(desc),
			Mentions:     extract.Mentions(desc),
			Raw:          rawMap(item),
		})
		return true
	})
	return posts, nil
}
