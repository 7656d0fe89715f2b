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

// Facebook идет в Graph API при наличии токена, иначе падает на
// Open Graph meta-скрейп публичной страницы. Постов нет.
type Facebook struct {
	base
}

func NewFacebook(deps Deps) *Facebook {
	return &Facebook{
		base: newBase(extract.PlatformFacebook, deps, limits.RateLimitPolicy{Requests: 20, Per: time.Minute}),
	}
}

func (f *Facebook) Platform() string { return extract.PlatformFacebook }

func (f *Facebook) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformFacebook, username)
}

func (f *Facebook) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	username = strings.TrimPrefix(username, "@")

	token, ok, err := f.token(extract.PlatformFacebook)
	if err != nil {
		return nil, err
	}
	if ok {
		profile, err := f.fetchGraph(ctx, username, token)
		if err == nil && profile != nil {
			return profile, nil
		}
		if err != nil && err != ErrNotFound {
			f.log.Info().Err(err).Msg("graph API failed, falling back to OG scrape")
		}
	}
	return ScrapeOpenGraph(ctx, &f.base, extract.PlatformFacebook, username, f.ProfileURL(username))
}

func (f *Facebook) fetchGraph(ctx context.Context, username, token string) (*models.NormalizedProfile, error) {
	endpoint := fmt.Sprintf(
		"https://graph.facebook.com/v19.0/%s?fields=id,name,about,link,picture.type(large)&access_token=%s",
		url.PathEscape(username), url.QueryEscape(token),
	)
	resp, err := f.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := f.statusErr(resp); err != nil {
		return nil, err
	}

	data := resp.JSON()
	if data.Get("id").String() == "" {
		return nil, ErrNotFound
	}

	return &models.NormalizedProfile{
		Platform:        extract.PlatformFacebook,
		Username:        strings.ToLower(username),
		ProfileURL:      f.ProfileURL(username),
		DisplayName:     data.Get("name").String(),
		Bio:             data.Get("about").String(),
		ProfileImageURL: data.Get("picture.data.url").String(),
		Raw:             rawMap(data),
	}, nil
}

func (f *Facebook) FetchPosts(_ context.Context, _ string, _ int) ([]models.NormalizedPost, error) {
	return nil, nil
}
