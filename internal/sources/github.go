package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

const githubAPIBase = "https://api.github.com"

// GitHub использует публичный REST API; токен поднимает лимиты и
// подставляется, когда есть.
type GitHub struct {
	base
}

func NewGitHub(deps Deps) *GitHub {
	return &GitHub{
		base: newBase(extract.PlatformGitHub, deps, limits.RateLimitPolicy{Requests: 30, Per: time.Minute}),
	}
}

func (g *GitHub) Platform() string { return extract.PlatformGitHub }

func (g *GitHub) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformGitHub, username)
}

func (g *GitHub) headers() (map[string]string, error) {
	h := map[string]string{"Accept": "application/vnd.github+json"}
	token, ok, err := g.token(extract.PlatformGitHub)
	if err != nil {
		return nil, err
	}
	if ok {
		h["Authorization"] = "Bearer " + token
	}
	return h, nil
}

func (g *GitHub) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	username = strings.TrimPrefix(username, "@")

	headers, err := g.headers()
	if err != nil {
		return nil, err
	}
	resp, err := g.get(ctx, githubAPIBase+"/users/"+url.PathEscape(username), headers)
	if err != nil {
		return nil, err
	}
	if err := g.statusErr(resp); err != nil {
		return nil, err
	}

	data := resp.JSON()
	if data.Get("login").String() == "" {
		return nil, ErrNotFound
	}

	profile := &models.NormalizedProfile{
		Platform:        extract.PlatformGitHub,
		Username:        strings.ToLower(data.Get("login").String()),
		ProfileURL:      g.ProfileURL(username),
		DisplayName:     data.Get("name").String(),
		Bio:             data.Get("bio").String(),
		Location:        data.Get("location").String(),
		FollowerCount:   optInt(data.Get("followers")),
		FollowingCount:  optInt(data.Get("following")),
		PostCount:       optInt(data.Get("public_repos")),
		ProfileImageURL: data.Get("avatar_url").String(),
		CreatedAt:       parseTime(data.Get("created_at").String()),
		Raw:             rawMap(data),
	}
	return profile, nil
}

// FetchPosts отдает публичные события аккаунта как посты.
func (g *GitHub) FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error) {
	username = strings.TrimPrefix(username, "@")

	headers, err := g.headers()
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/users/%s/events/public?per_page=100", githubAPIBase, url.PathEscape(username))
	resp, err := g.get(ctx, endpoint, headers)
	if err != nil {
		return nil, err
	}
	if err := g.statusErr(resp); err != nil {
		return nil, err
	}

	var posts []models.NormalizedPost
	for _, ev := range resp.JSON().Array() {
		if len(posts) >= maxItems {
			break
		}
		repo := ev.Get("repo.name").String()
		content := ev.Get("payload.commits.0.message").String()
		posts = append(posts, models.NormalizedPost{
			Platform:  extract.PlatformGitHub,
			Username:  strings.ToLower(username),
			PostID:    ev.Get("id").String(),
			URL:       "https://github.com/" + repo,
			Title:     ev.Get("type").String() + " " + repo,
			Content:   content,
			CreatedAt: parseTime(ev.Get("created_at").String()),
			Raw:       rawMap(ev),
		})
	}
	return posts, nil
}

// MineCommitEmails обходит до maxRepos репозиториев по maxCommits коммитов
// в каждом и собирает авторские адреса, отбрасывая noreply. Частичные
// сбои отдельных репозиториев пропускаются.
func (g *GitHub) MineCommitEmails(ctx context.Context, username string, maxRepos, maxCommits int) ([]string, error) {
	username = strings.TrimPrefix(username, "@")

	headers, err := g.headers()
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/users/%s/repos?sort=pushed&per_page=%d", githubAPIBase, url.PathEscape(username), maxRepos)
	resp, err := g.get(ctx, endpoint, headers)
	if err != nil {
		return nil, err
	}
	if err := g.statusErr(resp); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, repo := range resp.JSON().Array() {
		if repo.Get("fork").Bool() {
			continue
		}
		full := repo.Get("full_name").String()
		if full == "" {
			continue
		}

		commitsURL := fmt.Sprintf("%s/repos/%s/commits?per_page=%d&author=%s",
			githubAPIBase, full, maxCommits, url.QueryEscape(username))
		commitsResp, err := g.get(ctx, commitsURL, headers)
		if err != nil || commitsResp.Status >= 400 {
			continue
		}
		for _, c := range commitsResp.JSON().Array() {
			email := strings.ToLower(c.Get("commit.author.email").String())
			if email == "" || strings.Contains(email, "noreply") {
				continue
			}
			seen[email] = struct{}{}
		}
	}

	emails := make([]string, 0, len(seen))
	for e := range seen {
		emails = append(emails, e)
	}
	sort.Strings(emails)
	return emails, nil
}
