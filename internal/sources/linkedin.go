package sources

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// LinkedIn скрейпит публичную страницу: JSON-LD блок + title.
// Формы недокументированные, любой промах — nil-профиль с warn-логом.
type LinkedIn struct {
	base
}

func NewLinkedIn(deps Deps) *LinkedIn {
	return &LinkedIn{
		base: newBase(extract.PlatformLinkedIn, deps, limits.RateLimitPolicy{Requests: 10, Per: time.Minute}),
	}
}

func (l *LinkedIn) Platform() string { return extract.PlatformLinkedIn }

func (l *LinkedIn) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformLinkedIn, username)
}

func (l *LinkedIn) FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error) {
	username = strings.TrimPrefix(username, "@")

	resp, err := l.get(ctx, l.ProfileURL(username), nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == 404 {
		return nil, ErrNotFound
	}
	if !resp.OK() {
		// LinkedIn агрессивно режет ботов (999/429) — это не "нет профиля".
		l.log.Warn().Int("status", resp.Status).Msg("profile page blocked or unavailable")
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		l.log.Warn().Err(err).Msg("profile HTML unparseable")
		return nil, nil
	}

	profile := &models.NormalizedProfile{
		Platform:   extract.PlatformLinkedIn,
		Username:   strings.ToLower(username),
		ProfileURL: l.ProfileURL(username),
		Raw:        map[string]any{},
	}

	// JSON-LD несет структурированную карточку персоны.
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ld := gjson.Parse(s.Text())
		person := ld.Get(`\@graph.#(\@type=="Person")`)
		if !person.Exists() && ld.Get(`\@type`).String() == "Person" {
			person = ld
		}
		if !person.Exists() {
			return true
		}
		profile.DisplayName = person.Get("name").String()
		profile.Bio = person.Get("description").String()
		profile.Location = person.Get("address.addressLocality").String()
		profile.ProfileImageURL = person.Get("image.contentUrl").String()
		profile.Raw = rawMap(person)
		return false
	})

	if profile.DisplayName == "" {
		title := strings.TrimSpace(doc.Find("title").Text())
		if title == "" {
			l.log.Warn().Msg("no JSON-LD and no title, page shape changed")
			return nil, nil
		}
		// "Имя Фамилия | LinkedIn" → имя.
		profile.DisplayName = strings.TrimSpace(strings.SplitN(title, "|", 2)[0])
	}
	return profile, nil
}

func (l *LinkedIn) FetchPosts(_ context.Context, _ string, _ int) ([]models.NormalizedPost, error) {
	return nil, nil
}
