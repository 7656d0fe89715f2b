package sources

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/Socialrecon/internal/models"
	"github.com/BetterCallFirewall/Socialrecon/internal/transport"
)

// ogMetaKeys — теги, любой из которых достаточен для синтеза профиля.
var ogMetaKeys = []string{"og:title", "og:description", "og:image", "twitter:title", "twitter:image"}

// parseOpenGraph вытаскивает og:/twitter: мета-теги и description.
func parseOpenGraph(body string) map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	meta := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, _ := s.Attr("property")
		if key == "" {
			key, _ = s.Attr("name")
		}
		content, _ := s.Attr("content")
		if key == "" || content == "" {
			return
		}
		switch key {
		case "og:title", "og:description", "og:image", "twitter:title", "twitter:image", "description":
			if _, exists := meta[key]; !exists {
				meta[key] = content
			}
		}
	})
	return meta
}

// synthesizeOGProfile собирает минимальный профиль из мета-тегов.
// Возвращает nil, когда ни одного пригодного тега нет.
func synthesizeOGProfile(platform, username, profileURL string, meta map[string]string) *models.NormalizedProfile {
	usable := false
	for _, key := range ogMetaKeys {
		if meta[key] != "" {
			usable = true
			break
		}
	}
	if !usable {
		return nil
	}

	title := meta["og:title"]
	if title == "" {
		title = meta["twitter:title"]
	}
	bio := meta["og:description"]
	if bio == "" {
		bio = meta["description"]
	}
	image := meta["og:image"]
	if image == "" {
		image = meta["twitter:image"]
	}

	raw := map[string]any{"scrape_fallback": true}
	for k, v := range meta {
		raw[k] = v
	}

	return &models.NormalizedProfile{
		Platform:        platform,
		Username:        strings.ToLower(strings.TrimPrefix(username, "@")),
		ProfileURL:      profileURL,
		DisplayName:     title,
		Bio:             bio,
		ProfileImageURL: image,
		Raw:             raw,
	}
}

// ScrapeOpenGraph — скрейп под лимитером адаптера (используется Facebook).
func ScrapeOpenGraph(ctx context.Context, b *base, platform, username, profileURL string) (*models.NormalizedProfile, error) {
	resp, err := b.get(ctx, profileURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == 404 {
		return nil, ErrNotFound
	}
	if !resp.OK() {
		return nil, nil
	}
	return synthesizeOGProfile(platform, username, profileURL, parseOpenGraph(resp.Body)), nil
}

// Fallback — последняя линия: когда адаптер вернул nil-профиль,
// оркестратор скрейпит profile_url и синтезирует профиль из og-тегов.
type Fallback struct {
	tr  transport.Transport
	log zerolog.Logger
}

func NewFallback(tr transport.Transport, log zerolog.Logger) *Fallback {
	return &Fallback{tr: tr, log: log.With().Str("component", "og_fallback").Logger()}
}

// Profile возвращает (nil, nil), если страница не дала ни одного og-тега.
func (f *Fallback) Profile(ctx context.Context, platform, username, profileURL string) (*models.NormalizedProfile, error) {
	if profileURL == "" {
		return nil, nil
	}
	resp, err := f.tr.Get(ctx, profileURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == 404 {
		return nil, ErrNotFound
	}
	if !resp.OK() {
		f.log.Debug().Str("platform", platform).Int("status", resp.Status).Msg("scrape unavailable")
		return nil, nil
	}
	return synthesizeOGProfile(platform, username, profileURL, parseOpenGraph(resp.Body)), nil
}
