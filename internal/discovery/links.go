package discovery

import (
	"sort"
	"strings"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// Уверенности для двух видов улик: явная ссылка и голое упоминание.
const (
	urlConfidence     = 0.7
	mentionConfidence = 0.35
)

// mentionPlatforms — платформы, на которых @-упоминание правдоподобно
// означает одноименный аккаунт.
var mentionPlatforms = []string{
	extract.PlatformTwitter,
	extract.PlatformInstagram,
	extract.PlatformTikTok,
	extract.PlatformGitHub,
	extract.PlatformTwitch,
}

// Links извлекает кандидатов связанных аккаунтов из профиля и его постов.
// Результат детерминирован: дедуплицирован по (платформа, lower(имя))
// с максимальной уверенностью и отсортирован по убыванию уверенности.
func Links(profile *models.NormalizedProfile, posts []models.NormalizedPost) []models.LinkedAccount {
	if profile == nil {
		return nil
	}

	texts := []string{profile.Bio, profile.ProfileURL}
	texts = append(texts, rawStrings(profile.Raw)...)
	for _, post := range posts {
		texts = append(texts, post.Content, post.URL)
	}

	best := make(map[string]models.LinkedAccount)

	// Явные ссылки на чужие платформы.
	for _, text := range texts {
		for _, u := range extract.URLs(text) {
			platform, ok := extract.IdentifyPlatform(u)
			if !ok || platform == profile.Platform {
				continue
			}
			username, ok := extract.UsernameFromURL(platform, u)
			if !ok || username == "" {
				continue
			}
			keep(best, models.LinkedAccount{
				FromPlatform:   profile.Platform,
				FromUsername:   profile.Username,
				LinkedPlatform: platform,
				LinkedUsername: username,
				Confidence:     urlConfidence,
				Evidence:       map[string]string{"url": u},
			})
		}
	}

	// @-упоминания против фиксированного набора вероятных платформ.
	mentionTexts := []string{profile.Bio}
	for _, post := range posts {
		mentionTexts = append(mentionTexts, post.Content)
	}
	for _, text := range mentionTexts {
		for _, mention := range extract.Mentions(text) {
			for _, platform := range mentionPlatforms {
				if platform == profile.Platform {
					continue
				}
				keep(best, models.LinkedAccount{
					FromPlatform:   profile.Platform,
					FromUsername:   profile.Username,
					LinkedPlatform: platform,
					LinkedUsername: mention,
					Confidence:     mentionConfidence,
					Evidence:       map[string]string{"mention": "@" + mention},
				})
			}
		}
	}

	out := make([]models.LinkedAccount, 0, len(best))
	for _, acc := range best {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].LinkedPlatform != out[j].LinkedPlatform {
			return out[i].LinkedPlatform < out[j].LinkedPlatform
		}
		return out[i].LinkedUsername < out[j].LinkedUsername
	})
	return out
}

// keep оставляет запись с максимальной уверенностью на ключ.
func keep(best map[string]models.LinkedAccount, acc models.LinkedAccount) {
	key := acc.LinkedPlatform + ":" + strings.ToLower(acc.LinkedUsername)
	if prev, ok := best[key]; ok && prev.Confidence >= acc.Confidence {
		return
	}
	best[key] = acc
}

// rawStrings рекурсивно собирает все строковые значения payload'а.
func rawStrings(node any) []string {
	var out []string
	switch v := node.(type) {
	case string:
		out = append(out, v)
	case map[string]any:
		for _, child := range v {
			out = append(out, rawStrings(child)...)
		}
	case []any:
		for _, child := range v {
			out = append(out, rawStrings(child)...)
		}
	}
	return out
}
