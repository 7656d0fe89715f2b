package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// Поддерживаемые платформы.
const (
	PlatformTwitter   = "twitter"
	PlatformReddit    = "reddit"
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
	PlatformFacebook  = "facebook"
	PlatformLinkedIn  = "linkedin"
	PlatformYouTube   = "youtube"
	PlatformGitHub    = "github"
	PlatformMedium    = "medium"
	PlatformMastodon  = "mastodon"
	PlatformBluesky   = "bluesky"
	PlatformDiscord   = "discord"
	PlatformTwitch    = "twitch"
)

// DefaultMastodonInstance используется, когда handle не содержит инстанса.
const DefaultMastodonInstance = "mastodon.social"

// hostPlatforms — фиксированная таблица "хост → платформа".
var hostPlatforms = map[string]string{
	"twitter.com":   PlatformTwitter,
	"x.com":         PlatformTwitter,
	"reddit.com":    PlatformReddit,
	"redd.it":       PlatformReddit,
	"instagram.com": PlatformInstagram,
	"tiktok.com":    PlatformTikTok,
	"facebook.com":  PlatformFacebook,
	"fb.com":        PlatformFacebook,
	"linkedin.com":  PlatformLinkedIn,
	"youtube.com":   PlatformYouTube,
	"youtu.be":      PlatformYouTube,
	"github.com":    PlatformGitHub,
	"medium.com":    PlatformMedium,
	"bsky.app":      PlatformBluesky,
	"discord.com":   PlatformDiscord,
	"discord.gg":    PlatformDiscord,
	"twitch.tv":     PlatformTwitch,
}

// discordIDPattern — snowflake-идентификатор Discord (16–20 цифр).
var discordIDPattern = regexp.MustCompile(`^[0-9]{16,20}$`)

// mastodonPathPattern — путь вида /@user на неизвестном домене.
var mastodonPathPattern = regexp.MustCompile(`^/@[A-Za-z0-9_.\-]+/?$`)

// зарезервированные первые сегменты путей, не являющиеся username.
var reservedSegments = map[string]map[string]struct{}{
	PlatformTwitter:   setOf("home", "search", "explore", "hashtag", "i", "intent", "share", "settings", "notifications", "messages"),
	PlatformInstagram: setOf("p", "reel", "reels", "explore", "stories", "accounts", "direct"),
	PlatformFacebook:  setOf("profile.php", "pages", "groups", "events", "marketplace", "watch", "sharer", "share"),
	PlatformGitHub:    setOf("orgs", "topics", "trending", "marketplace", "sponsors", "features", "pulls", "issues", "notifications", "settings", "login", "join"),
	PlatformTwitch:    setOf("directory", "videos", "settings", "downloads", "p"),
	PlatformTikTok:    setOf("discover", "tag", "music", "live"),
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// IdentifyPlatform определяет платформу по хосту ссылки. Неизвестный домен
// с путем /@user трактуется как mastodon-инстанс.
func IdentifyPlatform(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if p, ok := hostPlatforms[host]; ok {
		return p, true
	}
	for suffix, p := range hostPlatforms {
		if strings.HasSuffix(host, "."+suffix) {
			return p, true
		}
	}

	if mastodonPathPattern.MatchString(u.Path) {
		return PlatformMastodon, true
	}
	return "", false
}

// UsernameFromURL извлекает username из ссылки платформенно-специфичным
// разбором пути. Пустой второй результат — извлечь не удалось.
func UsernameFromURL(platform, rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	segs := splitPath(u.Path)
	if len(segs) == 0 {
		return "", false
	}

	switch platform {
	case PlatformReddit:
		if len(segs) >= 2 && (segs[0] == "user" || segs[0] == "u") {
			return segs[1], true
		}
	case PlatformLinkedIn:
		if len(segs) >= 2 && (segs[0] == "in" || segs[0] == "company" || segs[0] == "pub") {
			return segs[1], true
		}
	case PlatformYouTube:
		if strings.HasPrefix(segs[0], "@") {
			return strings.TrimPrefix(segs[0], "@"), true
		}
		if len(segs) >= 2 && (segs[0] == "c" || segs[0] == "user" || segs[0] == "channel") {
			return segs[1], true
		}
	case PlatformMedium, PlatformMastodon:
		if strings.HasPrefix(segs[0], "@") {
			return strings.TrimPrefix(segs[0], "@"), true
		}
	case PlatformTikTok:
		if strings.HasPrefix(segs[0], "@") {
			name := strings.TrimPrefix(segs[0], "@")
			if !reserved(platform, name) {
				return name, true
			}
		}
	case PlatformBluesky:
		if len(segs) >= 2 && segs[0] == "profile" {
			return segs[1], true
		}
	case PlatformDiscord:
		if len(segs) >= 2 && segs[0] == "users" && discordIDPattern.MatchString(segs[1]) {
			return segs[1], true
		}
	case PlatformTwitter, PlatformInstagram, PlatformFacebook, PlatformGitHub, PlatformTwitch:
		name := strings.TrimPrefix(segs[0], "@")
		if name != "" && !reserved(platform, name) {
			return name, true
		}
	}
	return "", false
}

func reserved(platform, seg string) bool {
	set, ok := reservedSegments[platform]
	if !ok {
		return false
	}
	_, bad := set[strings.ToLower(seg)]
	return bad
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// ProfileURL строит каноническую ссылку на профиль. Функция чистая и
// детерминированная: один и тот же вход всегда дает одну и ту же ссылку.
func ProfileURL(platform, username string) string {
	u := strings.TrimPrefix(strings.TrimSpace(username), "@")

	switch platform {
	case PlatformTwitter:
		return "https://x.com/" + u
	case PlatformReddit:
		return "https://www.reddit.com/user/" + u + "/"
	case PlatformInstagram:
		return "https://www.instagram.com/" + u + "/"
	case PlatformTikTok:
		return "https://www.tiktok.com/@" + u
	case PlatformFacebook:
		return "https://www.facebook.com/" + u
	case PlatformLinkedIn:
		return "https://www.linkedin.com/in/" + u + "/"
	case PlatformYouTube:
		return "https://www.youtube.com/@" + u
	case PlatformGitHub:
		return "https://github.com/" + u
	case PlatformMedium:
		return "https://medium.com/@" + u
	case PlatformMastodon:
		user, instance := SplitMastodonHandle(username)
		return "https://" + instance + "/@" + user
	case PlatformBluesky:
		return "https://bsky.app/profile/" + u
	case PlatformTwitch:
		return "https://www.twitch.tv/" + u
	case PlatformDiscord:
		if discordIDPattern.MatchString(u) {
			return "https://discord.com/users/" + u
		}
		return "https://discord.com/"
	}
	return ""
}

// SplitMastodonHandle разбирает handle вида user@instance; без инстанса
// используется DefaultMastodonInstance.
func SplitMastodonHandle(handle string) (user, instance string) {
	h := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if i := strings.IndexByte(h, '@'); i > 0 {
		return h[:i], h[i+1:]
	}
	return h, DefaultMastodonInstance
}

// AllPlatforms возвращает список всех поддерживаемых платформ в
// стабильном порядке.
func AllPlatforms() []string {
	return []string{
		PlatformTwitter, PlatformReddit, PlatformInstagram, PlatformTikTok,
		PlatformFacebook, PlatformLinkedIn, PlatformYouTube, PlatformGitHub,
		PlatformMedium, PlatformMastodon, PlatformBluesky, PlatformTwitch,
		PlatformDiscord,
	}
}

// IsDiscordID сообщает, похож ли идентификатор на snowflake Discord.
func IsDiscordID(s string) bool {
	return discordIDPattern.MatchString(s)
}
