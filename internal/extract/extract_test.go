package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmails(t *testing.T) {
	text := "Contact me at John.Doe@Example.COM or support@site.io, not at @handle"

	emails := Emails(text)

	assert.Equal(t, []string{"john.doe@example.com", "support@site.io"}, emails)
}

func TestEmails_Empty(t *testing.T) {
	assert.Empty(t, Emails("no addresses here"))
}

func TestURLs(t *testing.T) {
	text := "see https://github.com/alice, also www.example.com/page. And HTTP://Other.Org/x!"

	urls := URLs(text)

	assert.Contains(t, urls, "https://github.com/alice")
	// www-prefixed URLs get a scheme so downstream parsing works
	assert.Contains(t, urls, "https://www.example.com/page")
	// Trailing punctuation must be stripped
	for _, u := range urls {
		assert.NotContains(t, u, "!", "trailing punctuation should be trimmed: %s", u)
	}
}

func TestPhones(t *testing.T) {
	phones := Phones("call +1 415 555 2671 or (415) 555-2672")

	assert.Contains(t, phones, "+14155552671")
	assert.Contains(t, phones, "+14155552672")
}

func TestPhones_RejectsShortNumbers(t *testing.T) {
	assert.Empty(t, Phones("room 1234, floor 5"))
}

func TestHashtags(t *testing.T) {
	tags := Hashtags("loving #OSINT and #go_lang today #osint")

	assert.Equal(t, []string{"OSINT", "go_lang", "osint"}, tags)
}

func TestMentions(t *testing.T) {
	mentions := Mentions("shoutout to @alice and @bob.dev — write me at carol@mail.com")

	assert.Contains(t, mentions, "alice")
	assert.Contains(t, mentions, "bob.dev")
	// Email local parts must not leak in as mentions
	assert.NotContains(t, mentions, "mail.com")
	assert.NotContains(t, mentions, "carol")
}

func TestIdentifyPlatform(t *testing.T) {
	cases := map[string]string{
		"https://github.com/alice":            "github",
		"https://www.twitter.com/alice":       "twitter",
		"https://x.com/alice":                 "twitter",
		"https://reddit.com/user/alice":       "reddit",
		"https://mastodon.social/@alice":      "mastodon",
		"https://someinstance.example/@alice": "mastodon",
		"https://bsky.app/profile/alice.dev":  "bluesky",
	}
	for rawURL, want := range cases {
		got, ok := IdentifyPlatform(rawURL)
		assert.True(t, ok, rawURL)
		assert.Equal(t, want, got, rawURL)
	}

	_, ok := IdentifyPlatform("https://news.ycombinator.com/item?id=1")
	assert.False(t, ok)
}

func TestUsernameFromURL(t *testing.T) {
	cases := []struct {
		platform, url, want string
	}{
		{"github", "https://github.com/alice", "alice"},
		{"twitter", "https://x.com/alice/status/123", "alice"},
		{"reddit", "https://reddit.com/user/alice", "alice"},
		{"linkedin", "https://linkedin.com/in/alice-smith", "alice-smith"},
		{"youtube", "https://youtube.com/@alice", "alice"},
		{"medium", "https://medium.com/@alice", "alice"},
		{"tiktok", "https://tiktok.com/@alice", "alice"},
		{"bluesky", "https://bsky.app/profile/alice.bsky.social", "alice.bsky.social"},
	}
	for _, tc := range cases {
		got, ok := UsernameFromURL(tc.platform, tc.url)
		assert.True(t, ok, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}

func TestUsernameFromURL_Reserved(t *testing.T) {
	_, ok := UsernameFromURL("github", "https://github.com/settings")
	assert.False(t, ok, "reserved path segments are not usernames")

	_, ok = UsernameFromURL("twitter", "https://twitter.com/home")
	assert.False(t, ok)
}

func TestProfileURL(t *testing.T) {
	assert.Equal(t, "https://github.com/alice", ProfileURL("github", "alice"))
	assert.Equal(t, "https://www.reddit.com/user/alice/", ProfileURL("reddit", "alice"))
	assert.Equal(t, "https://mastodon.social/@alice", ProfileURL("mastodon", "alice"))
	assert.Equal(t, "https://hachyderm.io/@alice", ProfileURL("mastodon", "alice@hachyderm.io"))
}

func TestSplitMastodonHandle(t *testing.T) {
	user, instance := SplitMastodonHandle("alice@hachyderm.io")
	assert.Equal(t, "alice", user)
	assert.Equal(t, "hachyderm.io", instance)

	user, instance = SplitMastodonHandle("@bob")
	assert.Equal(t, "bob", user)
	assert.Equal(t, DefaultMastodonInstance, instance)
}

func TestIsDiscordID(t *testing.T) {
	assert.True(t, IsDiscordID("123456789012345678"))
	assert.False(t, IsDiscordID("alice"))
	assert.False(t, IsDiscordID("1234"))
}
