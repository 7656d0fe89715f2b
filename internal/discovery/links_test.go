package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

func TestLinks_URLInBio(t *testing.T) {
	profile := &models.NormalizedProfile{
		Platform: "twitter",
		Username: "alice",
		Bio:      "code at https://github.com/alice, streams on https://twitch.tv/alicelive",
	}

	links := Links(profile, nil)

	require.NotEmpty(t, links)
	byPlatform := make(map[string]models.LinkedAccount)
	for _, l := range links {
		byPlatform[l.LinkedPlatform] = l
	}

	gh, ok := byPlatform["github"]
	require.True(t, ok)
	assert.Equal(t, "alice", gh.LinkedUsername)
	assert.Equal(t, 0.7, gh.Confidence)
	assert.Equal(t, "twitter", gh.FromPlatform)
	assert.Contains(t, gh.Evidence["url"], "github.com/alice")

	tw, ok := byPlatform["twitch"]
	require.True(t, ok)
	assert.Equal(t, "alicelive", tw.LinkedUsername)
}

func TestLinks_MentionsFanOutAcrossPlatforms(t *testing.T) {
	profile := &models.NormalizedProfile{
		Platform: "twitter",
		Username: "alice",
		Bio:      "collab with @bob",
	}

	links := Links(profile, nil)

	platforms := make(map[string]struct{})
	for _, l := range links {
		assert.Equal(t, "bob", l.LinkedUsername)
		assert.Equal(t, 0.35, l.Confidence)
		assert.NotEqual(t, profile.Platform, l.LinkedPlatform, "source platform is excluded")
		platforms[l.LinkedPlatform] = struct{}{}
	}
	// twitter itself is dropped from the five mention platforms
	assert.Len(t, platforms, 4)
}

func TestLinks_URLBeatsMention(t *testing.T) {
	profile := &models.NormalizedProfile{
		Platform: "twitter",
		Username: "alice",
		Bio:      "I am @alice on github too: https://github.com/alice",
	}

	links, seen := Links(profile, nil), 0
	for _, l := range links {
		if l.LinkedPlatform == "github" && l.LinkedUsername == "alice" {
			seen++
			assert.Equal(t, 0.7, l.Confidence, "explicit URL evidence wins over the mention")
		}
	}
	assert.Equal(t, 1, seen, "deduplicated by platform and username")
}

func TestLinks_PostsAndRawPayload(t *testing.T) {
	profile := &models.NormalizedProfile{
		Platform: "reddit",
		Username: "alice",
		Raw:      map[string]any{"about": map[string]any{"website": "https://medium.com/@alice"}},
	}
	posts := []models.NormalizedPost{
		{Content: "new video! https://youtube.com/@alicetube"},
	}

	links := Links(profile, posts)

	platforms := make(map[string]string)
	for _, l := range links {
		platforms[l.LinkedPlatform] = l.LinkedUsername
	}
	assert.Equal(t, "alice", platforms["medium"])
	assert.Equal(t, "alicetube", platforms["youtube"])
}

func TestLinks_SortedByConfidence(t *testing.T) {
	profile := &models.NormalizedProfile{
		Platform: "mastodon",
		Username: "alice",
		Bio:      "ping @bob, repo https://github.com/alice",
	}

	links := Links(profile, nil)

	for i := 1; i < len(links); i++ {
		assert.GreaterOrEqual(t, links[i-1].Confidence, links[i].Confidence)
	}
}

func TestLinks_NilProfile(t *testing.T) {
	assert.Nil(t, Links(nil, nil))
}
