package sources

import (
	"context"
	"time"

	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// Discord умеет смотреть только users/{id}: идентификатор должен быть
// snowflake (16–20 цифр), а в окружении — bot-токен. Иначе nil.
type Discord struct {
	base
}

func NewDiscord(deps Deps) *Discord {
	return &Discord{
		base: newBase(extract.PlatformDiscord, deps, limits.RateLimitPolicy{Requests: 30, Per: time.Minute}),
	}
}

func (d *Discord) Platform() string { return extract.PlatformDiscord }

func (d *Discord) ProfileURL(username string) string {
	return extract.ProfileURL(extract.PlatformDiscord, username)
}

func (d *Discord) FetchProfile(ctx context.Context, identifier string) (*models.NormalizedProfile, error) {
	if !extract.IsDiscordID(identifier) {
		return nil, nil
	}
	token, ok, err := d.token(extract.PlatformDiscord)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	resp, err := d.get(ctx, "https://discord.com/api/v10/users/"+identifier,
		map[string]string{"Authorization": "Bot " + token})
	if err != nil {
		return nil, err
	}
	if err := d.statusErr(resp); err != nil {
		return nil, err
	}

	data := resp.JSON()
	if data.Get("id").String() == "" {
		return nil, ErrNotFound
	}

	avatar := ""
	if hash := data.Get("avatar").String(); hash != "" {
		avatar = "https://cdn.discordapp.com/avatars/" + identifier + "/" + hash + ".png"
	}
	return &models.NormalizedProfile{
		Platform:        extract.PlatformDiscord,
		Username:        data.Get("username").String(),
		ProfileURL:      d.ProfileURL(identifier),
		DisplayName:     data.Get("global_name").String(),
		ProfileImageURL: avatar,
		Raw:             rawMap(data),
	}, nil
}

func (d *Discord) FetchPosts(_ context.Context, _ string, _ int) ([]models.NormalizedPost, error) {
	return nil, nil
}
