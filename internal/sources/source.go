package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/Socialrecon/internal/creds"
	"github.com/BetterCallFirewall/Socialrecon/internal/limits"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
	"github.com/BetterCallFirewall/Socialrecon/internal/transport"
)

// Ошибки уровня источника. ErrNotFound поднимается до API как 404;
// остальное либо глотается в fan-out поиске, либо проваливает
// detailed-profile запрос.
var (
	ErrNotFound    = errors.New("profile not found at source")
	ErrSource      = errors.New("source returned an unrecoverable response")
	ErrRateLimited = errors.New("source asked to back off")
	ErrConfig      = errors.New("source configuration error")
)

// HTTPError несет HTTP-статус последнего ответа поверх сентинела:
// вызывающий достает статус через errors.As, сентинел — через errors.Is.
type HTTPError struct {
	Platform string
	Status   int
	Err      error
}

func (e *HTTPError) Error() string { return e.Err.Error() }
func (e *HTTPError) Unwrap() error { return e.Err }

// Adapter — единый контракт платформенного адаптера.
//
// FetchProfile возвращает (nil, ErrNotFound) для отсутствующего профиля и
// (nil, nil), когда платформа недоступна в no-auth режиме: оба случая
// перехватывает Open-Graph fallback. FetchPosts может вернуть пустой срез.
type Adapter interface {
	Platform() string
	ProfileURL(username string) string
	FetchProfile(ctx context.Context, username string) (*models.NormalizedProfile, error)
	FetchPosts(ctx context.Context, username string, maxItems int) ([]models.NormalizedPost, error)
}

// Deps — общие зависимости адаптеров. Transport и Creds разделяются всеми
// адаптерами, rate limiter у каждого свой.
type Deps struct {
	Transport transport.Transport
	Creds     *creds.Provider
	Logger    zerolog.Logger
}

// base несет общую обвязку адаптера: каждый внешний вызов проходит
// rate_limiter.Acquire и обернут в retry-политику.
type base struct {
	platform string
	tr       transport.Transport
	creds    *creds.Provider
	limiter  *limits.SlidingWindowLimiter
	retry    limits.RetryPolicy
	log      zerolog.Logger
}

func newBase(platform string, deps Deps, policy limits.RateLimitPolicy) base {
	limiter, err := limits.NewSlidingWindowLimiter(policy)
	if err != nil {
		// Политики адаптеров статичны, невалидная — ошибка программиста.
		panic(fmt.Sprintf("sources: %s rate limit policy: %v", platform, err))
	}
	return base{
		platform: platform,
		tr:       deps.Transport,
		creds:    deps.Creds,
		limiter:  limiter,
		retry:    limits.DefaultRetryPolicy(),
		log:      deps.Logger.With().Str("platform", platform).Logger(),
	}
}

// get выполняет GET под лимитером и ретраями. Повторяются транспортные
// сбои, 429 и 5xx — каждая попытка заново проходит лимитер; остальные
// 4xx не повторяются и отдаются наверх первым же ответом.
func (b *base) get(ctx context.Context, rawURL string, headers map[string]string) (*transport.Response, error) {
	var resp *transport.Response
	err := b.retry.Do(ctx, func(ctx context.Context) error {
		if err := b.limiter.Acquire(ctx); err != nil {
			return limits.Permanent(err)
		}
		r, err := b.tr.Get(ctx, rawURL, headers)
		if err != nil {
			return err
		}
		if retryableStatus(r.Status) {
			return b.statusErr(r)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// postForm — как get, но для form-encoded POST (Twitch OAuth).
func (b *base) postForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (*transport.Response, error) {
	var resp *transport.Response
	err := b.retry.Do(ctx, func(ctx context.Context) error {
		if err := b.limiter.Acquire(ctx); err != nil {
			return limits.Permanent(err)
		}
		r, err := b.tr.PostForm(ctx, rawURL, form, headers)
		if err != nil {
			return err
		}
		if retryableStatus(r.Status) {
			return b.statusErr(r)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// retryableStatus: источник может отпустить на следующей попытке.
func retryableStatus(status int) bool {
	return status == 429 || status >= 500
}

// statusErr транслирует HTTP-статус в ошибку источника.
func (b *base) statusErr(resp *transport.Response) error {
	var err error
	switch {
	case resp.Status == 404:
		err = ErrNotFound
	case resp.Status == 429:
		err = fmt.Errorf("%s responded 429: %w", b.platform, ErrRateLimited)
	case resp.Status >= 400:
		err = fmt.Errorf("%s responded %d: %w", b.platform, resp.Status, ErrSource)
	default:
		return nil
	}
	return &HTTPError{Platform: b.platform, Status: resp.Status, Err: err}
}

// token возвращает очередной токен платформы; ok=false — no-auth режим.
func (b *base) token(platform string) (string, bool, error) {
	tok, ok, err := b.creds.NextToken(platform)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return tok, ok, nil
}

// NewAll создает все поддерживаемые адаптеры. TwitchClientID/Secret берутся
// из окружения конфигурации.
func NewAll(deps Deps, env map[string]string) map[string]Adapter {
	adapters := []Adapter{
		NewTwitter(deps),
		NewReddit(deps),
		NewGitHub(deps),
		NewInstagram(deps),
		NewTikTok(deps),
		NewFacebook(deps),
		NewLinkedIn(deps),
		NewYouTube(deps),
		NewMedium(deps),
		NewMastodon(deps),
		NewBluesky(deps),
		NewTwitch(deps, env["TWITCH_CLIENT_ID"], env["TWITCH_CLIENT_SECRET"]),
		NewDiscord(deps),
	}

	byPlatform := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}
	return byPlatform
}
