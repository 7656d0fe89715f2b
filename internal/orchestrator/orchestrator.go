package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/BetterCallFirewall/Socialrecon/internal/cache"
	"github.com/BetterCallFirewall/Socialrecon/internal/config"
	"github.com/BetterCallFirewall/Socialrecon/internal/discovery"
	"github.com/BetterCallFirewall/Socialrecon/internal/extract"
	"github.com/BetterCallFirewall/Socialrecon/internal/matcher"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
	"github.com/BetterCallFirewall/Socialrecon/internal/sources"
	"github.com/BetterCallFirewall/Socialrecon/internal/storage"
	"github.com/BetterCallFirewall/Socialrecon/internal/websocket"
)

var (
	ErrUnknownPlatform = errors.New("unsupported platform")
	ErrProfileNotFound = errors.New("profile not found")
)

// Максимум постов, запрашиваемых у адаптера за одну гидрацию.
const maxFetchedPosts = 100

// Пределы обхода репозиториев при добыче коммит-адресов.
const (
	mineMaxRepos   = 5
	mineMaxCommits = 30
)

// commitEmailMiner реализуют адаптеры, умеющие добывать адреса авторов
// из публичных коммитов (GitHub).
type commitEmailMiner interface {
	MineCommitEmails(ctx context.Context, username string, maxRepos, maxCommits int) ([]string, error)
}

// Уверенность результата по способу обнаружения.
const (
	directConfidence   = 1.0
	fallbackConfidence = 0.5
)

// SearchResult — ответ fan-out поиска по всем платформам.
type SearchResult struct {
	Username   string                  `json:"username"`
	Results    []models.PlatformResult `json:"results"`
	FoundOn    []string                `json:"found_on"`
	DurationMS int64                   `json:"duration_ms"`
	FromCache  bool                    `json:"from_cache"`
}

// Orchestrator ведет fan-out поиск и гидрацию профилей: семафор
// ограничивает одновременные внешние запросы, кэш и хранилище
// переживают перезапуски, hub транслирует прогресс.
type Orchestrator struct {
	adapters map[string]sources.Adapter
	fallback *sources.Fallback
	memCache *cache.TTLCache
	store    storage.Store
	graph    storage.GraphStore
	resolver *matcher.Resolver
	hub      *websocket.Hub
	sem      *semaphore.Weighted
	cfg      config.FanoutConfig
	log      zerolog.Logger
}

func New(
	adapters map[string]sources.Adapter,
	fallback *sources.Fallback,
	memCache *cache.TTLCache,
	store storage.Store,
	graph storage.GraphStore,
	resolver *matcher.Resolver,
	hub *websocket.Hub,
	cfg config.FanoutConfig,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		adapters: adapters,
		fallback: fallback,
		memCache: memCache,
		store:    store,
		graph:    graph,
		resolver: resolver,
		hub:      hub,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrency),
		cfg:      cfg,
		log:      log.With().Str("component", "orchestrator").Logger(),
	}
}

// withSlot занимает слот семафора и навешивает таймаут одного внешнего
// запроса. Все обращения адаптеров к сети идут через него.
func (o *Orchestrator) withSlot(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer o.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()
	return fn(ctx)
}

// SearchProfiles проверяет посевной идентификатор на перечисленных
// платформах (пустой список — все поддерживаемые). Email- и
// phone-посевы сперва разворачиваются в кандидата-handle; identity
// при этом записывается под исходным посевом. Ошибки отдельных
// платформ не валят поиск: они превращаются в статус результата.
func (o *Orchestrator) SearchProfiles(ctx context.Context, seed string, platforms []string) (*SearchResult, error) {
	seed = strings.TrimPrefix(strings.TrimSpace(seed), "@")
	if seed == "" {
		return nil, fmt.Errorf("%w: empty username", ErrProfileNotFound)
	}

	username := seed
	if matcher.SeedType(seed) != models.AttributeUsername {
		candidates := matcher.CandidateHandles(seed)
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: no handle candidates for seed", ErrProfileNotFound)
		}
		username = candidates[0]
	}

	if len(platforms) == 0 {
		platforms = extract.AllPlatforms()
	} else {
		for _, p := range platforms {
			if _, ok := o.adapters[p]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, p)
			}
		}
	}
	sort.Strings(platforms)

	cacheKey := searchCacheKey(seed, platforms)
	if raw, ok, err := o.store.GetCachedResults(ctx, cacheKey); err != nil {
		o.log.Warn().Err(err).Msg("search cache read failed")
	} else if ok {
		var cached SearchResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			cached.FromCache = true
			return &cached, nil
		}
		o.log.Warn().Str("key", cacheKey).Msg("search cache entry undecodable, refetching")
	}

	o.hub.Publish(websocket.Event{Type: websocket.EventSearchStarted, Username: username})
	started := time.Now()

	var (
		mu      sync.Mutex
		results = make([]models.PlatformResult, 0, len(platforms))
		wg      sync.WaitGroup
	)
	for _, platform := range platforms {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			res := o.checkPlatform(ctx, platform, username)
			o.hub.Publish(websocket.Event{
				Type:     websocket.EventPlatformDone,
				Username: username,
				Platform: platform,
				Status:   res.Status,
			})
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(platform)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Platform < results[j].Platform })
	duration := time.Since(started)

	out := &SearchResult{
		Username:   username,
		Results:    results,
		DurationMS: duration.Milliseconds(),
	}
	var discovered []models.LinkedAccount
	for _, res := range results {
		if res.Status != models.SourceStatusFound {
			continue
		}
		out.FoundOn = append(out.FoundOn, res.Platform)
		// Связи из bio найденных профилей уходят резолверу: они
		// сцепляют identity между собой.
		discovered = append(discovered, discovery.Links(res.Profile, nil)...)
	}

	if _, err := o.resolver.Resolve(ctx, seed, results, discovered, duration); err != nil {
		o.log.Warn().Err(err).Str("seed", seed).Msg("identity persist failed")
	}
	o.markVariations(ctx, username, results)
	if err := o.store.CacheSearchResults(ctx, cacheKey, "social_profiles", out, len(platforms), duration, o.cfg.SearchCacheTTL); err != nil {
		o.log.Warn().Err(err).Msg("search cache write failed")
	}

	o.hub.Publish(websocket.Event{
		Type:     websocket.EventSearchDone,
		Username: username,
		Data:     out.FoundOn,
	})
	return out, nil
}

// markVariations отражает в графе найденные аккаунты, чье имя —
// вариация посевного handle (другие разделители при том же остове).
func (o *Orchestrator) markVariations(ctx context.Context, seed string, results []models.PlatformResult) {
	for _, res := range results {
		if res.Status != models.SourceStatusFound || res.Profile == nil {
			continue
		}
		found := res.Profile.Username
		if strings.EqualFold(found, seed) {
			continue
		}
		if matcher.MatchType(seed, found, matcher.Similarity(seed, found)) != matcher.MatchVariation {
			continue
		}
		if err := o.graph.MarkVariation(ctx, res.Platform, strings.ToLower(seed), found); err != nil {
			o.log.Warn().Err(err).Str("platform", res.Platform).Msg("graph variation write failed")
		}
	}
}

// checkPlatform выполняет одну проверку fan-out: прямой адаптер, затем
// Open-Graph fallback для (nil, nil) и not-found исходов.
func (o *Orchestrator) checkPlatform(ctx context.Context, platform, username string) models.PlatformResult {
	o.hub.Publish(websocket.Event{Type: websocket.EventPlatformStarted, Username: username, Platform: platform})

	adapter := o.adapters[platform]
	res := models.PlatformResult{
		Platform:   platform,
		ProfileURL: adapter.ProfileURL(username),
	}

	started := time.Now()
	profile, err := o.fetchWithFallback(ctx, adapter, username)
	res.ResponseTimeMS = time.Since(started).Milliseconds()

	switch {
	case err != nil:
		res.Status = classify(err)
		var herr *sources.HTTPError
		if errors.As(err, &herr) {
			res.HTTPStatus = herr.Status
		}
		if res.Status == models.SourceStatusError {
			o.log.Warn().Err(err).Str("platform", platform).Str("username", username).Msg("platform check failed")
		}
	case profile == nil:
		res.Status = models.SourceStatusNotFound
	default:
		res.Status = models.SourceStatusFound
		res.HTTPStatus = 200
		res.Profile = profile
		res.Confidence = directConfidence
		if profile.Raw != nil {
			if _, scraped := profile.Raw["scrape_fallback"]; scraped {
				res.Confidence = fallbackConfidence
			}
		}
		if profile.ProfileURL != "" {
			res.ProfileURL = profile.ProfileURL
		}
	}
	return res
}

// fetchWithFallback: прямой FetchProfile, при not-found либо no-auth
// ответе — Open-Graph скрейп публичной страницы.
func (o *Orchestrator) fetchWithFallback(ctx context.Context, adapter sources.Adapter, username string) (*models.NormalizedProfile, error) {
	var profile *models.NormalizedProfile
	err := o.withSlot(ctx, func(ctx context.Context) error {
		p, err := adapter.FetchProfile(ctx, username)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})

	if profile != nil {
		return profile, nil
	}
	if err != nil && !errors.Is(err, sources.ErrNotFound) {
		return nil, err
	}

	// Fallback тоже идет под семафором: это внешний запрос.
	notFound := err
	err = o.withSlot(ctx, func(ctx context.Context) error {
		p, fbErr := o.fallback.Profile(ctx, adapter.Platform(), username, adapter.ProfileURL(username))
		if fbErr != nil {
			return fbErr
		}
		profile = p
		return nil
	})
	if err != nil {
		if notFound != nil {
			return nil, notFound
		}
		return nil, err
	}
	if profile == nil && notFound != nil {
		return nil, notFound
	}
	return profile, nil
}

// DetailedProfile гидрирует профиль: профиль + посты + связанные
// аккаунты, с кэшем поверх. force пробивает кэш и перечитывает источник.
//
// Порядок записи фиксирован: профиль, посты, связи, граф. Сбой на
// постах оставляет профиль обновленным — читатели обязаны переживать
// устаревшие посты.
func (o *Orchestrator) DetailedProfile(ctx context.Context, platform, username string, force bool) (*models.DetailedProfile, error) {
	adapter, ok := o.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")

	profileKey := "profile:" + platform + ":" + username
	postsKey := "posts:" + platform + ":" + username
	linkedKey := "linked:" + platform + ":" + username

	if !force {
		if cached := o.cachedDetailed(profileKey, postsKey, linkedKey); cached != nil {
			return cached, nil
		}
	}

	profile, err := o.fetchWithFallback(ctx, adapter, username)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrProfileNotFound, username, platform)
	}

	var posts []models.NormalizedPost
	err = o.withSlot(ctx, func(ctx context.Context) error {
		fetched, postsErr := adapter.FetchPosts(ctx, username, maxFetchedPosts)
		if postsErr != nil {
			return postsErr
		}
		posts = fetched
		return nil
	})
	if err != nil {
		// Профиль ценнее постов: гидрация продолжается без них.
		o.log.Warn().Err(err).Str("platform", platform).Str("username", username).Msg("posts fetch failed")
		posts = nil
	}

	links := discovery.Links(profile, posts)

	stored, err := o.store.UpsertProfile(ctx, *profile)
	if err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}
	if err := o.store.ReplacePosts(ctx, stored.ID, posts); err != nil {
		return nil, fmt.Errorf("persist posts: %w", err)
	}
	if err := o.store.ReplaceLinkedAccounts(ctx, profile.Platform, profile.Username, links); err != nil {
		return nil, fmt.Errorf("persist linked accounts: %w", err)
	}
	o.writeGraph(ctx, profile, links)
	o.mineEmails(ctx, adapter, profile)

	result := &models.DetailedProfile{
		Profile:        &stored.Profile,
		Posts:          posts,
		LinkedAccounts: links,
		LastUpdated:    stored.LastUpdated,
	}
	ttl := o.cfg.DetailedCacheTTL
	o.memCache.SetTTL(profileKey, stored, ttl)
	o.memCache.SetTTL(postsKey, posts, ttl)
	o.memCache.SetTTL(linkedKey, links, ttl)
	return result, nil
}

// cachedDetailed собирает ответ из трех кэш-ключей; частичное
// попадание трактуется как промах.
func (o *Orchestrator) cachedDetailed(profileKey, postsKey, linkedKey string) *models.DetailedProfile {
	rawProfile, ok := o.memCache.Get(profileKey)
	if !ok {
		return nil
	}
	rawPosts, ok := o.memCache.Get(postsKey)
	if !ok {
		return nil
	}
	rawLinked, ok := o.memCache.Get(linkedKey)
	if !ok {
		return nil
	}

	stored, ok := rawProfile.(*models.StoredProfile)
	if !ok {
		return nil
	}
	posts, _ := rawPosts.([]models.NormalizedPost)
	links, _ := rawLinked.([]models.LinkedAccount)
	return &models.DetailedProfile{
		Profile:        &stored.Profile,
		Posts:          posts,
		LinkedAccounts: links,
		LastUpdated:    stored.LastUpdated,
	}
}

// writeGraph отражает гидрацию в графовой БД. Граф вторичен: ошибки
// записи логируются и не валят запрос.
func (o *Orchestrator) writeGraph(ctx context.Context, profile *models.NormalizedProfile, links []models.LinkedAccount) {
	if err := o.graph.UpsertProfile(ctx, *profile, directConfidence); err != nil {
		o.log.Warn().Err(err).Msg("graph profile write failed")
	}
	for _, link := range links {
		if err := o.graph.LinkAccounts(ctx, link); err != nil {
			o.log.Warn().Err(err).Msg("graph link write failed")
		}
	}
	for _, email := range extract.Emails(profile.Bio) {
		if err := o.graph.AssociateEmail(ctx, profile.Platform, profile.Username, email); err != nil {
			o.log.Warn().Err(err).Msg("graph email write failed")
		}
	}
	for _, phone := range extract.Phones(profile.Bio) {
		if err := o.graph.AssociatePhone(ctx, profile.Platform, profile.Username, phone); err != nil {
			o.log.Warn().Err(err).Msg("graph phone write failed")
		}
	}
}

// mineEmails обогащает граф и identity-слой адресами из публичных
// коммитов, когда адаптер это умеет. Обогащение не валит гидрацию.
func (o *Orchestrator) mineEmails(ctx context.Context, adapter sources.Adapter, profile *models.NormalizedProfile) {
	miner, ok := adapter.(commitEmailMiner)
	if !ok {
		return
	}

	var emails []string
	err := o.withSlot(ctx, func(ctx context.Context) error {
		mined, mineErr := miner.MineCommitEmails(ctx, profile.Username, mineMaxRepos, mineMaxCommits)
		if mineErr != nil {
			return mineErr
		}
		emails = mined
		return nil
	})
	if err != nil {
		o.log.Warn().Err(err).Str("username", profile.Username).Msg("commit email mining failed")
		return
	}

	for _, email := range emails {
		if err := o.graph.AssociateEmail(ctx, profile.Platform, profile.Username, email); err != nil {
			o.log.Warn().Err(err).Str("email", email).Msg("graph email write failed")
		}
	}
	o.resolver.AttachEmails(ctx, profile.Username, profile.Platform, emails)
}

// RecentPosts отдает страницу сохраненных постов. Невиданный ранее
// профиль сначала гидрируется.
func (o *Orchestrator) RecentPosts(ctx context.Context, platform, username string, page, pageSize int) ([]models.NormalizedPost, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 30
	}
	if pageSize > 200 {
		pageSize = 200
	}

	stored, err := o.hydrated(ctx, platform, username)
	if err != nil {
		return nil, err
	}
	return o.store.GetPosts(ctx, stored.ID, (page-1)*pageSize, pageSize)
}

// FindLinked отдает связанные аккаунты, гидрируя профиль при первом
// обращении.
func (o *Orchestrator) FindLinked(ctx context.Context, platform, username string) ([]models.LinkedAccount, error) {
	stored, err := o.hydrated(ctx, platform, username)
	if err != nil {
		return nil, err
	}
	return o.store.GetLinkedAccounts(ctx, stored.Platform, stored.Username)
}

// Refresh принудительно перечитывает профиль из источника, минуя кэш.
func (o *Orchestrator) Refresh(ctx context.Context, platform, username string) (*models.DetailedProfile, error) {
	return o.DetailedProfile(ctx, platform, username, true)
}

// Platforms перечисляет поддерживаемые платформы по алфавиту.
func (o *Orchestrator) Platforms() []string {
	platforms := make([]string, 0, len(o.adapters))
	for p := range o.adapters {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return platforms
}

// hydrated возвращает сохраненный профиль, при необходимости выполняя
// полную гидрацию.
func (o *Orchestrator) hydrated(ctx context.Context, platform, username string) (*models.StoredProfile, error) {
	if _, ok := o.adapters[platform]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")

	stored, err := o.store.GetProfile(ctx, platform, username)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}

	if _, err := o.DetailedProfile(ctx, platform, username, false); err != nil {
		return nil, err
	}
	stored, err = o.store.GetProfile(ctx, platform, username)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrProfileNotFound, username, platform)
	}
	return stored, nil
}

// classify переводит ошибку источника в статус результата.
func classify(err error) string {
	switch {
	case errors.Is(err, sources.ErrNotFound):
		return models.SourceStatusNotFound
	case errors.Is(err, sources.ErrRateLimited):
		return models.SourceStatusBlocked
	case errors.Is(err, context.DeadlineExceeded):
		return models.SourceStatusTimeout
	default:
		return models.SourceStatusError
	}
}

func searchCacheKey(username string, platforms []string) string {
	return "social_profiles:" + strings.ToLower(username) + ":" + strings.Join(platforms, ",")
}
