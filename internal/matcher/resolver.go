package matcher

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// IdentityStore — срез хранилища, нужный резолверу. Resolver —
// единственный писатель identity-слоя.
type IdentityStore interface {
	StoreSearchResults(ctx context.Context, identifier, searchType string, results []models.PlatformResult, duration time.Duration) (*models.Identity, error)
	FindIdentityByAttribute(ctx context.Context, attributeType, value string) (*models.Identity, error)
	AddIdentityAttribute(ctx context.Context, identityID int64, attr models.IdentityAttribute) error
	AddIdentityRelationship(ctx context.Context, rel models.IdentityRelationship) error
}

var (
	seedEmailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`)
	seedPhonePattern = regexp.MustCompile(`^\+?[\d\-\s().]{7,}$`)
)

// SeedType классифицирует посевной идентификатор.
func SeedType(seed string) string {
	seed = strings.TrimSpace(seed)
	switch {
	case seedEmailPattern.MatchString(seed):
		return models.AttributeEmail
	case seedPhonePattern.MatchString(seed):
		return models.AttributePhone
	default:
		return models.AttributeUsername
	}
}

// CandidateHandles разворачивает посев в кандидатов-handle по его типу.
func CandidateHandles(seed string) []string {
	switch SeedType(seed) {
	case models.AttributeEmail:
		return FromEmail(seed)
	case models.AttributePhone:
		return FromPhone(seed)
	default:
		handle := strings.TrimPrefix(strings.TrimSpace(seed), "@")
		if strings.ContainsRune(handle, ' ') {
			return FromName(handle)
		}
		return []string{handle}
	}
}

// Resolver строит identity-цепочки из результатов fan-out и найденных
// связей: создает/обновляет Identity, наращивает атрибуты и фиксирует
// связи с уже известными identity.
type Resolver struct {
	store IdentityStore
	log   zerolog.Logger
}

func NewResolver(store IdentityStore, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, log: log.With().Str("component", "resolver").Logger()}
}

// Resolve фиксирует один посевной поиск. Ошибки атрибутов и связей не
// фатальны — identity уже создана и результат поиска сохранен.
func (r *Resolver) Resolve(ctx context.Context, seed string, results []models.PlatformResult, links []models.LinkedAccount, duration time.Duration) (*models.Identity, error) {
	identity, err := r.store.StoreSearchResults(ctx, seed, SeedType(seed), results, duration)
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		if res.Status != models.SourceStatusFound || res.Profile == nil {
			continue
		}
		attr := models.IdentityAttribute{
			AttributeType:  models.AttributeUsername,
			AttributeValue: res.Profile.Username,
			IsVerified:     true,
			Confidence:     res.Confidence,
			DiscoveredFrom: res.Platform,
		}
		if err := r.store.AddIdentityAttribute(ctx, identity.ID, attr); err != nil {
			r.log.Warn().Err(err).Str("platform", res.Platform).Msg("attribute write failed")
		}
	}

	for _, link := range links {
		// Поиск чужой identity идет до записи своего атрибута, иначе
		// lookup может найти только что записанное значение.
		other, err := r.store.FindIdentityByAttribute(ctx, models.AttributeUsername, link.LinkedUsername)
		if err != nil {
			r.log.Warn().Err(err).Str("username", link.LinkedUsername).Msg("identity lookup failed")
		}

		attr := models.IdentityAttribute{
			AttributeType:  models.AttributeUsername,
			AttributeValue: link.LinkedUsername,
			Confidence:     link.Confidence,
			DiscoveredFrom: link.FromPlatform,
		}
		if err := r.store.AddIdentityAttribute(ctx, identity.ID, attr); err != nil {
			r.log.Warn().Err(err).Str("platform", link.LinkedPlatform).Msg("attribute write failed")
			continue
		}

		if other == nil || other.ID == identity.ID {
			continue
		}
		rel := models.IdentityRelationship{
			FromIdentityID: identity.ID,
			ToIdentityID:   other.ID,
			RelationType:   relationType(link.Confidence),
			Confidence:     link.Confidence,
			Evidence:       link.Evidence,
		}
		if err := r.store.AddIdentityRelationship(ctx, rel); err != nil {
			r.log.Warn().Err(err).Int64("to", other.ID).Msg("relationship write failed")
		}
	}
	return identity, nil
}

// AttachEmails дописывает добытые из коммитов адреса к identity,
// известной по username. Незнакомый username — no-op: атрибуты вне
// identity не живут. Ошибки не фатальны.
func (r *Resolver) AttachEmails(ctx context.Context, username, platform string, emails []string) {
	if len(emails) == 0 {
		return
	}
	identity, err := r.store.FindIdentityByAttribute(ctx, models.AttributeUsername, username)
	if err != nil || identity == nil {
		return
	}
	for _, email := range emails {
		attr := models.IdentityAttribute{
			AttributeType:  models.AttributeEmail,
			AttributeValue: email,
			Confidence:     0.9,
			DiscoveredFrom: platform,
		}
		if err := r.store.AddIdentityAttribute(ctx, identity.ID, attr); err != nil {
			r.log.Warn().Err(err).Str("email", email).Msg("attribute write failed")
		}
	}
}

// relationType: явная ссылка — linked, голое упоминание — possible.
func relationType(confidence float64) string {
	if confidence >= 0.5 {
		return models.RelationLinked
	}
	return models.RelationPossible
}
