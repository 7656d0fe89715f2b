package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// Store — реляционное хранилище профилей, постов, связей и identity-слоя.
// Замены постов и связанных аккаунтов атомарны на уровне сущности:
// читатель никогда не видит частично записанный набор.
type Store interface {
	UpsertProfile(ctx context.Context, profile models.NormalizedProfile) (*models.StoredProfile, error)
	GetProfile(ctx context.Context, platform, username string) (*models.StoredProfile, error)

	// ReplacePosts — delete-then-insert в одной транзакции; пустой батч валиден.
	ReplacePosts(ctx context.Context, profileID int64, posts []models.NormalizedPost) error
	// GetPosts возвращает посты в порядке убывания вставки.
	GetPosts(ctx context.Context, profileID int64, offset, limit int) ([]models.NormalizedPost, error)

	ReplaceLinkedAccounts(ctx context.Context, fromPlatform, fromUsername string, accounts []models.LinkedAccount) error
	// GetLinkedAccounts возвращает связи по убыванию уверенности.
	GetLinkedAccounts(ctx context.Context, fromPlatform, fromUsername string) ([]models.LinkedAccount, error)

	// StoreSearchResults находит либо создает identity по (searchType,
	// lower(identifier)), пишет по IdentitySource на результат и
	// пересчитывает confidence_score = clamp(avg(found)*min(n/10,1.5), 0, 1).
	StoreSearchResults(ctx context.Context, identifier, searchType string, results []models.PlatformResult, duration time.Duration) (*models.Identity, error)
	FindIdentityByAttribute(ctx context.Context, attributeType, value string) (*models.Identity, error)
	AddIdentityAttribute(ctx context.Context, identityID int64, attr models.IdentityAttribute) error
	AddIdentityRelationship(ctx context.Context, rel models.IdentityRelationship) error

	CacheSearchResults(ctx context.Context, key, searchType string, results any, platformCount int, duration, ttl time.Duration) error
	// GetCachedResults отдает только записи с expires_at > now и
	// инкрементирует hit_count.
	GetCachedResults(ctx context.Context, key string) (json.RawMessage, bool, error)

	Ping(ctx context.Context) error
	Close() error
}
