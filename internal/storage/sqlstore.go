package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/Socialrecon/internal/config"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// SQLStore реализует Store поверх sqlx. Один и тот же код обслуживает
// встроенный sqlite и серверный postgres: схемы разделяют имена колонок,
// плейсхолдеры переписывает Rebind.
type SQLStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// Open выбирает бэкенд по конфигурации: DSN postgres'а при наличии,
// иначе встроенный sqlite-файл. Выбор происходит один раз на старте.
func Open(cfg config.StorageConfig, log zerolog.Logger) (*SQLStore, error) {
	if cfg.PostgresDSN != "" {
		return OpenPostgres(cfg.PostgresDSN, log)
	}
	return OpenSQLite(cfg.SQLitePath, log)
}

func OpenSQLite(path string, log zerolog.Logger) (*SQLStore, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_fk=1&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Файловый sqlite не терпит конкурирующих писателей на соединениях.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLStore{db: db, log: log.With().Str("backend", "sqlite").Logger()}, nil
}

func OpenPostgres(dsn string, log zerolog.Logger) (*SQLStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &SQLStore{db: db, log: log.With().Str("backend", "postgres").Logger()}, nil
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLStore) Close() error                   { return s.db.Close() }

func (s *SQLStore) UpsertProfile(ctx context.Context, profile models.NormalizedProfile) (*models.StoredProfile, error) {
	profile.Username = lower(profile.Username)
	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	now := time.Now().UTC()
	q := s.db.Rebind(`
		INSERT INTO social_media_profiles (platform, username, profile_data, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (platform, username) DO UPDATE
		SET profile_data = excluded.profile_data, last_updated = excluded.last_updated`)
	if _, err := s.db.ExecContext(ctx, q, profile.Platform, profile.Username, string(data), now); err != nil {
		return nil, fmt.Errorf("upsert profile %s/%s: %w", profile.Platform, profile.Username, err)
	}

	return s.GetProfile(ctx, profile.Platform, profile.Username)
}

func (s *SQLStore) GetProfile(ctx context.Context, platform, username string) (*models.StoredProfile, error) {
	var row struct {
		ID          int64     `db:"id"`
		ProfileData string    `db:"profile_data"`
		LastUpdated time.Time `db:"last_updated"`
	}
	q := s.db.Rebind(`
		SELECT id, profile_data, last_updated
		FROM social_media_profiles WHERE platform = ? AND username = ?`)
	err := s.db.GetContext(ctx, &row, q, platform, lower(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s/%s: %w", platform, username, err)
	}

	var profile models.NormalizedProfile
	if err := json.Unmarshal([]byte(row.ProfileData), &profile); err != nil {
		return nil, fmt.Errorf("decode profile %s/%s: %w", platform, username, err)
	}
	return &models.StoredProfile{
		ID:          row.ID,
		Platform:    platform,
		Username:    lower(username),
		Profile:     profile,
		LastUpdated: row.LastUpdated,
	}, nil
}

func (s *SQLStore) ReplacePosts(ctx context.Context, profileID int64, posts []models.NormalizedPost) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace posts: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM social_media_posts WHERE profile_id = ?`), profileID); err != nil {
		return fmt.Errorf("clear posts for %d: %w", profileID, err)
	}

	insert := tx.Rebind(`INSERT INTO social_media_posts (profile_id, post_data, posted_date) VALUES (?, ?, ?)`)
	for _, post := range posts {
		data, err := json.Marshal(post)
		if err != nil {
			return fmt.Errorf("marshal post %s: %w", post.PostID, err)
		}
		var posted any
		if post.CreatedAt != nil {
			posted = post.CreatedAt.UTC()
		}
		if _, err := tx.ExecContext(ctx, insert, profileID, string(data), posted); err != nil {
			return fmt.Errorf("insert post %s: %w", post.PostID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetPosts(ctx context.Context, profileID int64, offset, limit int) ([]models.NormalizedPost, error) {
	if limit <= 0 {
		limit = 1 << 30
	}
	var rows []string
	q := s.db.Rebind(`
		SELECT post_data FROM social_media_posts
		WHERE profile_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &rows, q, profileID, limit, offset); err != nil {
		return nil, fmt.Errorf("get posts for %d: %w", profileID, err)
	}

	posts := make([]models.NormalizedPost, 0, len(rows))
	for _, raw := range rows {
		var post models.NormalizedPost
		if err := json.Unmarshal([]byte(raw), &post); err != nil {
			// Битая запись пропускается, батч продолжается.
			s.log.Warn().Err(err).Int64("profile_id", profileID).Msg("skipping undecodable post row")
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *SQLStore) ReplaceLinkedAccounts(ctx context.Context, fromPlatform, fromUsername string, accounts []models.LinkedAccount) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace linked accounts: %w", err)
	}
	defer tx.Rollback()

	fromUsername = lower(fromUsername)
	del := tx.Rebind(`DELETE FROM linked_accounts WHERE from_platform = ? AND from_username = ?`)
	if _, err := tx.ExecContext(ctx, del, fromPlatform, fromUsername); err != nil {
		return fmt.Errorf("clear linked accounts: %w", err)
	}

	// При коллизии четверки выживает запись с большей уверенностью.
	insert := tx.Rebind(`
		INSERT INTO linked_accounts
			(from_platform, from_username, linked_platform, linked_username, confidence, evidence)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (from_platform, from_username, linked_platform, linked_username) DO UPDATE
		SET confidence = excluded.confidence, evidence = excluded.evidence
		WHERE excluded.confidence > linked_accounts.confidence`)
	for _, acc := range accounts {
		evidence, err := json.Marshal(acc.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}
		_, err = tx.ExecContext(ctx, insert,
			fromPlatform, fromUsername, acc.LinkedPlatform, lower(acc.LinkedUsername),
			acc.Confidence, string(evidence))
		if err != nil {
			return fmt.Errorf("insert linked account %s/%s: %w", acc.LinkedPlatform, acc.LinkedUsername, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetLinkedAccounts(ctx context.Context, fromPlatform, fromUsername string) ([]models.LinkedAccount, error) {
	var rows []struct {
		LinkedPlatform string  `db:"linked_platform"`
		LinkedUsername string  `db:"linked_username"`
		Confidence     float64 `db:"confidence"`
		Evidence       *string `db:"evidence"`
	}
	q := s.db.Rebind(`
		SELECT linked_platform, linked_username, confidence, evidence
		FROM linked_accounts WHERE from_platform = ? AND from_username = ?
		ORDER BY confidence DESC, linked_platform, linked_username`)
	if err := s.db.SelectContext(ctx, &rows, q, fromPlatform, lower(fromUsername)); err != nil {
		return nil, fmt.Errorf("get linked accounts: %w", err)
	}

	accounts := make([]models.LinkedAccount, 0, len(rows))
	for _, row := range rows {
		acc := models.LinkedAccount{
			FromPlatform:   fromPlatform,
			FromUsername:   lower(fromUsername),
			LinkedPlatform: row.LinkedPlatform,
			LinkedUsername: row.LinkedUsername,
			Confidence:     row.Confidence,
		}
		if row.Evidence != nil && *row.Evidence != "" {
			_ = json.Unmarshal([]byte(*row.Evidence), &acc.Evidence)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func (s *SQLStore) FindIdentityByAttribute(ctx context.Context, attributeType, value string) (*models.Identity, error) {
	var identity models.Identity
	q := s.db.Rebind(`
		SELECT i.id, COALESCE(i.primary_username,'') AS primary_username,
			COALESCE(i.primary_email,'') AS primary_email,
			COALESCE(i.primary_phone,'') AS primary_phone,
			i.confidence_score, i.verification_count, i.created_at, i.updated_at
		FROM identities i
		JOIN identity_attributes a ON a.identity_id = i.id
		WHERE a.attribute_type = ? AND a.attribute_value = ?
		LIMIT 1`)
	err := s.db.QueryRowxContext(ctx, q, attributeType, lower(value)).Scan(
		&identity.ID, &identity.PrimaryUsername, &identity.PrimaryEmail, &identity.PrimaryPhone,
		&identity.ConfidenceScore, &identity.VerificationCount, &identity.CreatedAt, &identity.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find identity by %s=%s: %w", attributeType, value, err)
	}
	return &identity, nil
}

func (s *SQLStore) StoreSearchResults(ctx context.Context, identifier, searchType string, results []models.PlatformResult, duration time.Duration) (*models.Identity, error) {
	identity, err := s.FindIdentityByAttribute(ctx, searchType, identifier)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if identity == nil {
		identity, err = s.createIdentity(ctx, identifier, searchType, now)
		if err != nil {
			return nil, err
		}
	}

	insert := s.db.Rebind(`
		INSERT INTO identity_sources
			(identity_id, platform, profile_url, status, confidence, http_status,
			 response_time_ms, detection_method, profile_data, last_checked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	var foundSum float64
	var foundCount int
	for _, res := range results {
		var profileData any
		if res.Profile != nil {
			data, err := json.Marshal(res.Profile)
			if err == nil {
				profileData = string(data)
			}
		}
		detection := "api"
		if res.Profile != nil {
			if _, scraped := res.Profile.Raw["scrape_fallback"]; scraped {
				detection = "scrape"
			}
		}
		_, err := s.db.ExecContext(ctx, insert,
			identity.ID, res.Platform, res.ProfileURL, res.Status, res.Confidence,
			res.HTTPStatus, res.ResponseTimeMS, detection, profileData, now)
		if err != nil {
			return nil, fmt.Errorf("insert identity source %s: %w", res.Platform, err)
		}
		if res.Status == models.SourceStatusFound {
			foundSum += res.Confidence
			foundCount++
		}
	}

	// confidence_score = clamp(avg(found) * min(n/10, 1.5), 0, 1)
	score := 0.0
	if foundCount > 0 {
		factor := float64(foundCount) / 10
		if factor > 1.5 {
			factor = 1.5
		}
		score = foundSum / float64(foundCount) * factor
		if score > 1 {
			score = 1
		}
	}

	update := s.db.Rebind(`
		UPDATE identities
		SET confidence_score = ?, verification_count = verification_count + 1,
			updated_at = ?, last_searched = ?
		WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, update, score, now, now, identity.ID); err != nil {
		return nil, fmt.Errorf("update identity %d: %w", identity.ID, err)
	}

	identity.ConfidenceScore = score
	identity.VerificationCount++
	identity.UpdatedAt = now
	identity.LastSearched = &now
	return identity, nil
}

func (s *SQLStore) createIdentity(ctx context.Context, identifier, attributeType string, now time.Time) (*models.Identity, error) {
	identity := &models.Identity{CreatedAt: now, UpdatedAt: now}
	switch attributeType {
	case models.AttributeEmail:
		identity.PrimaryEmail = lower(identifier)
	case models.AttributePhone:
		identity.PrimaryPhone = identifier
	default:
		identity.PrimaryUsername = lower(identifier)
	}

	q := s.db.Rebind(`
		INSERT INTO identities (primary_username, primary_email, primary_phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`)
	res, err := s.db.ExecContext(ctx, q,
		nullable(identity.PrimaryUsername), nullable(identity.PrimaryEmail), nullable(identity.PrimaryPhone), now, now)
	if err != nil {
		return nil, fmt.Errorf("create identity for %s: %w", identifier, err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		identity.ID = id
	} else {
		// postgres не отдает LastInsertId — добираем селектом.
		stored, err := s.findIdentityID(ctx, identifier, attributeTypeColumn(attributeType))
		if err != nil {
			return nil, err
		}
		identity.ID = stored
	}

	err = s.AddIdentityAttribute(ctx, identity.ID, models.IdentityAttribute{
		AttributeType:  attributeType,
		AttributeValue: identifier,
		IsPrimary:      true,
		Confidence:     1.0,
		DiscoveredFrom: "seed",
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func attributeTypeColumn(attributeType string) string {
	switch attributeType {
	case models.AttributeEmail:
		return "primary_email"
	case models.AttributePhone:
		return "primary_phone"
	default:
		return "primary_username"
	}
}

func (s *SQLStore) findIdentityID(ctx context.Context, identifier, column string) (int64, error) {
	var id int64
	q := s.db.Rebind(`SELECT id FROM identities WHERE ` + column + ` = ? ORDER BY id DESC LIMIT 1`)
	if err := s.db.GetContext(ctx, &id, q, lower(identifier)); err != nil {
		return 0, fmt.Errorf("resolve identity id for %s: %w", identifier, err)
	}
	return id, nil
}

func (s *SQLStore) AddIdentityAttribute(ctx context.Context, identityID int64, attr models.IdentityAttribute) error {
	q := s.db.Rebind(`
		INSERT INTO identity_attributes
			(identity_id, attribute_type, attribute_value, is_primary, is_verified, confidence, discovered_from)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity_id, attribute_type, attribute_value) DO UPDATE
		SET confidence = excluded.confidence, is_verified = excluded.is_verified
		WHERE excluded.confidence > identity_attributes.confidence`)
	_, err := s.db.ExecContext(ctx, q,
		identityID, attr.AttributeType, lower(attr.AttributeValue),
		attr.IsPrimary, attr.IsVerified, attr.Confidence, attr.DiscoveredFrom)
	if err != nil {
		return fmt.Errorf("add attribute %s=%s: %w", attr.AttributeType, attr.AttributeValue, err)
	}
	return nil
}

func (s *SQLStore) AddIdentityRelationship(ctx context.Context, rel models.IdentityRelationship) error {
	evidence, err := json.Marshal(rel.Evidence)
	if err != nil {
		return fmt.Errorf("marshal relationship evidence: %w", err)
	}
	q := s.db.Rebind(`
		INSERT INTO identity_relationships
			(from_identity_id, to_identity_id, relation_type, confidence, evidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, q,
		rel.FromIdentityID, rel.ToIdentityID, rel.RelationType, rel.Confidence,
		string(evidence), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add relationship %d->%d: %w", rel.FromIdentityID, rel.ToIdentityID, err)
	}
	return nil
}

func (s *SQLStore) CacheSearchResults(ctx context.Context, key, searchType string, results any, platformCount int, duration, ttl time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal cached results: %w", err)
	}
	now := time.Now().UTC()
	q := s.db.Rebind(`
		INSERT INTO search_cache
			(cache_key, search_type, results, platform_count, duration_ms, hit_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE
		SET search_type = excluded.search_type, results = excluded.results,
			platform_count = excluded.platform_count, duration_ms = excluded.duration_ms,
			hit_count = 0, created_at = excluded.created_at, expires_at = excluded.expires_at`)
	_, err = s.db.ExecContext(ctx, q,
		key, searchType, string(data), platformCount, duration.Milliseconds(), now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("cache search results %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) GetCachedResults(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var raw string
	q := s.db.Rebind(`SELECT results FROM search_cache WHERE cache_key = ? AND expires_at > ?`)
	err := s.db.GetContext(ctx, &raw, q, key, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached results %s: %w", key, err)
	}

	bump := s.db.Rebind(`UPDATE search_cache SET hit_count = hit_count + 1 WHERE cache_key = ?`)
	if _, err := s.db.ExecContext(ctx, bump, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("hit count bump failed")
	}
	return json.RawMessage(raw), true, nil
}

func lower(s string) string { return strings.ToLower(s) }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
