package storage

// Обе СУБД разделяют имена таблиц и колонок; расходятся только типы
// автоинкремента и JSON-колонок. profile_data/post_data — JSON-сериализация
// нормализованных записей из internal/models.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS social_media_profiles (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	platform     TEXT NOT NULL,
	username     TEXT NOT NULL,
	profile_data TEXT NOT NULL,
	last_updated TIMESTAMP NOT NULL,
	UNIQUE (platform, username)
);

CREATE TABLE IF NOT EXISTS social_media_posts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_id  INTEGER NOT NULL REFERENCES social_media_profiles(id) ON DELETE CASCADE,
	post_data   TEXT NOT NULL,
	posted_date TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_posts_profile ON social_media_posts(profile_id);

CREATE TABLE IF NOT EXISTS linked_accounts (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	from_platform   TEXT NOT NULL,
	from_username   TEXT NOT NULL,
	linked_platform TEXT NOT NULL,
	linked_username TEXT NOT NULL,
	confidence      REAL NOT NULL,
	evidence        TEXT,
	UNIQUE (from_platform, from_username, linked_platform, linked_username)
);

CREATE TABLE IF NOT EXISTS identities (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	primary_username   TEXT,
	primary_email      TEXT,
	primary_phone      TEXT,
	confidence_score   REAL NOT NULL DEFAULT 0,
	verification_count INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL,
	last_searched      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS identity_attributes (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	identity_id     INTEGER NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	attribute_type  TEXT NOT NULL,
	attribute_value TEXT NOT NULL,
	is_primary      INTEGER NOT NULL DEFAULT 0,
	is_verified     INTEGER NOT NULL DEFAULT 0,
	confidence      REAL NOT NULL DEFAULT 0,
	discovered_from TEXT,
	UNIQUE (identity_id, attribute_type, attribute_value)
);

CREATE TABLE IF NOT EXISTS identity_sources (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	identity_id      INTEGER NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	platform         TEXT NOT NULL,
	profile_url      TEXT,
	status           TEXT NOT NULL,
	confidence       REAL NOT NULL DEFAULT 0,
	http_status      INTEGER,
	response_time_ms INTEGER,
	detection_method TEXT,
	profile_data     TEXT,
	last_checked     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sources_identity ON identity_sources(identity_id);

CREATE TABLE IF NOT EXISTS identity_relationships (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	from_identity_id INTEGER NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	to_identity_id   INTEGER NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	relation_type    TEXT NOT NULL,
	confidence       REAL NOT NULL DEFAULT 0,
	evidence         TEXT,
	created_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS search_cache (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	cache_key      TEXT NOT NULL UNIQUE,
	search_type    TEXT NOT NULL,
	results        TEXT NOT NULL,
	platform_count INTEGER NOT NULL DEFAULT 0,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	hit_count      INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL,
	expires_at     TIMESTAMP NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS social_media_profiles (
	id           BIGSERIAL PRIMARY KEY,
	platform     TEXT NOT NULL,
	username     TEXT NOT NULL,
	profile_data JSONB NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL,
	UNIQUE (platform, username)
);

CREATE TABLE IF NOT EXISTS social_media_posts (
	id          BIGSERIAL PRIMARY KEY,
	profile_id  BIGINT NOT NULL REFERENCES social_media_profiles(id) ON DELETE CASCADE,
	post_data   JSONB NOT NULL,
	posted_date TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_posts_profile ON social_media_posts(profile_id);

CREATE TABLE IF NOT EXISTS linked_accounts (
	id              BIGSERIAL PRIMARY KEY,
	from_platform   TEXT NOT NULL,
	from_username   TEXT NOT NULL,
	linked_platform TEXT NOT NULL,
	linked_username TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	evidence        JSONB,
	UNIQUE (from_platform, from_username, linked_platform, linked_username)
);

CREATE TABLE IF NOT EXISTS identities (
	id                 BIGSERIAL PRIMARY KEY,
	primary_username   TEXT,
	primary_email      TEXT,
	primary_phone      TEXT,
	confidence_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	verification_count INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	last_searched      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS identity_attributes (
	id              BIGSERIAL PRIMARY KEY,
	identity_id     BIGINT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	attribute_type  TEXT NOT NULL,
	attribute_value TEXT NOT NULL,
	is_primary      BOOLEAN NOT NULL DEFAULT FALSE,
	is_verified     BOOLEAN NOT NULL DEFAULT FALSE,
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	discovered_from TEXT,
	UNIQUE (identity_id, attribute_type, attribute_value)
);

CREATE TABLE IF NOT EXISTS identity_sources (
	id               BIGSERIAL PRIMARY KEY,
	identity_id      BIGINT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	platform         TEXT NOT NULL,
	profile_url      TEXT,
	status           TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	http_status      INTEGER,
	response_time_ms BIGINT,
	detection_method TEXT,
	profile_data     JSONB,
	last_checked     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sources_identity ON identity_sources(identity_id);

CREATE TABLE IF NOT EXISTS identity_relationships (
	id               BIGSERIAL PRIMARY KEY,
	from_identity_id BIGINT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	to_identity_id   BIGINT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	relation_type    TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	evidence         JSONB,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS search_cache (
	id             BIGSERIAL PRIMARY KEY,
	cache_key      TEXT NOT NULL UNIQUE,
	search_type    TEXT NOT NULL,
	results        JSONB NOT NULL,
	platform_count INTEGER NOT NULL DEFAULT 0,
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	hit_count      INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL
);
`
