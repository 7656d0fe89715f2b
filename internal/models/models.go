package models

import "time"

// NormalizedProfile — платформо-независимое представление профиля.
// Пара (Platform, Username) является составным ключом; Username хранится
// в нижнем регистре для поиска, но DisplayName сохраняет оригинал источника.
type NormalizedProfile struct {
	Platform        string         `json:"platform"`
	Username        string         `json:"username"`
	ProfileURL      string         `json:"profile_url"`
	DisplayName     string         `json:"display_name,omitempty"`
	Bio             string         `json:"bio,omitempty"`
	Location        string         `json:"location,omitempty"`
	Verified        *bool          `json:"verified,omitempty"`
	FollowerCount   *int64         `json:"follower_count,omitempty"`
	FollowingCount  *int64         `json:"following_count,omitempty"`
	PostCount       *int64         `json:"post_count,omitempty"`
	ProfileImageURL string         `json:"profile_image_url,omitempty"`
	BannerImageURL  string         `json:"banner_image_url,omitempty"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"`
	Raw             map[string]any `json:"raw,omitempty"`
}

// NormalizedPost — одна публикация (пост, твит, коммит-событие, видео).
type NormalizedPost struct {
	Platform     string         `json:"platform"`
	Username     string         `json:"username"`
	PostID       string         `json:"post_id,omitempty"`
	URL          string         `json:"url,omitempty"`
	Content      string         `json:"content,omitempty"`
	Title        string         `json:"title,omitempty"`
	CreatedAt    *time.Time     `json:"created_at,omitempty"`
	LikeCount    *int64         `json:"like_count,omitempty"`
	CommentCount *int64         `json:"comment_count,omitempty"`
	ShareCount   *int64         `json:"share_count,omitempty"`
	ViewCount    *int64         `json:"view_count,omitempty"`
	MediaURLs    []string       `json:"media_urls,omitempty"`
	Hashtags     []string       `json:"hashtags,omitempty"`
	Mentions     []string       `json:"mentions,omitempty"`
	Raw          map[string]any `json:"raw,omitempty"`
}

// LinkedAccount — направленное ребро "аккаунт A ссылается на аккаунт B"
// с уверенностью в диапазоне [0,1] и доказательством (url или mention).
type LinkedAccount struct {
	FromPlatform   string            `json:"from_platform"`
	FromUsername   string            `json:"from_username"`
	LinkedPlatform string            `json:"linked_platform"`
	LinkedUsername string            `json:"linked_username"`
	Confidence     float64           `json:"confidence"`
	Evidence       map[string]string `json:"evidence,omitempty"`
}

// StoredProfile — профиль после записи в реляционное хранилище.
type StoredProfile struct {
	ID          int64             `json:"id"`
	Platform    string            `json:"platform"`
	Username    string            `json:"username"`
	Profile     NormalizedProfile `json:"profile"`
	LastUpdated time.Time         `json:"last_updated"`
}

// DetailedProfile — составной результат detailed-profile запроса.
type DetailedProfile struct {
	Profile        *NormalizedProfile `json:"profile"`
	Posts          []NormalizedPost   `json:"posts"`
	LinkedAccounts []LinkedAccount    `json:"linked_accounts"`
	LastUpdated    time.Time          `json:"last_updated"`
}

// Статусы проверки платформы для IdentitySource.
const (
	SourceStatusFound    = "found"
	SourceStatusNotFound = "not_found"
	SourceStatusTimeout  = "timeout"
	SourceStatusError    = "error"
	SourceStatusBlocked  = "blocked"
	SourceStatusUnknown  = "unknown"
)

// Типы атрибутов Identity.
const (
	AttributeUsername = "username"
	AttributeEmail    = "email"
	AttributePhone    = "phone"
)

// Identity — агрегированная сущность "человек/организация", собранная
// из нескольких источников. Владелец и единственный писатель — Resolver.
type Identity struct {
	ID                int64      `json:"id"`
	PrimaryUsername   string     `json:"primary_username,omitempty"`
	PrimaryEmail      string     `json:"primary_email,omitempty"`
	PrimaryPhone      string     `json:"primary_phone,omitempty"`
	ConfidenceScore   float64    `json:"confidence_score"`
	VerificationCount int        `json:"verification_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastSearched      *time.Time `json:"last_searched,omitempty"`
}

// IdentityAttribute — атрибут identity (username/email/phone), уникальный
// по (identity, attribute_type, lower(attribute_value)).
type IdentityAttribute struct {
	ID             int64   `json:"id"`
	IdentityID     int64   `json:"identity_id"`
	AttributeType  string  `json:"attribute_type"`
	AttributeValue string  `json:"attribute_value"`
	IsPrimary      bool    `json:"is_primary"`
	IsVerified     bool    `json:"is_verified"`
	Confidence     float64 `json:"confidence"`
	DiscoveredFrom string  `json:"discovered_from,omitempty"`
}

// IdentitySource — результат одной проверки identity на платформе.
type IdentitySource struct {
	ID              int64          `json:"id"`
	IdentityID      int64          `json:"identity_id"`
	Platform        string         `json:"platform"`
	ProfileURL      string         `json:"profile_url,omitempty"`
	Status          string         `json:"status"`
	Confidence      float64        `json:"confidence"`
	HTTPStatus      int            `json:"http_status,omitempty"`
	ResponseTimeMS  int64          `json:"response_time_ms,omitempty"`
	DetectionMethod string         `json:"detection_method,omitempty"`
	ProfileData     map[string]any `json:"profile_data,omitempty"`
	LastChecked     time.Time      `json:"last_checked"`
}

// Типы связей между двумя Identity.
const (
	RelationSamePerson = "same_person"
	RelationLinked     = "linked"
	RelationPossible   = "possible"
)

// IdentityRelationship — связь между двумя identity с типом и доказательством.
type IdentityRelationship struct {
	ID             int64             `json:"id"`
	FromIdentityID int64             `json:"from_identity_id"`
	ToIdentityID   int64             `json:"to_identity_id"`
	RelationType   string            `json:"relation_type"`
	Confidence     float64           `json:"confidence"`
	Evidence       map[string]string `json:"evidence,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// PlatformResult — результат проверки одной платформы внутри fan-out поиска.
// Используется и для выдачи API, и для записи IdentitySource.
type PlatformResult struct {
	Platform       string             `json:"platform"`
	ProfileURL     string             `json:"profile_url"`
	Status         string             `json:"status"`
	Confidence     float64            `json:"confidence"`
	HTTPStatus     int                `json:"http_status,omitempty"`
	ResponseTimeMS int64              `json:"response_time_ms,omitempty"`
	Profile        *NormalizedProfile `json:"profile,omitempty"`
}
