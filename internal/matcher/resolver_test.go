package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

type fakeIdentityStore struct {
	identity      *models.Identity
	known         map[string]*models.Identity
	attributes    []models.IdentityAttribute
	relationships []models.IdentityRelationship
}

func (f *fakeIdentityStore) StoreSearchResults(_ context.Context, identifier, searchType string, _ []models.PlatformResult, _ time.Duration) (*models.Identity, error) {
	f.identity = &models.Identity{ID: 1, PrimaryUsername: identifier}
	return f.identity, nil
}

func (f *fakeIdentityStore) FindIdentityByAttribute(_ context.Context, _, value string) (*models.Identity, error) {
	return f.known[value], nil
}

func (f *fakeIdentityStore) AddIdentityAttribute(_ context.Context, _ int64, attr models.IdentityAttribute) error {
	f.attributes = append(f.attributes, attr)
	return nil
}

func (f *fakeIdentityStore) AddIdentityRelationship(_ context.Context, rel models.IdentityRelationship) error {
	f.relationships = append(f.relationships, rel)
	return nil
}

func TestSeedType(t *testing.T) {
	assert.Equal(t, models.AttributeEmail, SeedType("john@example.com"))
	assert.Equal(t, models.AttributePhone, SeedType("+1 415 555 2671"))
	assert.Equal(t, models.AttributeUsername, SeedType("john_doe"))
	assert.Equal(t, models.AttributeUsername, SeedType("@john_doe"))
}

func TestCandidateHandles(t *testing.T) {
	assert.Contains(t, CandidateHandles("john.smith@example.com"), "johnsmith")
	assert.Contains(t, CandidateHandles("+14155552671"), "2671")
	assert.Equal(t, []string{"alice"}, CandidateHandles("@alice"))
	assert.Contains(t, CandidateHandles("John Smith"), "jsmith")
}

func TestResolver_Resolve_RecordsAttributes(t *testing.T) {
	store := &fakeIdentityStore{known: map[string]*models.Identity{}}
	r := NewResolver(store, zerolog.Nop())

	results := []models.PlatformResult{
		{Platform: "github", Status: models.SourceStatusFound, Confidence: 1.0,
			Profile: &models.NormalizedProfile{Platform: "github", Username: "alice"}},
		{Platform: "twitter", Status: models.SourceStatusNotFound},
	}

	identity, err := r.Resolve(context.Background(), "alice", results, nil, time.Second)
	require.NoError(t, err)
	require.NotNil(t, identity)

	require.Len(t, store.attributes, 1, "only found results become attributes")
	attr := store.attributes[0]
	assert.Equal(t, models.AttributeUsername, attr.AttributeType)
	assert.Equal(t, "alice", attr.AttributeValue)
	assert.True(t, attr.IsVerified)
	assert.Equal(t, "github", attr.DiscoveredFrom)
}

func TestResolver_Resolve_LinksKnownIdentities(t *testing.T) {
	store := &fakeIdentityStore{known: map[string]*models.Identity{
		"bob": {ID: 7, PrimaryUsername: "bob"},
	}}
	r := NewResolver(store, zerolog.Nop())

	links := []models.LinkedAccount{
		{FromPlatform: "github", FromUsername: "alice", LinkedPlatform: "twitter", LinkedUsername: "bob", Confidence: 0.7},
		{FromPlatform: "github", FromUsername: "alice", LinkedPlatform: "twitch", LinkedUsername: "stranger", Confidence: 0.35},
	}

	_, err := r.Resolve(context.Background(), "alice", nil, links, time.Second)
	require.NoError(t, err)

	require.Len(t, store.relationships, 1, "only links to known identities create relationships")
	rel := store.relationships[0]
	assert.Equal(t, int64(1), rel.FromIdentityID)
	assert.Equal(t, int64(7), rel.ToIdentityID)
	assert.Equal(t, models.RelationLinked, rel.RelationType, "confidence 0.7 is an explicit link")
}

func TestResolver_AttachEmails(t *testing.T) {
	store := &fakeIdentityStore{known: map[string]*models.Identity{
		"alice": {ID: 3, PrimaryUsername: "alice"},
	}}
	r := NewResolver(store, zerolog.Nop())

	r.AttachEmails(context.Background(), "alice", "github", []string{"alice@example.com"})

	require.Len(t, store.attributes, 1)
	attr := store.attributes[0]
	assert.Equal(t, models.AttributeEmail, attr.AttributeType)
	assert.Equal(t, "alice@example.com", attr.AttributeValue)
	assert.Equal(t, "github", attr.DiscoveredFrom)

	r.AttachEmails(context.Background(), "nobody", "github", []string{"x@example.com"})
	assert.Len(t, store.attributes, 1, "unknown username attaches nothing")
}

func TestRelationType(t *testing.T) {
	assert.Equal(t, models.RelationLinked, relationType(0.7))
	assert.Equal(t, models.RelationPossible, relationType(0.35))
}
