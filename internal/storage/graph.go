package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/Socialrecon/internal/config"
	"github.com/BetterCallFirewall/Socialrecon/internal/models"
)

// GraphStore пишет узлы Username/Email/Phone/Platform/Profile и связи
// между ними. Все записи MERGE-семантики: создать при отсутствии,
// обновить свойства, проставить updated_at. Граф намеренно цикличен,
// MERGE делает повторные записи безопасными.
type GraphStore interface {
	UpsertProfile(ctx context.Context, profile models.NormalizedProfile, confidence float64) error
	LinkAccounts(ctx context.Context, link models.LinkedAccount) error
	AssociateEmail(ctx context.Context, platform, username, email string) error
	AssociatePhone(ctx context.Context, platform, username, phone string) error
	MarkVariation(ctx context.Context, platform, original, variant string) error
	Close(ctx context.Context) error
}

// OpenGraph возвращает neo4j-бэкенд, когда конфигурация полная,
// иначе no-op: оркестратор ведет себя одинаково в обоих случаях.
func OpenGraph(ctx context.Context, cfg config.GraphConfig, log zerolog.Logger) (GraphStore, error) {
	if !cfg.Enabled() {
		return NopGraph{}, nil
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("open neo4j %s: %w", cfg.URI, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Neo4jGraph{driver: driver, log: log.With().Str("backend", "neo4j").Logger()}, nil
}

// NopGraph используется, когда графовая БД не сконфигурирована.
type NopGraph struct{}

func (NopGraph) UpsertProfile(context.Context, models.NormalizedProfile, float64) error { return nil }
func (NopGraph) LinkAccounts(context.Context, models.LinkedAccount) error               { return nil }
func (NopGraph) AssociateEmail(context.Context, string, string, string) error           { return nil }
func (NopGraph) AssociatePhone(context.Context, string, string, string) error           { return nil }
func (NopGraph) MarkVariation(context.Context, string, string, string) error            { return nil }
func (NopGraph) Close(context.Context) error                                            { return nil }

type Neo4jGraph struct {
	driver neo4j.DriverWithContext
	log    zerolog.Logger
}

func (g *Neo4jGraph) write(ctx context.Context, cypher string, params map[string]any) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	params["now"] = time.Now().UTC().Format(time.RFC3339)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	return err
}

func (g *Neo4jGraph) UpsertProfile(ctx context.Context, profile models.NormalizedProfile, confidence float64) error {
	return g.write(ctx, `
		MERGE (u:Username {value: $username, platform: $platform})
		ON CREATE SET u.created_at = $now
		SET u.updated_at = $now
		MERGE (p:Platform {name: $platform})
		SET p.updated_at = $now
		MERGE (pr:Profile {url: $url, platform: $platform})
		SET pr.confidence = $confidence, pr.updated_at = $now
		MERGE (u)-[f:FOUND_ON]->(p)
		SET f.updated_at = $now
		MERGE (u)-[h:LINKED_TO]->(pr)
		SET h.updated_at = $now`,
		map[string]any{
			"username":   profile.Username,
			"platform":   profile.Platform,
			"url":        profile.ProfileURL,
			"confidence": confidence,
		})
}

func (g *Neo4jGraph) LinkAccounts(ctx context.Context, link models.LinkedAccount) error {
	return g.write(ctx, `
		MERGE (a:Username {value: $from_username, platform: $from_platform})
		SET a.updated_at = $now
		MERGE (b:Username {value: $linked_username, platform: $linked_platform})
		SET b.updated_at = $now
		MERGE (a)-[l:LINKED_TO]->(b)
		SET l.confidence = $confidence, l.updated_at = $now`,
		map[string]any{
			"from_username":   link.FromUsername,
			"from_platform":   link.FromPlatform,
			"linked_username": link.LinkedUsername,
			"linked_platform": link.LinkedPlatform,
			"confidence":      link.Confidence,
		})
}

func (g *Neo4jGraph) AssociateEmail(ctx context.Context, platform, username, email string) error {
	return g.write(ctx, `
		MERGE (u:Username {value: $username, platform: $platform})
		SET u.updated_at = $now
		MERGE (e:Email {address: $email})
		SET e.updated_at = $now
		MERGE (u)-[r:USES_EMAIL]->(e)
		SET r.updated_at = $now
		MERGE (e)-[a:EMAIL_ASSOCIATED]->(u)
		SET a.updated_at = $now`,
		map[string]any{"username": username, "platform": platform, "email": email})
}

func (g *Neo4jGraph) AssociatePhone(ctx context.Context, platform, username, phone string) error {
	return g.write(ctx, `
		MERGE (u:Username {value: $username, platform: $platform})
		SET u.updated_at = $now
		MERGE (ph:Phone {number: $phone})
		SET ph.updated_at = $now
		MERGE (u)-[r:USES_PHONE]->(ph)
		SET r.updated_at = $now
		MERGE (ph)-[a:PHONE_ASSOCIATED]->(u)
		SET a.updated_at = $now`,
		map[string]any{"username": username, "platform": platform, "phone": phone})
}

func (g *Neo4jGraph) MarkVariation(ctx context.Context, platform, original, variant string) error {
	return g.write(ctx, `
		MERGE (a:Username {value: $original, platform: $platform})
		SET a.updated_at = $now
		MERGE (b:Username {value: $variant, platform: $platform})
		SET b.updated_at = $now
		MERGE (b)-[v:VARIATION_OF]->(a)
		SET v.updated_at = $now`,
		map[string]any{"original": original, "variant": variant, "platform": platform})
}

func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
