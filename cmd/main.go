package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/Socialrecon/internal/cache"
	"github.com/BetterCallFirewall/Socialrecon/internal/config"
	"github.com/BetterCallFirewall/Socialrecon/internal/creds"
	"github.com/BetterCallFirewall/Socialrecon/internal/matcher"
	"github.com/BetterCallFirewall/Socialrecon/internal/orchestrator"
	"github.com/BetterCallFirewall/Socialrecon/internal/sources"
	"github.com/BetterCallFirewall/Socialrecon/internal/storage"
	"github.com/BetterCallFirewall/Socialrecon/internal/transport"
	"github.com/BetterCallFirewall/Socialrecon/internal/web"
	"github.com/BetterCallFirewall/Socialrecon/internal/websocket"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := storage.Open(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	ctx := context.Background()
	graph, err := storage.OpenGraph(ctx, cfg.Graph, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open graph storage")
	}
	defer graph.Close(ctx)

	provider, err := creds.NewProvider(cfg.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init credential provider")
	}

	adapters := sources.NewAll(sources.Deps{
		Transport: transport.NewHTTPTransport(cfg.Fanout.RequestTimeout),
		Creds:     provider,
		Logger:    log,
	}, cfg.Env)
	fallback := sources.NewFallback(transport.NewHTTPTransport(cfg.Fanout.RequestTimeout), log)

	hub := websocket.NewHub(log)
	go hub.Run()

	memCache := cache.New(cfg.Fanout.DetailedCacheTTL, 10*time.Minute)
	resolver := matcher.NewResolver(store, log)
	orc := orchestrator.New(adapters, fallback, memCache, store, graph, resolver, hub, cfg.Fanout, log)

	server := web.NewServer(cfg.Web, orc, store, hub, log)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("web server failed")
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
