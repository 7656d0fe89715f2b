package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/Socialrecon/internal/config"
	"github.com/BetterCallFirewall/Socialrecon/internal/orchestrator"
	"github.com/BetterCallFirewall/Socialrecon/internal/sources"
	"github.com/BetterCallFirewall/Socialrecon/internal/storage"
	"github.com/BetterCallFirewall/Socialrecon/internal/websocket"
)

// Server — REST-фасад оркестратора плюс WebSocket прогресса.
type Server struct {
	http *http.Server
	orc  *orchestrator.Orchestrator
	st   storage.Store
	hub  *websocket.Hub
	log  zerolog.Logger
}

func NewServer(cfg config.WebConfig, orc *orchestrator.Orchestrator, st storage.Store, hub *websocket.Hub, log zerolog.Logger) *Server {
	s := &Server{
		orc: orc,
		st:  st,
		hub: hub,
		log: log.With().Str("component", "web").Logger(),
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/search/social-profiles", s.handleSearch)
		r.Post("/search/linked-accounts", s.handleLinkedAccounts)
		r.Post("/refresh/social-data", s.handleRefresh)
		r.Get("/results/social-profile/{username}/{platform}", s.handleProfile)
		r.Get("/results/social-posts/{username}/{platform}", s.handlePosts)
		r.Get("/platforms", s.handlePlatforms)
	})
	r.Get("/ws", s.hub.ServeWS)
	r.Get("/healthz", s.handleHealth)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("listening")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type searchRequest struct {
	Username  string   `json:"username"`
	Platforms []string `json:"platforms,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	result, err := s.orc.SearchProfiles(r.Context(), req.Username, req.Platforms)
	if err != nil {
		s.writeOrcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type accountRequest struct {
	Username string `json:"username"`
	Platform string `json:"platform"`
}

func (s *Server) handleLinkedAccounts(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Platform == "" {
		writeError(w, http.StatusBadRequest, "username and platform are required")
		return
	}

	links, err := s.orc.FindLinked(r.Context(), req.Platform, req.Username)
	if err != nil {
		s.writeOrcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username":        req.Username,
		"platform":        req.Platform,
		"linked_accounts": links,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Platform == "" {
		writeError(w, http.StatusBadRequest, "username and platform are required")
		return
	}

	detailed, err := s.orc.Refresh(r.Context(), req.Platform, req.Username)
	if err != nil {
		// Контракт refresh: 200 либо 400, любой сбой источника — 400.
		s.log.Warn().Err(err).Str("platform", req.Platform).Str("username", req.Username).Msg("refresh failed")
		writeError(w, http.StatusBadRequest, "refresh failed: "+refreshFailureReason(err))
		return
	}
	writeJSON(w, http.StatusOK, detailed)
}

func refreshFailureReason(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownPlatform):
		return "unsupported platform"
	case errors.Is(err, orchestrator.ErrProfileNotFound), errors.Is(err, sources.ErrNotFound):
		return "profile not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "source timed out"
	default:
		return "upstream error"
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	platform := chi.URLParam(r, "platform")

	detailed, err := s.orc.DetailedProfile(r.Context(), platform, username, false)
	if err != nil {
		s.writeOrcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailed)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	platform := chi.URLParam(r, "platform")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 30)

	posts, err := s.orc.RecentPosts(r.Context(), platform, username, page, pageSize)
	if err != nil {
		s.writeOrcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username":  username,
		"platform":  platform,
		"page":      page,
		"page_size": pageSize,
		"posts":     posts,
	})
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"platforms": s.orc.Platforms()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.st.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeOrcError транслирует ошибки оркестратора в HTTP-статусы.
func (s *Server) writeOrcError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownPlatform):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrProfileNotFound), errors.Is(err, sources.ErrNotFound):
		writeError(w, http.StatusNotFound, "profile not found")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "source timed out")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
