package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/seattleguide/seattleguide/internal/agent"
	"github.com/seattleguide/seattleguide/internal/handler"
	"github.com/seattleguide/seattleguide/internal/middleware"
	"github.com/seattleguide/seattleguide/internal/security"
	"github.com/seattleguide/seattleguide/internal/service"
	"github.com/seattleguide/seattleguide/internal/tools"
)

func (s *Server) setupRoutes() (http.Handler, error) {
	cfg := s.cfg

	// ─── Services ───────────────────────────────────────────────────────────────
	model, err := NewModel(cfg)
	if err != nil {
		return nil, err
	}
	maps, err := NewMapsService(cfg)
	if err != nil {
		return nil, err
	}
	corpus, err := NewCorpus(cfg)
	if err != nil {
		return nil, fmt.Errorf("corpus backend: %w", err)
	}

	services := tools.Services{Maps: maps, Corpus: corpus}
	toolConfig := tools.ConfigFrom(cfg)

	// Every tool, for the listing endpoint. Chat requests build their own.
	catalog, err := tools.NewRegistry(toolConfig, services, tools.AllNames()...)
	if err != nil {
		return nil, fmt.Errorf("tool catalog: %w", err)
	}

	log.Info().
		Str("model_provider", cfg.Model.Provider).
		Str("model", model.Name()).
		Str("corpus_backend", corpus.Backend()).
		Str("routing_mode", cfg.Routing.Mode).
		Bool("auth_enabled", cfg.Auth.Enabled && len(cfg.Auth.APIKeys) > 0).
		Bool("audit_logging", cfg.Security.AuditLogging).
		Bool("prompt_validation", cfg.Security.ValidatePrompts).
		Msg("service configuration")

	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		log.Warn().Msg("WARNING: auth enabled but no API keys configured - all API requests will be rejected")
	}

	// ─── Security ───────────────────────────────────────────────────────────────
	piiDetector := security.NewPIIDetector(cfg.Security.PIIKeywords)
	var promptVal *security.PromptValidator
	if cfg.Security.ValidatePrompts {
		promptVal = security.NewPromptValidator(cfg.Security.MaxMessageLength)
	}
	auditLogger := security.NewAuditLogger(cfg.Security.AuditLogging)

	// ─── Agent ───────────────────────────────────────────────────────────────────
	guide := agent.NewGuide(model, cfg.Model.MaxTokens, cfg.Model.MaxIterations)
	chat := agent.NewChatHandler(
		guide,
		service.NewIntentRouter(),
		services,
		toolConfig,
		cfg.Routing.Mode,
		piiDetector,
		promptVal,
		auditLogger,
	)

	// ─── Handlers ────────────────────────────────────────────────────────────────
	checks := map[string]handler.HealthChecker{}
	if hc, ok := corpus.(handler.HealthChecker); ok {
		checks["corpus_"+corpus.Backend()] = hc
	}
	healthH := handler.NewHealthHandler(checks)
	chatH := handler.NewChatHandler(chat, cfg.Auth.Header, s.writeTimeout)
	toolsH := handler.NewToolsHandler(catalog)

	// ─── Router ──────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins, cfg.Auth.Header)))

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(middleware.Auth(cfg.Auth.APIKeys, cfg.Auth.Header))
		}
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))

		r.Route(cfg.Server.APIPrefix, func(r chi.Router) {
			r.Post("/chat", chatH.Chat)
			r.Get("/tools", toolsH.List)
		})
	})

	return r, nil
}
