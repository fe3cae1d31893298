package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/audioforge/ttsgate/internal/api/handlers"
	"github.com/audioforge/ttsgate/internal/api/middleware"
	"github.com/audioforge/ttsgate/internal/audit"
	"github.com/audioforge/ttsgate/internal/auth"
	"github.com/audioforge/ttsgate/internal/cache"
	"github.com/audioforge/ttsgate/internal/config"
	"github.com/audioforge/ttsgate/internal/events"
	"github.com/audioforge/ttsgate/internal/jobs"
	"github.com/audioforge/ttsgate/internal/queue"
	"github.com/audioforge/ttsgate/internal/tts"
)

type Router struct {
	mux       *chi.Mux
	db        *pgxpool.Pool
	redis     *redis.Client
	cfg       *config.Config
	jwt       *auth.JWTMiddleware
	registry  *tts.Registry
	publisher *events.Publisher
}

// NewRouter wires the provider registry from config. The db and
// publisher handles may be nil; the routes that need them degrade
// rather than panic.
func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, publisher *events.Publisher) *Router {
	return &Router{
		mux:       chi.NewRouter(),
		db:        db,
		redis:     rdb,
		cfg:       cfg,
		jwt:       auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		registry:  tts.NewRegistryFromConfig(cfg),
		publisher: publisher,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))

	rl := middleware.NewRateLimiter(rt.cfg.Server.RateLimitRPS, rt.cfg.Server.RateLimitBurst)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis, rt.registry)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	responseCache := cache.NewCache(rt.redis, time.Hour)
	jobStore := jobs.NewStore(responseCache, 0)
	queueClient := queue.NewClient(rt.cfg.Redis)

	var auditSvc *audit.Service
	if rt.db != nil {
		auditSvc = audit.NewService(rt.db)
	}

	// API v1, bearer-protected when a JWT secret is configured
	r.Route("/api/v1", func(r chi.Router) {
		if rt.cfg.Auth.JWTSecret != "" {
			r.Use(rt.jwt.Authenticate)
		}

		r.Get("/health", health.Info)

		// Synthesis routes
		ttsH := handlers.NewTTSHandler(rt.registry, responseCache, auditSvc, rt.publisher, rt.cfg.TTS)
		jobsH := handlers.NewJobsHandler(rt.registry, queueClient, jobStore, rt.cfg.TTS)
		docH := handlers.NewDocumentHandler(ttsH, queueClient, jobStore, rt.cfg.TTS)
		r.Route("/tts", func(r chi.Router) {
			r.Post("/", ttsH.Synthesize)
			r.Get("/formats", ttsH.Formats)
			r.Get("/providers", ttsH.Providers)
			r.Get("/voices", ttsH.Voices)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", jobsH.Create)
				r.Get("/{id}", jobsH.Get)
				r.Get("/{id}/audio", jobsH.Audio)
				r.Delete("/{id}", jobsH.Delete)
			})

			r.Post("/document", docH.Speak)
		})

		// Admin routes additionally demand the admin role
		adminH := handlers.NewAdminHandler(auditSvc)
		r.Route("/admin", func(r chi.Router) {
			if rt.cfg.Auth.JWTSecret != "" {
				r.Use(rt.jwt.RequireAdmin)
			}
			r.Get("/usage", adminH.Usage)
		})
	})

	return r
}
