package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api/handlers"
	"github.com/vani-hq/vani/internal/api/middleware"
	"github.com/vani-hq/vani/internal/auth"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/internal/ingest"
	"github.com/vani-hq/vani/internal/outreach"
	"github.com/vani-hq/vani/internal/pitch"
	"github.com/vani-hq/vani/internal/sheets"
	"github.com/vani-hq/vani/pkg/config"
	"github.com/vani-hq/vani/pkg/crypto"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	Config         *config.Config
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	AccessService  *access.Service
	IngestService  *ingest.Service
	Sender         *outreach.Sender
	Generator      *pitch.Generator
	Exporter       *sheets.Exporter
	Encryptor      *crypto.Encryptor
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Industry-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	industryHandler := handlers.NewIndustryHandler(cfg.DB, cfg.AccessService)
	permissionHandler := handlers.NewPermissionHandler(cfg.DB, cfg.AccessService)
	targetHandler := handlers.NewTargetHandler(cfg.DB, cfg.AccessService, cfg.Generator, cfg.Exporter)
	contactHandler := handlers.NewContactHandler(cfg.DB, cfg.AccessService)
	companyHandler := handlers.NewCompanyHandler(cfg.DB, cfg.AccessService)
	outreachHandler := handlers.NewOutreachHandler(cfg.DB, cfg.AccessService, cfg.Sender)
	meetingHandler := handlers.NewMeetingHandler(cfg.DB, cfg.AccessService)
	credentialHandler := handlers.NewCredentialHandler(cfg.DB, cfg.AccessService, cfg.Encryptor)
	followUpHandler := handlers.NewFollowUpHandler(cfg.DB, cfg.AccessService)
	analyticsHandler := handlers.NewAnalyticsHandler(cfg.DB, cfg.AccessService)
	webhookHandler := handlers.NewWebhookHandler(
		cfg.IngestService, cfg.Logger,
		cfg.Config.Resend, cfg.Config.Twilio, cfg.Config.Calendar,
	)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Provider callbacks authenticate by signature, not session, and are
	// exempt from rate limiting so bursts of delivery events are never
	// dropped.
	r.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/resend", webhookHandler.Resend)
		r.Post("/twilio", webhookHandler.Twilio)
		r.Post("/cal", webhookHandler.Cal)
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Config.RateLimit.Requests > 0 {
			r.Use(middleware.RateLimit(cfg.Config.RateLimit.Requests, cfg.Config.RateLimit.WindowSeconds))
		}

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			r.Use(middleware.IndustryScope())

			r.Get("/me", authHandler.Me)

			r.Route("/industries", func(r chi.Router) {
				r.Get("/", industryHandler.List)
				r.Get("/{id}", industryHandler.Get)
				r.Post("/switch", industryHandler.Switch)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleSuperUser))
					r.Post("/", industryHandler.Create)
					r.Put("/{id}", industryHandler.Update)
				})
			})

			r.Get("/use-cases", permissionHandler.ListUseCases)

			r.Route("/permissions", func(r chi.Router) {
				r.Get("/", permissionHandler.List)
				r.Post("/", permissionHandler.Grant)
				r.Delete("/{id}", permissionHandler.Revoke)
			})

			r.Route("/targets", func(r chi.Router) {
				r.Get("/", targetHandler.List)
				r.Post("/", targetHandler.Create)
				r.Post("/identify", targetHandler.Identify)
				r.Post("/export", targetHandler.Export)
				r.Get("/{id}", targetHandler.Get)
				r.Put("/{id}", targetHandler.Update)
				r.Delete("/{id}", targetHandler.Delete)
				r.Post("/{id}/pitch", targetHandler.GeneratePitch)
				r.Get("/{id}/pitches", targetHandler.ListPitches)
			})

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", contactHandler.List)
				r.Post("/", contactHandler.Create)
				r.Get("/{id}", contactHandler.Get)
				r.Put("/{id}", contactHandler.Update)
				r.Delete("/{id}", contactHandler.Delete)
			})

			r.Route("/companies", func(r chi.Router) {
				r.Get("/", companyHandler.List)
				r.Post("/", companyHandler.Create)
				r.Get("/{id}", companyHandler.Get)
				r.Put("/{id}", companyHandler.Update)
				r.Delete("/{id}", companyHandler.Delete)
			})

			r.Route("/outreach", func(r chi.Router) {
				r.Get("/", outreachHandler.List)
				r.Post("/send", outreachHandler.Send)
			})

			r.Route("/meetings", func(r chi.Router) {
				r.Get("/", meetingHandler.List)
				r.Get("/{id}", meetingHandler.Get)
			})

			r.Route("/credentials", func(r chi.Router) {
				r.Get("/", credentialHandler.List)
				r.Post("/", credentialHandler.Create)
				r.Delete("/{id}", credentialHandler.Delete)
			})

			r.Route("/followups", func(r chi.Router) {
				r.Get("/", followUpHandler.List)
				r.Post("/", followUpHandler.Create)
				r.Put("/{id}", followUpHandler.Update)
				r.Delete("/{id}", followUpHandler.Delete)
			})

			r.Get("/analytics/summary", analyticsHandler.Summary)
		})
	})

	return &Router{r}
}
