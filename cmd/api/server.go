package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/remotehive-dev/Spark-Configurator/internal/app"
	"github.com/remotehive-dev/Spark-Configurator/internal/auth"
	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/config"
	"github.com/remotehive-dev/Spark-Configurator/internal/curriculum"
	"github.com/remotehive-dev/Spark-Configurator/internal/events"
	"github.com/remotehive-dev/Spark-Configurator/internal/health"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
	"github.com/remotehive-dev/Spark-Configurator/internal/proposal"
	"github.com/remotehive-dev/Spark-Configurator/internal/quote"
	"github.com/remotehive-dev/Spark-Configurator/internal/ratelimit"
	"github.com/remotehive-dev/Spark-Configurator/internal/security"
	"github.com/remotehive-dev/Spark-Configurator/internal/student"
	"github.com/remotehive-dev/Spark-Configurator/internal/topic"
)

// services bundles the domain services the router exposes.
type services struct {
	students   *student.Service
	topics     *topic.Service
	curriculum *curriculum.Service
	auth       *auth.Service
	quotes     *quote.Service
	hub        *events.Hub
}

// newServices picks Postgres stores when a pool is configured and in-memory
// stores otherwise.
func newServices(cfg *config.Config, deps *app.Dependencies, logger zerolog.Logger) (*services, error) {
	var (
		studentStore  student.Store      = student.NewMemoryStore()
		topicStore    topic.Store        = topic.NewMemoryStore()
		accountStore  auth.AccountStore  = auth.NewMemoryStore()
		fileStore     curriculum.FileStore
		customization curriculum.CustomizationStore
	)
	memCurriculum := curriculum.NewMemoryStore()
	fileStore, customization = memCurriculum, memCurriculum
	if deps.DB != nil {
		studentStore = student.NewPostgresStore(deps.DB)
		topicStore = topic.NewPostgresStore(deps.DB)
		accountStore = auth.NewPostgresStore(deps.DB)
		pgCurriculum := curriculum.NewPostgresStore(deps.DB)
		fileStore, customization = pgCurriculum, pgCurriculum
	}

	hub := events.NewHub()

	students, err := student.NewService(student.ServiceConfig{Store: studentStore})
	if err != nil {
		return nil, err
	}
	var cache *topic.Cache
	if deps.Redis != nil {
		cache = topic.NewCache(deps.Redis, cfg.TopicCacheTTL)
	}
	topics, err := topic.NewService(topic.ServiceConfig{
		Store:  topicStore,
		Cache:  cache,
		Hub:    hub,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	curriculumSvc, err := curriculum.NewService(curriculum.ServiceConfig{
		Files:          fileStore,
		Customizations: customization,
	})
	if err != nil {
		return nil, err
	}
	authSvc, err := auth.NewService(auth.Config{
		Store:          accountStore,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		return nil, err
	}
	renderer, err := proposal.NewRenderer(proposal.Config{
		BrandName: cfg.BrandName,
		Tagline:   cfg.BrandTagline,
	})
	if err != nil {
		return nil, err
	}
	quotes := quote.NewService(quote.ServiceConfig{
		Students:       students,
		Customizations: curriculumSvc,
		Renderer:       renderer,
	})

	return &services{
		students:   students,
		topics:     topics,
		curriculum: curriculumSvc,
		auth:       authSvc,
		quotes:     quotes,
		hub:        hub,
	}, nil
}

// routerConfig carries everything newRouter needs beyond the services.
type routerConfig struct {
	Config      *config.Config
	Deps        *app.Dependencies
	Logger      zerolog.Logger
	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
}

func newRouter(rc routerConfig, svc *services) http.Handler {
	cfg := rc.Config

	csrf := security.CSRF{Secret: []byte("csrf\x00" + cfg.JWTSecret), SessionCookie: cfg.AccessCookieName}
	authHandler := &auth.Handler{
		Service:          svc.auth,
		CSRF:             csrf,
		AccessCookieName: cfg.AccessCookieName,
		CookieDomain:     cfg.CookieDomain,
		CookieSecure:     cfg.CookieSecure,
		CookieSameSite:   cfg.CookieSameSite,
	}
	adminHandler := &auth.AdminHandler{Service: svc.auth}
	authMiddleware := auth.Middleware{Service: svc.auth, AccessCookie: cfg.AccessCookieName}

	studentHandler := student.NewHandler(svc.students)
	topicHandler := topic.NewHandler(topic.HandlerConfig{Service: svc.topics, Hub: svc.hub})
	curriculumHandler := curriculum.NewHandler(svc.curriculum)
	quoteHandler := quote.NewHandler(svc.quotes)

	idem := common.Idem{R: rc.Deps.Redis, TTL: cfg.IdempotencyTTL}
	loginLimit := ratelimit.Handler{
		Limiter: rc.Deps.RateLimiter("rl:login"),
		Rule:    ratelimit.Rule{Window: cfg.LoginRateWindow, Max: cfg.LoginRateLimit},
		Key:     ratelimit.ByClientIP("login", cfg.TrustedProxies...),
		OnError: func(err error) {
			rc.Logger.Warn().Err(err).Msg("login rate limiter unavailable")
		},
		OnLimited: func(*http.Request) { obs.RecordLogin("limited") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(obs.Track)
	if rc.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if rc.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: rc.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: rc.Logger}.Middleware)
	r.Use(security.Headers{
		Enable:                true,
		EnableHSTS:            cfg.IsProduction(),
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		ContentSecurityPolicy: security.DefaultContentSecurityPolicy,
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Receipt-ID", common.ReplayedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.BodyLimit{
		Max:         cfg.BodyLimitBytes,
		ImportMax:   cfg.ImportBodyLimitBytes,
		ImportPaths: []string{"/api/v1/students/import", "/api/v1/topics/bulk"},
	}.Middleware)

	if rc.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.EnablePprof {
		r.Route("/debug", func(d chi.Router) {
			d.Use(middleware.BasicAuth("pprof", map[string]string{cfg.Obs.PprofUser: cfg.Obs.PprofPass}))
			d.Mount("/", middleware.Profiler())
		})
	}

	healthHandler := health.Handler{Probes: rc.Deps.Probes(cfg.ReadyDBTimeout, cfg.ReadyRedisTimeout)}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimit.Middleware).Post("/login", authHandler.Login)
			a.Post("/logout", authHandler.Logout)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(authMiddleware.RequireAuth)
			p.Use(csrf.Middleware)

			p.Get("/students", studentHandler.List)
			p.Get("/students/{id}", studentHandler.Get)

			p.Get("/topics", topicHandler.List)
			p.Get("/topics/suggest", topicHandler.Suggest)
			p.Get("/topics/stream", topicHandler.Stream)

			p.Get("/curriculum-files", curriculumHandler.ListFiles)
			p.Post("/customizations", curriculumHandler.AddCustomization)
			p.Get("/customizations/{studentId}", curriculumHandler.LatestCustomization)

			p.Post("/quotes", quoteHandler.Quote)
			p.Post("/coupons/validate", quoteHandler.ValidateCoupon)
			p.Post("/proposals", quoteHandler.Proposal)

			p.Group(func(admin chi.Router) {
				admin.Use(auth.RequireRole(auth.RoleAdmin))

				admin.Post("/students", studentHandler.Create)
				admin.With(idem.Middleware).Post("/students/import", studentHandler.Import)

				admin.Post("/topics", topicHandler.Create)
				admin.With(idem.Middleware).Post("/topics/bulk", topicHandler.Bulk)
				admin.Put("/topics/{id}", topicHandler.Update)
				admin.Delete("/topics/{id}", topicHandler.Delete)

				admin.Post("/curriculum-files", curriculumHandler.AddFile)

				admin.Route("/admin/users", func(u chi.Router) {
					u.Get("/", adminHandler.List)
					u.Post("/", adminHandler.Create)
					u.Get("/stats", adminHandler.Stats)
					u.Delete("/{id}", adminHandler.Delete)
					u.Post("/{id}/reset-password", adminHandler.ResetPassword)
				})
			})
		})
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
