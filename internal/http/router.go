// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, failure dispatch, panic
// recovery, metrics, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Every failure reaches the client through the dispatcher
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-events-backend/docs"
	"github.com/tbourn/go-events-backend/internal/apperr"
	"github.com/tbourn/go-events-backend/internal/config"
	"github.com/tbourn/go-events-backend/internal/domain"
	"github.com/tbourn/go-events-backend/internal/http/dispatch"
	"github.com/tbourn/go-events-backend/internal/http/handlers"
	"github.com/tbourn/go-events-backend/internal/http/middleware"
	"github.com/tbourn/go-events-backend/internal/repo"
	"github.com/tbourn/go-events-backend/internal/services"
	"github.com/tbourn/go-events-backend/internal/validation"
)

// maskedHeaders are scrubbed from request logs and failure records on top of
// the built-in Authorization/Cookie set.
var maskedHeaders = []string{"X-API-Key"}

// cityRepoShim adapts the repository free functions to the services.CityRepo
// interface expected by the CityService.
type cityRepoShim struct{}

// CreateCity proxies repo.CreateCity.
func (cityRepoShim) CreateCity(ctx context.Context, db *gorm.DB, name, country string) (*domain.City, error) {
	return repo.CreateCity(ctx, db, name, country)
}

// GetCity proxies repo.GetCity.
func (cityRepoShim) GetCity(ctx context.Context, db *gorm.DB, id string) (*domain.City, error) {
	return repo.GetCity(ctx, db, id)
}

// CountCities proxies repo.CountCities (pagination support).
func (cityRepoShim) CountCities(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountCities(ctx, db)
}

// ListCitiesPage proxies repo.ListCitiesPage (pagination support).
func (cityRepoShim) ListCitiesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.City, error) {
	return repo.ListCitiesPage(ctx, db, offset, limit)
}

// NewValidationStage builds the request validation stage from configuration.
func NewValidationStage(cfg config.ValidationConfig) *validation.Stage {
	return validation.New(validation.Options{
		Whitelist:          cfg.Whitelist,
		Transform:          cfg.Transform,
		StopAtFirstError:   cfg.StopAtFirstError,
		ImplicitConversion: cfg.ImplicitConversion,
		ForbidUnknown:      cfg.ForbidUnknown,
	})
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. Failure records are written to logger.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: access log with PII scrubbing (sees the final status)
//  4. Optional gzip, wrapping the dispatcher so envelopes are compressed too
//  5. CORS and security headers, set before any failure can be rendered
//  6. Dispatcher: renders every recorded failure as an error envelope
//  7. Recovery: panics are handed to the dispatcher
//  8. Body capture with size cap
//  9. Metrics
//  10. Idempotency validator (before rate limiter to allow bypass on replay)
//  11. Rate limiter (per user/IP, bypass on replay)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, logger zerolog.Logger) {
	r.HandleMethodNotAllowed = true

	d := dispatch.New(logger, dispatch.Options{
		GenericMessage: cfg.Errors.GenericMessage,
		Redactor:       middleware.NewRedactor(middleware.RedactOptions{MaskHeaders: maskedHeaders}),
	})

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: maskedHeaders}))

	// 4) gzip swaps c.Writer for the rest of the chain and closes it on return
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}

	// 5) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", handlers.HeaderReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:        cfg.Security.EnableHSTS,
		HSTSMaxAge:        cfg.Security.HSTSMaxAge,
		EnablePolicy:      true,
		CSPExemptPrefixes: []string{"/swagger/"}, // Swagger UI needs inline scripts
	}))

	// 6) Failure dispatch and 7) panic recovery
	r.Use(d.Middleware())
	r.Use(middleware.Recovery(d.HandlePanic))

	// 8) Body capture (413 past the cap)
	r.Use(middleware.CaptureBody(cfg.MaxBodyBytes))

	// 9) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 10) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			return repo.HasIdempotency(ctx, db, userID, key, now)
		},
	))

	// 11) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(middleware.RateLimitOptions{
		RPS:    cfg.RateRPS,
		Burst:  cfg.RateBurst,
		Key:    middleware.KeyByUserOrIP(),
		Exempt: []string{"/health", "/metrics"},
	})
	r.Use(rl.Handler())

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, apperr.NotFound(apperr.CodeNotFound, "route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, apperr.MethodNotAllowed())
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	citySvc := services.NewCityService(db, cityRepoShim{})
	eventSvc := &services.EventService{DB: db, IdempotencyTTL: cfg.IdempotencyTTL}
	h := handlers.New(citySvc, eventSvc, NewValidationStage(cfg.Validation))

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	{
		// Cities
		api.POST("/cities", h.CreateCity)
		api.GET("/cities", h.ListCities)
		api.GET("/cities/:id", h.GetCity)

		// Events
		api.POST("/events", h.CreateEvent)
		api.GET("/events", h.ListEvents)
		api.GET("/events/:id", h.GetEvent)
		api.PUT("/events/:id", h.RenameEvent)
		api.DELETE("/events/:id", h.DeleteEvent)
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
