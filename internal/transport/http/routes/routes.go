package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/VickyKR37/autobook/internal/infra/config"
	"github.com/VickyKR37/autobook/internal/transport/http/handlers"
	"github.com/VickyKR37/autobook/internal/transport/http/middleware"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Issuance   handlers.AccessCodeIssuer
	Validation handlers.AccessValidator
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config         *config.AppConfig
	Logger         *zap.Logger
	RateLimiter    *middleware.RateLimiter
	Services       ServiceSet
	OwnerTokens    middleware.OwnerTokenParser
	Metrics        *middleware.HTTPMetrics
	MetricsHandler http.Handler
	TracerProvider trace.TracerProvider
	Database       DatabaseChecker
	Cache          CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing(deps.TracerProvider))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	accessHandler := handlers.NewAccessCodeHandler(deps.Services.Issuance, deps.Services.Validation)
	authMiddleware := middleware.RequireAuth(deps.OwnerTokens)

	api := r.Group("/api/v1")
	{
		accessCodeGroup := api.Group("/access-code")
		accessCodeGroup.Use(authMiddleware)
		accessCodeGroup.GET("", accessHandler.AccessCodeStatus)

		regenerateHandlers := append(buildRegenerateMiddlewares(deps), accessHandler.RegenerateAccessCode)
		accessCodeGroup.POST("/regenerate", regenerateHandlers...)

		mechanicGroup := api.Group("/mechanic-access")
		validateHandlers := append(buildValidateMiddlewares(deps), accessHandler.ValidateAccess)
		mechanicGroup.POST("/validate", validateHandlers...)
	}

	return r
}

func rateLimitWindow(cfg *config.AppConfig) time.Duration {
	window := cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = 15 * time.Minute
	}
	return window
}

func buildValidateMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.ValidateMaxAttempts
	if limit <= 0 {
		return nil
	}

	rule := middleware.RateLimitRule{
		Name:       "mechanic_validate_ip",
		Limit:      limit,
		Window:     rateLimitWindow(deps.Config),
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildRegenerateMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.RegenerateMaxAttempts
	if limit <= 0 {
		return nil
	}

	rule := middleware.RateLimitRule{
		Name:       "access_code_regenerate",
		Limit:      limit,
		Window:     rateLimitWindow(deps.Config),
		Identifier: middleware.AuthenticatedAccountIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
