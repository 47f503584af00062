// Package api wires together all HTTP routes for the listing API.
//
// Route grouping:
//   - /health, /ready and /version are open so probes and load balancers need no key.
//   - Every other route, GET / included, passes the access gate.
//   - /admin/<path> exposes get, create, update and delete for each entity kind plus the
//     certificate document upload. /listings and /certificates/:id/document are read-only.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/api/admin"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/api/public"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/auth"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/config"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/middleware"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage"
)

// Version is the build version reported by /version. Release builds set it with
// -ldflags "-X github.com/Ecaloota/open-csip-aus-listing-api/internal/api.Version=...".
var Version = "0.1.0"

// readinessProbeKey is checked with Exists; it is never written.
const readinessProbeKey = ".readiness-probe"

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackgroundServices holds the goroutines started by NewRouter. The caller (cmd/server) calls
// Shutdown after the HTTP server has drained.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, catalog *repositories.Catalog, archive storage.Storage) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	if handler := corsMiddleware(cfg); handler != nil {
		router.Use(handler)
	}
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))
	if cfg.Security.RateLimiting.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
			BurstSize:         cfg.Security.RateLimiting.Burst,
		})
		bg.rateLimiters = append(bg.rateLimiters, limiter)
		router.Use(middleware.RateLimitMiddleware(limiter))
	}

	router.GET("/health", healthCheckHandler(catalog.Store))
	router.GET("/ready", readinessHandler(catalog.Store, archive))
	router.GET("/version", versionHandler())

	gate := auth.NewGate(catalog, cfg.Auth.BootstrapKeyHash)
	gated := router.Group("/")
	gated.Use(middleware.AccessGateMiddleware(gate, cfg.Auth.Header))
	gated.Use(middleware.AuditMiddleware(nil))
	{
		gated.GET("/", statusHandler(catalog.Store))
		public.RegisterRoutes(gated, catalog, archive, cfg.Storage.URLTTL)

		adminGroup := gated.Group("/admin")
		admin.RegisterCatalogRoutes(adminGroup, catalog)
		documents := admin.NewDocumentHandlers(catalog, archive, cfg.Storage.MaxDocumentBytes)
		adminGroup.PUT("/certificates/:id/document", documents.UploadHandler())
	}

	return router, bg
}

// corsMiddleware builds the CORS handler from configuration. It returns nil when no origin is
// allowed. A "*" entry allows every origin.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := cfg.Security.CORS.AllowedOrigins
	if len(origins) == 0 {
		return nil
	}

	corsConfig := cors.DefaultConfig()
	if slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	if len(cfg.Security.CORS.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.Security.CORS.AllowedMethods
	}
	header := cfg.Auth.Header
	if header == "" {
		header = auth.DefaultHeader
	}
	corsConfig.AddAllowHeaders("Accept", "Authorization", header, middleware.RequestIDHeader)
	corsConfig.AddExposeHeaders(middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After")
	corsConfig.MaxAge = time.Hour
	return cors.New(corsConfig)
}

// @Summary      Health check
// @Description  Returns the health status of the service including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks the database and the document archive.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks, error"
// @Router       /ready [get]
// readinessHandler also probes the archive so a readiness gate fails when document uploads
// and downloads would error.
func readinessHandler(db Pinger, archive storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if _, err := archive.Exists(c.Request.Context(), readinessProbeKey); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API status
// @Description  Reports whether the API and its database are up. Requires an access key.
// @Tags         Public
// @Security     ApiKey
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "api_status: UP, database_status: UP or DOWN"
// @Router       / [get]
// statusHandler always answers 200; a database outage shows in database_status.
func statusHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "UP"
		if err := db.Ping(c.Request.Context()); err != nil {
			slog.WarnContext(c.Request.Context(), "status check: database unreachable", "error", err)
			dbStatus = "DOWN"
		}
		c.JSON(http.StatusOK, gin.H{
			"api_status":      "UP",
			"database_status": dbStatus,
		})
	}
}

// @Summary      API version
// @Description  Returns the build version and the API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}
