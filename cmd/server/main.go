// @title           Open CEC Listing API
// @version         0.1.0
// @description     Certified electrical equipment listings: entity types, device classes and their attribute schemas, listings with attribute values, and certificates.
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  ApiKey
// @in                          header
// @name                        X-API-Key
// @description                 Access key. "Authorization: Bearer {key}" is accepted as well.
//
// @tag.name         System
// @tag.description  Health, readiness and version endpoints. These are not gated.
//
// @tag.name         Public
// @tag.description  Read-only listing graph and certificate documents.
//
// @tag.name         Admin
// @tag.description  Get, create, update and delete for every entity kind.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics are served on a side-channel port (default: 9090) at GET /metrics, outside the Gin router. pprof is served on OPEN_CEC_API_TELEMETRY_PROFILING_PORT when OPEN_CEC_API_TELEMETRY_PROFILING_ENABLED=true.

// Package main is the entry point for the listing API server binary.
// It dispatches four subcommands (serve, migrate, seed and version) via a switch on os.Args.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- served only on the profiling port, never on the API listener.
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/api"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/config"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/safego"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/seed"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/telemetry"

	// Document archive backends register themselves with the storage factory.
	_ "github.com/Ecaloota/open-csip-aus-listing-api/internal/storage/azure"
	_ "github.com/Ecaloota/open-csip-aus-listing-api/internal/storage/gcs"
	_ "github.com/Ecaloota/open-csip-aus-listing-api/internal/storage/local"
	_ "github.com/Ecaloota/open-csip-aus-listing-api/internal/storage/s3"
)

const dbStatsInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command == "version" {
		fmt.Printf("Open CEC Listing API v%s\n", api.Version)
		return nil
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down|force VERSION>", os.Args[0])
		}
		if os.Args[2] == "force" {
			if len(os.Args) < 4 {
				return fmt.Errorf("usage: %s migrate force VERSION", os.Args[0])
			}
			version, err := strconv.Atoi(os.Args[3])
			if err != nil {
				return fmt.Errorf("invalid migration version %q: %w", os.Args[3], err)
			}
			return forceMigration(cfg, version)
		}
		return runMigrations(cfg, os.Args[2])
	case "seed":
		return runSeed(cfg)
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, seed, version", command)
	}
}

func connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Connect(ctx, cfg.Database.GetDSN(), db.PoolConfig{
		MaxOpen:     cfg.Database.MaxConnections,
		MaxIdle:     cfg.Database.MinIdleConnections,
		MaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port, "name", cfg.Database.Name,
		"user", cfg.Database.User, "ssl_mode", cfg.Database.SSLMode)
	return database, nil
}

func serve(cfg *config.Config) error {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	telemetry.StartDBStatsCollector(ctx, database.DB, dbStatsInterval)

	if cfg.Database.AutoMigrate {
		slog.Info("running database migrations")
		if err := db.RunMigrations(database.DB, "up"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	if version, dirty, err := db.GetMigrationVersion(database.DB); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema version", "version", version, "dirty", dirty)
	}

	catalog := repositories.NewCatalog(repositories.NewStore(database))
	if cfg.Database.SeedOnStart {
		if _, err := seed.Run(ctx, catalog, cfg.Auth.BootstrapKeyHash); err != nil {
			return err
		}
	}

	archive, err := storage.NewStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize document archive: %w", err)
	}

	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		safego.Go("metrics-server", func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	if cfg.Telemetry.Profiling.Enabled {
		pprofAddr := fmt.Sprintf(":%d", cfg.Telemetry.Profiling.Port)
		safego.Go("pprof-server", func() {
			slog.Info("starting pprof server", "addr", pprofAddr)
			srv := &http.Server{ //nolint:gosec // internal-only pprof port
				Addr:         pprofAddr,
				Handler:      http.DefaultServeMux,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("pprof server error", "error", err)
			}
		})
	}

	router, bgServices := api.NewRouter(cfg, catalog, archive)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", cfg.Server.GetAddress(),
			"storage_backend", cfg.Storage.DefaultBackend,
			"tls", cfg.Security.TLS.Enabled)

		var err error
		if cfg.Security.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			bgServices.Shutdown()
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	bgServices.Shutdown()

	slog.Info("server stopped gracefully")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := connect(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)

	if err := db.RunMigrations(database.DB, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	slog.Info("migration completed", "version", version, "dirty", dirty)
	return nil
}

// forceMigration clears a dirty schema_migrations row left by an interrupted migration.
func forceMigration(cfg *config.Config, version int) error {
	database, err := connect(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	current, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		return err
	}
	slog.Info("current migration state", "version", current, "dirty", dirty)

	if err := db.ForceMigrationVersion(database.DB, version); err != nil {
		return err
	}
	slog.Info("migration version forced", "version", version)
	return nil
}

func runSeed(cfg *config.Config) error {
	ctx := context.Background()
	database, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Auth.BootstrapKeyHash == "" {
		slog.Warn("auth.bootstrap_key_hash is not set; no access key will be seeded")
	}
	_, err = seed.Run(ctx, repositories.NewCatalog(repositories.NewStore(database)), cfg.Auth.BootstrapKeyHash)
	return err
}
