package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/nexus/internal/analyst"
	"github.com/JonMunkholm/nexus/internal/config"
	"github.com/JonMunkholm/nexus/internal/history"
	"github.com/JonMunkholm/nexus/internal/ingest"
	"github.com/JonMunkholm/nexus/internal/logging"
	"github.com/JonMunkholm/nexus/internal/session"
	"github.com/JonMunkholm/nexus/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"history_db", cfg.Database.Enabled(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"analyst_provider", cfg.Analyst.Provider,
	)

	ctx := context.Background()

	// Ingestion history: PostgreSQL when configured, memory otherwise
	var recorder history.Recorder
	if cfg.Database.Enabled() {
		pool, err := connectDB(ctx, &cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store, err := history.NewPostgresStore(ctx, pool)
		if err != nil {
			slog.Error("failed to prepare history table", "error", err)
			os.Exit(1)
		}
		recorder = store
	} else {
		slog.Info("no DATABASE_URL set, keeping ingestion history in memory")
		recorder = history.NewMemoryStore(history.DefaultMemoryCapacity)
	}

	roles := ingest.DefaultRoleConfig()
	if cfg.Ingest.RolesFile != "" {
		roles, err = ingest.LoadRoleConfig(cfg.Ingest.RolesFile)
		if err != nil {
			slog.Error("failed to load column roles", "file", cfg.Ingest.RolesFile, "error", err)
			os.Exit(1)
		}
		slog.Info("column roles loaded", "file", cfg.Ingest.RolesFile)
	}

	ingester := ingest.NewIngester(roles,
		ingest.WithMaxEntrySize(cfg.Upload.MaxEntrySize),
		ingest.WithLogger(slog.Default()),
	)
	limiter := ingest.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)

	sessions := session.NewStore(cfg.Session.TTL,
		session.WithRoleConfig(roles),
		session.WithStoreLogger(slog.Default()),
	)
	if err := sessions.StartSweeper(cfg.Session.SweepInterval); err != nil {
		slog.Error("failed to start session sweeper", "error", err)
		os.Exit(1)
	}

	// A missing or broken provider disables questions but not the server
	provider, err := analyst.NewProvider(ctx, analyst.ProviderConfig{
		Kind:      cfg.Analyst.Provider,
		APIKey:    cfg.Analyst.APIKey,
		OllamaURL: cfg.Analyst.OllamaURL,
		Timeout:   cfg.Analyst.Timeout,
	})
	if err != nil {
		slog.Warn("question answering disabled", "provider", cfg.Analyst.Provider, "error", err)
		provider = nil
	} else if provider == nil {
		slog.Info("question answering disabled", "provider", cfg.Analyst.Provider)
	} else {
		slog.Info("question answering enabled", "provider", provider.Name())
	}
	if c, ok := provider.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	analystSvc := analyst.New(provider, analyst.Config{
		Model:       cfg.Analyst.Model,
		Temperature: cfg.Analyst.Temperature,
		Timeout:     cfg.Analyst.Timeout,
		MaxRows:     cfg.Analyst.MaxRows,
	}, slog.Default())

	server := web.NewServer(web.Deps{
		Config:   cfg,
		Ingester: ingester,
		Limiter:  limiter,
		Sessions: sessions,
		History:  recorder,
		Analyst:  analystSvc,
		Logger:   slog.Default(),
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active ingestions to complete (with timeout)
		if st := limiter.Status(); st.Active > 0 {
			slog.Info("waiting for ingestions to complete", "active", st.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("ingestions did not complete in time", "error", err)
			} else {
				slog.Info("all ingestions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		sessions.StopSweeper()
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connectDB opens and verifies the history database pool.
func connectDB(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
