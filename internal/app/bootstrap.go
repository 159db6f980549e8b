package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"gallery-api/internal/auth"
	"gallery-api/internal/config"
	"gallery-api/internal/db"
	"gallery-api/internal/image"
	"gallery-api/internal/maintenance"
	"gallery-api/internal/media"
	"gallery-api/internal/observability"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Config  config.Config
	Close   func() error
}

// Build wires the whole service: config, database, auth, gallery, uploads,
// maintenance, and the middleware stack around the mux.
func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Warn("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.Apply(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	credStore := auth.NewStore(database)
	authService := auth.NewService(credStore, tokens)
	authHandler := auth.NewHandler(authService)

	files, err := media.NewDiskStore(cfg.UploadDir)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init upload store: %w", err)
	}

	imageRepo := image.NewRepository(database)
	guard := image.NewGuard(imageRepo)
	imageHandler := image.NewHandler(imageRepo, guard, files)

	cleanupHandler := maintenance.NewCleanupHandler(
		imageRepo,
		files,
		logger,
		cfg.CronSecret,
		cfg.UploadRetention,
	)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(tokens, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("GET /health", healthHandler(database))
	mux.Handle("GET /api/users/me", protected(authHandler.Me))
	mux.Handle("GET /api/images", protected(imageHandler.List))
	mux.Handle("GET /api/images/search", protected(imageHandler.Search))
	mux.Handle("PUT /api/images/{id}", protected(imageHandler.Rename))
	mux.Handle("POST /api/images", protected(imageHandler.Upload))
	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(files.Dir()))))

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, mux))

	return &Runtime{
		Handler: handler,
		Config:  cfg,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
