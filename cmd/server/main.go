package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"quill/internal/config"
	"quill/internal/domain/models"
	"quill/internal/engine"
	"quill/internal/handler"
	"quill/internal/middleware"
	"quill/internal/profiles"
	"quill/internal/repository/postgres"
	redisrepo "quill/internal/repository/redis"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Load engine tuning profiles
	profileRegistry, err := profiles.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load engine profiles: %v", err)
	}
	opts, err := resolveOptions(cfg, profileRegistry)
	if err != nil {
		log.Fatalf("Failed to resolve engine profile: %v", err)
	}
	logger.Info("engine profile resolved",
		"profile", cfg.Profile,
		"lock_ttl", opts.LockTTL,
		"presence_window", opts.PresenceWindow,
		"auto_version_threshold", opts.AutoVersionThreshold,
		"conflict_policy", opts.DefaultPolicy,
	)

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names and ensure the schema exists
	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	editRepo := postgres.NewEditRepository(repoConfig)
	versionRepo := postgres.NewVersionRepository(repoConfig)
	commentRepo := postgres.NewCommentRepository(repoConfig)

	// Redis-backed lock and presence stores (TTL expiry lives server-side)
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	lockRepo := redisrepo.NewLockStore(redisClient)
	presenceRepo := redisrepo.NewPresenceStore(redisClient)

	logger.Info("redis connected")

	// Create the collaborative editing engine
	eng := engine.New(editRepo, versionRepo, lockRepo, commentRepo, presenceRepo, opts, logger)

	// Create handlers
	sessionHandler := handler.NewSessionHandler(eng, logger)
	editHandler := handler.NewEditHandler(eng, logger)
	lockHandler := handler.NewLockHandler(eng, logger)
	versionHandler := handler.NewVersionHandler(eng, logger)
	commentHandler := handler.NewCommentHandler(eng, logger)
	presenceHandler := handler.NewPresenceHandler(eng, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Session routes
	mux.HandleFunc("POST /api/documents/{id}/join", sessionHandler.Join)
	mux.HandleFunc("POST /api/documents/{id}/leave", sessionHandler.Leave)
	mux.HandleFunc("GET /api/documents/{id}/session", sessionHandler.Snapshot)
	mux.HandleFunc("POST /api/documents/{id}/sync", sessionHandler.Sync)
	mux.HandleFunc("POST /api/documents/{id}/close", sessionHandler.Close)

	// Edit routes
	mux.HandleFunc("POST /api/documents/{id}/edits", editHandler.ApplyEdit)
	mux.HandleFunc("DELETE /api/documents/{id}/edits/{editID}", editHandler.UndoEdit)
	mux.HandleFunc("GET /api/documents/{id}/content", editHandler.Content)

	// Lock routes
	mux.HandleFunc("POST /api/documents/{id}/lock", lockHandler.Acquire)
	mux.HandleFunc("DELETE /api/documents/{id}/lock", lockHandler.Release)
	mux.HandleFunc("GET /api/documents/{id}/lock", lockHandler.Check)

	// Version routes
	mux.HandleFunc("POST /api/documents/{id}/versions", versionHandler.Create)
	mux.HandleFunc("GET /api/documents/{id}/versions", versionHandler.List)
	mux.HandleFunc("POST /api/documents/{id}/versions/{versionID}/restore", versionHandler.Restore)

	// Comment routes
	mux.HandleFunc("POST /api/documents/{id}/comments", commentHandler.Add)
	mux.HandleFunc("GET /api/documents/{id}/comments", commentHandler.List)
	mux.HandleFunc("POST /api/documents/{id}/comments/{commentID}/replies", commentHandler.Reply)
	mux.HandleFunc("POST /api/documents/{id}/comments/{commentID}/resolve", commentHandler.Resolve)

	// Presence routes
	mux.HandleFunc("GET /api/documents/{id}/presence", presenceHandler.ListActive)
	mux.HandleFunc("PUT /api/documents/{id}/presence/{userID}", presenceHandler.Update)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLog → Routes
	httpHandler = middleware.RequestLog(logger)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// resolveOptions turns the selected profile plus env overrides into engine
// options. Env vars win over the profile when set.
func resolveOptions(cfg *config.Config, registry *profiles.Registry) (engine.Options, error) {
	profile, err := registry.Get(cfg.Profile)
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.Options{
		LockTTL:              profile.LockTTL.Std(),
		PresenceWindow:       profile.PresenceWindow.Std(),
		AutoVersionThreshold: profile.AutoVersionThreshold,
		DefaultPolicy:        models.ConflictPolicy(profile.ConflictPolicy),
	}
	if cfg.LockTTL > 0 {
		opts.LockTTL = cfg.LockTTL
	}
	if cfg.PresenceWindow > 0 {
		opts.PresenceWindow = cfg.PresenceWindow
	}
	if cfg.AutoVersionThreshold > 0 {
		opts.AutoVersionThreshold = cfg.AutoVersionThreshold
	}
	if cfg.ConflictPolicy != "" {
		policy := models.ConflictPolicy(cfg.ConflictPolicy)
		if !policy.Valid() {
			return engine.Options{}, fmt.Errorf("invalid conflict policy %q", cfg.ConflictPolicy)
		}
		opts.DefaultPolicy = policy
	}
	return opts, nil
}
