package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/api"
	"github.com/medshare/moderation/internal/cache"
	"github.com/medshare/moderation/internal/db"
	"github.com/medshare/moderation/internal/moderation"
	"github.com/medshare/moderation/internal/notify"
	"github.com/medshare/moderation/pkg/config"
	"github.com/medshare/moderation/pkg/logging"
	"github.com/medshare/moderation/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting moderation API server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to migrate schema", zap.Error(err))
		}
		logger.Info("Schema migrated")
	}

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	repo := db.NewRepository(database.DB)
	roleRepo := db.NewRoleRepository(repo)
	engine := moderation.NewEngine(moderation.Stores{
		Content:       db.NewContentRepository(repo),
		Ledger:        db.NewLedgerRepository(repo),
		Sanctions:     db.NewSanctionRepository(repo),
		Users:         db.NewUserRepository(repo),
		Roles:         roleRepo,
		Notifications: db.NewNotificationRepository(repo),
	},
		cache.NewRoleCache(redisCache, roleRepo, cfg.Redis.RoleTTL),
		notify.NewStoreNotifier(repo),
		moderation.OptionsFromConfig(&cfg.Moderation),
	)

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("No JWT secret configured, only anonymous reads will succeed")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	api.NewRouter(engine, database, redisCache).
		SetupRoutes(router, api.JWTVerifier{Secret: []byte(cfg.Auth.JWTSecret)})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
