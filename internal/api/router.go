package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/medshare/moderation/internal/cache"
	"github.com/medshare/moderation/internal/moderation"
	"github.com/medshare/moderation/pkg/logging"
)

// HealthChecker is implemented by the database and cache handles
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router sets up API routes
type Router struct {
	handler  *JSONRPCHandler
	engine   *moderation.Engine
	database HealthChecker
	cache    HealthChecker
	logger   *zap.Logger
}

// NewRouter creates a new API router. redisCache may be a disabled cache.
func NewRouter(engine *moderation.Engine, database, redisCache HealthChecker) *Router {
	router := &Router{
		handler:  NewJSONRPCHandler(),
		engine:   engine,
		database: database,
		cache:    redisCache,
		logger:   logging.WithComponent("api-router"),
	}

	// Register all API methods
	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine, verifier JWTVerifier) {
	engine.Use(RequestIDMiddleware(), LoggingMiddleware())

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// JSON-RPC endpoint
	engine.POST("/", Authenticate(verifier), r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	content := NewContentAPI(r.engine)
	sanctions := NewSanctionAPI(r.engine)
	roles := NewRoleAPI(r.engine)

	// Reads of visible content are open to anonymous viewers
	r.handler.RegisterPublicMethod("moderation.get_tree", content.GetTree)
	r.handler.RegisterPublicMethod("moderation.list_items", content.ListItems)

	r.handler.RegisterMethod("moderation.create_comment", content.CreateComment)
	r.handler.RegisterMethod("moderation.report", content.Report)
	r.handler.RegisterMethod("moderation.remove", content.Remove)
	r.handler.RegisterMethod("moderation.restore", content.Restore)
	r.handler.RegisterMethod("moderation.dismiss_report", content.DismissReport)
	r.handler.RegisterMethod("moderation.report_queue", content.ReportQueue)
	r.handler.RegisterMethod("moderation.removed_content", content.RemovedContent)

	r.handler.RegisterMethod("sanctions.warn", sanctions.Warn)
	r.handler.RegisterMethod("sanctions.ban", sanctions.Ban)
	r.handler.RegisterMethod("sanctions.unban", sanctions.Unban)
	r.handler.RegisterMethod("sanctions.warnings_in_window", sanctions.WarningsInWindow)
	r.handler.RegisterMethod("sanctions.new_warnings", sanctions.NewWarnings)
	r.handler.RegisterMethod("sanctions.list_warnings", sanctions.ListWarnings)
	r.handler.RegisterMethod("sanctions.mark_warning_read", sanctions.MarkWarningRead)
	r.handler.RegisterMethod("sanctions.ban_status", sanctions.BanStatus)
	r.handler.RegisterMethod("sanctions.submit_appeal", sanctions.SubmitAppeal)
	r.handler.RegisterMethod("sanctions.respond_appeal", sanctions.RespondAppeal)
	r.handler.RegisterMethod("sanctions.list_appeals", sanctions.ListAppeals)
	r.handler.RegisterMethod("sanctions.notifications", sanctions.Notifications)

	r.handler.RegisterMethod("roles.grant", roles.Grant)
	r.handler.RegisterMethod("roles.revoke", roles.Revoke)
	r.handler.RegisterMethod("roles.list", roles.List)

	r.logger.Debug("JSON-RPC methods registered", zap.Int("count", r.handler.Methods()))
}

// healthHandler reports database and cache health. A disabled cache is not
// a failure.
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "OK", "cache": "OK"}
	if err := r.database.Health(ctx); err != nil {
		r.logger.Warn("Database health check failed", zap.Error(err))
		checks["database"] = "FAIL"
		status = http.StatusServiceUnavailable
	}
	if r.cache == nil {
		checks["cache"] = "disabled"
	} else if err := r.cache.Health(ctx); errors.Is(err, cache.ErrCacheDisabled) {
		checks["cache"] = "disabled"
	} else if err != nil {
		r.logger.Warn("Cache health check failed", zap.Error(err))
		checks["cache"] = "FAIL"
	}

	label := "OK"
	if status != http.StatusOK {
		label = "FAIL"
	}
	c.JSON(status, gin.H{
		"status":  label,
		"service": "moderation-api",
		"checks":  checks,
	})
}
