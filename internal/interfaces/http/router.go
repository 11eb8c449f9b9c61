// Package http wires the gin engine: middleware, routes, and handlers.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"pixgate/internal/interfaces/http/handlers"
	"pixgate/internal/interfaces/http/middleware"
	"pixgate/internal/shared/config"
	"pixgate/internal/shared/logger"
)

// webhookRateLimit bounds inbound webhook traffic per client IP.
const (
	webhookRateLimit  = 120
	webhookRateWindow = time.Minute
)

// Router assembles the HTTP surface.
type Router struct {
	engine         *gin.Engine
	chargeHandler  *handlers.ChargeHandler
	webhookHandler *handlers.WebhookHandler
	redisClient    *redis.Client
	cfg            *config.ServerConfig
	logger         logger.Interface
}

func NewRouter(
	chargeHandler *handlers.ChargeHandler,
	webhookHandler *handlers.WebhookHandler,
	redisClient *redis.Client,
	cfg *config.ServerConfig,
	log logger.Interface,
) *Router {
	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger(log))
	engine.Use(middleware.ErrorHandler())
	engine.Use(middleware.CORS(cfg.AllowedOrigins))

	return &Router{
		engine:         engine,
		chargeHandler:  chargeHandler,
		webhookHandler: webhookHandler,
		redisClient:    redisClient,
		cfg:            cfg,
		logger:         log,
	}
}

// SetupRoutes registers all endpoints.
func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/api/v1")

	charges := v1.Group("/charges")
	{
		charges.POST("", r.chargeHandler.CreateCharge)
		charges.GET("", r.chargeHandler.ListCharges)
		charges.GET("/:sid", r.chargeHandler.GetCharge)
		charges.DELETE("/:sid", r.chargeHandler.DeleteCharge)
	}

	// The polling surface keys on the gateway transaction id, not the sid.
	v1.GET("/payments/status/:transactionId", r.chargeHandler.CheckStatus)
	v1.GET("/payments/status/:transactionId/wait", r.chargeHandler.WaitForSettlement)

	webhook := v1.Group("/webhook")
	if r.redisClient != nil {
		limiter := middleware.NewRateLimiter(r.redisClient, webhookRateLimit, webhookRateWindow)
		webhook.Use(limiter.Limit())
	}
	webhook.POST("", r.webhookHandler.HandleNotification)
}

// GetEngine returns the underlying gin engine.
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
