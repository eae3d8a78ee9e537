package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/layer-3/walletauth/pkg/log"
	"github.com/layer-3/walletauth/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cfg Config, metrics *Metrics, logger log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	logger = logger.WithName("http")

	router := gin.New()
	router.Use(Recovery(logger), RequestLogger(logger, metrics))

	handlers := NewAuthHandlers(authService, cfg, metrics)

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.gatherer, promhttp.HandlerOpts{})))

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/nonce", handlers.Nonce)
		auth.POST("/verify", handlers.Verify)
	}
	router.POST("/logout", handlers.Logout)

	// Protected routes
	protected := router.Group("/")
	protected.Use(AuthMiddleware(authService, cfg.cookieName()))
	{
		protected.GET("/me", handlers.Me)
		protected.GET("/authorize", handlers.Authorize)
	}

	return router
}
