package api

import (
	v1 "github.com/facto/facto/internal/api/v1"
	"github.com/facto/facto/internal/auth"
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/rest/middleware"
	"github.com/facto/facto/internal/sentry"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Checkout *v1.CheckoutHandler
	Health   *v1.HealthHandler
}

func NewRouter(
	handlers Handlers,
	cfg *config.Configuration,
	logger *logger.Logger,
	authProvider auth.Provider,
	sentrySvc *sentry.Service,
) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(middleware.MethodNotAllowed)

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware(cfg),
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(logger, sentrySvc),
	)

	apiGroup := router.Group("/api")
	apiGroup.GET("/health", handlers.Health.Health)

	checkout := apiGroup.Group("")
	checkout.Use(middleware.AuthenticateMiddleware(authProvider, logger))
	{
		checkout.POST("/create-checkout-session", handlers.Checkout.CreateCheckoutSession)
		checkout.GET("/checkout/confirm", handlers.Checkout.ConfirmCheckoutSession)
	}

	return router
}
