package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/facto/facto/internal/api"
	v1 "github.com/facto/facto/internal/api/v1"
	"github.com/facto/facto/internal/auth"
	"github.com/facto/facto/internal/cache"
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/checkout"
	"github.com/facto/facto/internal/integration/stripe"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/sentry"
	"github.com/facto/facto/internal/service"
	"github.com/facto/facto/internal/types"
	"github.com/facto/facto/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.Initialize,
			cache.ProvideCache,

			// Payment provider
			provideCheckoutGateway,

			// Identity
			provideAuthProvider,
		),
	)

	// Monitoring
	opts = append(opts, sentry.Module())

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewCheckoutService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideCheckoutGateway(cfg *config.Configuration, logger *logger.Logger) checkout.Gateway {
	return stripe.NewClient(cfg, logger)
}

func provideAuthProvider(cfg *config.Configuration, logger *logger.Logger) (auth.Provider, error) {
	return auth.NewProvider(context.Background(), cfg, logger)
}

func provideHandlers(logger *logger.Logger, checkoutService service.CheckoutService) api.Handlers {
	return api.Handlers{
		Checkout: v1.NewCheckoutHandler(checkoutService, logger),
		Health:   v1.NewHealthHandler(logger),
	}
}

func provideRouter(
	handlers api.Handlers,
	cfg *config.Configuration,
	logger *logger.Logger,
	authProvider auth.Provider,
	sentrySvc *sentry.Service,
) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger, authProvider, sentrySvc)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeAWSLambdaAPI:
		startAWSLambdaAPI(r)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server", "address", cfg.Server.Address, "mode", cfg.Deployment.Mode)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startAWSLambdaAPI(r *gin.Engine) {
	ginLambda := ginadapter.New(r)
	lambda.Start(ginLambda.ProxyWithContext)
}
