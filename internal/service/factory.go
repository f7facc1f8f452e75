package service

import (
	"github.com/facto/facto/internal/cache"
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/checkout"
	"github.com/facto/facto/internal/logger"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Cache  cache.Cache

	CheckoutGateway checkout.Gateway
}

// NewServiceParams creates a new service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	cache cache.Cache,
	checkoutGateway checkout.Gateway,
) ServiceParams {
	return ServiceParams{
		Logger:          logger,
		Config:          config,
		Cache:           cache,
		CheckoutGateway: checkoutGateway,
	}
}
