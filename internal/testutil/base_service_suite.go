package testutil

import (
	"context"
	"time"

	"github.com/facto/facto/internal/cache"
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/storage"
	"github.com/facto/facto/internal/types"
	"github.com/facto/facto/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the storage scopes and fakes shared by tests
type Stores struct {
	Backend         *cache.MemoryBackend
	Tab             storage.Store
	Local           storage.Store
	CheckoutGateway *InMemoryCheckoutGateway
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	cache  *cache.InMemoryCache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	// Initialize validator
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Stripe.SecretKey = "sk_test_facto"
	cfg.Stripe.PriceIDMonthly = "price_monthly_test"
	cfg.Stripe.PriceIDYearly = "price_yearly_test"
	cfg.Client.URL = "https://www.facto.cloud"
	cfg.Client.Path = "/home"
	cfg.Export.SettleDelay = 0

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	backend := cache.NewMemoryBackend()
	s.stores = Stores{
		Backend:         backend,
		Tab:             storage.TabScope(backend, "test", time.Hour),
		Local:           storage.LocalScope(backend),
		CheckoutGateway: NewInMemoryCheckoutGateway(),
	}
	s.cache = cache.NewInMemoryCache(true)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.CheckoutGateway.Clear()
	s.cache.Flush(s.ctx)
	_ = s.stores.Backend.Close()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetCache() *cache.InMemoryCache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
