package config

import (
	"errors"
	"strings"
	"time"

	"github.com/facto/facto/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment" validate:"required"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging" validate:"required"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Client     ClientConfig     `mapstructure:"client"`
	Firebase   FirebaseConfig   `mapstructure:"firebase"`
	API        APIConfig        `mapstructure:"api"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Export     ExportConfig     `mapstructure:"export"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

// StripeConfig carries the checkout credentials. Price ids are checked per request so a
// missing one surfaces as a 400 on that plan instead of a startup failure.
type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	PriceIDMonthly string `mapstructure:"price_id_monthly"`
	PriceIDYearly  string `mapstructure:"price_id_yearly"`
}

// PriceID returns the configured Stripe price for a plan, empty when unset
func (c StripeConfig) PriceID(plan types.Plan) string {
	switch plan {
	case types.PlanYearly:
		return c.PriceIDYearly
	case types.PlanMonthly:
		return c.PriceIDMonthly
	}
	return ""
}

// ClientConfig describes the public site the checkout provider redirects back to
type ClientConfig struct {
	URL            string   `mapstructure:"url"`
	Path           string   `mapstructure:"path"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedirectBase is the page checkout returns to, e.g. https://www.facto.cloud/home
func (c ClientConfig) RedirectBase() string {
	return c.URL + c.Path
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	APIKey          string `mapstructure:"api_key"`
	CredentialsFile string `mapstructure:"credentials_file"`
	// VerifyTokens makes the server require a Firebase ID token on checkout endpoints
	VerifyTokens bool `mapstructure:"verify_tokens"`
	// IdentityEndpoint and TokenEndpoint are overridable for emulators and tests
	IdentityEndpoint string `mapstructure:"identity_endpoint"`
	TokenEndpoint    string `mapstructure:"token_endpoint"`
}

// APIConfig is the client side view of the checkout backend
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Driver     types.StorageDriver `mapstructure:"driver" validate:"required,oneof=memory sqlite redis"`
	SQLitePath string              `mapstructure:"sqlite_path"`
	Redis      RedisConfig         `mapstructure:"redis"`
	// TabID scopes session storage the way a browser tab does
	TabID  string        `mapstructure:"tab_id"`
	TabTTL time.Duration `mapstructure:"tab_ttl"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ExportConfig struct {
	OutputDir   string        `mapstructure:"output_dir"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// legacyEnv maps config keys to the plain environment variable names the
// serverless deployment sets.
var legacyEnv = map[string]string{
	"stripe.secret_key":       "STRIPE_SK",
	"stripe.price_id_monthly": "PRICE_ID_MONTHLY",
	"stripe.price_id_yearly":  "PRICE_ID_YEARLY",
	"client.url":              "CLIENT_URL",
	"client.path":             "CLIENT_PATH",
	"api.base_url":            "VITE_API_URL",
}

func NewConfig() (*Configuration, error) {
	return load("")
}

// LoadFile reads configuration from path instead of the default locations
func LoadFile(path string) (*Configuration, error) {
	return load(path)
}

func load(path string) (*Configuration, error) {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Modify config paths to ensure config.yaml is found
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./internal/config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/facto")
	}

	// Set up environment variables support
	v.SetEnvPrefix("FACTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)
	for key, legacy := range legacyEnv {
		envKey := "FACTO_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, err
		}
	}

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	def := GetDefaultConfig()
	v.SetDefault("deployment.mode", def.Deployment.Mode)
	v.SetDefault("server.address", def.Server.Address)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.price_id_monthly", "")
	v.SetDefault("stripe.price_id_yearly", "")
	v.SetDefault("client.url", def.Client.URL)
	v.SetDefault("client.path", def.Client.Path)
	v.SetDefault("client.allowed_origins", def.Client.AllowedOrigins)
	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.api_key", "")
	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("firebase.verify_tokens", false)
	v.SetDefault("firebase.identity_endpoint", def.Firebase.IdentityEndpoint)
	v.SetDefault("firebase.token_endpoint", def.Firebase.TokenEndpoint)
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("storage.driver", def.Storage.Driver)
	v.SetDefault("storage.sqlite_path", def.Storage.SQLitePath)
	v.SetDefault("storage.redis.address", def.Storage.Redis.Address)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.tab_id", def.Storage.TabID)
	v.SetDefault("storage.tab_ttl", def.Storage.TabTTL)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("export.output_dir", def.Export.OutputDir)
	v.SetDefault("export.settle_delay", def.Export.SettleDelay)
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "local")
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8787"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Client: ClientConfig{
			URL:            "http://localhost:8080",
			Path:           "/home",
			AllowedOrigins: []string{"https://www.facto.cloud", "https://facto.cloud"},
		},
		Firebase: FirebaseConfig{
			IdentityEndpoint: "https://identitytoolkit.googleapis.com/v1",
			TokenEndpoint:    "https://securetoken.googleapis.com/v1",
		},
		API: APIConfig{
			BaseURL: "http://localhost:8787",
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     types.StorageDriverSQLite,
			SQLitePath: "facto.db",
			Redis:      RedisConfig{Address: "localhost:6379"},
			TabID:      "default",
			TabTTL:     24 * time.Hour,
		},
		Cache: CacheConfig{Enabled: true},
		Export: ExportConfig{
			OutputDir:   ".",
			SettleDelay: 150 * time.Millisecond,
		},
	}
}
