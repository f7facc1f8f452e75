package types

type RunMode string

const (
	// ModeLocal is the mode for running the API server locally
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server
	ModeAPI RunMode = "api"
	// ModeAWSLambdaAPI is the mode for running the API server in AWS Lambda
	ModeAWSLambdaAPI RunMode = "aws_lambda_api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// StorageDriver selects the backend behind the tab-scoped and long-lived stores
type StorageDriver string

const (
	StorageDriverMemory StorageDriver = "memory"
	StorageDriverSQLite StorageDriver = "sqlite"
	StorageDriverRedis  StorageDriver = "redis"
)
