// Package config defines and loads all application configuration.
package config

// Config holds all application configuration, organized into logical
// groups. Values come from environment variables (AVP_ prefix) and an
// optional config file, with environment taking precedence.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Provider  ProviderConfig  `mapstructure:"provider"  validate:"required"`
	Transport TransportConfig `mapstructure:"transport" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Sync      SyncConfig      `mapstructure:"sync"      validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// ServerConfig contains the local HTTP surface settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the local persistent store settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains session-token validation settings. The JWT secret
// must match the one the remote sync service signs session tokens with.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// ProviderConfig contains analysis-provider (Gemini) settings.
type ProviderConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
}

// TransportConfig tunes the adaptive submission pipeline.
type TransportConfig struct {
	// MaxRequestBytes is the hard request-body ceiling the provider's
	// ingress gateway enforces. Payloads above it cannot go direct.
	MaxRequestBytes int64 `mapstructure:"max_request_bytes" validate:"required,gt=0"`
}

// SchedulerConfig tunes the background job scheduler.
type SchedulerConfig struct {
	// MaxConcurrent bounds how many jobs may be running at once.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"required,gt=0"`
}

// SyncConfig tunes the dirty-entity sync queue.
type SyncConfig struct {
	// RetryDelaySeconds is the fixed delay before retrying a failed push.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"required,gt=0"`

	// IntervalSeconds is the period of the proactive drain timer.
	IntervalSeconds int `mapstructure:"interval_seconds" validate:"required,gt=0"`

	// RemoteURL is the base URL of the remote sync service.
	RemoteURL string `mapstructure:"remote_url" validate:"required,url"`
}

// StorageConfig contains object-storage settings used by the
// reference-by-URL transport strategy. Credentials may legitimately be
// absent; the transport router then reports storage as unavailable
// instead of failing startup.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"   validate:"omitempty,url"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Configured reports whether object storage credentials are present.
func (c StorageConfig) Configured() bool {
	return c.Endpoint != "" && c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}
