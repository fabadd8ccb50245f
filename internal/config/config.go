// Package config defines the global configuration structure for the subtrack
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Struct Defaults (Lowest)
//
// Any missing required value or invalid format causes the application to
// fail immediately on startup.
package config

import (
	"time"

	"subtrack/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the subtrack service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Webhook  WebhookConfig
	Wait     WaitConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`

	// RoutePrefix is the path prefix all demo routes are mounted under.
	// The billing provider's sandbox points its webhook at this prefix.
	RoutePrefix string `envconfig:"ROUTE_PREFIX" default:"/demo"`

	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// WebhookConfig holds the billing provider webhook settings. The provider
// authenticates itself with a shared secret carried in the request body.
type WebhookConfig struct {
	Secret SecretString `envconfig:"IAPTIC_PASSWORD" validate:"required"`
}

// WaitConfig tunes the webhook wait-window state machine.
type WaitConfig struct {
	// Backdate shifts the wait window start into the past so a webhook
	// that was already in transit when the wait was requested still counts.
	Backdate time.Duration `envconfig:"WAIT_BACKDATE" default:"10s"`

	// Window is how long the client is told to keep polling for a webhook.
	Window time.Duration `envconfig:"WAIT_WINDOW" default:"1h"`

	// SweepInterval is how often expired wait windows are retired.
	SweepInterval time.Duration `envconfig:"WAIT_SWEEP_INTERVAL" default:"1h"`
}

// BuildInfo carries version metadata injected at compile time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}
