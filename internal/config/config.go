// Package config defines the runtime configuration of the fence alerting
// service. Configuration is read once from the process environment at
// startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any invalid value causes LoadConfig to fail and the process to exit
// (fail fast). Twilio credentials and recipients are optional: when absent
// the service starts but reports itself unavailable.
package config

import (
	"time"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for credential fields.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"fence-alerts"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Twilio        TwilioConfig
	Recipients    RecipientConfig
	RateLimit     RateLimitConfig
	Thresholds    ThresholdConfig
	AWS           AWSConfig
	Observability ObservabilityConfig
	Prediction    PredictionConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s" validate:"gt=0"`
	// APIKeyHash is a bcrypt hash. When empty, mutating routes are open.
	APIKeyHash SecretString `envconfig:"ALERT_API_KEY_HASH"`
}

// TwilioConfig holds SMS gateway credentials. All three identity fields must
// be present for the gateway to be considered configured.
type TwilioConfig struct {
	AccountSID  string        `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken   SecretString  `envconfig:"TWILIO_AUTH_TOKEN"`
	PhoneNumber string        `envconfig:"TWILIO_PHONE_NUMBER" validate:"omitempty,phone"`
	BaseURL     string        `envconfig:"TWILIO_BASE_URL" default:"https://api.twilio.com" validate:"required,url"`
	Timeout     time.Duration `envconfig:"TWILIO_TIMEOUT" default:"10s" validate:"gt=0"`
}

// Configured reports whether every credential needed to send is present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken.IsSet() && c.PhoneNumber != ""
}

// RecipientConfig holds the alert recipient list. Phones is the merged,
// de-duplicated result of ALERT_PHONE_NUMBERS and the two legacy single
// number variables; it is populated by the loader.
type RecipientConfig struct {
	List    []string `envconfig:"ALERT_PHONE_NUMBERS"`
	Legacy1 string   `envconfig:"ALERT_PHONE_NUMBER_1"`
	Legacy2 string   `envconfig:"ALERT_PHONE_NUMBER_2"`

	Phones []string `ignored:"true" validate:"dive,phone"`
}

// RateLimitConfig bounds how often one recipient may receive one category.
type RateLimitConfig struct {
	MaxPerHour      int           `envconfig:"SMS_MAX_PER_HOUR" default:"10" validate:"gte=1"`
	MaxPerDay       int           `envconfig:"SMS_MAX_PER_DAY" default:"50" validate:"gte=1"`
	CooldownMinutes int           `envconfig:"SMS_COOLDOWN_MINUTES" default:"5" validate:"gte=0"`
	SendInterval    time.Duration `envconfig:"SMS_SEND_INTERVAL" default:"1s" validate:"gte=0"`
	PruneInterval   time.Duration `envconfig:"SMS_HISTORY_PRUNE_INTERVAL" default:"10m" validate:"gt=0"`
}

// Cooldown returns the cooldown as a duration.
func (c RateLimitConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

// ThresholdConfig holds the open-circuit alarm ranges. Each range is
// inclusive on both ends.
type ThresholdConfig struct {
	ImpedanceMin  float64 `envconfig:"OPEN_CIRCUIT_IMPEDANCE_MIN" default:"1000"`
	ImpedanceMax  float64 `envconfig:"OPEN_CIRCUIT_IMPEDANCE_MAX" default:"10000" validate:"gtefield=ImpedanceMin"`
	VoltageMin    float64 `envconfig:"OPEN_CIRCUIT_VOLTAGE_MIN" default:"0"`
	VoltageMax    float64 `envconfig:"OPEN_CIRCUIT_VOLTAGE_MAX" default:"50" validate:"gtefield=VoltageMin"`
	CurrentMin    float64 `envconfig:"OPEN_CIRCUIT_CURRENT_MIN" default:"0"`
	CurrentMax    float64 `envconfig:"OPEN_CIRCUIT_CURRENT_MAX" default:"0.1" validate:"gtefield=CurrentMin"`
	ReflectionMin float64 `envconfig:"OPEN_CIRCUIT_REFLECTION_MIN" default:"0.8"`
	ReflectionMax float64 `envconfig:"OPEN_CIRCUIT_REFLECTION_MAX" default:"1.0" validate:"gtefield=ReflectionMin"`
	MatchMode     string  `envconfig:"OPEN_CIRCUIT_MATCH_MODE" default:"any" validate:"oneof=any all"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
	// ReadingsQueue is optional. When empty, readings are evaluated inline.
	ReadingsQueue string `envconfig:"SQS_READINGS" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"FenceMonitor"`
}

// PredictionConfig points at the optional tamper classification model.
type PredictionConfig struct {
	EndpointURL string        `envconfig:"PREDICTION_ENDPOINT_URL" validate:"omitempty,url"`
	Timeout     time.Duration `envconfig:"PREDICTION_TIMEOUT" default:"5s" validate:"gt=0"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
