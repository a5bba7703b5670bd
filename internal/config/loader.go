// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Merge the recipient variables into one de-duplicated list.
//  5. Populate BuildInfo from linker-injected variables.
//  6. Validate the struct using go-playground/validator.
//  7. Reject partially configured Twilio credentials.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// dotenvLoader matches godotenv.Load and allows tests to skip the working
// directory .env file.
type dotenvLoader func(filenames ...string) error

// LoadConfig loads and validates the service configuration.
func LoadConfig() (*Config, error) {
	return loadConfigWithDeps(godotenv.Load)
}

func loadConfigWithDeps(loadDotenv dotenvLoader) (*Config, error) {
	time.Local = time.UTC

	// godotenv.Load does NOT override existing environment variables.
	if loadDotenv != nil {
		_ = loadDotenv()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Recipients.Phones = MergeRecipients(cfg.Recipients.List, cfg.Recipients.Legacy1, cfg.Recipients.Legacy2)
	cfg.Build = NewBuildInfo()

	validate := validator.New()
	if err := RegisterPhoneValidation(validate); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "failed to register phone validation",
			Err:     err,
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if missing := missingTwilioVars(cfg.Twilio); len(missing) > 0 && len(missing) < 3 {
		return nil, &ConfigError{
			Type:    ErrMissingEnv,
			Message: fmt.Sprintf("twilio partially configured, missing: %s", strings.Join(missing, ", ")),
		}
	}

	return &cfg, nil
}

// MergeRecipients combines the list variable with the legacy single-number
// variables. Whitespace is trimmed, blanks are dropped, and the first
// occurrence of a number wins so ordering stays stable.
func MergeRecipients(list []string, legacy ...string) []string {
	all := make([]string, 0, len(list)+len(legacy))
	all = append(all, list...)
	all = append(all, legacy...)

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, p := range all {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func missingTwilioVars(c TwilioConfig) []string {
	var missing []string
	if c.AccountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if !c.AuthToken.IsSet() {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if c.PhoneNumber == "" {
		missing = append(missing, "TWILIO_PHONE_NUMBER")
	}
	return missing
}
