package types

import "log/slog"

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds credentials such as the Twilio auth token. It redacts
// itself in fmt output, JSON and slog attributes. Use Unmask to obtain the
// raw value when building an Authorization header.
type SecretString string

func (s SecretString) String() string { return redactedPlaceholder }

func (s SecretString) MarshalJSON() ([]byte, error) { return redactedJSON, nil }

// LogValue keeps the secret out of structured logs even when passed as a
// bare slog attribute.
func (s SecretString) LogValue() slog.Value { return slog.StringValue(redactedPlaceholder) }

// IsSet reports whether a non-empty value was configured.
func (s SecretString) IsSet() bool { return s != "" }

// Unmask returns the plaintext. Keep call sites few.
func (s SecretString) Unmask() string { return string(s) }
