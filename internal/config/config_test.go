package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/abhinavuser/reflectometry/internal/types"
)

func TestSecretStringAlias(t *testing.T) {
	var typesSecret types.SecretString = "test"
	var configSecret SecretString = typesSecret
	if configSecret != typesSecret {
		t.Error("config.SecretString and types.SecretString should be the same type")
	}
}

func TestConfigJSONRedactsSecrets(t *testing.T) {
	cfg := Config{
		Twilio: TwilioConfig{
			AccountSID:  "AC123",
			AuthToken:   SecretString("very-secret-token"),
			PhoneNumber: "+15550000000",
		},
		Server: ServerConfig{APIKeyHash: SecretString("$2a$10$hash")},
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "very-secret-token") || strings.Contains(out, "$2a$10$hash") {
		t.Errorf("config JSON leaked a secret: %s", out)
	}
	if !strings.Contains(out, "AC123") {
		t.Errorf("non-secret field missing from JSON: %s", out)
	}
}

func TestTwilioConfigured(t *testing.T) {
	full := TwilioConfig{AccountSID: "AC1", AuthToken: "tok", PhoneNumber: "+15550000000"}
	if !full.Configured() {
		t.Error("fully populated config should be configured")
	}

	for name, c := range map[string]TwilioConfig{
		"no sid":   {AuthToken: "tok", PhoneNumber: "+15550000000"},
		"no token": {AccountSID: "AC1", PhoneNumber: "+15550000000"},
		"no phone": {AccountSID: "AC1", AuthToken: "tok"},
	} {
		if c.Configured() {
			t.Errorf("%s: Configured() = true, want false", name)
		}
	}
}

func TestRateLimitCooldown(t *testing.T) {
	c := RateLimitConfig{CooldownMinutes: 7}
	if got := c.Cooldown(); got != 7*time.Minute {
		t.Errorf("Cooldown() = %v, want 7m", got)
	}
}
