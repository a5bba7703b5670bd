package core

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/abhinavuser/reflectometry/internal/config"
	"github.com/abhinavuser/reflectometry/internal/types"
)

const testAPIKey = "fence-key-123"

func serverWithKey(t *testing.T) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{Environment: "local"}
	cfg.Server.APIKeyHash = types.SecretString(hash)
	return newTestServer(t, cfg)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAPIKeyMiddleware_NoHashConfigured(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.APIKeyMiddleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sms/send-alert", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	srv := serverWithKey(t)

	tests := []struct {
		name     string
		method   string
		key      string
		wantCode int
		wantErr  types.ErrorCode
	}{
		{"GET is open", http.MethodGet, "", http.StatusOK, ""},
		{"missing key", http.MethodPost, "", http.StatusUnauthorized, types.ErrCodeAuthTokenMissing},
		{"wrong key", http.MethodPost, "nope", http.StatusUnauthorized, types.ErrCodeAuthTokenInvalid},
		{"valid key", http.MethodPost, testAPIKey, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/sms/send-alert", nil)
			if tt.key != "" {
				req.Header.Set(headerAPIKey, tt.key)
			}
			rec := httptest.NewRecorder()
			srv.APIKeyMiddleware(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, string(tt.wantErr), decodeError(t, rec).Code)
			}
		})
	}
}

func TestAPIKeyMiddleware_WrongKeysLockOutIP(t *testing.T) {
	srv := serverWithKey(t)
	srv.failures = newAuthFailures(3, time.Hour)
	h := srv.IPSecurityMiddleware(srv.APIKeyMiddleware(okHandler()))

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/sms/send-alert", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set(headerAPIKey, key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, send("bad"))
	}
	assert.Equal(t, http.StatusForbidden, send(testAPIKey), "locked out even with the right key")
}
