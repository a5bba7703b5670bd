package core

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// APIKeyMiddleware guards mutating requests with a shared key compared
// against the bcrypt hash in ALERT_API_KEY_HASH. Safe methods always pass.
// When no hash is configured every request passes.
func (s *Server) APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := s.apiKeyHash()
		if hash == "" || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(headerAPIKey)
		if key == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "X-API-Key header is required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
			ip := extractClientIP(r)
			if s.failures != nil {
				s.failures.record(ip)
			}
			s.Logger.Warn("authentication failed: invalid api key",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("ip", ip),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) apiKeyHash() string {
	if s.Config == nil {
		return ""
	}
	return s.Config.Server.APIKeyHash.Unmask()
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	JSON(w, r, http.StatusUnauthorized, ErrorResponse{
		Error:     message,
		Code:      string(code),
		RequestID: types.GetRequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}
