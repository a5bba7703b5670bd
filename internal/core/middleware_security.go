package core

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// errCodeIPBlocked is returned while an address is locked out.
const errCodeIPBlocked types.ErrorCode = "auth_ip_blocked"

const (
	defaultAuthFailureLimit  = 10
	defaultAuthFailureWindow = 15 * time.Minute
)

// authFailures counts rejected API keys per client address within a
// trailing window. State is process-local.
type authFailures struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	byIP   map[string][]time.Time
}

func newAuthFailures(limit int, window time.Duration) *authFailures {
	return &authFailures{
		limit:  limit,
		window: window,
		now:    time.Now,
		byIP:   make(map[string][]time.Time),
	}
}

// record notes one failed attempt from ip.
func (a *authFailures) record(ip string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.byIP[ip] = append(a.recentLocked(ip, now), now)
}

// blocked reports whether ip has reached the failure limit.
func (a *authFailures) blocked(ip string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	recent := a.recentLocked(ip, a.now())
	if len(recent) == 0 {
		delete(a.byIP, ip)
		return false
	}
	a.byIP[ip] = recent
	return len(recent) >= a.limit
}

func (a *authFailures) recentLocked(ip string, now time.Time) []time.Time {
	entries := a.byIP[ip]
	cutoff := now.Add(-a.window)
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	return entries[i:]
}

// IPSecurityMiddleware rejects addresses that recently sent too many bad
// API keys, before any bcrypt comparison is attempted.
func (s *Server) IPSecurityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.failures == nil || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		ip := extractClientIP(r)
		if s.failures.blocked(ip) {
			s.Logger.Warn("blocked request from IP",
				slog.String("ip", ip),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			JSON(w, r, http.StatusForbidden, ErrorResponse{
				Error:     "Access denied",
				Code:      string(errCodeIPBlocked),
				RequestID: types.GetRequestID(r.Context()),
				Timestamp: time.Now().UTC(),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractClientIP returns the first X-Forwarded-For entry, or RemoteAddr
// without its port.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
