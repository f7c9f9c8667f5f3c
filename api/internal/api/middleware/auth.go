package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/irgordon/insight/api/internal/core/services"
)

type contextKey string

const claimsKey contextKey = "api_claims"

const (
	visitorTTL      = 3 * time.Minute
	cleanupInterval = time.Minute
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*services.APIClaims, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

type AuthMiddleware struct {
	Tokens   TokenVerifier
	Logger   *slog.Logger
	limit    rate.Limit
	burst    int
	visitors sync.Map // 🛡️ Thread-safe Map for high-concurrency scaling
	stop     chan struct{}
	stopOnce sync.Once
}

func NewAuthMiddleware(tokens TokenVerifier, logger *slog.Logger, rps float64, burst int) *AuthMiddleware {
	m := &AuthMiddleware{
		Tokens: tokens,
		Logger: logger,
		limit:  rate.Limit(rps),
		burst:  burst,
		stop:   make(chan struct{}),
	}
	// Start cleanup worker as a managed method, not a global init
	go m.cleanupVisitors()
	return m
}

// Stop ends the visitor cleanup loop.
func (m *AuthMiddleware) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// ==============================================================================
// 1. Identity
// ==============================================================================

func (m *AuthMiddleware) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)

		if tokenString == "" {
			http.Error(w, `{"message": "Unauthorized"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.Tokens.VerifyAccessToken(tokenString)
		if err != nil {
			m.Logger.Warn("Rejected bearer token", slog.String("path", r.URL.Path), slog.Any("error", err))
			http.Error(w, `{"message": "Invalid token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the authenticated caller, if any.
func ClaimsFromContext(ctx context.Context) (*services.APIClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*services.APIClaims)
	return claims, ok
}

// ==============================================================================
// 2. Performance & DoS Protection
// ==============================================================================

func (m *AuthMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 🛡️ RealIP middleware has already rewritten RemoteAddr
		ip := r.RemoteAddr

		v, _ := m.visitors.LoadOrStore(ip, &visitor{
			limiter: rate.NewLimiter(m.limit, m.burst),
		})

		vis := v.(*visitor)
		vis.lastSeen.Store(time.Now().UnixNano())

		if !vis.limiter.Allow() {
			http.Error(w, `{"message": "Rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) cleanupVisitors() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle(time.Now())
		}
	}
}

func (m *AuthMiddleware) evictIdle(now time.Time) {
	m.visitors.Range(func(key, value interface{}) bool {
		seen := time.Unix(0, value.(*visitor).lastSeen.Load())
		if now.Sub(seen) > visitorTTL {
			m.visitors.Delete(key)
		}
		return true
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
