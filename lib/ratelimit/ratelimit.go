// Package ratelimit is a fixed-window request limiter keyed by client
// address. The window table is process-local, advisory state: injected at
// construction, swept by the cache janitor, never persisted.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	gocache "github.com/patrickmn/go-cache"
)

// Policy is one route class's window and threshold. Name keeps counters for
// different route classes apart even for the same client.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

type Limiter struct {
	table  *gocache.Cache
	logger *slog.Logger
}

// New builds a limiter with its own table, swept every five minutes.
func New(logger *slog.Logger) *Limiter {
	return NewWithTable(gocache.New(gocache.NoExpiration, 5*time.Minute), logger)
}

// NewWithTable injects the window table; tests pass a table they control.
func NewWithTable(table *gocache.Cache, logger *slog.Logger) *Limiter {
	return &Limiter{table: table, logger: logger}
}

// Middleware enforces the policy, answering excess requests with a 429 JSON
// body and a Retry-After hint.
func (l *Limiter) Middleware(p Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := p.Name + "|" + clientIP(r)

			if err := l.table.Add(key, int(1), p.Window); err != nil {
				// Key exists: same window, bump the counter.
				count, incErr := l.table.IncrementInt(key, 1)
				if incErr == nil && count > p.Limit {
					l.reject(w, r, p, key)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) reject(w http.ResponseWriter, r *http.Request, p Policy, key string) {
	retryAfter := int(p.Window.Seconds())
	if _, expiry, ok := l.table.GetWithExpiration(key); ok && !expiry.IsZero() {
		if remaining := int(time.Until(expiry).Seconds()) + 1; remaining > 0 {
			retryAfter = remaining
		}
	}

	l.logger.Warn("rate limit exceeded",
		slog.String("policy", p.Name),
		slog.String("path", r.URL.Path),
		slog.String("client", clientIP(r)))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"error":       "too many requests",
		"retry_after": retryAfter,
	}); err != nil {
		l.logger.Error("failed to encode rate limit response", slog.Any("error", err))
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
