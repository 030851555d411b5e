package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/movies/internal/metrics"
	"github.com/wonny/movies/pkg/logger"
	"github.com/wonny/movies/pkg/redis"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the ID assigned by requestIDMiddleware
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RateLimitSettings configures request throttling. RPS 0 disables it.
type RateLimitSettings struct {
	RPS   float64
	Burst int
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestIDMiddleware keeps an incoming X-Request-ID or assigns a new one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// loggingMiddleware logs HTTP requests and records request metrics
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			duration := time.Since(start)
			metrics.ObserveRequest(route, r.Method, rec.status, duration)

			log.WithFields(map[string]interface{}{
				"request_id": RequestID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   duration.String(),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error":      err,
						"path":       r.URL.Path,
						"request_id": RequestID(r.Context()),
					}).Error("Panic recovered")

					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware throttles requests. With a shared (Redis) limiter the
// limit is per client IP across replicas; otherwise one in-process token bucket.
func rateLimitMiddleware(settings RateLimitSettings, shared *redis.RateLimiter, log *logger.Logger) mux.MiddlewareFunc {
	if settings.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	burst := settings.Burst
	if burst < 1 {
		burst = 1
	}
	local := rate.NewLimiter(rate.Limit(settings.RPS), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shared != nil && shared.Enabled() {
				allowed, remaining, err := shared.Allow(r.Context(), redis.RateLimitConfig{
					Key:    clientIP(r),
					Limit:  burst,
					Window: windowFor(settings.RPS, burst),
				})
				if err != nil {
					// Redis 장애 시 로컬 리미터로 대체
					log.WithError(err).Warn("Shared rate limiter unavailable")
				} else {
					w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
					if !allowed {
						tooManyRequests(w)
						return
					}
					next.ServeHTTP(w, r)
					return
				}
			}

			if !local.Allow() {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// windowFor converts a token bucket (rps, burst) to the equivalent sliding window length
func windowFor(rps float64, burst int) time.Duration {
	w := time.Duration(float64(burst) / rps * float64(time.Second))
	if w < time.Millisecond {
		w = time.Millisecond
	}
	return w
}

func tooManyRequests(w http.ResponseWriter) {
	metrics.RateLimited()
	w.Header().Set("Retry-After", "1")
	writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
