package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/movies/internal/api/handlers"
	"github.com/wonny/movies/pkg/logger"
	"github.com/wonny/movies/pkg/redis"
)

// Pinger is anything with a connectivity check
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps collects what the router wires together
type RouterDeps struct {
	BasePath string

	Awards  *handlers.AwardsHandler
	Catalog *handlers.CatalogHandler
	Dataset *handlers.DatasetHandler

	Storage Pinger
	Cache   *redis.Client

	RateLimit    RateLimitSettings
	SharedLimits *redis.RateLimiter

	Logger *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	log := deps.Logger

	// Health check
	r.HandleFunc("/health", healthCheckHandler(deps.Storage, deps.Cache)).Methods(http.MethodGet)

	api := r
	if deps.BasePath != "" {
		api = r.PathPrefix(deps.BasePath).Subrouter()
	}

	// Award intervals
	api.HandleFunc("/producers/awards-intervals", deps.Awards.GetProducerIntervals).Methods(http.MethodGet)

	// Catalog
	api.HandleFunc("/movies", deps.Catalog.ListMovies).Methods(http.MethodGet)
	api.HandleFunc("/movies/{id:[0-9]+}", deps.Catalog.GetMovie).Methods(http.MethodGet)
	api.HandleFunc("/producers", deps.Catalog.ListProducers).Methods(http.MethodGet)
	api.HandleFunc("/studios", deps.Catalog.ListStudios).Methods(http.MethodGet)

	// Dataset
	api.HandleFunc("/dataset/reload", deps.Dataset.Reload).Methods(http.MethodPost)

	// Apply middleware (outermost first)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(rateLimitMiddleware(deps.RateLimit, deps.SharedLimits, log))

	return r
}

// healthCheckHandler reports service and dependency health
func healthCheckHandler(storage Pinger, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]interface{}{
			"status":  "ok",
			"service": "movies-api",
			"storage": "ok",
			"cache":   "disabled",
		}

		if storage != nil {
			if err := storage.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["storage"] = err.Error()
			}
		}

		if cache != nil && cache.Enabled() {
			body["cache"] = "ok"
			if err := cache.Ping(ctx); err != nil {
				// 캐시 장애는 서비스 가용성에 영향 없음
				body["cache"] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
