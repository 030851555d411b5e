package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/movies/internal/awards"
	"github.com/wonny/movies/internal/catalog"
	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/internal/dataset"
	"github.com/wonny/movies/internal/intervals"
	"github.com/wonny/movies/internal/loader"
	"github.com/wonny/movies/pkg/config"
	"github.com/wonny/movies/pkg/httputil"
	"github.com/wonny/movies/pkg/logger"
	"github.com/wonny/movies/pkg/redis"
)

// app holds the components shared by the commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	repo    contracts.MovieRepository
	redis   *redis.Client
	service *awards.Service
	loader  *loader.Loader
}

// loadConfig loads configuration and applies the global flags
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// newApp opens the catalog and Redis and wires the loader and service
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	repo, err := catalog.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if rdb.Enabled() {
		log.WithField("addr", cfg.Redis.Host+":"+cfg.Redis.Port).Info("Connected to Redis")
	}

	cache := redis.NewCache(rdb, "movies")
	engine := intervals.NewEngine(cfg.IntervalsWorkers)
	service := awards.NewService(repo, engine, cache, cfg.ReportCacheTTL, log)

	ld := loader.New(repo, newFetcher(cfg.Dataset, log), datasetPolicy(cfg.Dataset), log)
	ld.SetInvalidator(service)

	return &app{
		cfg:     cfg,
		log:     log,
		repo:    repo,
		redis:   rdb,
		service: service,
		loader:  ld,
	}, nil
}

// Close releases the store and Redis connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close Redis")
	}
	if err := a.repo.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close catalog")
	}
}

// datasetPolicy maps DATASET_STRICT to a parse policy
func datasetPolicy(cfg config.DatasetConfig) dataset.Policy {
	if cfg.Strict {
		return dataset.Strict
	}
	return dataset.Lenient
}

// newFetcher builds the HTTP client used for remote datasets
func newFetcher(cfg config.DatasetConfig, log *logger.Logger) *httputil.Client {
	client := httputil.NewWithTimeout(log, cfg.FetchTimeout)
	if cfg.FetchRetries == 0 {
		return client.DisableRetry()
	}
	return client.WithRetry(cfg.FetchRetries, time.Second)
}
