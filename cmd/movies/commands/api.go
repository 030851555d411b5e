package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/movies/internal/api"
	"github.com/wonny/movies/internal/api/handlers"
	"github.com/wonny/movies/internal/metrics"
	"github.com/wonny/movies/internal/scheduler"
	"github.com/wonny/movies/internal/scheduler/jobs"
	"github.com/wonny/movies/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Imports the configured dataset and starts the REST API server.

Endpoints:
  GET  /health                            - Health check
  GET  {base}/producers/awards-intervals  - Min/max award intervals
  GET  {base}/movies?winner=&year=        - Movies
  GET  {base}/movies/{id}                 - One movie
  GET  {base}/producers                   - Producers
  GET  {base}/studios                     - Studios
  POST {base}/dataset/reload              - Re-import the dataset

{base} is BASE_PATH (default /ws-movies). Metrics are served on METRICS_PORT.

Example:
  go run ./cmd/movies api
  go run ./cmd/movies api --port 8081`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":    cfg.Port,
		"env":     cfg.Env,
		"storage": cfg.StorageDriver,
	}).Info("Initializing API server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Store, cache, service, loader
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// 2. Initial import (the service is useless without it)
	result, err := a.loader.Reload(ctx, cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("load dataset %s: %w", cfg.Dataset.Path, err)
	}
	log.WithFields(map[string]interface{}{
		"movies":  result.Movies,
		"skipped": result.Skipped,
	}).Info("Initial dataset loaded")

	// 3. Router
	router := api.NewRouter(api.RouterDeps{
		BasePath: cfg.BasePath,
		Awards:   handlers.NewAwardsHandler(a.service, log),
		Catalog:  handlers.NewCatalogHandler(a.repo, log),
		Dataset:  handlers.NewDatasetHandler(a.loader, cfg.Dataset.Path, cfg.Dataset.AllowedSources, log),
		Storage:  a.repo,
		Cache:    a.redis,
		RateLimit: api.RateLimitSettings{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
		SharedLimits: redis.NewRateLimiter(a.redis, "movies"),
		Logger:       log,
	})

	servers := []*api.Server{api.New("api", ":"+cfg.Port, router, log)}
	if cfg.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		servers = append(servers, api.New("metrics", ":"+cfg.MetricsPort, mux, log))
	}

	// 4. Scheduler
	sched := scheduler.New(log)
	if cfg.Dataset.RefreshSchedule != "" {
		job := jobs.NewDatasetReloadJob(a.loader, cfg.Dataset.Path, cfg.Dataset.RefreshSchedule, log)
		if err := sched.AddJob(job); err != nil {
			return err
		}
	}
	if a.redis.Enabled() && cfg.ReportCacheTTL > time.Second {
		if err := sched.AddJob(jobs.NewReportWarmupJob(a.service, cfg.ReportCacheTTL/2, log)); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	// 5. Serve until a signal or a listener failure
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *api.Server) {
			errCh <- srv.Start()
		}(srv)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s%s/producers/awards-intervals\n", cfg.Port, cfg.BasePath)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}

	log.Info("Server stopped")
	return serveErr
}
