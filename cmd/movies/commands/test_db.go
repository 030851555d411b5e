package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/movies/internal/catalog"
	"github.com/wonny/movies/pkg/config"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the configured store",
	Long: `Opens the configured store (STORAGE_DRIVER) and shows connectivity,
catalog counts and connection pool statistics.

Example:
  go run ./cmd/movies test-db
  STORAGE_DRIVER=postgres DATABASE_URL=postgres://... go run ./cmd/movies test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Movies Store Connection Test ===")

	cfg, log, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	fmt.Fprintf(out, "✅ Config loaded (ENV: %s, STORAGE_DRIVER: %s)\n", cfg.Env, cfg.StorageDriver)
	if cfg.StorageDriver == config.DriverPostgres {
		fmt.Fprintf(out, "   Database URL: %s\n\n", maskPassword(cfg.Database.URL))
	} else {
		fmt.Fprintf(out, "   SQLite path: %s\n\n", cfg.SQLitePath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := catalog.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("❌ Failed to open store: %w", err)
	}
	defer repo.Close()
	fmt.Fprintln(out, "✅ Store opened, schema applied")

	start := time.Now()
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ping store: %w", err)
	}
	fmt.Fprintf(out, "✅ Ping successful (%v)\n", time.Since(start))

	counts, err := repo.Counts(ctx)
	if err != nil {
		return fmt.Errorf("❌ Failed to count catalog: %w", err)
	}
	fmt.Fprintln(out, "📊 Catalog:")
	fmt.Fprintf(out, "   Movies: %d (winners: %d)\n", counts.Movies, counts.Winners)
	fmt.Fprintf(out, "   Producers: %d\n", counts.Producers)
	fmt.Fprintf(out, "   Studios: %d\n", counts.Studios)

	switch r := repo.(type) {
	case *catalog.PostgresRepository:
		status, err := r.DB().HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ Health check failed: %w", err)
		}
		fmt.Fprintln(out, "📊 Connection Pool Statistics:")
		fmt.Fprintf(out, "   Max Connections: %d\n", status.Stats.MaxConns)
		fmt.Fprintf(out, "   Total Connections: %d\n", status.Stats.TotalConns)
		fmt.Fprintf(out, "   Acquired Connections: %d\n", status.Stats.AcquiredConns)
		fmt.Fprintf(out, "   Idle Connections: %d\n", status.Stats.IdleConns)
		fmt.Fprintf(out, "   Acquire Count: %d\n", status.Stats.AcquireCount)
	case *catalog.SQLiteRepository:
		stats := r.Stats()
		fmt.Fprintln(out, "📊 Connection Pool Statistics:")
		fmt.Fprintf(out, "   Max Open Connections: %d\n", stats.MaxOpenConnections)
		fmt.Fprintf(out, "   Open Connections: %d\n", stats.OpenConnections)
		fmt.Fprintf(out, "   In Use: %d\n", stats.InUse)
	}

	fmt.Fprintln(out, "\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password of a database URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "***")
	return u.String()
}
