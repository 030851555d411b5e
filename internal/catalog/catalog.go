// Package catalog stores the movie catalog (movies, producers, studios and their links).
// Two drivers implement contracts.MovieRepository: SQLite for embedded/in-memory use and
// PostgreSQL through the shared pgx pool.
package catalog

import (
	"context"
	"fmt"

	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/pkg/config"
	"github.com/wonny/movies/pkg/database"
	"github.com/wonny/movies/pkg/logger"
)

// Open returns the repository selected by cfg.StorageDriver
// ⭐ SSOT: 저장소 드라이버 선택은 여기서만
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.MovieRepository, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		repo, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		log.WithField("path", cfg.SQLitePath).Info("SQLite catalog opened")
		return repo, nil

	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open postgres catalog: %w", err)
		}
		repo, err := NewPostgresRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open postgres catalog: %w", err)
		}
		log.WithField("max_conns", cfg.Database.MaxConns).Info("PostgreSQL catalog opened")
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
