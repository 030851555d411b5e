// Package loader imports a parsed movie dataset into the catalog store.
package loader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/internal/dataset"
	"github.com/wonny/movies/internal/metrics"
	"github.com/wonny/movies/pkg/logger"
)

// Invalidator drops derived data after the catalog changes
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Result summarizes one import
type Result struct {
	Source    string        `json:"source,omitempty"`
	Movies    int           `json:"movies"`
	Winners   int           `json:"winners"`
	Producers int           `json:"producers"`
	Studios   int           `json:"studios"`
	Skipped   int           `json:"skipped"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	rows      []dataset.RowError
}

// SkippedRows returns the rejected lines of a lenient import
func (r *Result) SkippedRows() []dataset.RowError {
	return r.rows
}

// Loader parses datasets and writes them through a MovieRepository
// ⭐ SSOT: 데이터셋 → 카탈로그 적재는 여기서만
type Loader struct {
	repo        contracts.MovieRepository
	fetcher     dataset.Fetcher
	policy      dataset.Policy
	invalidator Invalidator
	logger      *logger.Logger

	// one import at a time; Reload resets the store
	mu sync.Mutex
}

// New creates a loader. fetcher may be nil when only local files are loaded.
func New(repo contracts.MovieRepository, fetcher dataset.Fetcher, policy dataset.Policy, log *logger.Logger) *Loader {
	return &Loader{
		repo:    repo,
		fetcher: fetcher,
		policy:  policy,
		logger:  log.WithField("module", "loader"),
	}
}

// SetInvalidator registers what to invalidate whenever an import writes to the store
func (l *Loader) SetInvalidator(inv Invalidator) {
	l.invalidator = inv
}

// Load parses src and appends every row to the store
func (l *Loader) Load(ctx context.Context, src io.Reader) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	parsed, err := dataset.Parse(src, l.policy)
	if err != nil {
		metrics.ObserveLoad(0, 0, 0, 0, err)
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	result, err := l.store(ctx, parsed)
	l.invalidate(ctx)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LoadSource opens a file path or URL and loads it
func (l *Loader) LoadSource(ctx context.Context, source string) (*Result, error) {
	rc, err := dataset.Open(ctx, source, l.fetcher)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	result, err := l.Load(ctx, rc)
	if err != nil {
		return nil, err
	}
	result.Source = source
	return result, nil
}

// Reload replaces the catalog with the dataset at source.
// The source is parsed before the store is reset, so a bad dataset leaves the catalog untouched.
// Once the reset has run, cancelling ctx no longer stops the import.
func (l *Loader) Reload(ctx context.Context, source string) (*Result, error) {
	rc, err := dataset.Open(ctx, source, l.fetcher)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	parsed, err := dataset.Parse(rc, l.policy)
	if err != nil {
		metrics.ObserveLoad(0, 0, 0, 0, err)
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	work := context.WithoutCancel(ctx)

	if err := l.repo.Reset(work); err != nil {
		l.invalidate(work)
		return nil, fmt.Errorf("reset catalog: %w", err)
	}

	result, err := l.store(work, parsed)
	l.invalidate(work)
	if err != nil {
		return nil, err
	}
	result.Source = source

	return result, nil
}

// invalidate runs after every write attempt, failed ones included:
// a partial import must not keep serving the previous report.
func (l *Loader) invalidate(ctx context.Context) {
	if l.invalidator == nil {
		return
	}
	if err := l.invalidator.Invalidate(context.WithoutCancel(ctx)); err != nil {
		l.logger.WithError(err).Warn("Failed to invalidate report cache")
	}
}

func (l *Loader) store(ctx context.Context, parsed *dataset.Result) (*Result, error) {
	start := time.Now()

	producers := make(map[string]contracts.Producer)
	studios := make(map[string]contracts.Studio)

	for _, row := range parsed.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		movie := &contracts.Movie{
			Year:      row.Year,
			Title:     row.Title,
			Winner:    row.Winner,
			Studios:   make([]contracts.Studio, 0, len(row.Studios)),
			Producers: make([]contracts.Producer, 0, len(row.Producers)),
		}

		for _, name := range row.Studios {
			s, ok := studios[name]
			if !ok {
				var err error
				if s, err = l.repo.FindOrCreateStudio(ctx, name); err != nil {
					metrics.ObserveLoad(0, 0, 0, 0, err)
					return nil, fmt.Errorf("line %d: %w", row.Line, err)
				}
				studios[name] = s
			}
			movie.Studios = append(movie.Studios, s)
		}

		for _, name := range row.Producers {
			p, ok := producers[name]
			if !ok {
				var err error
				if p, err = l.repo.FindOrCreateProducer(ctx, name); err != nil {
					metrics.ObserveLoad(0, 0, 0, 0, err)
					return nil, fmt.Errorf("line %d: %w", row.Line, err)
				}
				producers[name] = p
			}
			movie.Producers = append(movie.Producers, p)
		}

		if err := l.repo.SaveMovie(ctx, movie); err != nil {
			metrics.ObserveLoad(0, 0, 0, 0, err)
			return nil, fmt.Errorf("line %d: %w", row.Line, err)
		}
	}

	counts, err := l.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Movies:    counts.Movies,
		Winners:   counts.Winners,
		Producers: counts.Producers,
		Studios:   counts.Studios,
		Skipped:   len(parsed.Skipped),
		Duration:  time.Since(start),
		rows:      parsed.Skipped,
	}
	for _, rowErr := range parsed.Skipped {
		result.Errors = append(result.Errors, rowErr.Error())
		l.logger.WithFields(map[string]interface{}{
			"line":  rowErr.Line,
			"error": rowErr.Err.Error(),
		}).Warn("Skipped malformed dataset row")
	}

	metrics.ObserveLoad(result.Movies, result.Producers, result.Studios, result.Skipped, nil)

	l.logger.WithFields(map[string]interface{}{
		"rows":      len(parsed.Rows),
		"movies":    result.Movies,
		"winners":   result.Winners,
		"producers": result.Producers,
		"studios":   result.Studios,
		"skipped":   result.Skipped,
		"duration":  result.Duration.String(),
	}).Info("Dataset loaded")

	return result, nil
}
