// Package awards answers the producer award interval query on top of the catalog.
package awards

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/internal/intervals"
	"github.com/wonny/movies/internal/metrics"
	"github.com/wonny/movies/pkg/logger"
	"github.com/wonny/movies/pkg/redis"
)

// CacheKey is where the report is cached
const CacheKey = "awards:intervals"

// RecordSource supplies the winning (producer, year) records
type RecordSource interface {
	WinningRecords(ctx context.Context) ([]contracts.WinningRecord, error)
}

// Service fetches winning records and runs the interval engine
// ⭐ SSOT: 수상 간격 리포트는 이 서비스로만 생성
type Service struct {
	source RecordSource
	engine *intervals.Engine
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewService creates the service. cache may wrap a disabled Redis client.
func NewService(source RecordSource, engine *intervals.Engine, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		source: source,
		engine: engine,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithField("module", "awards"),
	}
}

// ProducerIntervals returns producers with the shortest and the longest gap between consecutive wins.
// A storage failure is returned as is; the engine never runs on partial data.
func (s *Service) ProducerIntervals(ctx context.Context) (*contracts.IntervalReport, error) {
	var report contracts.IntervalReport

	hit, err := s.cache.GetOrSet(ctx, CacheKey, &report, s.ttl, func() (interface{}, error) {
		return s.compute(ctx)
	})
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		metrics.CacheLookup(hit)
	}

	normalize(&report)
	return &report, nil
}

func (s *Service) compute(ctx context.Context) (contracts.IntervalReport, error) {
	start := time.Now()

	records, err := s.source.WinningRecords(ctx)
	if err != nil {
		metrics.ObserveComputation(time.Since(start), 0, err)
		return contracts.IntervalReport{}, fmt.Errorf("fetch winning records: %w", err)
	}

	report := s.engine.Compute(records)
	elapsed := time.Since(start)

	metrics.ObserveComputation(elapsed, len(records), nil)
	minInterval, ok := report.MinInterval()
	maxInterval, _ := report.MaxInterval()
	metrics.SetExtremes(minInterval, maxInterval, ok)

	s.logger.WithFields(map[string]interface{}{
		"records":  len(records),
		"min":      len(report.Min),
		"max":      len(report.Max),
		"workers":  s.engine.Workers(),
		"duration": elapsed.String(),
	}).Debug("Award intervals computed")

	return report, nil
}

// Invalidate drops the cached report
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, CacheKey); err != nil {
		return fmt.Errorf("invalidate report cache: %w", err)
	}
	return nil
}

// normalize keeps both lists non-nil after a JSON round trip through the cache
func normalize(r *contracts.IntervalReport) {
	if r.Min == nil {
		r.Min = []contracts.ProducerInterval{}
	}
	if r.Max == nil {
		r.Max = []contracts.ProducerInterval{}
	}
}
