package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/pkg/logger"
)

// ReportService is the cached award interval report
type ReportService interface {
	Invalidate(ctx context.Context) error
	ProducerIntervals(ctx context.Context) (*contracts.IntervalReport, error)
}

// ReportWarmupJob recomputes the report before the cached copy expires
type ReportWarmupJob struct {
	service  ReportService
	interval time.Duration
	logger   *logger.Logger
}

// NewReportWarmupJob creates a job running every interval
func NewReportWarmupJob(service ReportService, interval time.Duration, log *logger.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{
		service:  service,
		interval: interval,
		logger:   log,
	}
}

// Name returns the job name
func (j *ReportWarmupJob) Name() string {
	return "report_warmup"
}

// Schedule returns an "@every" descriptor
func (j *ReportWarmupJob) Schedule() string {
	return "@every " + j.interval.String()
}

// Run drops the cached report and computes a fresh one
func (j *ReportWarmupJob) Run(ctx context.Context) error {
	if err := j.service.Invalidate(ctx); err != nil {
		return err
	}

	report, err := j.service.ProducerIntervals(ctx)
	if err != nil {
		return fmt.Errorf("warm report cache: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"min": len(report.Min),
		"max": len(report.Max),
	}).Debug("Report cache warmed")

	return nil
}
