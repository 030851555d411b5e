package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/movies/internal/loader"
	"github.com/wonny/movies/pkg/logger"
)

// Reloader replaces the catalog from a dataset source
type Reloader interface {
	Reload(ctx context.Context, source string) (*loader.Result, error)
}

// DatasetReloadJob re-imports the configured dataset
// ⭐ SSOT: 데이터셋 주기 재적재는 이 Job에서만
type DatasetReloadJob struct {
	reloader Reloader
	source   string
	schedule string
	logger   *logger.Logger
}

// NewDatasetReloadJob creates a new dataset reload job
func NewDatasetReloadJob(reloader Reloader, source, schedule string, log *logger.Logger) *DatasetReloadJob {
	return &DatasetReloadJob{
		reloader: reloader,
		source:   source,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DatasetReloadJob) Name() string {
	return "dataset_reload"
}

// Schedule returns the configured cron schedule
func (j *DatasetReloadJob) Schedule() string {
	return j.schedule
}

// Run reloads the dataset
func (j *DatasetReloadJob) Run(ctx context.Context) error {
	j.logger.WithField("source", j.source).Info("Starting scheduled dataset reload")

	result, err := j.reloader.Reload(ctx, j.source)
	if err != nil {
		return fmt.Errorf("reload dataset: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"movies":  result.Movies,
		"winners": result.Winners,
		"skipped": result.Skipped,
	}).Info("Dataset reloaded")

	return nil
}
