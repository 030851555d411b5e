package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/movies/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	failures int32 // fail this many times before succeeding
	calls    atomic.Int32
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	if j.calls.Add(1) <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), WithRetry(2, time.Millisecond), WithTimeout(time.Second))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "@hourly"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "0 */5 * * * *"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	err := s.AddJob(&fakeJob{name: "a", schedule: "@hourly"})
	assert.Error(t, err)
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := newTestScheduler()

	err := s.AddJob(&fakeJob{name: "bad", schedule: "not a schedule"})
	require.Error(t, err)
	assert.Empty(t, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@hourly"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Empty(t, s.cron.Entries())

	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJob_RetriesUntilSuccess(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "flaky", schedule: "@hourly", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "flaky")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)
}

func TestRunJob_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "broken", schedule: "@hourly", failures: 100}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "broken")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "transient failure", result.Error)

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	assert.Equal(t, 1, history.Len())
	assert.Len(t, history.GetFailedResults(), 1)
}

func TestRunJob_CancelledContextStopsRetrying(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := &fakeJob{name: "broken", schedule: "@hourly", failures: 100}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.RunJob(ctx, "broken")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, int32(1), job.calls.Load())
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestRunJob_Unknown(t *testing.T) {
	_, err := newTestScheduler().RunJob(context.Background(), "missing")
	assert.Error(t, err)
}

func TestGetJobStats(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "ok", schedule: "@hourly"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "broken", schedule: "@daily", failures: 100}))

	_, err := s.RunJob(context.Background(), "ok")
	require.NoError(t, err)
	_, err = s.RunJob(context.Background(), "ok")
	require.NoError(t, err)
	_, err = s.RunJob(context.Background(), "broken")
	require.NoError(t, err)

	stats := s.GetJobStats()
	require.Len(t, stats, 2)

	ok := stats["ok"]
	assert.Equal(t, "@hourly", ok.Schedule)
	assert.Equal(t, 2, ok.TotalRuns)
	assert.Equal(t, 2, ok.SuccessCount)
	assert.Equal(t, 1.0, ok.SuccessRate)
	assert.NotNil(t, ok.LastSuccess)
	assert.Nil(t, ok.LastFailure)

	broken := stats["broken"]
	assert.Equal(t, 1, broken.FailureCount)
	assert.Equal(t, 0.0, broken.SuccessRate)
	assert.NotNil(t, broken.LastFailure)
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "tick", schedule: "* * * * * *"}
	require.NoError(t, s.AddJob(job))

	s.Start()
	assert.Eventually(t, func() bool { return job.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()

	stats := s.GetJobStats()
	assert.Positive(t, stats["tick"].TotalRuns)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < historyLimit+10; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}

	assert.Equal(t, historyLimit, h.Len())
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.001)
}
