// Package intervals computes the gaps between consecutive award wins of each
// producer and selects the producers holding the global minimum and maximum gap.
//
// The package is pure: no I/O, no shared state. Callers fetch the winning
// records from storage and hand them over as a flat slice in any order.
package intervals

import (
	"sort"
	"strings"
	"sync"

	"github.com/wonny/movies/internal/contracts"
)

// =============================================================================
// Engine - 순수 계산기
// =============================================================================

// Engine computes interval reports, fanning out over producer groups when
// configured with more than one worker.
// ⭐ SSOT: 수상 간격 계산은 여기서만
type Engine struct {
	workers int
}

// NewEngine creates an engine. workers <= 1 computes sequentially.
func NewEngine(workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{workers: workers}
}

// Workers returns the configured worker count
func (e *Engine) Workers() int {
	return e.workers
}

// Compute builds the interval report for records
func (e *Engine) Compute(records []contracts.WinningRecord) contracts.IntervalReport {
	if e.workers > 1 {
		return ComputeParallel(records, e.workers)
	}
	return Compute(records)
}

// Compute groups records by producer, derives the interval between every pair of
// adjacent win years and returns all intervals equal to the global minimum and
// the global maximum.
//
// Duplicate (producer, year) records are separate wins and yield a 0 interval.
// Within one producer, entries follow ascending year order. Producers appear in
// the order they are first seen in records; callers must not rely on it.
func Compute(records []contracts.WinningRecord) contracts.IntervalReport {
	groups := groupByProducer(records)

	var all []contracts.ProducerInterval
	for _, g := range groups {
		all = append(all, producerIntervals(g.producer, g.years)...)
	}

	return selectExtremes(all)
}

// ComputeParallel returns the same report as Compute, deriving each producer's
// intervals on a pool of workers. Results are merged in group order, so the
// output is identical to Compute's.
func ComputeParallel(records []contracts.WinningRecord, workers int) contracts.IntervalReport {
	groups := groupByProducer(records)
	if workers < 1 {
		workers = 1
	}
	if workers > len(groups) {
		workers = len(groups)
	}

	results := make([][]contracts.ProducerInterval, len(groups))
	jobCh := make(chan int, len(groups))
	for i := range groups {
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				// 각 워커는 서로 다른 인덱스만 기록
				results[i] = producerIntervals(groups[i].producer, groups[i].years)
			}
		}()
	}
	wg.Wait()

	var all []contracts.ProducerInterval
	for _, r := range results {
		all = append(all, r...)
	}

	return selectExtremes(all)
}

// =============================================================================
// Steps
// =============================================================================

type producerGroup struct {
	producer string
	years    []int
}

// groupByProducer keys groups by the trimmed producer name, in first-seen order
func groupByProducer(records []contracts.WinningRecord) []producerGroup {
	index := make(map[string]int)
	var groups []producerGroup

	for _, rec := range records {
		key := ProducerKey(rec.Producer)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, producerGroup{producer: key})
		}
		groups[i].years = append(groups[i].years, rec.Year)
	}

	return groups
}

// ProducerKey is the identity used to group records of the same producer
func ProducerKey(name string) string {
	return strings.TrimSpace(name)
}

// producerIntervals emits one interval per adjacent pair of sorted years.
// Fewer than two years yields nothing.
func producerIntervals(producer string, years []int) []contracts.ProducerInterval {
	if len(years) < 2 {
		return nil
	}

	sorted := make([]int, len(years))
	copy(sorted, years)
	sort.Ints(sorted)

	out := make([]contracts.ProducerInterval, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		out = append(out, contracts.ProducerInterval{
			Producer:     producer,
			Interval:     sorted[i] - sorted[i-1],
			PreviousWin:  sorted[i-1],
			FollowingWin: sorted[i],
		})
	}

	return out
}

// selectExtremes keeps every interval equal to the global min and max.
// Min and Max never share a backing array.
func selectExtremes(all []contracts.ProducerInterval) contracts.IntervalReport {
	report := contracts.EmptyIntervalReport()
	if len(all) == 0 {
		return report
	}

	minValue, maxValue := all[0].Interval, all[0].Interval
	for _, pi := range all[1:] {
		if pi.Interval < minValue {
			minValue = pi.Interval
		}
		if pi.Interval > maxValue {
			maxValue = pi.Interval
		}
	}

	for _, pi := range all {
		if pi.Interval == minValue {
			report.Min = append(report.Min, pi)
		}
		if pi.Interval == maxValue {
			report.Max = append(report.Max, pi)
		}
	}

	return report
}
