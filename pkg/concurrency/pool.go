// Package concurrency provides the row-partitioned worker pool the
// transform and feature-selection stages run on (§4.9). It generalizes the
// goroutine-per-chunk pattern fastprop.TransformAll uses inline so
// selection batches and future data-parallel stages can share it.
package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultParallelism returns max(2, hw_concurrency/2), the sizing rule
// §4.9 names for when num_threads is left at its zero value.
func DefaultParallelism() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	return n
}

// Pool partitions [0, n) into contiguous row ranges and runs fn on each
// range concurrently, one goroutine per partition.
type Pool struct {
	NumWorkers int
	Logger     *zap.Logger
}

// New returns a Pool sized to workers, or DefaultParallelism() if workers
// is <= 0.
func New(workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultParallelism()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{NumWorkers: workers, Logger: logger}
}

// Range describes one partition's half-open row span.
type Range struct {
	Start, End, Worker int
}

// Partitions splits [0, n) into at most p.NumWorkers contiguous ranges.
func (p *Pool) Partitions(n int) []Range {
	workers := p.NumWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}
	var ranges []Range
	w := 0
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		ranges = append(ranges, Range{Start: start, End: end, Worker: w})
		w++
	}
	return ranges
}

// Run partitions n rows across the pool's workers and calls fn once per
// partition. Worker 0's error is returned to the caller once every
// partition has finished; errors from any other worker are logged and
// swallowed, matching §4.9's asymmetric error policy (thread 0 owns
// fail-fast, the rest degrade gracefully so a straggler partition doesn't
// waste the work already done by its siblings).
//
// progress, if non-nil, is read once after every partition has finished
// and logged at debug level; Run itself never increments it (fn may).
func (p *Pool) Run(n int, progress *int64, fn func(r Range) error) error {
	ranges := p.Partitions(n)
	var wg sync.WaitGroup
	var thread0Err error
	otherErrs := make([]error, 0, len(ranges))
	var mu sync.Mutex

	for _, rg := range ranges {
		wg.Add(1)
		go func(rg Range) {
			defer wg.Done()
			err := fn(rg)
			if err == nil {
				return
			}
			if rg.Worker == 0 {
				mu.Lock()
				thread0Err = err
				mu.Unlock()
				return
			}
			mu.Lock()
			otherErrs = append(otherErrs, err)
			mu.Unlock()
			p.Logger.Warn("worker partition failed", zap.Int("worker", rg.Worker), zap.Error(err))
		}(rg)
	}
	wg.Wait()

	if progress != nil {
		p.Logger.Debug("partition run complete", zap.Int64("rows_processed", atomic.LoadInt64(progress)))
	}
	return thread0Err
}
