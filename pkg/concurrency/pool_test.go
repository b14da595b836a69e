package concurrency

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestPartitionsCoverRangeWithoutGapsOrOverlap(t *testing.T) {
	p := New(3, nil)
	ranges := p.Partitions(10)

	covered := make([]bool, 10)
	for _, r := range ranges {
		for i := r.Start; i < r.End; i++ {
			if covered[i] {
				t.Fatalf("row %d covered by more than one partition", i)
			}
			covered[i] = true
		}
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("row %d not covered by any partition", i)
		}
	}
}

func TestPartitionsNeverExceedsRowCount(t *testing.T) {
	p := New(8, nil)
	ranges := p.Partitions(3)
	if len(ranges) > 3 {
		t.Fatalf("expected at most 3 partitions for 3 rows, got %d", len(ranges))
	}
}

func TestPartitionsZeroRowsIsEmpty(t *testing.T) {
	p := New(4, nil)
	if ranges := p.Partitions(0); len(ranges) != 0 {
		t.Fatalf("expected no partitions for zero rows, got %v", ranges)
	}
}

func TestNewDefaultsWorkersWhenNonPositive(t *testing.T) {
	p := New(0, nil)
	if p.NumWorkers != DefaultParallelism() {
		t.Fatalf("expected NumWorkers to default to DefaultParallelism(), got %d", p.NumWorkers)
	}
}

func TestRunExecutesEveryPartition(t *testing.T) {
	p := New(4, nil)
	var processed int64
	err := p.Run(100, &processed, func(r Range) error {
		atomic.AddInt64(&processed, int64(r.End-r.Start))
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 100 {
		t.Fatalf("expected every row visited exactly once, got %d", processed)
	}
}

func TestRunReturnsWorkerZeroErrorOnly(t *testing.T) {
	p := New(4, nil)
	boom := errors.New("boom")
	err := p.Run(8, nil, func(r Range) error {
		if r.Worker == 0 {
			return boom
		}
		return errors.New("other worker failure, should be swallowed")
	})
	if err != boom {
		t.Fatalf("expected worker 0's error to propagate, got %v", err)
	}
}

func TestRunSwallowsNonZeroWorkerErrors(t *testing.T) {
	p := New(4, nil)
	err := p.Run(8, nil, func(r Range) error {
		if r.Worker == 0 {
			return nil
		}
		return errors.New("straggler failure")
	})
	if err != nil {
		t.Fatalf("expected non-worker-0 failures to be swallowed, got %v", err)
	}
}

func TestDefaultParallelismAtLeastTwo(t *testing.T) {
	if DefaultParallelism() < 2 {
		t.Fatalf("expected DefaultParallelism to floor at 2, got %d", DefaultParallelism())
	}
}
