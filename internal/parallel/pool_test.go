package parallel

import (
	"sync/atomic"
	"testing"
)

func TestExecuteAllRunsEverything(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	var count atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { count.Add(1) }
	}
	p.ExecuteAll(work)
	if got := count.Load(); got != 100 {
		t.Fatalf("ran %d items, want 100", got)
	}
}

func TestExecuteAllUnevenLoad(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	// One expensive item per batch forces the other workers to steal.
	var sum atomic.Int64
	work := make([]func(), 32)
	for i := range work {
		i := i
		work[i] = func() {
			n := 1
			if i == 0 {
				n = 100000
			}
			local := 0
			for j := 0; j < n; j++ {
				local++
			}
			sum.Add(int64(local))
		}
	}
	p.ExecuteAll(work)
	if got := sum.Load(); got != 100000+31 {
		t.Fatalf("sum %d, want %d", got, 100000+31)
	}
}

func TestExecuteAllOnClosedPoolRunsInline(t *testing.T) {
	p := NewWorkerPool(2)
	p.Close()
	if p.IsRunning() {
		t.Fatal("pool running after Close")
	}

	var count atomic.Int64
	p.ExecuteAll([]func(){
		func() { count.Add(1) },
		func() { count.Add(1) },
	})
	if got := count.Load(); got != 2 {
		t.Fatalf("ran %d items after close, want 2", got)
	}
}

func TestCloseIdempotent(t *testing.T) {
	p := NewWorkerPool(2)
	p.Close()
	p.Close()
}

func TestWorkersDefault(t *testing.T) {
	p := NewWorkerPool(0)
	defer p.Close()
	if p.Workers() < 1 {
		t.Fatalf("Workers() = %d", p.Workers())
	}
}

func TestForCoversEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64} {
		hits := make([]atomic.Int32, n)
		For(n, func(i int) { hits[i].Add(1) })
		for i := range hits {
			if got := hits[i].Load(); got != 1 {
				t.Fatalf("n=%d: index %d ran %d times", n, i, got)
			}
		}
	}
}
