package traversal

import (
	"errors"
	"sync"
	"testing"

	"github.com/aescanero/graphpool/internal/application/workers"
	"github.com/aescanero/graphpool/pkg/domain/graph"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func chainGraph(t *testing.T, values ...int) *graph.Graph {
	t.Helper()
	g := graph.New(values)
	for i := 0; i+1 < len(values); i++ {
		if err := g.AddEdge(i, i+1); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

// drive runs the seed/wait/stop/resume protocol until the pool stops
func drive(t *testing.T, pool *workers.Pool, tr *Traversal) int {
	t.Helper()
	tr.Seed()
	for attempt := 1; ; attempt++ {
		pool.WaitUntilIdle()
		if pool.Stop(tr.Done) {
			return attempt
		}
		if attempt > 1000 {
			pool.Stop(nil)
			t.Fatal("traversal did not complete")
		}
		tr.Resume()
	}
}

func TestChainSumIndependentOfPoolSize(t *testing.T) {
	for _, size := range []int{1, 4, 16} {
		g := chainGraph(t, 1, 2, 3, 4, 5)
		pool, err := workers.NewPool(1000, size, workers.WithLogger(zaptest.NewLogger(t)))
		if err != nil {
			t.Fatalf("NewPool: %v", err)
		}
		tr := New(g, pool)

		drive(t, pool, tr)

		if tr.Sum() != 15 {
			t.Errorf("workers=%d: expected sum 15, got %d", size, tr.Sum())
		}
		for node, count := range tr.VisitCounts() {
			if count != 1 {
				t.Errorf("workers=%d: node %d visited %d times", size, node, count)
			}
		}
		if stats := pool.Stats(); stats.Released != stats.Submitted {
			t.Errorf("workers=%d: %d tasks submitted but %d released", size, stats.Submitted, stats.Released)
		}
	}
}

func TestLargeGraphMatchesSequentialSum(t *testing.T) {
	const n = 500
	values := make([]int, n)
	for i := range values {
		values[i] = i * 7 % 13
	}
	g := graph.New(values)
	for i := 0; i < n; i++ {
		_ = g.AddEdge(i, (i*31+7)%n)
		_ = g.AddEdge(i, (i+1)%n)
	}

	for _, size := range []int{1, 2, 8} {
		pool, err := workers.NewPool(n, size)
		if err != nil {
			t.Fatalf("NewPool: %v", err)
		}
		tr := New(g, pool, WithSeeds(0))

		drive(t, pool, tr)

		if tr.Sum() != g.Sum() {
			t.Errorf("workers=%d: expected sum %d, got %d", size, g.Sum(), tr.Sum())
		}
		if tr.Visited() != n {
			t.Errorf("workers=%d: expected %d visited, got %d", size, n, tr.Visited())
		}
	}
}

func TestResumeAfterRejectedSubmissions(t *testing.T) {
	// star: node 0 linked to every other node, with a queue too small to
	// hold all neighbours at once
	const n = 50
	values := make([]int, n)
	for i := range values {
		values[i] = 1
	}
	g := graph.New(values)
	for i := 1; i < n; i++ {
		_ = g.AddEdge(0, i)
	}

	pool, err := workers.NewPool(2, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	tr := New(g, pool, WithSeeds(0))

	attempts := drive(t, pool, tr)

	if attempts < 2 {
		t.Errorf("expected the completion check to defer stop at least once, got %d attempts", attempts)
	}
	if tr.Sum() != n {
		t.Errorf("expected sum %d, got %d", n, tr.Sum())
	}
	if pool.Stats().Rejected == 0 {
		t.Error("expected some submissions to be rejected")
	}
}

func TestDisconnectedNodesOutsideSeedsAreSkipped(t *testing.T) {
	g := graph.New([]int{1, 2, 100})
	_ = g.AddEdge(0, 1)

	pool, err := workers.NewPool(10, 2)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	tr := New(g, pool, WithSeeds(0))

	drive(t, pool, tr)

	if tr.Sum() != 3 {
		t.Fatalf("expected sum 3, got %d", tr.Sum())
	}
}

func TestVisitHook(t *testing.T) {
	g := chainGraph(t, 1, 2, 3)

	var mu sync.Mutex
	seen := make(map[int]int)
	pool, err := workers.NewPool(10, 2)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	tr := New(g, pool, WithVisitHook(func(node, value int) {
		mu.Lock()
		seen[node] = value
		mu.Unlock()
	}))

	drive(t, pool, tr)

	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Fatalf("unexpected hook calls: %v", seen)
	}
}

// rejectingSubmitter refuses every submission
type rejectingSubmitter struct{}

func (rejectingSubmitter) Submit(workers.Action, any) error {
	return workers.ErrQueueFull
}

func TestFailedSubmissionLeavesNodeUnvisited(t *testing.T) {
	g := chainGraph(t, 1, 2)
	tr := New(g, rejectingSubmitter{})

	if failed := tr.Seed(); failed != 2 {
		t.Fatalf("expected 2 failed seeds, got %d", failed)
	}
	if tr.Visited() != 0 {
		t.Fatalf("expected no claimed nodes, got %d", tr.Visited())
	}
	if tr.Done(workers.Stats{}) {
		t.Fatal("expected traversal to be incomplete")
	}
	if !errors.Is(tr.process(0), workers.ErrQueueFull) {
		t.Fatal("expected process to surface the submission error")
	}
}
