package traversal

import (
	"sync"
	"sync/atomic"

	"github.com/aescanero/graphpool/internal/application/workers"
	"github.com/aescanero/graphpool/pkg/domain/graph"
	"go.uber.org/zap"
)

// Submitter queues work on a pool
type Submitter interface {
	Submit(action workers.Action, arg any) error
}

// VisitHook is called after a node's value has been added to the sum
type VisitHook func(node, value int)

// Traversal sums the values of every node reachable from its seeds by
// distributing one task per node over a worker pool. Each task adds its
// node's value and then submits every neighbour not yet claimed.
type Traversal struct {
	graph   *graph.Graph
	pool    Submitter
	seeds   []int
	logger  *zap.Logger
	onVisit VisitHook

	// mu guards visited. A node is claimed (visited) when its task is
	// submitted, so it is never queued twice.
	mu      sync.Mutex
	visited []bool

	sum    atomic.Int64
	visits []atomic.Int32
}

// Option configures a Traversal
type Option func(*Traversal)

// WithSeeds restricts the starting nodes. By default every node is a seed.
func WithSeeds(seeds ...int) Option {
	return func(t *Traversal) {
		t.seeds = append([]int(nil), seeds...)
	}
}

// WithLogger sets the traversal logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *Traversal) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithVisitHook registers a callback run by the worker after each visit
func WithVisitHook(hook VisitHook) Option {
	return func(t *Traversal) {
		t.onVisit = hook
	}
}

// New creates a traversal of g whose tasks run on pool
func New(g *graph.Graph, pool Submitter, opts ...Option) *Traversal {
	t := &Traversal{
		graph:   g,
		pool:    pool,
		logger:  zap.NewNop(),
		visited: make([]bool, g.Len()),
		visits:  make([]atomic.Int32, g.Len()),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.seeds == nil {
		t.seeds = make([]int, g.Len())
		for i := range t.seeds {
			t.seeds[i] = i
		}
	}
	return t
}

// Seed submits one task per seed node. It returns the number of nodes it
// could not submit; those are picked up again by Resume.
func (t *Traversal) Seed() int {
	failed := 0
	for _, s := range t.seeds {
		if err := t.process(s); err != nil {
			failed++
		}
	}
	if failed > 0 {
		t.logger.Warn("some seed nodes could not be submitted",
			zap.Int("failed", failed),
			zap.Int("seeds", len(t.seeds)))
	}
	return failed
}

// Resume resubmits every seed and every neighbour of a visited node that is
// still unclaimed. It returns how many nodes were submitted.
func (t *Traversal) Resume() int {
	pending := t.unvisited()

	submitted := 0
	for _, n := range pending {
		if err := t.process(n); err == nil {
			submitted++
		}
	}

	t.logger.Debug("traversal resumed",
		zap.Int("pending", len(pending)),
		zap.Int("submitted", submitted))
	return submitted
}

// Done reports whether the traversal is complete: the pool is quiescent and
// every seed and every neighbour of a visited node has been visited. It is
// meant to be passed to workers.Pool.Stop.
func (t *Traversal) Done(stats workers.Stats) bool {
	if !stats.Idle() {
		return false
	}
	return len(t.unvisited()) == 0
}

// Sum returns the sum of the values of all visited nodes
func (t *Traversal) Sum() int64 {
	return t.sum.Load()
}

// Visited returns the number of nodes claimed so far
func (t *Traversal) Visited() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, v := range t.visited {
		if v {
			count++
		}
	}
	return count
}

// VisitCounts returns how many times each node's task has run
func (t *Traversal) VisitCounts() []int {
	counts := make([]int, len(t.visits))
	for i := range t.visits {
		counts[i] = int(t.visits[i].Load())
	}
	return counts
}

// process claims node n and submits its task. A node whose submission fails
// is released so that Resume can retry it.
func (t *Traversal) process(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.visited[n] {
		return nil
	}
	t.visited[n] = true

	task := newNodeTask(n, t.graph.Nodes[n].Value)
	if err := t.pool.Submit(t.visit, task); err != nil {
		task.Release()
		t.visited[n] = false
		t.logger.Debug("node submission failed",
			zap.Int("node", n),
			zap.Error(err))
		return err
	}
	return nil
}

// visit is the task action for one node
func (t *Traversal) visit(arg any) {
	task := arg.(*nodeTask)

	t.sum.Add(int64(task.value))
	t.visits[task.node].Add(1)

	if t.onVisit != nil {
		t.onVisit(task.node, task.value)
	}

	for _, n := range t.graph.Neighbours(task.node) {
		_ = t.process(n)
	}
}

// unvisited lists unclaimed seeds and unclaimed neighbours of claimed nodes
func (t *Traversal) unvisited() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[int]bool)
	var pending []int
	add := func(n int) {
		if !t.visited[n] && !seen[n] {
			seen[n] = true
			pending = append(pending, n)
		}
	}

	for _, s := range t.seeds {
		add(s)
	}
	for i, v := range t.visited {
		if !v {
			continue
		}
		for _, n := range t.graph.Neighbours(i) {
			add(n)
		}
	}
	return pending
}
