package traversal

import "sync"

// nodeTask is the argument of a visit task. The pool releases it once the
// visit has run (or been dropped at shutdown) and it returns to taskPool.
type nodeTask struct {
	node  int
	value int
}

var taskPool = sync.Pool{
	New: func() any { return new(nodeTask) },
}

func newNodeTask(node, value int) *nodeTask {
	t := taskPool.Get().(*nodeTask)
	t.node = node
	t.value = value
	return t
}

// Release implements workers.Releaser
func (t *nodeTask) Release() {
	t.node, t.value = 0, 0
	taskPool.Put(t)
}
