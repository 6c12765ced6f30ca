package workers

// queueNode links one pending task into the queue
type queueNode struct {
	task Task
	next *queueNode
}

// taskQueue is a FIFO singly-linked list of pending tasks.
//
// It is not safe for concurrent use; the pool guards it with its mutex.
// Dequeued nodes are kept on a free list and reused, so steady-state
// submission does not allocate.
type taskQueue struct {
	head   *queueNode
	tail   *queueNode
	free   *queueNode
	length int
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

// enqueue appends t at the tail
func (q *taskQueue) enqueue(t Task) {
	n := q.free
	if n != nil {
		q.free = n.next
		n.next = nil
	} else {
		n = &queueNode{}
	}
	n.task = t

	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.length++
}

// dequeue removes the head task. ok is false when the queue is empty.
func (q *taskQueue) dequeue() (t Task, ok bool) {
	n := q.head
	if n == nil {
		return Task{}, false
	}

	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.length--

	t = n.task
	n.task = Task{}
	n.next = q.free
	q.free = n
	return t, true
}

// drain removes every pending task, in order
func (q *taskQueue) drain() []Task {
	tasks := make([]Task, 0, q.length)
	for {
		t, ok := q.dequeue()
		if !ok {
			break
		}
		tasks = append(tasks, t)
	}
	q.free = nil
	return tasks
}

func (q *taskQueue) len() int {
	return q.length
}
