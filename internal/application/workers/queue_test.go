package workers

import "testing"

func TestTaskQueueFIFO(t *testing.T) {
	q := newTaskQueue()

	if _, ok := q.dequeue(); ok {
		t.Fatal("expected empty queue")
	}

	for i := 0; i < 5; i++ {
		q.enqueue(Task{arg: i})
	}
	if q.len() != 5 {
		t.Fatalf("expected length 5, got %d", q.len())
	}

	for i := 0; i < 5; i++ {
		task, ok := q.dequeue()
		if !ok {
			t.Fatalf("dequeue %d: queue empty", i)
		}
		if task.arg.(int) != i {
			t.Fatalf("expected %d, got %v", i, task.arg)
		}
	}

	if q.len() != 0 || q.head != nil || q.tail != nil {
		t.Fatalf("expected empty queue, got length %d", q.len())
	}
}

func TestTaskQueueReusesNodes(t *testing.T) {
	q := newTaskQueue()

	q.enqueue(Task{arg: 1})
	first := q.head
	q.dequeue()

	if first.task.arg != nil {
		t.Fatal("dequeued node still references its task")
	}

	q.enqueue(Task{arg: 2})
	if q.head != first {
		t.Fatal("expected freed node to be reused")
	}
}

func TestTaskQueueInterleaved(t *testing.T) {
	q := newTaskQueue()

	q.enqueue(Task{arg: 1})
	q.enqueue(Task{arg: 2})
	q.dequeue()
	q.enqueue(Task{arg: 3})

	var got []int
	for {
		task, ok := q.dequeue()
		if !ok {
			break
		}
		got = append(got, task.arg.(int))
	}

	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("expected [2 3], got %v", got)
	}
}

func TestTaskQueueDrain(t *testing.T) {
	q := newTaskQueue()
	for i := 0; i < 3; i++ {
		q.enqueue(Task{arg: i})
	}

	tasks := q.drain()
	if len(tasks) != 3 {
		t.Fatalf("expected 3 drained tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if task.arg.(int) != i {
			t.Fatalf("drain order: expected %d, got %v", i, task.arg)
		}
	}
	if q.len() != 0 || q.free != nil {
		t.Fatal("expected drained queue to hold nothing")
	}
}
