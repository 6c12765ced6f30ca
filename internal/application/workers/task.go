package workers

import "time"

// Action is the work a task performs. It receives the task argument and may
// submit follow-up tasks to the same pool.
type Action func(arg any)

// Releaser is implemented by task arguments that hold resources. The pool
// calls Release exactly once per submitted argument: after the action
// returns, or during Stop if the task was never executed.
type Releaser interface {
	Release()
}

// Task is a unit of work owned by the pool from Submit until it is released
type Task struct {
	action     Action
	arg        any
	enqueuedAt time.Time
}

// release hands the argument's resources back and clears the task
func (t *Task) release() {
	if r, ok := t.arg.(Releaser); ok {
		r.Release()
	}
	t.action = nil
	t.arg = nil
}
