// Package apt is the task substrate every other layer of the MRCP core runs
// on: a named unit of execution with a fixed lifecycle, a typed message
// pool, and two ready-made specializations — a consumer task driven by a
// bounded work queue and a poller task that multiplexes socket readiness
// with control messages.
//
// Grounded on the teacher's goroutine/channel idioms (internal/signaling/dialog,
// internal/signaling/mediaclient) and on apr-toolkit/apt_task.c from the
// original C implementation, which this package re-expresses without a
// thread library: one task, one goroutine, state transitions guarded by a
// mutex, cross-task communication through channels instead of queues plus
// condition variables.
package apt

import "sync"

// State is the lifecycle state of a Task.
type State int

const (
	// StateIdle is the initial/terminal state: no activity.
	StateIdle State = iota
	// StateStartRequested means Start has been called and the worker
	// goroutine is being spawned.
	StateStartRequested
	// StateRunning means the worker goroutine is executing Run.
	StateRunning
	// StateTerminateRequested means Terminate has been called; the worker
	// observes this at its own pace (cooperative cancellation).
	StateTerminateRequested
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStartRequested:
		return "start-requested"
	case StateRunning:
		return "running"
	case StateTerminateRequested:
		return "terminate-requested"
	default:
		return "unknown"
	}
}

// Hooks are the lifecycle callbacks a Task owner supplies. All are optional.
// OnStart runs synchronously inside Start, before the worker goroutine is
// spawned, and may fail (e.g. listening socket or pollset setup) — a
// non-nil error aborts the start and returns the task to StateIdle with no
// partial state left behind. PreRun/Run/PostRun run on the worker goroutine,
// in that fixed order.
type Hooks struct {
	OnStart     func() error
	OnTerminate func()
	PreRun      func()
	Run         func()
	PostRun     func()
}

// Task is a named, single-threaded cooperative unit of execution.
type Task struct {
	name  string
	mu    sync.Mutex
	state State
	hooks Hooks
	done  chan struct{}
}

// New creates a task in StateIdle. It does not start any goroutine.
func New(name string, hooks Hooks) *Task {
	return &Task{name: name, hooks: hooks, state: StateIdle}
}

// Name returns the task's name, used for logging.
func (t *Task) Name() string { return t.name }

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start transitions Idle -> StartRequested and spawns the worker goroutine.
// It returns false without spawning anything if the task was not idle, or
// if OnStart returned an error.
func (t *Task) Start() bool {
	t.mu.Lock()
	if t.state != StateIdle {
		t.mu.Unlock()
		return false
	}
	t.state = StateStartRequested
	t.mu.Unlock()

	if t.hooks.OnStart != nil {
		if err := t.hooks.OnStart(); err != nil {
			t.mu.Lock()
			t.state = StateIdle
			t.mu.Unlock()
			return false
		}
	}

	t.done = make(chan struct{})
	go t.loop()
	return true
}

func (t *Task) loop() {
	if t.hooks.PreRun != nil {
		t.hooks.PreRun()
	}

	t.mu.Lock()
	t.state = StateRunning
	t.mu.Unlock()

	if t.hooks.Run != nil {
		t.hooks.Run()
	}

	t.mu.Lock()
	t.state = StateIdle
	t.mu.Unlock()

	if t.hooks.PostRun != nil {
		t.hooks.PostRun()
	}
	close(t.done)
}

// Terminate signals StateTerminateRequested; the worker observes this at its
// next loop iteration (cooperative cancellation, no forced interruption of
// outstanding I/O). If wait is true, Terminate blocks until the worker has
// fully returned to StateIdle.
func (t *Task) Terminate(wait bool) bool {
	t.mu.Lock()
	requested := false
	if t.state == StateStartRequested || t.state == StateRunning {
		t.state = StateTerminateRequested
		requested = true
	}
	t.mu.Unlock()

	if requested && t.hooks.OnTerminate != nil {
		t.hooks.OnTerminate()
	}

	if wait {
		t.WaitTillComplete()
	}
	return true
}

// WaitTillComplete blocks until the worker goroutine has returned, if one
// was ever started.
func (t *Task) WaitTillComplete() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done != nil {
		<-done
	}
}
