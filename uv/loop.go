// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Standard errors.
var (
	// ErrLoopRunning is returned when Run is called on a loop that is already
	// running, or Close is called on a running loop.
	ErrLoopRunning = errors.New("uv: loop is already running")

	// ErrLoopClosed is returned when operations are attempted on a closed loop.
	ErrLoopClosed = errors.New("uv: loop has been closed")

	// ErrLoopBusy is returned by Close while handles remain open.
	ErrLoopBusy = errors.New("uv: loop has open handles")

	// ErrReentrantRun is returned when Run is called from within the loop itself.
	ErrReentrantRun = errors.New("uv: cannot call Run from within the loop")
)

// RunMode controls how long [Loop.Run] keeps iterating.
type RunMode int

const (
	// RunDefault runs until there are no active, referenced handles, pending
	// tasks, or closing handles, or Stop is called.
	RunDefault RunMode = iota
	// RunOnce runs a single iteration, blocking for I/O or timers if there
	// is nothing pending.
	RunOnce
	// RunNoWait runs a single iteration, without blocking.
	RunNoWait
)

func (m RunMode) String() string {
	switch m {
	case RunDefault:
		return `default`
	case RunOnce:
		return `once`
	case RunNoWait:
		return `nowait`
	default:
		return `unknown`
	}
}

// Task is a function submitted to run on the loop goroutine.
type Task func()

// Loop is the event loop. It must be created using [New].
type Loop struct { // betteralign:ignore
	// Prevent copying
	_ [0]func()

	logger  *logiface.Logger[logiface.Event]
	timeNow func() time.Time

	state loopState

	// handles that are initialized and not yet closed
	handles map[*Handle]struct{}
	// handles that are closing, processed at the end of each iteration
	closing []*Handle
	// number of handles that are both active and referenced
	activeRefs int

	timers      timerHeap
	readyBuf    []*Timer
	timerSeq    uint64
	timersFired uint64

	poller poller

	// Timing
	anchor time.Time
	time   uint64

	// Goroutine tracking
	loopGoroutineID atomic.Uint64
	iterations      uint64

	stopFlag atomic.Bool

	// Submitted tasks
	tasksMu     sync.Mutex
	tasks       []Task
	tasksBuf    []Task
	wakePending atomic.Uint32

	id uint64
}

var loopIDCounter atomic.Uint64

// New creates a new loop. The loop must eventually be released using
// [Loop.Close].
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		id:      loopIDCounter.Add(1),
		logger:  cfg.logger,
		timeNow: cfg.timeNow,
		handles: make(map[*Handle]struct{}),
		timers:  make(timerHeap, 0),
	}

	if err := l.poller.init(); err != nil {
		return nil, err
	}

	l.anchor = l.timeNow()

	return l, nil
}

// ID returns a process-unique identifier for the loop.
func (l *Loop) ID() uint64 { return l.id }

// State returns the current loop state.
func (l *Loop) State() LoopState { return l.state.Load() }

// Now returns the loop time, in milliseconds, as of the start of the current
// iteration, or the last call to UpdateTime. It's relative to an arbitrary
// point, fixed when the loop was created.
func (l *Loop) Now() uint64 { return l.time }

// UpdateTime refreshes the loop time.
func (l *Loop) UpdateTime() {
	elapsed := l.timeNow().Sub(l.anchor)
	if elapsed < 0 {
		return
	}
	if now := uint64(elapsed / time.Millisecond); now > l.time {
		l.time = now
	}
}

// Alive reports whether the loop has active, referenced handles, pending
// tasks, or closing handles.
func (l *Loop) Alive() bool {
	return l.activeRefs > 0 || len(l.closing) > 0 || l.hasTasks()
}

// Iterations returns the number of completed loop iterations.
func (l *Loop) Iterations() uint64 { return l.iterations }

// TimersFired returns the number of timer callbacks dispatched.
func (l *Loop) TimersFired() uint64 { return l.timersFired }

// Walk calls fn for every handle that is initialized and not yet closed,
// including those that are closing. The order is unspecified.
func (l *Loop) Walk(fn func(h *Handle)) {
	handles := make([]*Handle, 0, len(l.handles))
	for h := range l.handles {
		handles = append(handles, h)
	}
	for _, h := range handles {
		fn(h)
	}
}

// Run runs the loop, on the calling goroutine, per the mode. It returns true
// if the loop is still alive, i.e. it would not have returned, under
// RunDefault. Cancelling ctx causes Run to return ctx.Err(), after the
// current iteration.
//
// A panic raised by a callback propagates out of Run, leaving the loop in an
// undefined state.
func (l *Loop) Run(ctx context.Context, mode RunMode) (bool, error) {
	if l.OnLoopGoroutine() {
		return false, ErrReentrantRun
	}

	if !l.state.TryTransition(StateIdle, StateRunning) {
		if l.state.Load() == StateClosed {
			return false, ErrLoopClosed
		}
		return false, ErrLoopRunning
	}
	defer l.state.Store(StateIdle)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.loopGoroutineID.Store(getGoroutineID())
	defer l.loopGoroutineID.Store(0)

	// Start context watcher goroutine to wake loop on cancellation
	ctxDone := make(chan struct{})
	defer close(ctxDone)
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = l.poller.wakeup()
			case <-ctxDone:
			}
		}()
	}

	l.logger.Debug().
		Uint64(`loop`, l.id).
		Stringer(`mode`, mode).
		Log(`uv: loop run started`)

	alive := l.Alive()
	if !alive {
		l.UpdateTime()
	}

	var err error
	for alive && !l.stopFlag.Load() {
		if err = ctx.Err(); err != nil {
			break
		}

		l.UpdateTime()
		l.runTimers()
		ranTasks := l.runTasks()

		timeout := 0
		if (mode == RunOnce && !ranTasks) || mode == RunDefault {
			timeout = l.backendTimeout()
		}

		if err = l.poller.wait(timeout); err != nil {
			l.logger.Crit().
				Uint64(`loop`, l.id).
				Err(err).
				Log(`uv: poll failed`)
			break
		}
		l.wakePending.Store(0)

		if mode == RunOnce {
			// timers may have become due while blocked
			l.UpdateTime()
			l.runTimers()
		}

		l.runClosing()
		l.iterations++

		alive = l.Alive()
		if mode == RunOnce || mode == RunNoWait {
			break
		}
	}

	l.stopFlag.Store(false)

	if err == nil {
		err = ctx.Err()
	}

	l.logger.Debug().
		Uint64(`loop`, l.id).
		Bool(`alive`, alive).
		Err(err).
		Log(`uv: loop run stopped`)

	return alive, err
}

// Stop makes Run return as soon as possible, after the current iteration.
// Safe to call from any goroutine.
func (l *Loop) Stop() {
	l.stopFlag.Store(true)
	if l.state.Load() == StateRunning && !l.OnLoopGoroutine() {
		_ = l.wake()
	}
}

// Close releases the loop's resources. It fails with ErrLoopBusy if any
// handles remain open, and ErrLoopRunning if called while running.
func (l *Loop) Close() error {
	switch l.state.Load() {
	case StateClosed:
		return ErrLoopClosed
	case StateRunning:
		return ErrLoopRunning
	}
	if len(l.handles) != 0 || len(l.closing) != 0 {
		return ErrLoopBusy
	}
	if !l.state.TryTransition(StateIdle, StateClosed) {
		return ErrLoopRunning
	}
	l.logger.Debug().
		Uint64(`loop`, l.id).
		Log(`uv: loop closed`)
	return l.poller.close()
}

// Submit queues task to run on the loop goroutine, during the next
// iteration. Pending tasks keep the loop alive. Safe to call from any
// goroutine.
func (l *Loop) Submit(task Task) error {
	if task == nil {
		return errors.New("uv: nil task")
	}
	if l.state.Load() == StateClosed {
		return ErrLoopClosed
	}

	l.tasksMu.Lock()
	l.tasks = append(l.tasks, task)
	l.tasksMu.Unlock()

	if l.state.Load() == StateRunning && !l.OnLoopGoroutine() {
		_ = l.wake()
	}

	return nil
}

// OnLoopGoroutine reports whether the caller is the goroutine currently
// running the loop.
func (l *Loop) OnLoopGoroutine() bool {
	id := l.loopGoroutineID.Load()
	if id == 0 {
		return false
	}
	return getGoroutineID() == id
}

// OnLoopThread reports whether the caller may safely operate on the loop's
// handles, i.e. the loop is not running, or the caller is the goroutine
// running it.
func (l *Loop) OnLoopThread() bool {
	if l.state.Load() != StateRunning {
		return true
	}
	return l.OnLoopGoroutine()
}

func (l *Loop) wake() error {
	if !l.wakePending.CompareAndSwap(0, 1) {
		return nil
	}
	if err := l.poller.wakeup(); err != nil {
		l.wakePending.Store(0)
		return err
	}
	return nil
}

func (l *Loop) hasTasks() bool {
	l.tasksMu.Lock()
	defer l.tasksMu.Unlock()
	return len(l.tasks) != 0
}

// backendTimeout determines how long to block in poll.
func (l *Loop) backendTimeout() int {
	if l.stopFlag.Load() || len(l.closing) != 0 || l.hasTasks() {
		return 0
	}
	if l.activeRefs == 0 {
		return 0
	}
	return l.nextTimeout()
}

// runTasks drains the tasks submitted before this call.
func (l *Loop) runTasks() bool {
	l.tasksMu.Lock()
	if len(l.tasks) == 0 {
		l.tasksMu.Unlock()
		return false
	}
	tasks := l.tasks
	l.tasks = l.tasksBuf[:0]
	l.tasksBuf = tasks[:0]
	l.tasksMu.Unlock()

	for i, task := range tasks {
		l.safeExecute(task)
		tasks[i] = nil
	}

	return true
}

// runClosing finishes closing handles, including any closed by the close
// callbacks themselves.
func (l *Loop) runClosing() {
	for len(l.closing) != 0 {
		closing := l.closing
		l.closing = nil
		for _, h := range closing {
			h.finishClose()
		}
	}
}

// safeExecute executes a task with panic recovery.
func (l *Loop) safeExecute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Err().
				Uint64(`loop`, l.id).
				Any(`panic`, r).
				Log(`uv: task panicked`)
		}
	}()
	task()
}
