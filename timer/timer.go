// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package timer

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-uvloop/handle"
	"github.com/joeycumines/go-uvloop/uv"
)

type (
	// Callback is invoked, on the loop goroutine, each time a timer fires.
	// The timer passed in is a borrowed view, which may be used to stop the
	// timer, or adjust its repeat interval, but not to close it.
	Callback func(t *Timer) error

	// Timer is a native loop timer, with an attached [Callback].
	//
	// Timers are not safe for concurrent use. Methods that mutate the timer
	// fail with [ErrForeignGoroutine] if called from a goroutine other than
	// the one running the loop, while it's running.
	Timer struct {
		h  *native
		id uint64
	}

	// State models the lifecycle of a timer.
	State int

	// callback is the payload attached to the native timer.
	callback struct {
		fn Callback
		id uint64
	}

	native = handle.Typed[uv.Timer, *uv.Timer, callback]
)

const (
	// Initialized is the zero State: the native timer exists, but has not
	// been started. It only holds within Start, which attaches the callback
	// before returning, so State never reports it.
	Initialized State = iota
	// Running indicates the timer has a callback attached. A one-shot timer
	// stays Running, after it fires, until it is stopped.
	Running
	// Stopped indicates the timer was stopped, and its callback released.
	Stopped
	// Closed indicates the native timer has been (or is being) closed.
	Closed
)

// binding is the native surface, replaced in tests.
var binding = struct {
	init  handle.InitFunc[uv.Timer]
	start func(t *uv.Timer, cb uv.TimerCb, timeout, repeat uint64) int
	stop  func(t *uv.Timer) int
}{
	init:  uv.TimerInit,
	start: uv.TimerStart,
	stop:  uv.TimerStop,
}

var (
	timerIDCounter atomic.Uint64

	// onRelease is called after each callback is released, if set.
	onRelease func()
)

// Start allocates a new timer on loop, calling cb after timeout, then every
// repeat, if repeat is non-zero. Durations are truncated to whole
// milliseconds.
//
// If the native start fails, the returned error matches [ErrTimerStart], and
// the native timer is closed, releasing the callback.
func Start(loop *uv.Loop, timeout, repeat time.Duration, cb Callback) (*Timer, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	if timeout < 0 || repeat < 0 {
		return nil, fmt.Errorf("%w: timeout=%s repeat=%s", ErrInvalidDuration, timeout, repeat)
	}
	if loop != nil && !loop.OnLoopThread() {
		return nil, ErrForeignGoroutine
	}

	h, err := handle.New[uv.Timer, *uv.Timer, callback](loop, binding.init)
	if err != nil {
		return nil, err
	}

	t := &Timer{h: h, id: timerIDCounter.Add(1)}
	h.SetData(callback{fn: cb, id: t.id})

	if status := binding.start(h.Ptr(), trampoline, millis(timeout), millis(repeat)); status < 0 {
		if err := h.Close(); err != nil {
			getLogger().Err().
				Uint64(`timer`, t.id).
				Err(err).
				Log(`timer: failed to close after failed start`)
		}
		return nil, fmt.Errorf("%w: %w", ErrTimerStart, uv.StatusError(status))
	}

	getLogger().Debug().
		Uint64(`timer`, t.id).
		Dur(`timeout`, timeout).
		Dur(`repeat`, repeat).
		Log(`timer: started`)

	return t, nil
}

// Once starts a one-shot timer, calling fn at most once, after timeout. The
// timer is stopped before the firing completes, even if fn fails or panics.
// An error stopping the timer is joined with any error from fn.
func Once(loop *uv.Loop, timeout time.Duration, fn func() error) (*Timer, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	var called bool
	return Start(loop, timeout, 0, func(t *Timer) (err error) {
		if called {
			return nil
		}
		called = true
		defer func() {
			if stopErr := t.Stop(); stopErr != nil {
				err = errors.Join(err, stopErr)
			}
		}()
		return fn()
	})
}

// trampoline is the only function the loop calls, for timers started by
// this package. It never panics.
func trampoline(raw *uv.Timer) {
	t := view(raw)
	data := t.h.Data()
	if data == nil {
		return
	}
	cb := *data
	if err := invoke(t, cb.fn); err != nil {
		report(&CallbackError{Err: err, ID: cb.id})
	}
}

func invoke(t *Timer, fn Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(t)
}

func view(raw *uv.Timer) *Timer {
	t := &Timer{h: handle.View[uv.Timer, *uv.Timer, callback](raw)}
	if data := t.h.Data(); data != nil {
		t.id = data.id
	}
	return t
}

// Stop stops the timer, releasing its callback. Stopping a stopped (or
// closed) timer is a no-op. Stop may be called from within the timer's own
// callback.
func (t *Timer) Stop() error {
	if err := t.checkLoopThread(); err != nil {
		return err
	}
	if status := binding.stop(t.h.Ptr()); status < 0 {
		return fmt.Errorf("%w: %w", ErrTimerStop, uv.StatusError(status))
	}
	if t.h.DropData() {
		getLogger().Debug().
			Uint64(`timer`, t.id).
			Log(`timer: stopped`)
	}
	return nil
}

// Again restarts a repeating timer, using the repeat interval as the
// timeout. It does nothing if the repeat interval is zero.
func (t *Timer) Again() error {
	if err := t.checkLoopThread(); err != nil {
		return err
	}
	if t.h.Data() == nil || uv.IsClosing(t.h.Header()) {
		return ErrNotRunning
	}
	if status := uv.TimerAgain(t.h.Ptr()); status < 0 {
		return fmt.Errorf("%w: %w", ErrTimerStart, uv.StatusError(status))
	}
	return nil
}

// SetRepeat sets the repeat interval, which takes effect the next time the
// timer fires. Zero makes it one-shot.
func (t *Timer) SetRepeat(repeat time.Duration) error {
	if repeat < 0 {
		return fmt.Errorf("%w: repeat=%s", ErrInvalidDuration, repeat)
	}
	if err := t.checkLoopThread(); err != nil {
		return err
	}
	uv.TimerSetRepeat(t.h.Ptr(), millis(repeat))
	return nil
}

// Repeat returns the repeat interval.
func (t *Timer) Repeat() time.Duration {
	return time.Duration(uv.TimerGetRepeat(t.h.Ptr())) * time.Millisecond
}

// DueIn returns the time until the timer next fires, relative to the loop
// time, or zero if it has expired, or is inactive.
func (t *Timer) DueIn() time.Duration {
	return time.Duration(uv.TimerGetDueIn(t.h.Ptr())) * time.Millisecond
}

// Ref marks the timer as keeping its loop alive, the default.
func (t *Timer) Ref() error {
	if err := t.checkLoopThread(); err != nil {
		return err
	}
	uv.Ref(t.h.Header())
	return nil
}

// Unref allows the loop to exit while the timer is active.
func (t *Timer) Unref() error {
	if err := t.checkLoopThread(); err != nil {
		return err
	}
	uv.Unref(t.h.Header())
	return nil
}

// HasRef reports whether the timer keeps its loop alive.
func (t *Timer) HasRef() bool { return uv.HasRef(t.h.Header()) }

// Close stops the timer, releases its callback, and closes the native timer.
// It fails with [handle.ErrBorrowed] if called on the view passed to a
// callback, and [handle.ErrClosed] if already closed.
func (t *Timer) Close() error {
	if err := t.checkLoopThread(); err != nil {
		return err
	}
	if err := t.h.Close(); err != nil {
		return err
	}
	getLogger().Debug().
		Uint64(`timer`, t.id).
		Log(`timer: closed`)
	return nil
}

// State returns the current state, derived from the native timer, such that
// the owner and any views agree.
func (t *Timer) State() State {
	switch {
	case uv.IsClosing(t.h.Header()):
		return Closed
	case t.h.Data() != nil:
		return Running
	default:
		return Stopped
	}
}

// Active reports whether the native timer is scheduled to fire.
func (t *Timer) Active() bool { return uv.IsActive(t.h.Header()) }

// ID returns an identifier, unique within the process, assigned on start.
func (t *Timer) ID() uint64 { return t.id }

// Loop returns the timer's loop.
func (t *Timer) Loop() *uv.Loop { return t.h.Loop() }

func (t *Timer) checkLoopThread() error {
	if loop := t.h.Loop(); loop != nil && !loop.OnLoopThread() {
		return ErrForeignGoroutine
	}
	return nil
}

func (x State) String() string {
	switch x {
	case Initialized:
		return `initialized`
	case Running:
		return `running`
	case Stopped:
		return `stopped`
	case Closed:
		return `closed`
	default:
		return `unknown`
	}
}

// Release is called exactly once, when the callback is detached.
func (x *callback) Release() {
	x.fn = nil
	if onRelease != nil {
		onRelease()
	}
}

func millis(d time.Duration) uint64 {
	return uint64(d / time.Millisecond)
}
