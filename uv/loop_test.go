// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

func TestLoop_runWithNothingToDo(t *testing.T) {
	l := newTestLoop(t)
	for _, mode := range []RunMode{RunDefault, RunOnce, RunNoWait} {
		alive, err := l.Run(context.Background(), mode)
		if err != nil || alive {
			t.Errorf("Run(%s) = %v, %v", mode, alive, err)
		}
	}
	if l.State() != StateIdle {
		t.Errorf("State() = %s", l.State())
	}
}

func TestLoop_submitFromOtherGoroutine(t *testing.T) {
	l := newTestLoop(t)

	// keeps the loop blocked in poll, for up to an hour
	var timer Timer
	TimerInit(l, &timer)
	TimerStart(&timer, func(*Timer) {}, 3_600_000, 0)

	var ran atomic.Bool
	started := make(chan struct{})
	if err := l.Submit(func() { close(started) }); err != nil {
		t.Fatal(err)
	}

	go func() {
		<-started
		time.Sleep(20 * time.Millisecond)
		_ = l.Submit(func() {
			if !l.OnLoopGoroutine() {
				t.Error("task not run on the loop goroutine")
			}
			ran.Store(true)
			TimerStop(&timer)
		})
	}()

	runDefault(t, l)

	if !ran.Load() {
		t.Fatal("submitted task did not run")
	}
}

func TestLoop_submitPanicIsRecovered(t *testing.T) {
	var logged atomic.Int32
	logger := newTestLogger(func(level logiface.Level) {
		if level == logiface.LevelError {
			logged.Add(1)
		}
	})

	l := newTestLoop(t, WithLogger(logger))

	var after bool
	_ = l.Submit(func() { panic(`boom`) })
	_ = l.Submit(func() { after = true })

	runDefault(t, l)

	if !after {
		t.Error("task after a panicking task did not run")
	}
	if logged.Load() != 1 {
		t.Errorf("logged %d errors, want 1", logged.Load())
	}
}

func TestLoop_stopFromOtherGoroutine(t *testing.T) {
	l := newTestLoop(t)

	var timer Timer
	TimerInit(l, &timer)
	TimerStart(&timer, func(*Timer) {}, 3_600_000, 0)

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Stop()
	}()

	alive, err := l.Run(context.Background(), RunDefault)
	if err != nil {
		t.Fatal(err)
	}
	if !alive {
		t.Error("Run() reported not alive, with an active timer")
	}
}

func TestLoop_contextCancellation(t *testing.T) {
	l := newTestLoop(t)

	var timer Timer
	TimerInit(l, &timer)
	TimerStart(&timer, func(*Timer) {}, 3_600_000, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Run(ctx, RunDefault)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestLoop_reentrantRun(t *testing.T) {
	l := newTestLoop(t)

	var reentrant error
	_ = l.Submit(func() {
		_, reentrant = l.Run(context.Background(), RunNoWait)
	})
	runDefault(t, l)

	if !errors.Is(reentrant, ErrReentrantRun) {
		t.Errorf("nested Run() error = %v", reentrant)
	}
}

func TestLoop_onLoopThread(t *testing.T) {
	l := newTestLoop(t)

	if !l.OnLoopThread() || l.OnLoopGoroutine() {
		t.Fatal("idle loop should be usable from any goroutine")
	}

	var inside, foreign bool
	done := make(chan struct{})
	_ = l.Submit(func() {
		inside = l.OnLoopThread()
		go func() {
			defer close(done)
			foreign = l.OnLoopThread()
		}()
		<-done
	})
	runDefault(t, l)

	if !inside {
		t.Error("OnLoopThread() false on the loop goroutine")
	}
	if foreign {
		t.Error("OnLoopThread() true on a foreign goroutine, while running")
	}
}

func TestLoop_close(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatal(err)
	}

	var timer Timer
	TimerInit(l, &timer)

	if err := l.Close(); !errors.Is(err, ErrLoopBusy) {
		t.Fatalf("Close() with open handle = %v", err)
	}

	Close(&timer.Handle, nil)
	if err := l.Close(); !errors.Is(err, ErrLoopBusy) {
		t.Fatalf("Close() with closing handle = %v", err)
	}
	if _, err := l.Run(context.Background(), RunNoWait); err != nil {
		t.Fatal(err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := l.Close(); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("second Close() = %v", err)
	}
	if _, err := l.Run(context.Background(), RunDefault); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("Run() after Close() = %v", err)
	}
	if err := l.Submit(func() {}); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("Submit() after Close() = %v", err)
	}
	var another Timer
	if status := TimerInit(l, &another); status != EBADF {
		t.Errorf("TimerInit() after Close() = %s", StrError(status))
	}
}

func TestLoop_closeHandleFromCloseCallback(t *testing.T) {
	l := newTestLoop(t)

	var a, b Timer
	TimerInit(l, &a)
	TimerInit(l, &b)

	var order []string
	Close(&a.Handle, func(*Handle) {
		order = append(order, `a`)
		Close(&b.Handle, func(*Handle) { order = append(order, `b`) })
	})

	if _, err := l.Run(context.Background(), RunNoWait); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != `a` || order[1] != `b` {
		t.Errorf("close order = %v", order)
	}
}

func TestWithClock_nil(t *testing.T) {
	if _, err := New(WithClock(nil)); err == nil {
		t.Fatal("expected error")
	}
}

func TestErrno(t *testing.T) {
	if err := StatusError(OK); err != nil {
		t.Errorf("StatusError(OK) = %v", err)
	}
	if err := StatusError(7); err != nil {
		t.Errorf("StatusError(7) = %v", err)
	}

	err := StatusError(EINVAL)
	if !errors.Is(err, unix.EINVAL) {
		t.Errorf("%v does not match unix.EINVAL", err)
	}
	var errno Errno
	if !errors.As(err, &errno) || int(errno) != EINVAL {
		t.Errorf("errors.As() = %v", errno)
	}
	if name := errno.Name(); name != `EINVAL` {
		t.Errorf("Name() = %q", name)
	}
	if s := StrError(EBUSY); s != `EBUSY` {
		t.Errorf("StrError(EBUSY) = %q", s)
	}
	if s := StrError(OK); s != `ok` {
		t.Errorf("StrError(OK) = %q", s)
	}
}
