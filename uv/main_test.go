// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced clock, for use with WithClock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLoop(t *testing.T, opts ...LoopOption) *Loop {
	t.Helper()
	l, err := New(opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { closeLoop(t, l) })
	return l
}

// closeLoop closes every open handle, lets the loop finish closing them, then
// closes the loop.
func closeLoop(t *testing.T, l *Loop) {
	t.Helper()
	if l.State() == StateClosed {
		return
	}
	l.Walk(func(h *Handle) {
		if !IsClosing(h) {
			Close(h, nil)
		}
	})
	if _, err := l.Run(context.Background(), RunNoWait); err != nil {
		t.Errorf("Run(RunNoWait) failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func runDefault(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := l.Run(ctx, RunDefault); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
}

// testEvent is a minimal logiface.Event, recording only the level.
type testEvent struct {
	logiface.UnimplementedEvent
	level logiface.Level
}

func (e *testEvent) Level() logiface.Level        { return e.level }
func (e *testEvent) AddField(key string, val any) {}

// newTestLogger returns a logger that passes the level of every event it
// writes to onWrite.
func newTestLogger(onWrite func(level logiface.Level)) *logiface.Logger[logiface.Event] {
	return logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](logiface.NewEventFactoryFunc(func(level logiface.Level) *testEvent {
			return &testEvent{level: level}
		})),
		logiface.WithWriter[*testEvent](logiface.NewWriterFunc(func(event *testEvent) error {
			onWrite(event.level)
			return nil
		})),
		logiface.WithLevel[*testEvent](logiface.LevelDebug),
	).Logger()
}
