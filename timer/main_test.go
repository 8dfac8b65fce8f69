// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-uvloop/uv"
	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// payloadsReleased counts released callbacks, across all tests.
var payloadsReleased atomic.Uint64

func TestMain(m *testing.M) {
	onRelease = func() { payloadsReleased.Add(1) }
	goleak.VerifyTestMain(m,
		// started lazily by the callback error log limiter
		goleak.IgnoreAnyFunction(`github.com/joeycumines/go-catrate.(*Limiter).worker`),
	)
}

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

func newLoop(t *testing.T, opts ...uv.LoopOption) *uv.Loop {
	t.Helper()
	l, err := uv.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Walk(func(h *uv.Handle) {
			if !uv.IsClosing(h) {
				uv.Close(h, nil)
			}
		})
		_, err := l.Run(context.Background(), uv.RunNoWait)
		require.NoError(t, err)
		require.NoError(t, l.Close())
	})
	return l
}

func runDefault(t *testing.T, l *uv.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := l.Run(ctx, uv.RunDefault)
	require.NoError(t, err)
}

func runNoWait(t *testing.T, l *uv.Loop, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := l.Run(context.Background(), uv.RunNoWait)
		require.NoError(t, err)
	}
}

// captureErrors installs an error handler for the duration of the test.
func captureErrors(t *testing.T) *[]*CallbackError {
	t.Helper()
	var errs []*CallbackError
	SetErrorHandler(func(err *CallbackError) { errs = append(errs, err) })
	t.Cleanup(func() { SetErrorHandler(nil) })
	return &errs
}

type testEvent struct {
	logiface.UnimplementedEvent
	level logiface.Level
	msg   string
}

func (e *testEvent) Level() logiface.Level        { return e.level }
func (e *testEvent) AddField(key string, val any) {}
func (e *testEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

// captureLogs installs a logger for the duration of the test, returning the
// events written, as "level: message".
func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var (
		mu   sync.Mutex
		logs []string
	)
	SetLogger(logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](logiface.NewEventFactoryFunc(func(level logiface.Level) *testEvent {
			return &testEvent{level: level}
		})),
		logiface.WithWriter[*testEvent](logiface.NewWriterFunc(func(event *testEvent) error {
			mu.Lock()
			defer mu.Unlock()
			logs = append(logs, event.level.String()+`: `+event.msg)
			return nil
		})),
		logiface.WithLevel[*testEvent](logiface.LevelDebug),
	).Logger())
	t.Cleanup(func() { SetLogger(nil) })
	return &logs
}
