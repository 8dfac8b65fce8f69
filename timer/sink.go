// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

var (
	sink struct {
		sync.RWMutex
		logger  *logiface.Logger[logiface.Event]
		handler func(err *CallbackError)
	}

	callbackErrors atomic.Uint64

	// limits callback error logs, per timer
	errorLogLimiter = catrate.NewLimiter(map[time.Duration]int{
		time.Second: 5,
		time.Minute: 60,
	})
)

// SetLogger sets the package-level logger, used to report timer lifecycle
// events (at debug level), and callback errors. A nil logger disables
// logging (the default).
//
// Callback errors are rate limited per timer.
func SetLogger(logger *logiface.Logger[logiface.Event]) {
	sink.Lock()
	defer sink.Unlock()
	sink.logger = logger
}

// SetErrorHandler sets a process-wide handler for errors returned by (or
// panics raised by) timer callbacks. It's called on the loop goroutine, after
// the error is counted and logged, and must not block. A nil handler (the
// default) disables it.
func SetErrorHandler(handler func(err *CallbackError)) {
	sink.Lock()
	defer sink.Unlock()
	sink.handler = handler
}

// CallbackErrors returns the number of callback errors reported since
// process start.
func CallbackErrors() uint64 {
	return callbackErrors.Load()
}

func getLogger() *logiface.Logger[logiface.Event] {
	sink.RLock()
	defer sink.RUnlock()
	return sink.logger
}

func report(err *CallbackError) {
	callbackErrors.Add(1)

	sink.RLock()
	logger, handler := sink.logger, sink.handler
	sink.RUnlock()

	if logger != nil {
		if _, ok := errorLogLimiter.Allow(err.ID); ok {
			contain(logger, err.ID, func() {
				_, panicked := err.Err.(*PanicError)
				logger.Err().
					Uint64(`timer`, err.ID).
					Bool(`panic`, panicked).
					Err(err.Err).
					Log(`timer: callback failed`)
			})
		}
	}

	if handler != nil {
		contain(logger, err.ID, func() { handler(err) })
	}
}

// contain calls fn, logging then dropping any panic, so that nothing raised
// by the logger or the error handler reaches the loop.
func contain(logger *logiface.Logger[logiface.Event], id uint64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			// the logger may be what panicked
			defer func() { _ = recover() }()
			logger.Crit().
				Uint64(`timer`, id).
				Any(`panic`, r).
				Log(`timer: error sink panicked`)
		}
	}()
	fn()
}
