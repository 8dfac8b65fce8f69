// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package timer

import (
	"errors"
	"fmt"
	"strconv"
)

// Standard errors.
var (
	// ErrTimerStart indicates the native loop failed to start a timer.
	ErrTimerStart = errors.New("timer: start failed")

	// ErrTimerStop indicates the native loop failed to stop a timer.
	ErrTimerStop = errors.New("timer: stop failed")

	// ErrInvalidDuration is returned for negative timeout or repeat values.
	ErrInvalidDuration = errors.New("timer: invalid duration")

	// ErrForeignGoroutine is returned when a timer is mutated from a goroutine
	// other than the one running its loop, while the loop is running.
	ErrForeignGoroutine = errors.New("timer: loop is running on another goroutine")

	// ErrNilCallback is returned when starting a timer without a callback.
	ErrNilCallback = errors.New("timer: nil callback")

	// ErrNotRunning is returned by Again, for a timer that has been stopped or
	// closed.
	ErrNotRunning = errors.New("timer: not running")
)

// CallbackError wraps an error returned (or panic raised) by a timer
// callback. These never propagate to the loop. See [SetErrorHandler].
type CallbackError struct {
	Err error
	// ID identifies the timer, see [Timer.ID].
	ID uint64
}

func (e *CallbackError) Error() string {
	return `timer: callback failed (timer ` + strconv.FormatUint(e.ID, 10) + `): ` + e.Err.Error()
}

func (e *CallbackError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("timer: callback panicked: %v", e.Value)
}

// Unwrap returns the panic value, if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
