// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package timer implements typed, fallible timer callbacks, on top of the
// native timers provided by package uv.
//
// Each [Timer] owns one native timer, with its [Callback] attached via the
// native payload slot. The loop only ever calls a single, package-level
// trampoline, which recovers the timer from the native pointer, and invokes
// the callback. Errors returned by callbacks, and panics raised by them,
// never reach the loop: they are wrapped in a [CallbackError], counted (see
// [CallbackErrors]), logged (see [SetLogger]), and passed to the handler set
// by [SetErrorHandler].
//
// # Lifecycle
//
//	Start --> Running
//	Running --fires, repeat == 0--> Running (inactive, until Stop)
//	Running --fires, repeat > 0--> Running (re-armed)
//	Running --Stop--> Stopped
//	any --Close--> Closed
//
// A stopped timer is never restarted, start a new one instead. [Once] stops
// its timer from within its first firing.
//
// # Example
//
//	t, err := timer.Start(loop, 10*time.Millisecond, 10*time.Millisecond, func(t *timer.Timer) error {
//		count++
//		if count == 3 {
//			return t.Stop()
//		}
//		return nil
//	})
//
// # Thread Safety
//
// Timers must only be used from the goroutine running the loop, or while the
// loop is not running. Other goroutines should use [uv.Loop.Submit].
package timer
