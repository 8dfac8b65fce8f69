// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package uv implements a single-goroutine, callback-driven event loop, with
// a deliberately small, C-style handle API.
//
// Handles are plain structures, allocated by the caller, which must not move
// or be copied while they are registered with a [Loop]. Every handle starts
// with a [Handle] header, which carries the one field reserved for the owner,
// [Handle.Data]. The loop never reads or writes that field.
//
// The handle functions report failure using status codes, rather than error
// values: a negative status is a negated errno (see [Errno]), anything else
// indicates success. Callbacks receive nothing but a pointer to the handle
// they were registered against.
//
// # Timers
//
//	var t uv.Timer
//	if status := uv.TimerInit(loop, &t); status < 0 {
//	    return uv.Errno(status)
//	}
//	uv.TimerStart(&t, func(t *uv.Timer) {
//	    // fires every 50ms, after an initial 100ms
//	}, 100, 50)
//
// Timers fire in order of due time, then start order. A repeating timer is
// re-armed before its callback runs, so the callback may stop it. Timers that
// expire while a pass is dispatching are deferred to the next iteration.
//
// # Thread Safety
//
// A loop is driven by exactly one goroutine, the one calling [Loop.Run]. Handle
// functions must be called from that goroutine, or before the loop starts.
// [Loop.Submit], [Loop.Stop] and context cancellation are the only operations
// that are safe from other goroutines.
package uv
