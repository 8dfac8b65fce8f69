// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package handle wraps the address-stable native structures owned by a
// [uv.Loop], attaching typed Go state to their reserved payload slot.
//
// # Ownership
//
// An [Opaque] value is either the owner of its native structure, as returned
// by [NewOpaque] or [New], or a borrowed view, as returned by [FromRaw] or
// [View]. Exactly one owner exists per native structure. Views exist to
// reconstruct a handle from the raw pointer the loop passes to a callback,
// and can never release the structure: [Opaque.Close] on a view fails with
// [ErrBorrowed].
//
// # Payload
//
// [Typed] stores at most one value in the native structure's Data field, as
// a pointer to a heap box. The slot is either nil, or points at exactly one
// live box. [Typed.SetData] releases any previous value before attaching the
// new one, [Typed.TakeData] transfers ownership to the caller, and
// [Typed.DropData] releases it. A value whose type (or pointer type)
// implements [Releaser] has Release called exactly once, when it is dropped.
//
// # Thread Safety
//
// None of the types in this package are safe for concurrent use. All
// operations on a handle must happen on the goroutine running its loop, or
// while the loop is not running.
package handle
