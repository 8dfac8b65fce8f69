// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"unsafe"
)

// HandleType identifies the concrete structure a [Handle] header belongs to.
type HandleType uint8

const (
	TypeUnknown HandleType = iota
	TypeTimer
)

func (x HandleType) String() string {
	switch x {
	case TypeTimer:
		return `timer`
	default:
		return `unknown`
	}
}

type handleFlags uint8

const (
	flagActive handleFlags = 1 << iota
	flagRef
	flagClosing
	flagClosed
)

// Handle is the header shared by all handle structures. It must be the first
// field of any structure embedding it.
type Handle struct {
	// Data is reserved for the owner of the handle.
	Data unsafe.Pointer

	loop    *Loop
	closeCb CloseCb
	typ     HandleType
	flags   handleFlags
}

// CloseCb is called once a handle passed to [Close] has been fully released
// by the loop. It may be nil.
type CloseCb func(h *Handle)

// Header returns h, allowing handle structures to expose their header through
// the embedded method.
func (h *Handle) Header() *Handle { return h }

// Loop returns the loop the handle was initialized against, or nil.
func (h *Handle) Loop() *Loop { return h.loop }

// Type returns the kind of handle.
func (h *Handle) Type() HandleType { return h.typ }

// IsActive reports whether the handle is doing something that keeps it
// registered, e.g. a started timer.
func IsActive(h *Handle) bool { return h.flags&flagActive != 0 }

// IsClosing reports whether [Close] has been called, including once the close
// has completed.
func IsClosing(h *Handle) bool { return h.flags&(flagClosing|flagClosed) != 0 }

// IsClosed reports whether the loop has finished closing the handle, and
// called its close callback.
func IsClosed(h *Handle) bool { return h.flags&flagClosed != 0 }

// HasRef reports whether the handle is referenced.
func HasRef(h *Handle) bool { return h.flags&flagRef != 0 }

// Ref marks the handle as referenced, meaning [RunDefault] will not return
// while it is active. Handles are referenced by default. Idempotent.
func Ref(h *Handle) {
	if h.flags&flagRef != 0 {
		return
	}
	h.flags |= flagRef
	if h.flags&flagActive != 0 && h.loop != nil {
		h.loop.activeRefs++
	}
}

// Unref reverses [Ref]. Idempotent.
func Unref(h *Handle) {
	if h.flags&flagRef == 0 {
		return
	}
	h.flags &^= flagRef
	if h.flags&flagActive != 0 && h.loop != nil {
		h.loop.activeRefs--
	}
}

// Close requests the release of a handle, stopping it if it's active. The
// close callback runs at the end of the current (or next) loop iteration, and
// the handle must not be reused, or freed, until then.
//
// Returns EINVAL if the handle was never initialized, or is already closing.
func Close(h *Handle, cb CloseCb) int {
	if h == nil || h.loop == nil || h.flags&(flagClosing|flagClosed) != 0 {
		return EINVAL
	}
	switch h.typ {
	case TypeTimer:
		// the header is the first field of Timer
		TimerStop((*Timer)(unsafe.Pointer(h)))
	}
	h.flags |= flagClosing
	h.closeCb = cb
	h.loop.closing = append(h.loop.closing, h)
	return OK
}

func (h *Handle) init(loop *Loop, typ HandleType) {
	h.loop = loop
	h.typ = typ
	h.flags = flagRef
	h.closeCb = nil
	loop.handles[h] = struct{}{}
}

func (h *Handle) start() {
	if h.flags&flagActive != 0 {
		return
	}
	h.flags |= flagActive
	if h.flags&flagRef != 0 {
		h.loop.activeRefs++
	}
}

func (h *Handle) stop() {
	if h.flags&flagActive == 0 {
		return
	}
	h.flags &^= flagActive
	if h.flags&flagRef != 0 {
		h.loop.activeRefs--
	}
}

// finishClose runs from the loop's close phase.
func (h *Handle) finishClose() {
	h.flags &^= flagClosing
	h.flags |= flagClosed
	delete(h.loop.handles, h)
	cb := h.closeCb
	h.closeCb = nil
	if cb != nil {
		cb(h)
	}
}
