// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package handle

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joeycumines/go-uvloop/uv"
)

var (
	// ErrBorrowed is returned when attempting to release a native structure
	// through a borrowed view.
	ErrBorrowed = errors.New("handle: cannot close a borrowed view")

	// ErrClosed is returned by Close, on a handle that has already been closed.
	ErrClosed = errors.New("handle: already closed")
)

type (
	// Native constrains P to a pointer to a native handle structure of type
	// T, which begins with a [uv.Handle] header.
	Native[T any] interface {
		*T
		Header() *uv.Handle
	}

	// InitFunc initializes the native structure raw, binding it to loop, and
	// returns a native status code, e.g. [uv.TimerInit].
	InitFunc[T any] func(loop *uv.Loop, raw *T) int

	// Releaser may be implemented by payload values (or pointers to them),
	// to be notified, exactly once, when the value is dropped.
	Releaser interface {
		Release()
	}

	// InitError indicates that a native structure could not be initialized.
	InitError struct {
		// Status is the (negative) native status code.
		Status int
	}

	// Opaque holds a single native structure, of type T, either as the owner,
	// or as a borrowed view.
	Opaque[T any, P Native[T]] struct {
		raw    P
		owned  bool
		closed bool
	}

	// Typed extends Opaque with one attached value of type D, stored via the
	// native structure's payload slot.
	Typed[T any, P Native[T], D any] struct {
		Opaque[T, P]
	}
)

var _ error = (*InitError)(nil)

// NewOpaque allocates a zeroed T, and initializes it using init. The returned
// value is the owner of the native structure.
func NewOpaque[T any, P Native[T]](loop *uv.Loop, init InitFunc[T]) (*Opaque[T, P], error) {
	if loop == nil || init == nil {
		return nil, &InitError{Status: uv.EINVAL}
	}
	raw := P(new(T))
	if status := init(loop, raw); status < 0 {
		return nil, &InitError{Status: status}
	}
	return &Opaque[T, P]{raw: raw, owned: true}, nil
}

// FromRaw returns a borrowed view of raw, e.g. within a native callback.
func FromRaw[T any, P Native[T]](raw P) *Opaque[T, P] {
	return &Opaque[T, P]{raw: raw}
}

// Ptr returns the native structure, for passing to a native call.
func (x *Opaque[T, P]) Ptr() P { return x.raw }

// Header returns the native structure's common header.
func (x *Opaque[T, P]) Header() *uv.Handle { return x.raw.Header() }

// Owned reports whether x is the owner, rather than a borrowed view.
func (x *Opaque[T, P]) Owned() bool { return x.owned }

// Loop returns the loop the native structure is bound to.
func (x *Opaque[T, P]) Loop() *uv.Loop { return x.raw.Header().Loop() }

// Close releases the native structure, via [uv.Close], which stops it
// immediately. The loop finishes closing it during its next iteration.
// Only the owner may call Close, and only once.
func (x *Opaque[T, P]) Close() error {
	if !x.owned {
		return ErrBorrowed
	}
	if x.closed || uv.IsClosing(x.Header()) {
		x.closed = true
		return ErrClosed
	}
	if status := uv.Close(x.Header(), nil); status < 0 {
		return fmt.Errorf("handle: close: %w", uv.StatusError(status))
	}
	x.closed = true
	return nil
}

// New allocates and initializes a native structure, as per [NewOpaque], with
// an empty payload slot.
func New[T any, P Native[T], D any](loop *uv.Loop, init InitFunc[T]) (*Typed[T, P, D], error) {
	opaque, err := NewOpaque[T, P](loop, init)
	if err != nil {
		return nil, err
	}
	return &Typed[T, P, D]{Opaque: *opaque}, nil
}

// View returns a borrowed view of raw, e.g. within a native callback. The
// view shares the payload slot with the owner.
func View[T any, P Native[T], D any](raw P) *Typed[T, P, D] {
	return &Typed[T, P, D]{Opaque: Opaque[T, P]{raw: raw}}
}

// SetData attaches d, releasing any previously attached value first.
func (x *Typed[T, P, D]) SetData(d D) {
	x.DropData()
	box := new(D)
	*box = d
	x.Header().Data = unsafe.Pointer(box)
}

// Data returns the attached value, or nil. The caller does not take
// ownership, and the pointer is invalidated by any call that replaces or
// detaches the value.
func (x *Typed[T, P, D]) Data() *D {
	return (*D)(x.Header().Data)
}

// TakeData detaches the attached value, if any, transferring ownership to
// the caller. The value is not released.
func (x *Typed[T, P, D]) TakeData() (d D, ok bool) {
	box := x.Data()
	if box == nil {
		return
	}
	x.Header().Data = nil
	d = *box
	*box = *new(D)
	return d, true
}

// DropData detaches and releases the attached value, if any, returning true
// if there was one.
func (x *Typed[T, P, D]) DropData() bool {
	d, ok := x.TakeData()
	if ok {
		release(&d)
	}
	return ok
}

// Close releases the native structure, as per [Opaque.Close], then drops the
// attached value. The value is not dropped on error.
func (x *Typed[T, P, D]) Close() error {
	if err := x.Opaque.Close(); err != nil {
		return err
	}
	x.DropData()
	return nil
}

func (x *InitError) Error() string {
	return `handle: init failed: ` + uv.StrError(x.Status)
}

// Unwrap returns the native status as a [uv.Errno].
func (x *InitError) Unwrap() error { return uv.StatusError(x.Status) }

func release[D any](d *D) {
	if r, ok := any(d).(Releaser); ok {
		r.Release()
	} else if r, ok := any(*d).(Releaser); ok {
		r.Release()
	}
}
