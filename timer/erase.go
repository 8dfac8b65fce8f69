// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package timer

// Erase adapts a callback returning a concrete error type to a [Callback].
//
// A nil value of a pointer error type, returned as E, is converted to a nil
// error, rather than a non-nil error holding a nil pointer.
func Erase[E interface {
	error
	comparable
}](fn func(t *Timer) E) Callback {
	if fn == nil {
		return nil
	}
	return func(t *Timer) error {
		var zero E
		if err := fn(t); err != zero {
			return err
		}
		return nil
	}
}
