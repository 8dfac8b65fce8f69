// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// Status codes returned by the handle functions.
const (
	OK      = 0
	EINVAL  = -int(unix.EINVAL)
	EBUSY   = -int(unix.EBUSY)
	EBADF   = -int(unix.EBADF)
	ENOTSUP = -int(unix.ENOTSUP)
)

// Errno is a negative status code, as an error.
// It unwraps to the corresponding [unix.Errno].
type Errno int

// StatusError converts a status code to an error, returning nil for any
// non-negative status.
func StatusError(status int) error {
	if status >= 0 {
		return nil
	}
	return Errno(status)
}

// Name returns the symbolic name, e.g. "EINVAL".
func (e Errno) Name() string {
	if e < 0 {
		if name := unix.ErrnoName(unix.Errno(-e)); name != `` {
			return name
		}
	}
	return `E` + strconv.Itoa(int(e))
}

func (e Errno) Error() string {
	if e >= 0 {
		return `uv: status ` + strconv.Itoa(int(e))
	}
	return `uv: ` + e.Name() + `: ` + unix.Errno(-e).Error()
}

func (e Errno) Unwrap() error {
	if e >= 0 {
		return nil
	}
	return unix.Errno(-e)
}

// StrError returns a description of status, as used in log output.
func StrError(status int) string {
	if status >= 0 {
		return `ok`
	}
	return Errno(status).Name()
}
