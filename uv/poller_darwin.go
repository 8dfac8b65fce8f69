//go:build darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

var errPollerClosed = errors.New("uv: poller closed")

// wakeIdent identifies the EVFILT_USER event used for wake-ups.
const wakeIdent = 1

// poller blocks the loop using kqueue, with a user event for wake-ups.
type poller struct { // betteralign:ignore
	kq       int
	eventBuf [64]unix.Kevent_t
	closed   atomic.Bool
}

func (p *poller) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)

	changes := []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}
	if _, err := unix.Kevent(kq, changes, nil, nil); err != nil {
		_ = unix.Close(kq)
		return err
	}

	p.kq = kq

	return nil
}

// wait blocks for up to timeoutMs milliseconds, or indefinitely if negative,
// or until woken.
func (p *poller) wait(timeoutMs int) error {
	if p.closed.Load() {
		return errPollerClosed
	}

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		v := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &v
	}

	// the user event is EV_CLEAR, so receiving it is enough to reset it
	_, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil && err != unix.EINTR {
		return err
	}

	return nil
}

// wakeup may be called from any goroutine.
func (p *poller) wakeup() error {
	if p.closed.Load() {
		return errPollerClosed
	}
	changes := []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *poller) close() error {
	if p.closed.Swap(true) {
		return errPollerClosed
	}
	return unix.Close(p.kq)
}
