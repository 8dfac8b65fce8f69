//go:build linux

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

var errPollerClosed = errors.New("uv: poller closed")

// poller blocks the loop using epoll, with an eventfd for wake-ups.
type poller struct { // betteralign:ignore
	epfd     int
	wakefd   int
	eventBuf [64]unix.EpollEvent
	wakeBuf  [8]byte
	closed   atomic.Bool
}

func (p *poller) init() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return err
	}

	ev := &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakefd),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return err
	}

	p.epfd = epfd
	p.wakefd = wakefd

	return nil
}

// wait blocks for up to timeoutMs milliseconds, or indefinitely if negative,
// or until woken.
func (p *poller) wait(timeoutMs int) error {
	if p.closed.Load() {
		return errPollerClosed
	}

	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}

	for i := 0; i < n; i++ {
		if int(p.eventBuf[i].Fd) == p.wakefd {
			p.drain()
		}
	}

	return nil
}

func (p *poller) drain() {
	for {
		if _, err := unix.Read(p.wakefd, p.wakeBuf[:]); err != nil {
			break
		}
	}
}

// wakeup may be called from any goroutine.
func (p *poller) wakeup() error {
	if p.closed.Load() {
		return errPollerClosed
	}

	// PERFORMANCE: Native endianness, no binary.LittleEndian overhead
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]

	_, err := unix.Write(p.wakefd, buf)
	if err == unix.EAGAIN {
		// counter saturated, a wake-up is already pending
		return nil
	}
	return err
}

func (p *poller) close() error {
	if p.closed.Swap(true) {
		return errPollerClosed
	}
	return errors.Join(unix.Close(p.wakefd), unix.Close(p.epfd))
}
