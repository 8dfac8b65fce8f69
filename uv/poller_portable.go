//go:build !linux && !darwin

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"sync/atomic"
	"time"
)

var errPollerClosed = errors.New("uv: poller closed")

// poller is the portable fallback, which only sleeps, using a channel for
// wake-ups.
type poller struct {
	wakeCh chan struct{}
	closed atomic.Bool
}

func (p *poller) init() error {
	p.wakeCh = make(chan struct{}, 1)
	return nil
}

func (p *poller) wait(timeoutMs int) error {
	if p.closed.Load() {
		return errPollerClosed
	}

	switch {
	case timeoutMs == 0:
		select {
		case <-p.wakeCh:
		default:
		}
	case timeoutMs < 0:
		<-p.wakeCh
	default:
		t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer t.Stop()
		select {
		case <-p.wakeCh:
		case <-t.C:
		}
	}

	return nil
}

func (p *poller) wakeup() error {
	if p.closed.Load() {
		return errPollerClosed
	}
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

func (p *poller) close() error {
	if p.closed.Swap(true) {
		return errPollerClosed
	}
	return nil
}
