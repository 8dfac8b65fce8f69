// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"sync/atomic"
)

// LoopState represents the current state of the loop.
//
//	StateIdle → StateRunning    [Run]
//	StateRunning → StateIdle    [Run returns]
//	StateIdle → StateClosed     [Close]
//	StateClosed → (terminal)
type LoopState uint32

const (
	// StateIdle indicates the loop is not currently being run.
	StateIdle LoopState = iota
	// StateRunning indicates a goroutine is inside Run.
	StateRunning
	// StateClosed indicates the loop has been closed, and its resources released.
	StateClosed
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// loopState is a lock-free state holder. Transitions use CAS.
type loopState struct {
	v atomic.Uint32
}

func (s *loopState) Load() LoopState {
	return LoopState(s.v.Load())
}

func (s *loopState) Store(state LoopState) {
	s.v.Store(uint32(state))
}

func (s *loopState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
