// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"container/heap"
	"math"
)

// Timer is a timer handle. The zero value must be initialized using
// [TimerInit] before use.
type Timer struct {
	Handle

	cb     TimerCb
	due    uint64
	repeat uint64
	seq    uint64
	// index is the position within the loop's timer heap, or -1
	index int
	// ready is set while the timer is expired, awaiting dispatch
	ready bool
}

// TimerCb is invoked by the loop when a timer expires.
type TimerCb func(t *Timer)

// TimerInit initializes a timer handle, registering it with loop.
//
// Returns EINVAL for nil arguments, EBADF if the loop is closed, or EBUSY if
// the handle is already initialized and not yet closed.
func TimerInit(loop *Loop, t *Timer) int {
	if loop == nil || t == nil {
		return EINVAL
	}
	if loop.state.Load() == StateClosed {
		return EBADF
	}
	if t.loop != nil && t.flags&flagClosed == 0 {
		return EBUSY
	}
	*t = Timer{index: -1}
	t.init(loop, TypeTimer)
	return OK
}

// TimerStart starts the timer, after timeout milliseconds, and then every
// repeat milliseconds if repeat is non-zero. Starting an active timer
// restarts it.
//
// Returns EINVAL if the timer isn't initialized, is closing, or cb is nil.
func TimerStart(t *Timer, cb TimerCb, timeout, repeat uint64) int {
	if t == nil || cb == nil || t.loop == nil || IsClosing(&t.Handle) {
		return EINVAL
	}

	if IsActive(&t.Handle) {
		TimerStop(t)
	}

	l := t.loop

	due := l.time + timeout
	if due < l.time {
		due = math.MaxUint64
	}

	t.cb = cb
	t.due = due
	t.repeat = repeat
	t.seq = l.timerSeq
	l.timerSeq++

	heap.Push(&l.timers, t)
	t.start()

	return OK
}

// TimerStop stops the timer. Stopping an inactive timer is a no-op.
func TimerStop(t *Timer) int {
	if t == nil {
		return EINVAL
	}
	if !IsActive(&t.Handle) {
		return OK
	}
	if t.index >= 0 {
		heap.Remove(&t.loop.timers, t.index)
	}
	t.ready = false
	t.stop()
	return OK
}

// TimerAgain restarts a repeating timer, using the repeat value as the
// timeout. It does nothing if the repeat value is zero.
//
// Returns EINVAL if the timer has never been started.
func TimerAgain(t *Timer) int {
	if t == nil || t.cb == nil {
		return EINVAL
	}
	if t.repeat != 0 {
		TimerStop(t)
		return TimerStart(t, t.cb, t.repeat, t.repeat)
	}
	return OK
}

// TimerSetRepeat sets the repeat interval, in milliseconds. It takes effect
// the next time the timer fires, or is (re)started.
func TimerSetRepeat(t *Timer, repeat uint64) {
	t.repeat = repeat
}

// TimerGetRepeat returns the repeat interval, in milliseconds.
func TimerGetRepeat(t *Timer) uint64 {
	return t.repeat
}

// TimerGetDueIn returns the number of milliseconds until the timer expires,
// relative to the loop time, or 0 if it's expired or inactive.
func TimerGetDueIn(t *Timer) uint64 {
	if !IsActive(&t.Handle) || t.due <= t.loop.time {
		return 0
	}
	return t.due - t.loop.time
}

// timerHeap is a min-heap of timers, ordered by due time then start order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// runTimers dispatches all timers that have expired, as of the loop time.
func (l *Loop) runTimers() {
	ready := l.readyBuf[:0]
	for len(l.timers) > 0 && l.timers[0].due <= l.time {
		t := heap.Pop(&l.timers).(*Timer)
		t.ready = true
		ready = append(ready, t)
	}

	for i, t := range ready {
		ready[i] = nil
		// stopped (or restarted) by an earlier callback in this pass
		if !t.ready {
			continue
		}
		t.ready = false
		if t.repeat != 0 {
			t.due = l.time + t.repeat
			t.seq = l.timerSeq
			l.timerSeq++
			heap.Push(&l.timers, t)
		} else {
			t.stop()
		}
		l.timersFired++
		t.cb(t)
	}

	l.readyBuf = ready[:0]
}

// nextTimeout returns the milliseconds until the next timer is due, or -1 if
// there are no timers.
func (l *Loop) nextTimeout() int {
	if len(l.timers) == 0 {
		return -1
	}
	due := l.timers[0].due
	if due <= l.time {
		return 0
	}
	diff := due - l.time
	if diff > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(diff)
}
