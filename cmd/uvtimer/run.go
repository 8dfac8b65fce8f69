// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package main

import (
	"context"
	"errors"
	"fmt"

	"braces.dev/errtrace"
	"github.com/joeycumines/go-uvloop/timer"
	"github.com/joeycumines/go-uvloop/uv"
	"github.com/joeycumines/logiface"
)

// firedError is the failure returned by timers configured to fail.
type firedError struct {
	name  string
	count int
}

func (e *firedError) Error() string {
	return fmt.Sprintf("timer %q: configured failure, firing %d", e.name, e.count)
}

// summary is the outcome of a run, keyed by timer name.
type summary struct {
	Fired          map[string]int
	CallbackErrors uint64
}

// run starts every configured timer, then runs the loop until all timers
// stop, or ctx is cancelled. Cancellation is not an error.
func run(ctx context.Context, cfg *config, logger *logiface.Logger[logiface.Event]) (*summary, error) {
	timer.SetLogger(logger)
	defer timer.SetLogger(nil)

	loop, err := uv.New(uv.WithLogger(logger))
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	errorsBefore := timer.CallbackErrors()
	result := summary{Fired: make(map[string]int, len(cfg.Timers))}
	timers := make([]*timer.Timer, 0, len(cfg.Timers))

	closeAll := func() error {
		for _, t := range timers {
			if t.State() != timer.Closed {
				if err := t.Close(); err != nil {
					return errtrace.Wrap(err)
				}
			}
		}
		// close callbacks run on the next iteration
		if _, err := loop.Run(context.Background(), uv.RunNoWait); err != nil {
			return errtrace.Wrap(err)
		}
		return errtrace.Wrap(loop.Close())
	}

	for _, tc := range cfg.Timers {
		t, err := startTimer(loop, tc, &result, logger)
		if err != nil {
			return nil, errtrace.Wrap(errors.Join(fmt.Errorf("timer %q: %w", tc.Name, err), closeAll()))
		}
		timers = append(timers, t)
	}

	logger.Info().
		Int(`timers`, len(timers)).
		Log(`uvtimer: running`)

	_, err = loop.Run(ctx, uv.RunDefault)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		logger.Notice().
			Log(`uvtimer: interrupted`)
		err = nil
	}

	err = errors.Join(err, closeAll())
	result.CallbackErrors = timer.CallbackErrors() - errorsBefore

	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	logger.Info().
		Uint64(`iterations`, loop.Iterations()).
		Uint64(`callback_errors`, result.CallbackErrors).
		Log(`uvtimer: done`)

	return &result, nil
}

func startTimer(loop *uv.Loop, tc timerConfig, result *summary, logger *logiface.Logger[logiface.Event]) (*timer.Timer, error) {
	fire := timer.Erase(func(t *timer.Timer) *firedError {
		result.Fired[tc.Name]++
		b := logger.Info().
			Str(`name`, tc.Name).
			Uint64(`timer`, t.ID()).
			Int(`fired`, result.Fired[tc.Name])
		if !tc.Payload.IsNil() {
			b = b.RawJSON(`payload`, tc.Payload.AppendJSON(nil))
		}
		b.Log(`uvtimer: fired`)
		if tc.Fail {
			return &firedError{name: tc.Name, count: result.Fired[tc.Name]}
		}
		return nil
	})

	if tc.Once {
		var t *timer.Timer
		t, err := timer.Once(loop, tc.Timeout, func() error { return fire(t) })
		return t, errtrace.Wrap(err)
	}

	return errtrace.Wrap2(timer.Start(loop, tc.Timeout, tc.Repeat, func(t *timer.Timer) error {
		// stop first, so a failure is still the final firing
		if tc.Count != 0 && result.Fired[tc.Name]+1 >= tc.Count {
			if err := t.Stop(); err != nil {
				return err
			}
		}
		return fire(t)
	}))
}
