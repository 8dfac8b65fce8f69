// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Command uvtimer runs the timers described by a YAML config file, on a
// single loop, logging each firing as JSON to stderr.
//
// Usage:
//
//	uvtimer -config timers.yaml [-level debug]
//
// The process exits once every timer has stopped, or on SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"braces.dev/errtrace"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runMain(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "uvtimer: %+v\n", err)
		stop()
		os.Exit(1)
	}
}

func runMain(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet(`uvtimer`, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String(`config`, ``, `path to the YAML timer config (required)`)
	levelName := fs.String(`level`, logiface.LevelInformational.String(), `minimum log level`)
	if err := fs.Parse(args); err != nil {
		return errtrace.Wrap(err)
	}
	if *configPath == `` || fs.NArg() != 0 {
		fs.Usage()
		return errtrace.Wrap(fmt.Errorf("usage: uvtimer -config <file> [-level <level>]"))
	}

	level, err := parseLevel(*levelName)
	if err != nil {
		return errtrace.Wrap(err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return errtrace.Wrap(err)
	}

	_, err = run(ctx, cfg, newLogger(stderr, level))
	return errtrace.Wrap(err)
}

func newLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// parseLevel accepts the short syslog keywords, as per [logiface.Level.String].
func parseLevel(s string) (logiface.Level, error) {
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == s {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
