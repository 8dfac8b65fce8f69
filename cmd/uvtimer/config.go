// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"braces.dev/errtrace"
	"github.com/joeycumines/go-uvloop/object"
	"gopkg.in/yaml.v3"
)

type (
	config struct {
		Timers []timerConfig `yaml:"timers"`
	}

	timerConfig struct {
		// Payload is logged, as JSON, each time the timer fires.
		Payload object.Object `yaml:"payload"`
		Name    string        `yaml:"name"`
		Timeout time.Duration `yaml:"timeout"`
		Repeat  time.Duration `yaml:"repeat"`
		// Count stops the timer after it has fired this many times, if
		// non-zero.
		Count int `yaml:"count"`
		// Fail makes the callback return an error, each time it fires.
		Fail bool `yaml:"fail"`
		// Once uses timer.Once, which is mutually exclusive with Repeat.
		Once bool `yaml:"once"`
	}
)

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(parseConfig(data))
}

func parseConfig(data []byte) (*config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg config
	if err := dec.Decode(&cfg); err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("decode config: %w", err))
	}

	if err := cfg.validate(); err != nil {
		return nil, errtrace.Wrap(err)
	}

	return &cfg, nil
}

func (x *config) validate() error {
	if len(x.Timers) == 0 {
		return errors.New("config: no timers")
	}
	names := make(map[string]struct{}, len(x.Timers))
	for i, t := range x.Timers {
		if t.Name == `` {
			return fmt.Errorf("config: timers[%d]: missing name", i)
		}
		if _, ok := names[t.Name]; ok {
			return fmt.Errorf("config: timers[%d]: duplicate name %q", i, t.Name)
		}
		names[t.Name] = struct{}{}
		if t.Timeout < 0 || t.Repeat < 0 || t.Count < 0 {
			return fmt.Errorf("config: timer %q: negative timeout, repeat, or count", t.Name)
		}
		if t.Once && (t.Repeat != 0 || t.Count != 0) {
			return fmt.Errorf("config: timer %q: once is incompatible with repeat and count", t.Name)
		}
	}
	return nil
}
