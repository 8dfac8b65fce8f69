// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joeycumines/go-uvloop/object"
	"github.com/joeycumines/go-uvloop/timer"
	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction(`github.com/joeycumines/go-catrate.(*Limiter).worker`),
	)
}

// logLines decodes each JSON line written by the logger.
func logLines(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var lines []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line), scanner.Text())
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func countMsg(lines []map[string]any, msg string) (n int) {
	for _, line := range lines {
		if line[`msg`] == msg {
			n++
		}
	}
	return
}

func TestLoadConfig_testdata(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(`testdata`, `timers.yaml`))
	require.NoError(t, err)
	require.Len(t, cfg.Timers, 3)

	heartbeat := cfg.Timers[0]
	require.Equal(t, `heartbeat`, heartbeat.Name)
	require.Equal(t, 5*time.Millisecond, heartbeat.Timeout)
	require.Equal(t, 5*time.Millisecond, heartbeat.Repeat)
	require.Equal(t, 3, heartbeat.Count)
	require.True(t, heartbeat.Payload.Equal(object.Dict(
		object.KeyValue{Key: `service`, Value: object.Str(`example`)},
		object.KeyValue{Key: `tags`, Value: object.Array(object.Str(`a`), object.Str(`b`))},
	)), heartbeat.Payload.String())

	require.True(t, cfg.Timers[1].Fail)
	require.True(t, cfg.Timers[2].Once)
	require.True(t, cfg.Timers[2].Payload.IsNil())
}

func TestLoadConfig_missingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), `missing.yaml`))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseConfig_errors(t *testing.T) {
	for _, tc := range [...]struct {
		Name  string
		Input string
	}{
		{`empty`, ``},
		{`no timers`, `timers: []`},
		{`unknown field`, "timers:\n  - name: a\n    timeout: 1ms\n    bogus: 1\n"},
		{`missing name`, "timers:\n  - timeout: 1ms\n"},
		{`duplicate name`, "timers:\n  - name: a\n  - name: a\n"},
		{`bad duration`, "timers:\n  - name: a\n    timeout: soon\n"},
		{`negative timeout`, "timers:\n  - name: a\n    timeout: -1ms\n"},
		{`negative count`, "timers:\n  - name: a\n    count: -1\n"},
		{`once with repeat`, "timers:\n  - name: a\n    once: true\n    repeat: 1ms\n"},
		{`bad payload`, "timers:\n  - name: a\n    payload: !!binary aGVsbG8=\n"},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			cfg, err := parseConfig([]byte(tc.Input))
			require.Error(t, err)
			require.Nil(t, cfg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range [...]logiface.Level{
		logiface.LevelDisabled,
		logiface.LevelError,
		logiface.LevelInformational,
		logiface.LevelTrace,
	} {
		got, err := parseLevel(level.String())
		require.NoError(t, err)
		require.Equal(t, level, got)
	}
	_, err := parseLevel(`verbose`)
	require.EqualError(t, err, `unknown log level "verbose"`)
}

func TestRun(t *testing.T) {
	cfg, err := parseConfig([]byte(`
timers:
  - name: counted
    timeout: 1ms
    repeat: 1ms
    count: 3
    payload: {k: v}
  - name: failing
    timeout: 1ms
    repeat: 2ms
    count: 2
    fail: true
  - name: once
    timeout: 2ms
    once: true
`))
	require.NoError(t, err)

	var failures []*firedError
	timer.SetErrorHandler(func(err *timer.CallbackError) {
		var target *firedError
		require.ErrorAs(t, err, &target)
		failures = append(failures, target)
	})
	defer timer.SetErrorHandler(nil)

	var buf bytes.Buffer
	result, err := run(context.Background(), cfg, newLogger(&buf, logiface.LevelInformational))
	require.NoError(t, err)
	require.Equal(t, map[string]int{`counted`: 3, `failing`: 2, `once`: 1}, result.Fired)
	// successful firings return a nil *firedError, which is not an error
	require.Equal(t, uint64(2), result.CallbackErrors)
	require.Equal(t, []*firedError{{name: `failing`, count: 1}, {name: `failing`, count: 2}}, failures)

	lines := logLines(t, buf.Bytes())
	require.Equal(t, 6, countMsg(lines, `uvtimer: fired`))
	require.Equal(t, 1, countMsg(lines, `uvtimer: done`))

	var payloads int
	for _, line := range lines {
		if line[`msg`] == `uvtimer: fired` && line[`name`] == `counted` {
			require.Equal(t, map[string]any{`k`: `v`}, line[`payload`])
			payloads++
		}
	}
	require.Equal(t, 3, payloads)
}

func TestRun_cancelled(t *testing.T) {
	cfg, err := parseConfig([]byte("timers:\n  - name: forever\n    timeout: 1ms\n    repeat: 1ms\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	result, err := run(ctx, cfg, newLogger(&buf, logiface.LevelInformational))
	require.NoError(t, err)
	require.Positive(t, result.Fired[`forever`])
	require.Equal(t, 1, countMsg(logLines(t, buf.Bytes()), `uvtimer: interrupted`))
}

func TestRunMain(t *testing.T) {
	path := filepath.Join(t.TempDir(), `timers.yaml`)
	require.NoError(t, os.WriteFile(path, []byte("timers:\n  - name: single\n    timeout: 1ms\n    once: true\n"), 0o600))

	var buf bytes.Buffer
	require.NoError(t, runMain(context.Background(), []string{`-config`, path, `-level`, `debug`}, &buf))

	lines := logLines(t, buf.Bytes())
	require.Equal(t, 1, countMsg(lines, `uvtimer: fired`))
	require.Equal(t, 1, countMsg(lines, `timer: started`))
	require.Equal(t, 1, countMsg(lines, `timer: closed`))
}

func TestRunMain_usage(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, runMain(context.Background(), nil, &buf))
	require.Contains(t, buf.String(), `-config`)

	buf.Reset()
	require.Error(t, runMain(context.Background(), []string{`-config`, `x.yaml`, `-level`, `loud`}, &buf))
}
