// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging provides the structured logger of the flateplan
// command.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger writing to output. Terminals get human readable
// lines, anything else one JSON object per line. Every entry carries the
// run_id of this invocation.
func New(output io.Writer, level string) (*Logger, error) {
	if output == nil {
		output = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if f, ok := output.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		output = zerolog.ConsoleWriter{Out: f, TimeFormat: time.TimeOnly}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(output).Level(lvl).With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
	return &Logger{logger: logger}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// RunStarted logs the start of a corpus replay.
func (l *Logger) RunStarted(inputs, jobs, maxInput int) {
	l.logger.Info().
		Int("inputs", inputs).
		Int("jobs", jobs).
		Int("max_input", maxInput).
		Msg("replay started")
}

// InputPassed logs an input whose round trip succeeded.
func (l *Logger) InputPassed(name string, size int, compressibility float64, elapsed time.Duration) {
	l.logger.Debug().
		Str("input", name).
		Int("size", size).
		Float64("compressibility", compressibility).
		Dur("elapsed", elapsed).
		Msg("input passed")
}

// InputSkipped logs an input that was not replayed.
func (l *Logger) InputSkipped(name string, size int, reason string) {
	l.logger.Debug().
		Str("input", name).
		Int("size", size).
		Str("reason", reason).
		Msg("input skipped")
}

// Finding logs an input that failed a check.
func (l *Logger) Finding(name string, size int, check string, err error) {
	l.logger.Error().
		Str("input", name).
		Int("size", size).
		Str("check", check).
		Err(err).
		Msg("round trip failed")
}

// RunCompleted logs the summary of a corpus replay.
func (l *Logger) RunCompleted(passed, skipped, findings int, duration time.Duration) {
	ev := l.logger.Info()
	if findings > 0 {
		ev = l.logger.Warn()
	}
	ev.Int("passed", passed).
		Int("skipped", skipped).
		Int("findings", findings).
		Float64("duration_seconds", duration.Seconds()).
		Msg("replay completed")
}
