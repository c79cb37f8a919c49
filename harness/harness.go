// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package harness replays compression plans through zstream and checks
// that every call behaves and that the data survives the round trip.
//
// A failed check panics with a *Violation so that a fuzzing engine
// records it as a crash. Input that is too short to form a plan is not
// a failure.
package harness

import (
	"io"
	"os"

	"github.com/klauspost/flateplan/internal/config"
	"github.com/klauspost/flateplan/plan"
)

// Options control a single run.
type Options struct {
	// Trace receives a replayable call trace. Nil disables tracing.
	Trace io.Writer
}

// DefaultOptions returns the options selected by the process
// configuration: tracing to stderr when enabled.
func DefaultOptions() Options {
	if config.Process().Trace {
		return Options{Trace: os.Stderr}
	}
	return Options{}
}

// TestOneInput decodes data into a plan and runs it.
// It always returns 0, failures panic.
func TestOneInput(data []byte) int {
	return TestOneInputOptions(data, DefaultOptions())
}

// TestOneInputOptions is TestOneInput with explicit options.
func TestOneInputOptions(data []byte, opts Options) int {
	p, err := plan.Generate(data)
	if err != nil {
		return 0
	}
	plan.Fixup(p)
	RunPlan(p, opts)
	return 0
}

// TestOnePlan runs a structured plan. p is not modified.
func TestOnePlan(p *plan.Plan) {
	TestOnePlanOptions(p, DefaultOptions())
}

// TestOnePlanOptions is TestOnePlan with explicit options.
func TestOnePlanOptions(p *plan.Plan, opts Options) {
	c := p.Clone()
	plan.Fixup(c)
	RunPlan(c, opts)
}

// RunPlan compresses p.Data following p.DeflateOps, decompresses the
// result following p.InflateOps and verifies both phases.
// p must have been fixed up. Capacity requests in p are normalized in
// place.
func RunPlan(p *plan.Plan, opts Options) {
	e := engine{p: p, t: tracer{w: opts.Trace}}
	compressed := e.compress()
	e.decompress(compressed)
}
