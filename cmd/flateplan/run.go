// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/klauspost/compress"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/klauspost/flateplan/harness"
	"github.com/klauspost/flateplan/internal/fuzz"
	"github.com/klauspost/flateplan/plan"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Replay corpus files and directories",
		Long: `Replay every input below the given paths. Raw fuzz inputs, Go fuzz
corpus files, zip corpora and .plan.json / .plan.msgpack plans are
accepted. The exit status is 1 when any input fails a check.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runReplay,
	}
	cmd.Flags().Int("jobs", 0, "inputs replayed in parallel (0 uses the configuration)")
	cmd.Flags().Int("max-input", 0, "skip inputs larger than this many bytes (0 uses the configuration)")
	return cmd
}

// finding is an input that failed a check.
type finding struct {
	name string
	err  error
}

// summary counts the outcome of a replay.
type summary struct {
	passed, skipped atomic.Int64

	mu       sync.Mutex
	findings []finding
}

func (s *summary) addFinding(f finding) {
	s.mu.Lock()
	s.findings = append(s.findings, f)
	s.mu.Unlock()
}

func (s *summary) sorted() []finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := slices.Clone(s.findings)
	slices.SortFunc(res, func(a, b finding) int {
		return cmp.Compare(a.name, b.name)
	})
	return res
}

func (a *app) runReplay(cmd *cobra.Command, args []string) error {
	jobs := intFlag(cmd.Flags(), "jobs", a.cfg.Jobs)
	maxInput := intFlag(cmd.Flags(), "max-input", a.cfg.MaxInput)
	if jobs <= 0 || maxInput <= 0 {
		return fmt.Errorf("--jobs and --max-input must be positive")
	}
	var opts harness.Options
	if a.cfg.Trace {
		// Traces of concurrent runs would interleave.
		opts.Trace = cmd.ErrOrStderr()
		jobs = 1
	}

	inputs, err := fuzz.Collect(args)
	if err != nil {
		return err
	}
	a.log.RunStarted(len(inputs), jobs, maxInput)
	start := time.Now()

	var sum summary
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(min(jobs, len(inputs)))
	for _, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.replayInput(in, maxInput, opts, &sum)
			return nil
		})
	}
	err = g.Wait()

	findings := sum.sorted()
	a.log.RunCompleted(int(sum.passed.Load()), int(sum.skipped.Load()), len(findings), time.Since(start))
	printSummary(cmd.OutOrStdout(), int(sum.passed.Load()), int(sum.skipped.Load()), findings)
	if err != nil {
		return err
	}
	if len(findings) > 0 {
		return errFindings
	}
	return nil
}

func (a *app) replayInput(in fuzz.Input, maxInput int, opts harness.Options, sum *summary) {
	if len(in.Data) > maxInput {
		sum.skipped.Add(1)
		a.log.InputSkipped(in.Name, len(in.Data), "too large")
		return
	}
	p, err := loadPlan(in)
	if err != nil {
		sum.skipped.Add(1)
		a.log.InputSkipped(in.Name, len(in.Data), err.Error())
		return
	}
	start := time.Now()
	if err := replay(p, opts); err != nil {
		check := "panic"
		var v *harness.Violation
		if errors.As(err, &v) {
			check = v.Check
		}
		sum.addFinding(finding{name: in.Name, err: err})
		a.log.Finding(in.Name, len(in.Data), check, err)
		return
	}
	sum.passed.Add(1)
	a.log.InputPassed(in.Name, len(in.Data), compress.Estimate(p.Data), time.Since(start))
}

// loadPlan decodes in according to its kind and fixes it up.
// Raw inputs too short to form a plan return plan.ErrShortInput.
func loadPlan(in fuzz.Input) (*plan.Plan, error) {
	var (
		p   *plan.Plan
		err error
	)
	switch in.Kind {
	case fuzz.KindPlanJSON:
		p, err = plan.ParseJSON(in.Data)
	case fuzz.KindPlanMsgpack:
		p, err = plan.UnmarshalMsgpack(in.Data)
	default:
		p, err = plan.Generate(in.Data)
	}
	if err != nil {
		return nil, err
	}
	plan.Fixup(p)
	return p, nil
}

// replay runs p and converts a failed check into an error.
func replay(p *plan.Plan, opts harness.Options) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if v, ok := r.(*harness.Violation); ok {
			err = v
			return
		}
		err = fmt.Errorf("panic: %v", r)
	}()
	harness.RunPlan(p, opts)
	return nil
}

func printSummary(w io.Writer, passed, skipped int, findings []finding) {
	red := color.New(color.FgRed, color.Bold)
	for _, f := range findings {
		fmt.Fprintf(w, "%s %s: %v\n", red.Sprint("FAIL"), f.name, f.err)
	}
	status := color.New(color.FgGreen, color.Bold).Sprint("ok")
	if len(findings) > 0 {
		status = red.Sprint("FAIL")
	}
	fmt.Fprintf(w, "%s passed %d, skipped %d, findings %d\n", status, passed, skipped, len(findings))
}
