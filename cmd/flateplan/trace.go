// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klauspost/flateplan/harness"
	"github.com/klauspost/flateplan/internal/fuzz"
	"github.com/klauspost/flateplan/plan"
)

func newTraceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <path>",
		Short: "Replay one input and print its call trace",
		Long: `Replay the inputs in path with the call trace written to stderr.
The trace is a C fragment that repeats the calls against zlib.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runTrace,
	}
}

func (a *app) runTrace(cmd *cobra.Command, args []string) error {
	inputs, err := fuzz.Collect(args)
	if err != nil {
		return err
	}
	opts := harness.Options{Trace: cmd.ErrOrStderr()}
	w := cmd.OutOrStdout()
	failed := false
	for _, in := range inputs {
		p, err := loadPlan(in)
		if errors.Is(err, plan.ErrShortInput) {
			fmt.Fprintf(w, "%s: skipped, too short for a plan\n", in.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", in.Name, err)
		}
		if err := replay(p, opts); err != nil {
			failed = true
			a.log.Finding(in.Name, len(in.Data), "trace", err)
			fmt.Fprintf(w, "%s %s: %v\n", color.RedString("FAIL"), in.Name, err)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", color.GreenString("ok"), in.Name)
	}
	if failed {
		return errFindings
	}
	return nil
}
