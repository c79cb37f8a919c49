// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klauspost/flateplan/internal/fuzz"
	"github.com/klauspost/flateplan/plan"
)

func newPlanCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <path>",
		Short: "Print the plan an input decodes to",
		Long: `Decode the inputs in path and print the fixed up plans.
JSON output can be edited and replayed as a .plan.json file.`,
		Args: cobra.ExactArgs(1),
		RunE: runPlan,
	}
	cmd.Flags().String("format", "json", "output format (json|msgpack)")
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	var marshal func(*plan.Plan) ([]byte, error)
	switch format {
	case "json":
		marshal = plan.MarshalJSON
	case "msgpack":
		marshal = plan.MarshalMsgpack
	default:
		return fmt.Errorf("invalid --format %q, want json or msgpack", format)
	}

	inputs, err := fuzz.Collect(args)
	if err != nil {
		return err
	}
	if format == "msgpack" && len(inputs) > 1 {
		return fmt.Errorf("%s holds %d inputs, msgpack output takes one", args[0], len(inputs))
	}
	w := cmd.OutOrStdout()
	for _, in := range inputs {
		p, err := loadPlan(in)
		if err != nil {
			return fmt.Errorf("%s: %w", in.Name, err)
		}
		b, err := marshal(p)
		if err != nil {
			return fmt.Errorf("%s: %w", in.Name, err)
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}
