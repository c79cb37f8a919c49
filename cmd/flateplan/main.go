// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command flateplan replays compression plans outside of the fuzzing
// engine: whole corpora, single traced inputs, plan dumps and seeds.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/klauspost/flateplan/internal/config"
	"github.com/klauspost/flateplan/internal/logging"
)

// errFindings is returned when at least one input failed a check.
var errFindings = errors.New("round trip findings reported")

// app is the state shared by all subcommands of one invocation.
type app struct {
	cfg config.Config
	log *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default(), log: logging.Nop()}
	root := &cobra.Command{
		Use:           "flateplan",
		Short:         "Plan driven round trip checks for deflate streams",
		Long:          `flateplan replays compression plans through the zlib style stream adapter and verifies every call and the recovered data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "TOML configuration file")
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().String("log-level", "", "log level (trace|debug|info|warn|error)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newTraceCmd(a))
	root.AddCommand(newPlanCmd(a))
	root.AddCommand(newSeedCmd(a))
	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return err
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	mode, _ := flags.GetString("color")
	if err := setColor(mode); err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func setColor(mode string) error {
	switch mode {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color %q, want auto, on or off", mode)
	}
	return nil
}

// intFlag returns the int flag name if it was given, def otherwise.
func intFlag(fs *pflag.FlagSet, name string, def int) int {
	if !fs.Changed(name) {
		return def
	}
	v, err := fs.GetInt(name)
	if err != nil {
		return def
	}
	return v
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		}
		os.Exit(1)
	}
}
