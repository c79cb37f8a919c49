// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the process wide settings of the harness.
//
// Settings come from an optional TOML file and from the environment.
// DEBUG=1 enables tracing, and $FLATEPLAN holds comma separated
// key=value pairs in the style of $GODEBUG, for example
// FLATEPLAN=trace=1,maxinput=65536,jobs=4.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

// EnvVar is the environment variable holding key=value settings.
const EnvVar = "FLATEPLAN"

// DefaultMaxInput is the largest corpus input replayed by default.
const DefaultMaxInput = 1 << 20

var ErrInvalid = errors.New("config: invalid setting")

// Config is the process configuration. It is read once and not
// changed while inputs run.
type Config struct {
	// Trace writes a call trace of every replayed plan to stderr.
	Trace bool `toml:"trace"`
	// MaxInput skips corpus inputs larger than this many bytes.
	MaxInput int `toml:"max_input"`
	// Jobs is the number of inputs replayed concurrently by the CLI.
	Jobs int `toml:"jobs"`
	// LogLevel is a zerolog level name.
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxInput: DefaultMaxInput,
		Jobs:     runtime.GOMAXPROCS(0),
		LogLevel: "info",
	}
}

// Process returns the configuration of this process, taken from the
// environment on first use. Invalid settings are ignored.
// Tests may replace it to run with a fixed configuration.
var Process = sync.OnceValue(func() Config {
	c := Default()
	_ = c.ApplyEnv(os.Getenv)
	return c
})

// Load reads a TOML file on top of the defaults and applies the
// environment on top of that.
func Load(path string, getenv func(string) string) (Config, error) {
	c := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &c)
		if err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undec := meta.Undecoded(); len(undec) > 0 {
			return Config{}, fmt.Errorf("%w: %s: unknown key %q", ErrInvalid, path, undec[0].String())
		}
	}
	if err := c.ApplyEnv(getenv); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// ApplyEnv overrides c with DEBUG and $FLATEPLAN.
// All valid settings are applied even if an error is returned.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv("DEBUG") == "1" {
		c.Trace = true
	}
	env := getenv(EnvVar)
	if env == "" {
		return nil
	}
	var errs []error
	if v := lookup(env, "trace"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s trace=%q", ErrInvalid, EnvVar, v))
		} else {
			c.Trace = b
		}
	}
	for key, dst := range map[string]*int{"maxinput": &c.MaxInput, "jobs": &c.Jobs} {
		v := lookup(env, key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s %s=%q", ErrInvalid, EnvVar, key, v))
			continue
		}
		*dst = n
	}
	if v := lookup(env, "loglevel"); v != "" {
		c.LogLevel = v
	}
	return errors.Join(errs...)
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	if c.MaxInput <= 0 {
		return fmt.Errorf("%w: max_input %d", ErrInvalid, c.MaxInput)
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("%w: jobs %d", ErrInvalid, c.Jobs)
	}
	return nil
}

// lookup returns the value of key in a comma separated list of
// key=value settings, or "" if it is not set.
func lookup(s, key string) string {
	// Scan the string backward so that later settings are used
	// and earlier settings are ignored.
	end := len(s)
	eq := -1
	for i := end - 1; i >= -1; i-- {
		if i == -1 || s[i] == ',' {
			if eq >= 0 {
				name, arg := s[i+1:eq], s[eq+1:end]
				if name == key {
					for j := 0; j < len(arg); j++ {
						if arg[j] == '#' {
							return arg[:j]
						}
					}
					return arg
				}
			}
			eq = -1
			end = i
		} else if s[i] == '=' {
			eq = i
		}
	}
	return ""
}
