// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	"github.com/klauspost/flateplan/internal/fuzz"
	"github.com/klauspost/flateplan/plan"
)

// scenario is a built-in seed plan.
type scenario struct {
	name string
	plan *plan.Plan
}

func helloWorld() *plan.Plan {
	return &plan.Plan{
		Level:      6,
		WindowBits: plan.WindowZlib,
		MemLevel:   plan.MemLevel8,
		Strategy:   plan.DefaultStrategy,
		Data:       plan.Bytes("hello world"),
	}
}

// scenarios returns the built-in seed plans.
func scenarios() []scenario {
	chunked := helloWorld()
	chunked.DeflateOps = []plan.DeflateOp{
		plan.NewDeflate(1, 1, plan.NoFlush),
		plan.NewDeflate(1, 1, plan.NoFlush),
		plan.NewDeflate(1, 1, plan.NoFlush),
	}

	dictionary := helloWorld()
	dictionary.Dict = plan.Bytes("hello")
	dictionary.Data = plan.Bytes(strings.Repeat("hello world, ", 20))
	dictionary.InflateOps = []plan.InflateOp{plan.NewInflate(1, 1)}

	gzip := helloWorld()
	gzip.WindowBits = plan.WindowGzip
	gzip.Dict = plan.Bytes("hello")

	params := helloWorld()
	params.Data = plan.Bytes(strings.Repeat("abcabcabcabd", 300))
	params.DeflateOps = []plan.DeflateOp{
		plan.NewDeflate(100, 100, plan.NoFlush),
		plan.NewDeflateParams(1, 100, 6, plan.RLE),
		plan.NewDeflate(100, 100, plan.NoFlush),
	}

	return []scenario{
		{name: "hello", plan: helloWorld()},
		{name: "chunked", plan: chunked},
		{name: "dictionary", plan: dictionary},
		{name: "gzip-dictionary", plan: gzip},
		{name: "params-rle", plan: params},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <dir|archive.zip>",
		Short: "Write the built-in scenarios as seed files",
		Long: `Write the built-in scenario plans to dir. Files are named by the
BLAKE3 digest of their content, so seeding twice does not add copies.
A path ending in .zip is written as one archive with an entry per
scenario, the layout fuzz targets read their seed corpus from.
The raw and corpus formats are encoded with the fuzz input grammar.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runSeed,
	}
	cmd.Flags().String("format", "corpus", "seed format (raw|corpus|json|msgpack)")
	return cmd
}

func (a *app) runSeed(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	dir := args[0]
	if strings.EqualFold(filepath.Ext(dir), ".zip") {
		return a.seedArchive(cmd, dir, format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, sc := range scenarios() {
		b, suffix, err := seedFile(sc.plan, format)
		if err != nil {
			return fmt.Errorf("%s: %w", sc.name, err)
		}
		path := filepath.Join(dir, seedName(b)+suffix)
		if err := atomic.WriteFile(path, bytes.NewReader(b)); err != nil {
			return fmt.Errorf("%s: %w", sc.name, err)
		}
		a.log.Debug("wrote seed " + path)
		fmt.Fprintf(w, "%s\t%s\n", sc.name, path)
	}
	return nil
}

func (a *app) seedArchive(cmd *cobra.Command, path, format string) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w := cmd.OutOrStdout()
	for _, sc := range scenarios() {
		b, suffix, err := seedFile(sc.plan, format)
		if err != nil {
			return fmt.Errorf("%s: %w", sc.name, err)
		}
		fw, err := zw.Create(sc.name + suffix)
		if err != nil {
			return err
		}
		if _, err := fw.Write(b); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s/%s\n", sc.name, path, sc.name+suffix)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	a.log.Info("wrote seed archive " + path)
	return atomic.WriteFile(path, &buf)
}

// seedFile encodes p in format and returns the file name suffix.
func seedFile(p *plan.Plan, format string) ([]byte, string, error) {
	switch format {
	case "json":
		b, err := plan.MarshalJSON(p)
		return b, fuzz.SuffixPlanJSON, err
	case "msgpack":
		b, err := plan.MarshalMsgpack(p)
		return b, fuzz.SuffixPlanMsgpack, err
	case "raw", "corpus":
		// The grammar has no room for what Fixup removes.
		fixed := p.Clone()
		plan.Fixup(fixed)
		b, err := plan.Encode(fixed)
		if err != nil {
			return nil, "", err
		}
		if format == "corpus" {
			b = fuzz.MarshalCorpusFile(b)
		}
		return b, "", nil
	}
	return nil, "", fmt.Errorf("invalid --format %q, want raw, corpus, json or msgpack", format)
}

func seedName(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
