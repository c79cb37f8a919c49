// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/klauspost/flateplan/harness"
	"github.com/klauspost/flateplan/internal/config"
	"github.com/klauspost/flateplan/internal/fuzz"
	"github.com/klauspost/flateplan/plan"
)

// execute runs the command line args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DEBUG", "")
	t.Setenv(config.EnvVar, "")
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--color", "off"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSeedAndRun(t *testing.T) {
	for _, format := range []string{"raw", "corpus", "json", "msgpack"} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			out, _, err := execute(t, "seed", dir, "--format", format)
			require.NoError(t, err)
			require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), len(scenarios()))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, entries, len(scenarios()))

			out, _, err = execute(t, "run", dir, "--jobs", "2")
			require.NoError(t, err)
			require.Equal(t, "ok passed 5, skipped 0, findings 0\n", out)
		})
	}
}

// readArchive returns the decoded corpus values of every entry in path.
func readArchive(t *testing.T, path string) map[string][][]byte {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	st, err := f.Stat()
	require.NoError(t, err)
	res := make(map[string][][]byte)
	err = fuzz.ReadZip(f, st.Size(), func(name string, b []byte) error {
		vals, err := fuzz.Decode(b, false)
		res[name] = vals
		return err
	})
	require.NoError(t, err)
	return res
}

func TestSeedArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus", "seed.zip")
	out, stderr, err := execute(t, "seed", path)
	require.NoError(t, err)
	require.Contains(t, out, "hello\t"+path+"/hello\n")
	require.Contains(t, stderr, `"message":"wrote seed archive `)

	got := readArchive(t, path)
	require.Len(t, got, len(scenarios()))

	// The harness fuzz target seeds from this archive.
	want := readArchive(t, filepath.Join("..", "..", "harness", "testdata", "fuzz", "FuzzTestOneInput.zip"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("checked in seed corpus is stale (-want +got):\n%s", diff)
	}

	out, _, err = execute(t, "run", path)
	require.NoError(t, err)
	require.Equal(t, "ok passed 5, skipped 0, findings 0\n", out)
}

func TestSeedIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	for range 2 {
		_, _, err := execute(t, "seed", dir)
		require.NoError(t, err)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, len(scenarios()))
}

func TestRunSkips(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short"), []byte{1, 2}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.plan.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "large"), bytes.Repeat([]byte{7}, 200), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.plan.json"), []byte(`{
		// Zero values are resolved by fixup.
		"level": 6,
		"data": "hello world",
	}`), 0o644))

	out, stderr, err := execute(t, "--log-level", "debug", "run", dir, "--max-input", "100")
	require.NoError(t, err)
	require.Equal(t, "ok passed 1, skipped 3, findings 0\n", out)
	require.Contains(t, stderr, `"reason":"too large"`)
	require.Contains(t, stderr, `"reason":"plan: input too short"`)
	require.Contains(t, stderr, `"message":"replay completed"`)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "run", dir)
	require.ErrorContains(t, err, "no inputs found")

	_, _, err = execute(t, "run", dir, "--jobs", "0")
	require.Error(t, err)

	_, _, err = execute(t, "--color", "maybe", "run", dir)
	require.ErrorContains(t, err, "invalid --color")

	_, _, err = execute(t, "--log-level", "loud", "run", dir)
	require.Error(t, err)

	cfg := filepath.Join(dir, "flateplan.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("unknown = 1\n"), 0o644))
	_, _, err = execute(t, "--config", cfg, "run", dir)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestRunTraceFromConfig(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "seed", dir, "--format", "json")
	require.NoError(t, err)
	cfg := filepath.Join(t.TempDir(), "flateplan.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("trace = true\njobs = 8\n"), 0o644))

	_, stderr, err := execute(t, "--config", cfg, "run", dir)
	require.NoError(t, err)
	require.Contains(t, stderr, "deflateParams(&Strm, 6, 3)")
	require.Contains(t, stderr, `"jobs":1`)
}

func TestTrace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.plan.json")
	b, err := plan.MarshalJSON(helloWorld())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))

	out, stderr, err := execute(t, "trace", path)
	require.NoError(t, err)
	require.Equal(t, "ok "+path+"\n", out)
	require.Contains(t, stderr, "deflate(&Strm, 4) = 1;\n")
	require.Contains(t, stderr, "inflate(&Strm, 0) = 1;\n")

	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte{1}, 0o644))
	out, _, err = execute(t, "trace", short)
	require.NoError(t, err)
	require.Contains(t, out, "skipped")
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	src := scenarios()[3].plan
	b, err := plan.Encode(fixed(src))
	require.NoError(t, err)
	path := filepath.Join(dir, "input")
	require.NoError(t, os.WriteFile(path, fuzz.MarshalCorpusFile(b), 0o644))

	out, _, err := execute(t, "plan", path)
	require.NoError(t, err)
	got, err := plan.ParseJSON([]byte(out))
	require.NoError(t, err)
	if diff := cmp.Diff(fixed(src), got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	out, _, err = execute(t, "plan", path, "--format", "msgpack")
	require.NoError(t, err)
	got, err = plan.UnmarshalMsgpack([]byte(out))
	require.NoError(t, err)
	if diff := cmp.Diff(fixed(src), got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other"), b, 0o644))
	_, _, err = execute(t, "plan", dir, "--format", "msgpack")
	require.ErrorContains(t, err, "msgpack output takes one")
	_, _, err = execute(t, "plan", path, "--format", "xml")
	require.Error(t, err)
}

func fixed(p *plan.Plan) *plan.Plan {
	c := p.Clone()
	plan.Fixup(c)
	return c
}

func TestLoadPlan(t *testing.T) {
	_, err := loadPlan(fuzz.Input{Name: "short", Kind: fuzz.KindRaw, Data: []byte{1}})
	require.ErrorIs(t, err, plan.ErrShortInput)

	p, err := loadPlan(fuzz.Input{Name: "x.plan.json", Kind: fuzz.KindPlanJSON, Data: []byte(`{"window_bits": 31, "dict": "abc"}`)})
	require.NoError(t, err)
	require.Equal(t, plan.WindowGzip, p.WindowBits)
	require.Empty(t, p.Dict)
	require.Equal(t, plan.Placeholder, []byte(p.Data))
	require.NoError(t, replay(p, harness.Options{}))
}

func TestLicenseHeaders(t *testing.T) {
	const header = "// Copyright (c) 2026 Klaus Post. All rights reserved.\n" +
		"// Use of this source code is governed by a BSD-style\n" +
		"// license that can be found in the LICENSE file.\n\n"
	root := filepath.Join("..", "..")
	_, err := os.Stat(filepath.Join(root, "LICENSE"))
	require.NoError(t, err)
	n := 0
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.ContainsAny(d.Name()[:1], "_.") || d.Name() == "testdata" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		n++
		if !bytes.HasPrefix(b, []byte(header)) {
			t.Errorf("%s: missing license header", path)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotZero(t, n)
}

func TestPrintSummary(t *testing.T) {
	require.NoError(t, setColor("off"))
	var buf bytes.Buffer
	printSummary(&buf, 3, 1, []finding{{name: "a", err: errors.New("boom")}})
	require.Equal(t, "FAIL a: boom\nFAIL passed 3, skipped 1, findings 1\n", buf.String())
}
