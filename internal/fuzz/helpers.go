// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fuzz reads and writes fuzz corpora: raw inputs, Go fuzz
// corpus files and zip archives of either.
package fuzz

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// corpusHeader starts every Go fuzz corpus file.
const corpusHeader = "go test fuzz v1"

// Kind is the format of a corpus input.
type Kind uint8

const (
	// KindRaw is fuzz bytes for the plan grammar.
	KindRaw Kind = iota
	// KindPlanJSON is a plan written as JSON with comments.
	KindPlanJSON
	// KindPlanMsgpack is a msgpack encoded plan.
	KindPlanMsgpack
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindPlanJSON:
		return "plan-json"
	case KindPlanMsgpack:
		return "plan-msgpack"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Plan file name suffixes.
const (
	SuffixPlanJSON    = ".plan.json"
	SuffixPlanMsgpack = ".plan.msgpack"
)

// KindOf returns the kind of input stored under name.
func KindOf(name string) Kind {
	switch {
	case strings.HasSuffix(name, SuffixPlanJSON):
		return KindPlanJSON
	case strings.HasSuffix(name, SuffixPlanMsgpack):
		return KindPlanMsgpack
	}
	return KindRaw
}

// Input is one corpus entry.
type Input struct {
	// Name is the file path, with the entry name appended for archives
	// and the value index for corpus files holding several values.
	Name string
	Kind Kind
	Data []byte
}

// AddFromZip will read the supplied zip and add all as corpus for f.
func AddFromZip(f *testing.F, filename string, raw, short bool) {
	file, err := os.Open(filename)
	if err != nil {
		f.Fatal(err)
	}
	defer file.Close()
	fi, err := file.Stat()
	if err != nil {
		f.Fatal(err)
	}
	i := 0
	err = ReadZip(file, fi.Size(), func(name string, b []byte) error {
		i++
		if short && (i-1)%10 != 0 {
			return nil
		}
		vals, err := Decode(b, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, v := range vals {
			f.Add(v)
		}
		return nil
	})
	if err != nil {
		f.Fatal(err)
	}
}

// ReadZip calls fn with every file in the archive.
func ReadZip(r io.ReaderAt, size int64, fn func(name string, b []byte) error) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return err
	}
	for _, file := range zr.File {
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		if err := fn(file.Name, b); err != nil {
			return err
		}
	}
	return nil
}

// Decode returns the values held by a corpus file.
// Go fuzz corpus files are always decoded, other content is returned
// as is when raw is set.
func Decode(b []byte, raw bool) ([][]byte, error) {
	if bytes.HasPrefix(b, []byte(corpusHeader)) {
		raw = false
	}
	if raw {
		return [][]byte{b}, nil
	}
	return unmarshalCorpusFile(b)
}

// Collect reads all inputs below paths. Directories are walked, zip
// archives expanded and Go fuzz corpus files decoded.
func Collect(paths []string) ([]Input, error) {
	var res []Input
	add := func(name string, b []byte) error {
		kind := KindOf(name)
		if kind != KindRaw {
			res = append(res, Input{Name: name, Kind: kind, Data: b})
			return nil
		}
		vals, err := Decode(b, true)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for i, v := range vals {
			n := name
			if len(vals) > 1 {
				n += "#" + strconv.Itoa(i)
			}
			res = append(res, Input{Name: n, Kind: KindRaw, Data: v})
		}
		return nil
	}
	addFile := func(path string) error {
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			fi, err := f.Stat()
			if err != nil {
				return err
			}
			return ReadZip(f, fi.Size(), func(name string, b []byte) error {
				return add(path+"/"+name, b)
			})
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return add(path, b)
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			return addFile(path)
		})
		if err != nil {
			return nil, err
		}
	}
	if len(res) == 0 {
		return nil, errors.New("fuzz: no inputs found")
	}
	return res, nil
}

// MarshalCorpusFile encodes vals as a Go fuzz corpus file for a fuzz
// target taking a single []byte.
func MarshalCorpusFile(vals ...[]byte) []byte {
	b := bytes.NewBufferString(corpusHeader + "\n")
	for _, v := range vals {
		fmt.Fprintf(b, "[]byte(%s)\n", strconv.Quote(string(v)))
	}
	return b.Bytes()
}

// unmarshalCorpusFile decodes corpus bytes into their respective values.
func unmarshalCorpusFile(b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty string")
	}
	lines := bytes.Split(b, []byte("\n"))
	if len(lines) < 2 {
		return nil, fmt.Errorf("must include version and at least one value")
	}
	var vals = make([][]byte, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		v, err := parseCorpusValue(line)
		if err != nil {
			return nil, fmt.Errorf("malformed line %q: %v", line, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// parseCorpusValue decodes a single []byte("...") line.
func parseCorpusValue(line []byte) ([]byte, error) {
	fset := token.NewFileSet()
	expr, err := parser.ParseExprFrom(fset, "(test)", line, 0)
	if err != nil {
		return nil, err
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return nil, fmt.Errorf("expected call expression")
	}
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("expected call expression with 1 argument; got %d", len(call.Args))
	}
	arg := call.Args[0]

	if arrayType, ok := call.Fun.(*ast.ArrayType); ok {
		if arrayType.Len != nil {
			return nil, fmt.Errorf("expected []byte or primitive type")
		}
		elt, ok := arrayType.Elt.(*ast.Ident)
		if !ok || elt.Name != "byte" {
			return nil, fmt.Errorf("expected []byte")
		}
		lit, ok := arg.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return nil, fmt.Errorf("string literal required for type []byte")
		}
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	return nil, fmt.Errorf("expected []byte")
}
