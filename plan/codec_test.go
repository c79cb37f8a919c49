// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMsgpack(t *testing.T) {
	p := helloPlan()
	p.Dict = Bytes{0, 0xff, 'h'}
	p.DeflateOps = []DeflateOp{NewDeflate(3, 4, SyncFlush), NewDeflateParams(5, 6, 9, HuffmanOnly)}
	p.InflateOps = []InflateOp{NewInflate(7, 8)}
	p.TailSize = 12

	b, err := MarshalMsgpack(p)
	require.NoError(t, err)
	got, err := UnmarshalMsgpack(b)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got, equateEmpty); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}

	_, err = UnmarshalMsgpack([]byte{0xc1})
	require.Error(t, err)
}

func TestParseJSON(t *testing.T) {
	src := `{
	// zlib with a preset dictionary
	"level": 6,
	"window_bits": 15,
	"mem_level": 8,
	"strategy": 0,
	"dict": "hello",
	"deflate_ops": [
		{"deflate": {"avail_in": 1, "avail_out": 1, "flush": 0}},
		{"deflate_params": {"avail_in": 2, "avail_out": 3, "level": 1, "strategy": 3}},
	],
	"inflate_ops": [
		{"inflate": {"avail_in": 1, "avail_out": 200, "flush": 0}}, // triggers the dictionary request
	],
	"tail_size": 4,
	"data": "base64:aGVsbG8gd29ybGQ=",
}`
	got, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	want := helloPlan()
	want.Dict = Bytes("hello")
	want.DeflateOps = []DeflateOp{NewDeflate(1, 1, NoFlush), NewDeflateParams(2, 3, BestSpeed, RLE)}
	want.InflateOps = []InflateOp{NewInflate(1, 200)}
	want.TailSize = 4
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}

	_, err = ParseJSON([]byte(`{"levels": 1}`))
	require.Error(t, err)
	_, err = ParseJSON([]byte(`{"data": "base64:!!"}`))
	require.Error(t, err)
}

func TestMarshalJSON(t *testing.T) {
	p := helloPlan()
	p.Dict = Bytes{0xff, 0xfe}
	b, err := MarshalJSON(p)
	require.NoError(t, err)
	require.Contains(t, string(b), `"dict": "base64://4="`)
	require.Contains(t, string(b), `"data": "hello world"`)

	got, err := ParseJSON(b)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
}

func TestBytesPrefixCollision(t *testing.T) {
	b, err := Bytes("base64:x").MarshalJSON()
	require.NoError(t, err)
	var got Bytes
	require.NoError(t, got.UnmarshalJSON(b))
	require.Equal(t, Bytes("base64:x"), got)
}
