// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package plan describes a single compression round trip scenario:
// the codec configuration, a preset dictionary, the sequence of
// compression and decompression calls to replay and the payload.
//
// Plans are produced from fuzz bytes by Generate, or supplied
// directly and made replayable by Fixup. Capacity requests are made
// consistent with real buffer sizes by NormalizeDeflateOps and
// NormalizeInflateOps.
package plan

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Level is a compression level, -1 (default) to 9.
type Level int32

const (
	NoCompression      Level = 0
	BestSpeed          Level = 1
	BestCompression    Level = 9
	DefaultCompression Level = -1
)

// Valid reports whether l is a usable compression level.
func (l Level) Valid() bool {
	return l >= DefaultCompression && l <= BestCompression
}

// WindowBits selects the container format.
type WindowBits int32

const (
	// WindowDefault is resolved to WindowZlib by Fixup.
	WindowDefault WindowBits = 0
	WindowRaw     WindowBits = -15
	WindowZlib    WindowBits = 15
	WindowGzip    WindowBits = 31
)

// Valid reports whether w is one of the concrete containers.
func (w WindowBits) Valid() bool {
	return w == WindowRaw || w == WindowZlib || w == WindowGzip
}

func (w WindowBits) String() string {
	switch w {
	case WindowDefault:
		return "WB_DEFAULT"
	case WindowRaw:
		return "WB_RAW"
	case WindowZlib:
		return "WB_ZLIB"
	case WindowGzip:
		return "WB_GZIP"
	}
	return fmt.Sprintf("WindowBits(%d)", int32(w))
}

// MemLevel trades encoder memory for speed, 1 to 9.
type MemLevel int32

const (
	// MemLevelDefault is resolved to MemLevel8 by Fixup.
	MemLevelDefault MemLevel = 0
	MemLevel8       MemLevel = 8
	MemLevelMax     MemLevel = 9
)

// Valid reports whether m is a concrete memory level.
func (m MemLevel) Valid() bool {
	return m >= 1 && m <= MemLevelMax
}

// Strategy tunes the match finder.
type Strategy int32

const (
	DefaultStrategy Strategy = 0
	Filtered        Strategy = 1
	HuffmanOnly     Strategy = 2
	RLE             Strategy = 3
	Fixed           Strategy = 4
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s >= DefaultStrategy && s <= Fixed
}

// Flush is the flush mode of a single call.
type Flush int32

const (
	NoFlush      Flush = 0
	PartialFlush Flush = 1
	SyncFlush    Flush = 2
	FullFlush    Flush = 3
	Finish       Flush = 4
	Block        Flush = 5
	Trees        Flush = 6
)

// Limits of plan fields.
const (
	// MaxDictLen is the largest dictionary a plan carries.
	MaxDictLen = 127
	// MaxTailSize is the largest extra output capacity.
	MaxTailSize = 0xff
)

// Placeholder replaces an empty payload.
var Placeholder = []byte("!")

// Plan is one round trip scenario.
type Plan struct {
	Level      Level       `msgpack:"level" json:"level"`
	WindowBits WindowBits  `msgpack:"window_bits" json:"window_bits"`
	MemLevel   MemLevel    `msgpack:"mem_level" json:"mem_level"`
	Strategy   Strategy    `msgpack:"strategy" json:"strategy"`
	Dict       Bytes       `msgpack:"dict,omitempty" json:"dict,omitempty"`
	DeflateOps []DeflateOp `msgpack:"deflate_ops,omitempty" json:"deflate_ops,omitempty"`
	InflateOps []InflateOp `msgpack:"inflate_ops,omitempty" json:"inflate_ops,omitempty"`
	TailSize   uint32      `msgpack:"tail_size" json:"tail_size"`
	Data       Bytes       `msgpack:"data" json:"data"`
}

// Clone returns a deep copy of p.
func (p *Plan) Clone() *Plan {
	c := *p
	c.Dict = bytes.Clone(p.Dict)
	c.Data = bytes.Clone(p.Data)
	if p.DeflateOps != nil {
		c.DeflateOps = make([]DeflateOp, len(p.DeflateOps))
		for i, op := range p.DeflateOps {
			c.DeflateOps[i] = op.clone()
		}
	}
	if p.InflateOps != nil {
		c.InflateOps = make([]InflateOp, len(p.InflateOps))
		for i, op := range p.InflateOps {
			c.InflateOps[i] = op.clone()
		}
	}
	return &c
}

// Avail is the capacity a call asks for on each side of the stream.
type Avail struct {
	In  uint32 `msgpack:"avail_in" json:"avail_in"`
	Out uint32 `msgpack:"avail_out" json:"avail_out"`
}

// Deflate is one compression call.
type Deflate struct {
	Avail `msgpack:",inline"`
	Flush Flush `msgpack:"flush" json:"flush"`
}

// DeflateParams is one call changing level and strategy mid stream.
type DeflateParams struct {
	Avail    `msgpack:",inline"`
	Level    Level    `msgpack:"level" json:"level"`
	Strategy Strategy `msgpack:"strategy" json:"strategy"`
}

// Inflate is one decompression call.
type Inflate struct {
	Avail `msgpack:",inline"`
	Flush Flush `msgpack:"flush" json:"flush"`
}

// OpKind identifies the variant held by an operation.
type OpKind uint8

const (
	KindNone OpKind = iota
	KindDeflate
	KindDeflateParams
	KindInflate
)

func (k OpKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDeflate:
		return "deflate"
	case KindDeflateParams:
		return "deflate_params"
	case KindInflate:
		return "inflate"
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// DeflateOp holds one of Deflate or DeflateParams.
// An op with neither set is dropped by Fixup.
type DeflateOp struct {
	Deflate       *Deflate       `msgpack:"deflate,omitempty" json:"deflate,omitempty"`
	DeflateParams *DeflateParams `msgpack:"deflate_params,omitempty" json:"deflate_params,omitempty"`
}

// NewDeflate returns a compression call op.
func NewDeflate(in, out uint32, flush Flush) DeflateOp {
	return DeflateOp{Deflate: &Deflate{Avail: Avail{In: in, Out: out}, Flush: flush}}
}

// NewDeflateParams returns a parameter change op.
func NewDeflateParams(in, out uint32, level Level, strategy Strategy) DeflateOp {
	return DeflateOp{DeflateParams: &DeflateParams{Avail: Avail{In: in, Out: out}, Level: level, Strategy: strategy}}
}

// Kind returns the active variant. Deflate wins if both are set.
func (op DeflateOp) Kind() OpKind {
	switch {
	case op.Deflate != nil:
		return KindDeflate
	case op.DeflateParams != nil:
		return KindDeflateParams
	}
	return KindNone
}

// Avail returns the capacity request of the active variant.
func (op DeflateOp) Avail() (Avail, bool) {
	if a := op.MutableAvail(); a != nil {
		return *a, true
	}
	return Avail{}, false
}

// MutableAvail returns the capacity request of the active variant for
// update, or nil if no variant is set.
func (op *DeflateOp) MutableAvail() *Avail {
	switch op.Kind() {
	case KindDeflate:
		return &op.Deflate.Avail
	case KindDeflateParams:
		return &op.DeflateParams.Avail
	}
	return nil
}

func (op DeflateOp) clone() DeflateOp {
	if op.Deflate != nil {
		d := *op.Deflate
		op.Deflate = &d
	}
	if op.DeflateParams != nil {
		d := *op.DeflateParams
		op.DeflateParams = &d
	}
	return op
}

// InflateOp holds an Inflate call.
// An op without it is dropped by Fixup.
type InflateOp struct {
	Inflate *Inflate `msgpack:"inflate,omitempty" json:"inflate,omitempty"`
}

// NewInflate returns a decompression call op.
func NewInflate(in, out uint32) InflateOp {
	return InflateOp{Inflate: &Inflate{Avail: Avail{In: in, Out: out}, Flush: NoFlush}}
}

// Kind returns the active variant.
func (op InflateOp) Kind() OpKind {
	if op.Inflate != nil {
		return KindInflate
	}
	return KindNone
}

// Avail returns the capacity request of the active variant.
func (op InflateOp) Avail() (Avail, bool) {
	if op.Inflate == nil {
		return Avail{}, false
	}
	return op.Inflate.Avail, true
}

// MutableAvail returns the capacity request for update, or nil if unset.
func (op *InflateOp) MutableAvail() *Avail {
	if op.Inflate == nil {
		return nil
	}
	return &op.Inflate.Avail
}

func (op InflateOp) clone() InflateOp {
	if op.Inflate != nil {
		i := *op.Inflate
		op.Inflate = &i
	}
	return op
}

// Bytes is a byte string that reads well in JSON plans.
// Valid UTF-8 is written as a plain string, anything else as
// "base64:" followed by standard base64.
type Bytes []byte

const base64Prefix = "base64:"

// MarshalJSON implements json.Marshaler.
func (b Bytes) MarshalJSON() ([]byte, error) {
	s := string(b)
	if !utf8.ValidString(s) || strings.HasPrefix(s, base64Prefix) {
		s = base64Prefix + base64.StdEncoding.EncodeToString(b)
	}
	return json.Marshal(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if enc, ok := strings.CutPrefix(s, base64Prefix); ok {
		dec, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return fmt.Errorf("plan: invalid base64 bytes: %w", err)
		}
		*b = dec
		return nil
	}
	*b = []byte(s)
	return nil
}
