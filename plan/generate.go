// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

import "errors"

// ErrShortInput is returned by Generate when the input ends before the
// plan is complete. It is not a failure of the system under test.
var ErrShortInput = errors.New("plan: input too short")

// Choice bands of the byte grammar.
const (
	levelOverride = 128 // level bytes at or above map to BestSpeed

	windowRawBelow  = 85
	windowZlibBelow = 170

	strategyFilteredBelow = 43
	strategyHuffmanBelow  = 86
	strategyRLEBelow      = 128
	strategyFixedBelow    = 196

	paramsKindBelow = 32

	flushPartialBelow = 32
	flushSyncBelow    = 64
	flushFullBelow    = 96
	flushBlockBelow   = 128
)

func chooseLevel(c byte) Level {
	if c < levelOverride {
		return Level(c%11) - 1
	}
	return BestSpeed
}

func chooseWindowBits(c byte) WindowBits {
	switch {
	case c < windowRawBelow:
		return WindowRaw
	case c < windowZlibBelow:
		return WindowZlib
	}
	return WindowGzip
}

func chooseMemLevel(c byte) MemLevel {
	return MemLevel(c%9) + 1
}

func chooseStrategy(c byte) Strategy {
	switch {
	case c < strategyFilteredBelow:
		return Filtered
	case c < strategyHuffmanBelow:
		return HuffmanOnly
	case c < strategyRLEBelow:
		return RLE
	case c < strategyFixedBelow:
		return Fixed
	}
	return DefaultStrategy
}

func chooseDeflateFlush(c byte) Flush {
	switch {
	case c < flushPartialBelow:
		return PartialFlush
	case c < flushSyncBelow:
		return SyncFlush
	case c < flushFullBelow:
		return FullFlush
	case c < flushBlockBelow:
		return Block
	}
	return NoFlush
}

// cursor consumes bytes from the front of the input.
type cursor struct {
	b []byte
}

func (c *cursor) pop() (byte, error) {
	if len(c.b) == 0 {
		return 0, ErrShortInput
	}
	v := c.b[0]
	c.b = c.b[1:]
	return v, nil
}

// take returns the next n bytes. n must not exceed what remains.
func (c *cursor) take(n int) []byte {
	v := c.b[:n:n]
	c.b = c.b[n:]
	return v
}

func (c *cursor) remaining() int {
	return len(c.b)
}

// popAvail reads a capacity request. Each side is a byte plus one, so
// requests are never zero.
func (c *cursor) popAvail() (Avail, error) {
	in, err := c.pop()
	if err != nil {
		return Avail{}, err
	}
	out, err := c.pop()
	if err != nil {
		return Avail{}, err
	}
	return Avail{In: uint32(in) + 1, Out: uint32(out) + 1}, nil
}

// Generate decodes a plan from fuzz input.
//
// The header bytes select level, container, memory level and strategy.
// A dictionary follows for non-gzip containers, then the compression
// and decompression ops, the tail size and finally the payload, which
// is everything left. Requested counts are clamped to what the
// remaining input can carry. The returned plan references data.
func Generate(data []byte) (*Plan, error) {
	c := cursor{b: data}
	var p Plan

	b, err := c.pop()
	if err != nil {
		return nil, err
	}
	p.Level = chooseLevel(b)
	if b, err = c.pop(); err != nil {
		return nil, err
	}
	p.WindowBits = chooseWindowBits(b)
	if b, err = c.pop(); err != nil {
		return nil, err
	}
	p.MemLevel = chooseMemLevel(b)
	if b, err = c.pop(); err != nil {
		return nil, err
	}
	p.Strategy = chooseStrategy(b)

	if p.WindowBits != WindowGzip {
		if b, err = c.pop(); err != nil {
			return nil, err
		}
		if n := int(b); n > 0 && n <= MaxDictLen {
			if n = min(n, c.remaining()/4); n > 0 {
				p.Dict = c.take(n)
			}
		}
	}

	if b, err = c.pop(); err != nil {
		return nil, err
	}
	// Every op needs at least two bytes.
	maxDeflateOps := c.remaining() / 2
	n := min(int(b), maxDeflateOps)
	if n > 0 {
		p.DeflateOps = make([]DeflateOp, 0, n)
	}
	for range n {
		op, err := c.popDeflateOp()
		if err != nil {
			return nil, err
		}
		p.DeflateOps = append(p.DeflateOps, op)
	}

	if b, err = c.pop(); err != nil {
		return nil, err
	}
	n = min(int(b), 2*maxDeflateOps)
	if n > 0 {
		p.InflateOps = make([]InflateOp, 0, n)
	}
	for range n {
		a, err := c.popAvail()
		if err != nil {
			return nil, err
		}
		p.InflateOps = append(p.InflateOps, NewInflate(a.In, a.Out))
	}

	if b, err = c.pop(); err != nil {
		return nil, err
	}
	p.TailSize = uint32(b)
	p.Data = c.take(c.remaining())
	return &p, nil
}

func (c *cursor) popDeflateOp() (DeflateOp, error) {
	a, err := c.popAvail()
	if err != nil {
		return DeflateOp{}, err
	}
	kind, err := c.pop()
	if err != nil {
		return DeflateOp{}, err
	}
	if kind < paramsKindBelow {
		level, err := c.pop()
		if err != nil {
			return DeflateOp{}, err
		}
		strategy, err := c.pop()
		if err != nil {
			return DeflateOp{}, err
		}
		return NewDeflateParams(a.In, a.Out, chooseLevel(level), chooseStrategy(strategy)), nil
	}
	flush, err := c.pop()
	if err != nil {
		return DeflateOp{}, err
	}
	return NewDeflate(a.In, a.Out, chooseDeflateFlush(flush)), nil
}
