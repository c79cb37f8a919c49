// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotEncodable is returned by Encode for plans outside the range of
// the byte grammar.
var ErrNotEncodable = errors.New("plan: not encodable")

// Encode returns fuzz input that Generate decodes to p.
// It is used to write seed corpora from hand-made plans.
func Encode(p *Plan) ([]byte, error) {
	hdr := make([]byte, 4)
	var err error
	if hdr[0], err = levelChoice(p.Level); err != nil {
		return nil, err
	}
	switch p.WindowBits {
	case WindowRaw:
		hdr[1] = 0
	case WindowZlib:
		hdr[1] = windowRawBelow
	case WindowGzip:
		hdr[1] = windowZlibBelow
	default:
		return nil, fmt.Errorf("%w: window bits %d", ErrNotEncodable, p.WindowBits)
	}
	if !p.MemLevel.Valid() {
		return nil, fmt.Errorf("%w: mem level %d", ErrNotEncodable, p.MemLevel)
	}
	hdr[2] = byte(p.MemLevel - 1)
	if hdr[3], err = strategyChoice(p.Strategy); err != nil {
		return nil, err
	}

	switch {
	case len(p.Dict) > MaxDictLen:
		return nil, fmt.Errorf("%w: dictionary of %d bytes", ErrNotEncodable, len(p.Dict))
	case len(p.Dict) > 0 && p.WindowBits == WindowGzip:
		return nil, fmt.Errorf("%w: dictionary with gzip", ErrNotEncodable)
	case len(p.DeflateOps) > math.MaxUint8 || len(p.InflateOps) > math.MaxUint8:
		return nil, fmt.Errorf("%w: too many ops", ErrNotEncodable)
	case p.TailSize > MaxTailSize:
		return nil, fmt.Errorf("%w: tail size %d", ErrNotEncodable, p.TailSize)
	}

	var ops []byte
	for i, op := range p.DeflateOps {
		if ops, err = appendDeflateOp(ops, op); err != nil {
			return nil, fmt.Errorf("deflate op %d: %w", i, err)
		}
	}
	var inflateOps []byte
	for i, op := range p.InflateOps {
		if op.Inflate == nil || op.Inflate.Flush != NoFlush {
			return nil, fmt.Errorf("inflate op %d: %w", i, ErrNotEncodable)
		}
		if inflateOps, err = appendAvail(inflateOps, op.Inflate.Avail); err != nil {
			return nil, fmt.Errorf("inflate op %d: %w", i, err)
		}
	}

	size := len(hdr) + 1 + len(ops) + 1 + len(inflateOps) + 1 + len(p.Data)
	if p.WindowBits != WindowGzip {
		size += 1 + len(p.Dict)
	}
	b := make([]byte, 0, size)
	b = append(b, hdr...)
	if p.WindowBits != WindowGzip {
		b = append(b, byte(len(p.Dict)))
		if len(p.Dict) > (size-len(b))/4 {
			return nil, fmt.Errorf("%w: dictionary longer than a quarter of the remaining input", ErrNotEncodable)
		}
		b = append(b, p.Dict...)
	}
	b = append(b, byte(len(p.DeflateOps)))
	maxDeflateOps := (size - len(b)) / 2
	if len(p.DeflateOps) > maxDeflateOps {
		return nil, fmt.Errorf("%w: %d deflate ops, input carries %d", ErrNotEncodable, len(p.DeflateOps), maxDeflateOps)
	}
	b = append(b, ops...)
	b = append(b, byte(len(p.InflateOps)))
	if len(p.InflateOps) > 2*maxDeflateOps {
		return nil, fmt.Errorf("%w: %d inflate ops, input carries %d", ErrNotEncodable, len(p.InflateOps), 2*maxDeflateOps)
	}
	b = append(b, inflateOps...)
	b = append(b, byte(p.TailSize))
	return append(b, p.Data...), nil
}

func levelChoice(l Level) (byte, error) {
	if !l.Valid() {
		return 0, fmt.Errorf("%w: level %d", ErrNotEncodable, l)
	}
	return byte(l + 1), nil
}

func strategyChoice(s Strategy) (byte, error) {
	switch s {
	case Filtered:
		return 0, nil
	case HuffmanOnly:
		return strategyFilteredBelow, nil
	case RLE:
		return strategyHuffmanBelow, nil
	case Fixed:
		return strategyRLEBelow, nil
	case DefaultStrategy:
		return strategyFixedBelow, nil
	}
	return 0, fmt.Errorf("%w: strategy %d", ErrNotEncodable, s)
}

func appendAvail(b []byte, a Avail) ([]byte, error) {
	if a.In == 0 || a.In > 256 || a.Out == 0 || a.Out > 256 {
		return nil, fmt.Errorf("%w: avail %d/%d outside 1..256", ErrNotEncodable, a.In, a.Out)
	}
	return append(b, byte(a.In-1), byte(a.Out-1)), nil
}

func appendDeflateOp(b []byte, op DeflateOp) ([]byte, error) {
	var err error
	switch op.Kind() {
	case KindDeflate:
		if b, err = appendAvail(b, op.Deflate.Avail); err != nil {
			return nil, err
		}
		var flush byte
		switch op.Deflate.Flush {
		case PartialFlush:
			flush = 0
		case SyncFlush:
			flush = flushPartialBelow
		case FullFlush:
			flush = flushSyncBelow
		case Block:
			flush = flushFullBelow
		case NoFlush:
			flush = flushBlockBelow
		default:
			return nil, fmt.Errorf("%w: flush %d", ErrNotEncodable, op.Deflate.Flush)
		}
		return append(b, paramsKindBelow, flush), nil
	case KindDeflateParams:
		if b, err = appendAvail(b, op.DeflateParams.Avail); err != nil {
			return nil, err
		}
		level, err := levelChoice(op.DeflateParams.Level)
		if err != nil {
			return nil, err
		}
		strategy, err := strategyChoice(op.DeflateParams.Strategy)
		if err != nil {
			return nil, err
		}
		return append(b, 0, level, strategy), nil
	}
	return nil, fmt.Errorf("%w: op without variant", ErrNotEncodable)
}
