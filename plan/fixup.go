// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

import "bytes"

// Fixup makes p replayable. It is idempotent.
//
// Empty data is replaced by Placeholder, default sentinels and out of
// range values are resolved, ops without a variant are dropped and
// flush modes the engine issues itself are downgraded to NoFlush.
func Fixup(p *Plan) {
	if len(p.Data) == 0 {
		p.Data = bytes.Clone(Placeholder)
	}
	if !p.Level.Valid() {
		p.Level = DefaultCompression
	}
	if !p.WindowBits.Valid() {
		p.WindowBits = WindowZlib
	}
	if !p.MemLevel.Valid() {
		p.MemLevel = MemLevel8
	}
	if !p.Strategy.Valid() {
		p.Strategy = DefaultStrategy
	}

	switch {
	case p.WindowBits == WindowGzip:
		p.Dict = nil
	case len(p.Dict) > MaxDictLen:
		p.Dict = p.Dict[:MaxDictLen]
	}
	p.TailSize &= MaxTailSize

	ops := p.DeflateOps[:0]
	for _, op := range p.DeflateOps {
		switch op.Kind() {
		case KindDeflate:
			op.DeflateParams = nil
			switch op.Deflate.Flush {
			case NoFlush, PartialFlush, SyncFlush, FullFlush, Block:
			default:
				op.Deflate.Flush = NoFlush
			}
		case KindDeflateParams:
			if !op.DeflateParams.Level.Valid() {
				op.DeflateParams.Level = DefaultCompression
			}
			if !op.DeflateParams.Strategy.Valid() {
				op.DeflateParams.Strategy = DefaultStrategy
			}
		default:
			continue
		}
		ops = append(ops, op)
	}
	clear(p.DeflateOps[len(ops):])
	p.DeflateOps = ops

	inflateOps := p.InflateOps[:0]
	for _, op := range p.InflateOps {
		if op.Kind() != KindInflate {
			continue
		}
		op.Inflate.Flush = NoFlush
		inflateOps = append(inflateOps, op)
	}
	clear(p.InflateOps[len(inflateOps):])
	p.InflateOps = inflateOps
}
