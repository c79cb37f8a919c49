// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"fortio.org/safecast"

	"github.com/klauspost/flateplan/plan"
	"github.com/klauspost/flateplan/zstream"
)

// Per op slack of the compressed buffer, covering flush markers,
// container headers and trailers.
const compressSlack = 128

// engine owns the stream for one plan.
type engine struct {
	p *plan.Plan
	s zstream.Stream
	t tracer
}

func size32(what string, n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		violate("size", "%s of %d bytes: %v", what, n, err)
	}
	return v
}

// compress runs the compression phase and returns the compressed stream.
func (e *engine) compress() []byte {
	p := e.p
	capacity := 2*len(p.Data) + compressSlack*(len(p.DeflateOps)+1)
	inLen := size32("input", len(p.Data))
	outLen := size32("compressed buffer", capacity)
	plan.NormalizeDeflateOps(p.DeflateOps, inLen, outLen)
	e.t.printf("n_deflate_ops = %d;\n", len(p.DeflateOps))

	st := e.s.DeflateInit2(int(p.Level), zstream.Deflated, int(p.WindowBits), int(p.MemLevel), zstream.Strategy(p.Strategy))
	e.t.printf("deflateInit2(&Strm, %d, Z_DEFLATED, %d, %d, %d) = %d;\n",
		p.Level, p.WindowBits, p.MemLevel, p.Strategy, st)
	expectStatus(&e.s, "deflateInit2", st, zstream.OK)
	if len(p.Dict) > 0 {
		st = e.deflateSetDictionary(p.Dict)
		expectStatus(&e.s, "deflateSetDictionary", st, zstream.OK)
	}

	out := make([]byte, capacity)
	e.s.NextIn, e.s.AvailIn = p.Data, inLen
	e.s.NextOut, e.s.AvailOut = out, outLen
	e.t.buffers(p.Data, capacity)
	for _, op := range p.DeflateOps {
		e.runDeflateOp(op)
	}
	st = e.deflate(zstream.Finish)
	verifyCompressed(&e.s, st, outLen)
	actual := outLen - e.s.AvailOut
	e.t.printf("total_out = %d;\n", actual)
	expectStatus(&e.s, "deflateEnd", e.s.DeflateEnd(), zstream.OK)
	return out[:actual]
}

// decompress runs the decompression phase over compressed.
func (e *engine) decompress(compressed []byte) {
	p := e.p
	inLen := size32("compressed input", len(compressed))
	dataLen := size32("input", len(p.Data))
	plan.NormalizeInflateOps(p.InflateOps, inLen, dataLen)
	e.t.printf("n_inflate_ops = %d;\n", len(p.InflateOps))

	st := e.s.InflateInit2(int(p.WindowBits))
	e.t.printf("inflateInit2(&Strm, %d) = %d;\n", p.WindowBits, st)
	expectStatus(&e.s, "inflateInit2", st, zstream.OK)
	if len(p.Dict) > 0 && p.WindowBits == plan.WindowRaw {
		st = e.inflateSetDictionary(p.Dict)
		expectStatus(&e.s, "inflateSetDictionary", st, zstream.OK)
	}

	outLen := dataLen + p.TailSize
	out := make([]byte, outLen)
	e.s.NextIn, e.s.AvailIn = compressed, inLen
	e.s.NextOut, e.s.AvailOut = out, outLen
	st = zstream.OK
	for _, op := range p.InflateOps {
		if st = e.runInflateOp(op); st == zstream.NeedDict {
			st = e.supplyDictionary()
		}
	}
	if st != zstream.StreamEnd {
		if st = e.inflate(zstream.NoFlush); st == zstream.NeedDict {
			e.supplyDictionary()
			st = e.inflate(zstream.NoFlush)
		}
	}
	verifyDecompressed(&e.s, st, p.TailSize, out[:len(p.Data)], p.Data)
	expectStatus(&e.s, "inflateEnd", e.s.InflateEnd(), zstream.OK)
}

// supplyDictionary answers a dictionary request of the decoder.
func (e *engine) supplyDictionary() zstream.Status {
	if len(e.p.Dict) == 0 || e.p.WindowBits != plan.WindowZlib {
		violate("dictionary", "decoder asked for a dictionary, plan has %d bytes with %v", len(e.p.Dict), e.p.WindowBits)
	}
	st := e.inflateSetDictionary(e.p.Dict)
	expectStatus(&e.s, "inflateSetDictionary", st, zstream.OK)
	return st
}

func (e *engine) runDeflateOp(op plan.DeflateOp) zstream.Status {
	a, ok := op.Avail()
	if !ok {
		violate("op", "deflate op without variant")
	}
	g := exposeAvail(&e.s, a)
	defer g.release()

	var st zstream.Status
	switch op.Kind() {
	case plan.KindDeflate:
		st = e.deflate(zstream.Flush(op.Deflate.Flush))
		expectStatus(&e.s, "deflate", st, deflateAllowed...)
	case plan.KindDeflateParams:
		st = e.deflateParams(int(op.DeflateParams.Level), zstream.Strategy(op.DeflateParams.Strategy))
		expectStatus(&e.s, "deflateParams", st, deflateParamsAllowed...)
	}
	return st
}

func (e *engine) runInflateOp(op plan.InflateOp) zstream.Status {
	a, ok := op.Avail()
	if !ok {
		violate("op", "inflate op without variant")
	}
	g := exposeAvail(&e.s, a)
	defer g.release()

	st := e.inflate(zstream.Flush(op.Inflate.Flush))
	expectStatus(&e.s, "inflate", st, inflateAllowed...)
	return st
}

// The call wrappers write the call before making it and the result
// after, so a trace of a crashing run ends on the failing call.

func (e *engine) deflateSetDictionary(dict []byte) zstream.Status {
	e.t.printf("deflateSetDictionary(&Strm, \"%s\", %d) = ", e.t.hex(dict), len(dict))
	st := e.s.DeflateSetDictionary(dict)
	e.t.printf("%d;\n", st)
	return st
}

func (e *engine) deflate(flush zstream.Flush) zstream.Status {
	e.t.printf("avail_in = %d; avail_out = %d; deflate(&Strm, %d) = ", e.s.AvailIn, e.s.AvailOut, flush)
	st := e.s.Deflate(flush)
	e.t.printf("%d;\n", st)
	return st
}

func (e *engine) deflateParams(level int, strategy zstream.Strategy) zstream.Status {
	e.t.printf("avail_in = %d; avail_out = %d; deflateParams(&Strm, %d, %d) = ", e.s.AvailIn, e.s.AvailOut, level, strategy)
	st := e.s.DeflateParams(level, strategy)
	e.t.printf("%d;\n", st)
	return st
}

func (e *engine) inflateSetDictionary(dict []byte) zstream.Status {
	e.t.printf("inflateSetDictionary(&Strm, \"%s\", %d) = ", e.t.hex(dict), len(dict))
	st := e.s.InflateSetDictionary(dict)
	e.t.printf("%d;\n", st)
	return st
}

func (e *engine) inflate(flush zstream.Flush) zstream.Status {
	e.t.printf("avail_in = %d; avail_out = %d; inflate(&Strm, %d) = ", e.s.AvailIn, e.s.AvailOut, flush)
	st := e.s.Inflate(flush)
	e.t.printf("%d;\n", st)
	return st
}
