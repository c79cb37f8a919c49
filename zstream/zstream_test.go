// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zstream

import (
	"bytes"
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

var testInput = []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200))

// shortInput keeps byte-at-a-time tests fast.
var shortInput = testInput[:1000]

// deflateChunked compresses in with inChunk/outChunk sized windows,
// issuing flush on every call and Finish at the end.
func deflateChunked(t *testing.T, in []byte, windowBits, level int, strategy Strategy, dict []byte, inChunk, outChunk int, flush Flush) []byte {
	t.Helper()
	var s Stream
	require.Equal(t, OK, s.DeflateInit2(level, Deflated, windowBits, DefaultMemLevel, strategy))
	if len(dict) > 0 {
		require.Equal(t, OK, s.DeflateSetDictionary(dict))
	}
	out := make([]byte, len(in)*8+1024)
	s.NextIn = in
	s.NextOut = out
	remIn, remOut := uint32(len(in)), uint32(len(out))
	call := func(f Flush) Status {
		s.AvailIn = min(remIn, uint32(inChunk))
		s.AvailOut = min(remOut, uint32(outChunk))
		exposedIn, exposedOut := s.AvailIn, s.AvailOut
		st := s.Deflate(f)
		remIn -= exposedIn - s.AvailIn
		remOut -= exposedOut - s.AvailOut
		return st
	}
	for remIn > 0 {
		st := call(flush)
		require.Contains(t, []Status{OK, BufError}, st)
	}
	for i := 0; ; i++ {
		st := call(Finish)
		if st == StreamEnd {
			break
		}
		require.Contains(t, []Status{OK, BufError}, st)
		require.Less(t, i, 1<<20, "finish did not complete")
	}
	n := len(out) - int(remOut)
	require.EqualValues(t, n, s.TotalOut)
	require.EqualValues(t, len(in), s.TotalIn)
	require.Equal(t, OK, s.DeflateEnd())
	return out[:n]
}

// inflateChunked decompresses in with the given window sizes.
func inflateChunked(t *testing.T, in []byte, windowBits int, dict []byte, size, inChunk, outChunk int) []byte {
	t.Helper()
	var s Stream
	require.Equal(t, OK, s.InflateInit2(windowBits))
	if len(dict) > 0 && windowBits < 0 {
		require.Equal(t, OK, s.InflateSetDictionary(dict))
	}
	out := make([]byte, size)
	s.NextIn = in
	s.NextOut = out
	remIn, remOut := uint32(len(in)), uint32(len(out))
	for i := 0; ; i++ {
		require.Less(t, i, 1<<20, "inflate did not complete")
		s.AvailIn = min(remIn, uint32(inChunk))
		s.AvailOut = min(remOut, uint32(outChunk))
		exposedIn, exposedOut := s.AvailIn, s.AvailOut
		st := s.Inflate(NoFlush)
		remIn -= exposedIn - s.AvailIn
		remOut -= exposedOut - s.AvailOut
		if st == NeedDict {
			require.Equal(t, OK, s.InflateSetDictionary(dict))
			continue
		}
		if st == StreamEnd {
			break
		}
		require.Contains(t, []Status{OK, BufError}, st, s.Msg)
	}
	require.Zero(t, remIn)
	require.Equal(t, OK, s.InflateEnd())
	return out[:len(out)-int(remOut)]
}

func TestRoundTripChunked(t *testing.T) {
	dict := []byte("the lazy dog jumps")
	for _, wb := range []struct {
		name string
		bits int
		dict []byte
	}{
		{"raw", RawWindowBits, nil},
		{"raw-dict", RawWindowBits, dict},
		{"zlib", ZlibWindowBits, nil},
		{"zlib-dict", ZlibWindowBits, dict},
		{"gzip", GzipWindowBits, nil},
	} {
		for _, level := range []int{DefaultCompression, NoCompression, BestSpeed, 6, BestCompression} {
			for _, c := range []struct {
				chunk int
				flush Flush
			}{{1, NoFlush}, {7, NoFlush}, {7, SyncFlush}, {7, FullFlush}, {7, Block}, {4096, NoFlush}, {4096, PartialFlush}} {
				comp := deflateChunked(t, shortInput, wb.bits, level, DefaultStrategy, wb.dict, c.chunk, c.chunk, c.flush)
				got := inflateChunked(t, comp, wb.bits, wb.dict, len(shortInput), c.chunk, c.chunk)
				if !bytes.Equal(got, shortInput) {
					t.Fatalf("%s level %d chunk %d flush %v: output mismatch", wb.name, level, c.chunk, c.flush)
				}
			}
		}
	}
}

func TestStrategies(t *testing.T) {
	for _, strategy := range []Strategy{DefaultStrategy, Filtered, HuffmanOnly, RLE, Fixed} {
		comp := deflateChunked(t, testInput, ZlibWindowBits, 6, strategy, nil, 100, 33, NoFlush)
		got := inflateChunked(t, comp, ZlibWindowBits, nil, len(testInput), 13, 100)
		require.Equal(t, testInput, got, strategy.String())
	}
}

// The produced streams must be readable by the regular readers.
func TestContainersInterop(t *testing.T) {
	dict := []byte("quick brown")
	raw := deflateChunked(t, testInput, RawWindowBits, 5, DefaultStrategy, dict, 50, 50, NoFlush)
	b, err := io.ReadAll(flate.NewReaderDict(bytes.NewReader(raw), dict))
	require.NoError(t, err)
	require.Equal(t, testInput, b)

	zl := deflateChunked(t, testInput, ZlibWindowBits, 5, DefaultStrategy, dict, 50, 50, SyncFlush)
	zr, err := zlib.NewReaderDict(bytes.NewReader(zl), dict)
	require.NoError(t, err)
	b, err = io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, testInput, b)

	gz := deflateChunked(t, testInput, GzipWindowBits, 9, DefaultStrategy, nil, 50, 50, PartialFlush)
	gr, err := gzip.NewReader(bytes.NewReader(gz))
	require.NoError(t, err)
	b, err = io.ReadAll(gr)
	require.NoError(t, err)
	require.Equal(t, testInput, b)
}

func TestDeflateParamsMidStream(t *testing.T) {
	var s Stream
	require.Equal(t, OK, s.DeflateInit2(6, Deflated, ZlibWindowBits, 8, DefaultStrategy))
	out := make([]byte, len(testInput)*2+1024)
	s.NextOut, s.AvailOut = out, uint32(len(out))
	params := []struct {
		level    int
		strategy Strategy
	}{{1, DefaultStrategy}, {9, RLE}, {0, DefaultStrategy}, {6, HuffmanOnly}, {-1, Filtered}}
	chunk := len(testInput) / len(params)
	for i, p := range params {
		part := testInput[i*chunk : (i+1)*chunk]
		if i == len(params)-1 {
			part = testInput[i*chunk:]
		}
		s.NextIn, s.AvailIn = part, uint32(len(part))
		require.Equal(t, OK, s.Deflate(NoFlush))
		require.Zero(t, s.AvailIn)
		require.Equal(t, OK, s.DeflateParams(p.level, p.strategy))
	}
	require.Equal(t, StreamEnd, s.Deflate(Finish))
	require.Equal(t, OK, s.DeflateEnd())
	comp := out[:len(out)-int(s.AvailOut)]

	got := inflateChunked(t, comp, ZlibWindowBits, nil, len(testInput), 3, 11)
	require.Equal(t, testInput, got)
}

func TestDeflateParamsNeedsOutputRoom(t *testing.T) {
	var s Stream
	require.Equal(t, OK, s.DeflateInit2(6, Deflated, RawWindowBits, 8, DefaultStrategy))
	out := make([]byte, 1024)
	s.NextIn, s.AvailIn = testInput[:100], 100
	s.NextOut, s.AvailOut = out, 1
	require.Equal(t, OK, s.Deflate(NoFlush))
	// No room to flush the buffered input.
	s.AvailOut = 0
	require.Equal(t, BufError, s.DeflateParams(1, DefaultStrategy))
	// Same parameters are a no-op.
	require.Equal(t, OK, s.DeflateParams(6, DefaultStrategy))
	s.AvailOut = uint32(len(s.NextOut))
	require.Equal(t, OK, s.DeflateParams(1, RLE))
	require.Equal(t, StreamEnd, s.Deflate(Finish))
	require.Equal(t, OK, s.DeflateEnd())
}

func TestDeflateBufError(t *testing.T) {
	var s Stream
	require.Equal(t, OK, s.DeflateInit2(6, Deflated, ZlibWindowBits, 8, DefaultStrategy))
	out := make([]byte, 64)
	s.NextOut = out
	s.AvailOut = 0
	require.Equal(t, BufError, s.Deflate(NoFlush))

	s.AvailOut = 64
	require.Equal(t, OK, s.Deflate(SyncFlush))
	// Repeating the same flush without new input makes no progress.
	require.Equal(t, BufError, s.Deflate(SyncFlush))
	require.Equal(t, BufError, s.Deflate(NoFlush))
	// A stronger flush is still allowed.
	require.Equal(t, OK, s.Deflate(FullFlush))
	require.Equal(t, StreamEnd, s.Deflate(Finish))
	require.Equal(t, StreamEnd, s.Deflate(Finish))
	require.Equal(t, StreamError, s.Deflate(NoFlush))
	require.Equal(t, OK, s.DeflateEnd())
}

func TestDeflateEndUnfinished(t *testing.T) {
	var s Stream
	require.Equal(t, OK, s.DeflateInit2(6, Deflated, ZlibWindowBits, 8, DefaultStrategy))
	out := make([]byte, 64)
	s.NextIn, s.AvailIn = []byte("abc"), 3
	s.NextOut, s.AvailOut = out, 64
	require.Equal(t, OK, s.Deflate(NoFlush))
	require.Equal(t, DataError, s.DeflateEnd())
	require.Equal(t, StreamError, s.DeflateEnd())
}

func TestInitValidation(t *testing.T) {
	var s Stream
	require.Equal(t, StreamError, s.DeflateInit2(10, Deflated, ZlibWindowBits, 8, DefaultStrategy))
	require.Equal(t, StreamError, s.DeflateInit2(-2, Deflated, ZlibWindowBits, 8, DefaultStrategy))
	require.Equal(t, StreamError, s.DeflateInit2(6, 7, ZlibWindowBits, 8, DefaultStrategy))
	require.Equal(t, StreamError, s.DeflateInit2(6, Deflated, 16, 8, DefaultStrategy))
	require.Equal(t, StreamError, s.DeflateInit2(6, Deflated, ZlibWindowBits, 0, DefaultStrategy))
	require.Equal(t, StreamError, s.DeflateInit2(6, Deflated, ZlibWindowBits, 8, Fixed+1))
	require.Equal(t, StreamError, s.InflateInit2(0))
	require.Equal(t, StreamError, s.Deflate(NoFlush))
	require.Equal(t, StreamError, s.Inflate(NoFlush))

	require.Equal(t, OK, s.DeflateInit2(6, Deflated, GzipWindowBits, 8, DefaultStrategy))
	require.Equal(t, StreamError, s.DeflateSetDictionary([]byte("x")))
	s.NextOut, s.AvailOut = make([]byte, 4), 5
	require.Equal(t, StreamError, s.Deflate(NoFlush), "avail_out beyond the output slice")
}

func TestInflateNeedDict(t *testing.T) {
	dict := []byte("brown fox")
	comp := deflateChunked(t, testInput, ZlibWindowBits, 6, DefaultStrategy, dict, 1<<20, 1<<20, NoFlush)

	var s Stream
	require.Equal(t, OK, s.InflateInit2(ZlibWindowBits))
	out := make([]byte, len(testInput))
	s.NextIn, s.AvailIn = comp, uint32(len(comp))
	s.NextOut, s.AvailOut = out, uint32(len(out))

	// Setting a dictionary before it is requested is an error.
	require.Equal(t, StreamError, s.InflateSetDictionary(dict))
	require.Equal(t, NeedDict, s.Inflate(NoFlush))
	require.EqualValues(t, 6, s.TotalIn, "header and dictionary id consumed")
	require.Equal(t, NeedDict, s.Inflate(NoFlush))
	require.EqualValues(t, 6, s.TotalIn)

	require.Equal(t, DataError, s.InflateSetDictionary([]byte("wrong")))
	require.Equal(t, OK, s.InflateSetDictionary(dict))
	require.Equal(t, StreamEnd, s.Inflate(NoFlush))
	require.Zero(t, s.AvailIn)
	require.Equal(t, testInput, out)
}

func TestInflateStopsAtStreamEnd(t *testing.T) {
	comp := deflateChunked(t, testInput, GzipWindowBits, 6, DefaultStrategy, nil, 1<<20, 1<<20, NoFlush)
	in := append(bytes.Clone(comp), "trailing garbage"...)

	var s Stream
	require.Equal(t, OK, s.InflateInit2(GzipWindowBits))
	out := make([]byte, len(testInput)+10)
	s.NextIn, s.AvailIn = in, uint32(len(in))
	s.NextOut, s.AvailOut = out, uint32(len(out))
	require.Equal(t, StreamEnd, s.Inflate(NoFlush))
	require.EqualValues(t, len(comp), s.TotalIn)
	require.EqualValues(t, len("trailing garbage"), s.AvailIn)
	require.EqualValues(t, 10, s.AvailOut)
	require.Equal(t, StreamEnd, s.Inflate(NoFlush))
}

// mixedInput returns n bytes of short matches and literals, which
// compress into many small blocks of every kind.
func mixedInput(n int, seed uint64) []byte {
	rng := rand.New(rand.NewPCG(seed, 1))
	b := make([]byte, 0, n)
	for len(b) < n {
		switch rng.IntN(3) {
		case 0:
			for range rng.IntN(30) {
				b = append(b, byte(rng.Uint32()))
			}
		case 1:
			for range rng.IntN(60) {
				b = append(b, "abcd efg"[rng.IntN(8)])
			}
		default:
			off := rng.IntN(len(testInput) - 100)
			b = append(b, testInput[off:off+rng.IntN(100)]...)
		}
	}
	return b[:n]
}

func TestInflatePrefixes(t *testing.T) {
	in := mixedInput(3000, 7)
	for _, windowBits := range []int{RawWindowBits, ZlibWindowBits, GzipWindowBits} {
		for _, flush := range []Flush{SyncFlush, FullFlush, Block} {
			comp := deflateChunked(t, in, windowBits, 1, Filtered, nil, 97, 1<<20, flush)
			for k := 0; k <= len(comp); k++ {
				var s Stream
				require.Equal(t, OK, s.InflateInit2(windowBits))
				out := make([]byte, len(in))
				s.NextIn, s.AvailIn = comp[:k], uint32(k)
				s.NextOut, s.AvailOut = out, uint32(len(out))
				st := s.Inflate(NoFlush)
				if k == len(comp) {
					require.Equal(t, StreamEnd, st, "window %d flush %v", windowBits, flush)
					require.Equal(t, in, out)
					continue
				}
				require.Contains(t, []Status{OK, BufError}, st, "window %d flush %v prefix %d of %d: %s", windowBits, flush, k, len(comp), s.Msg)
				require.Equal(t, in[:s.TotalOut], out[:s.TotalOut])
			}
		}
	}
}

func TestInflateMixedChunks(t *testing.T) {
	for seed := range uint64(20) {
		in := mixedInput(500+int(seed)*50, seed)
		for _, windowBits := range []int{RawWindowBits, ZlibWindowBits} {
			comp := deflateChunked(t, in, windowBits, 1+int(seed)%9, Strategy(seed%5), nil, 13, 29, Flush(seed%2)*SyncFlush)
			got := inflateChunked(t, comp, windowBits, nil, len(in), 1+int(seed)%7, 1+int(seed)%11)
			require.Equal(t, in, got, "seed %d window %d", seed, windowBits)
		}
	}
}

func TestInflateSmallOutput(t *testing.T) {
	comp := deflateChunked(t, testInput, RawWindowBits, 9, DefaultStrategy, nil, 1<<20, 1<<20, NoFlush)
	var s Stream
	require.Equal(t, OK, s.InflateInit2(RawWindowBits))
	out := make([]byte, len(testInput))
	s.NextIn, s.AvailIn = comp, uint32(len(comp))
	s.NextOut, s.AvailOut = out, 1
	require.Equal(t, OK, s.Inflate(NoFlush))
	require.Zero(t, s.AvailIn, "all input absorbed")
	require.EqualValues(t, 1, s.TotalOut)

	s.AvailOut = 0
	require.Equal(t, BufError, s.Inflate(NoFlush))
	s.AvailOut = uint32(len(s.NextOut))
	require.Equal(t, StreamEnd, s.Inflate(NoFlush))
	require.Equal(t, testInput, out)
}

func TestInflateCorrupt(t *testing.T) {
	var s Stream
	require.Equal(t, OK, s.InflateInit2(ZlibWindowBits))
	in := []byte{0x78, 0x9d, 1, 2, 3}
	s.NextIn, s.AvailIn = in, uint32(len(in))
	s.NextOut, s.AvailOut = make([]byte, 10), 10
	require.Equal(t, DataError, s.Inflate(NoFlush))
	require.NotEmpty(t, s.Msg)
	require.Equal(t, DataError, s.Inflate(NoFlush))
	require.Equal(t, OK, s.InflateEnd())
}

func TestZlibHeader(t *testing.T) {
	for _, level := range []int{0, 1, 2, 5, 6, 7, 9} {
		for _, dict := range []bool{false, true} {
			h := zlibHeader(level, DefaultStrategy, 0x01020304, dict)
			n, id, fdict, complete, err := parseZlibHeader(h)
			require.NoError(t, err)
			require.True(t, complete)
			require.Equal(t, dict, fdict)
			require.Equal(t, len(h), n)
			if dict {
				require.EqualValues(t, 0x01020304, id)
			}
		}
	}
	_, _, _, complete, err := parseZlibHeader([]byte{0x78})
	require.NoError(t, err)
	require.False(t, complete)
	_, _, _, _, err = parseZlibHeader([]byte{0x78, 0x00})
	require.ErrorIs(t, err, errHeader)
}

func TestFlushRank(t *testing.T) {
	order := []Flush{NoFlush, Block, PartialFlush, Trees, SyncFlush, FullFlush, Finish}
	for i := 1; i < len(order); i++ {
		require.Less(t, rank(order[i-1]), rank(order[i]), "%v < %v", order[i-1], order[i])
	}
	require.Less(t, rank(flushStalled), rank(NoFlush))
	require.Less(t, rank(flushNone), rank(flushStalled))
}
