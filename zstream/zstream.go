// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zstream exposes github.com/klauspost/compress deflate, zlib and
// gzip streams through a zlib style call contract.
//
// A Stream carries caller owned input and output windows. Every call reads
// at most AvailIn bytes from NextIn and writes at most AvailOut bytes to
// NextOut, advancing both slices and decrementing the counts by what was
// actually used, so callers can feed the codec arbitrarily small chunks.
// Status, flush and strategy values use the numeric values of zlib.
package zstream

import "fmt"

// Status is the result of a stream call.
type Status int

const (
	OK           Status = 0
	StreamEnd    Status = 1
	NeedDict     Status = 2
	Errno        Status = -1
	StreamError  Status = -2
	DataError    Status = -3
	MemError     Status = -4
	BufError     Status = -5
	VersionError Status = -6
)

func (s Status) String() string {
	switch s {
	case OK:
		return "Z_OK"
	case StreamEnd:
		return "Z_STREAM_END"
	case NeedDict:
		return "Z_NEED_DICT"
	case Errno:
		return "Z_ERRNO"
	case StreamError:
		return "Z_STREAM_ERROR"
	case DataError:
		return "Z_DATA_ERROR"
	case MemError:
		return "Z_MEM_ERROR"
	case BufError:
		return "Z_BUF_ERROR"
	case VersionError:
		return "Z_VERSION_ERROR"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Flush controls how much buffered state a call emits.
type Flush int

const (
	NoFlush      Flush = 0
	PartialFlush Flush = 1
	SyncFlush    Flush = 2
	FullFlush    Flush = 3
	Finish       Flush = 4
	Block        Flush = 5
	Trees        Flush = 6
)

// Valid reports whether f is a known flush mode.
func (f Flush) Valid() bool {
	return f >= NoFlush && f <= Trees
}

func (f Flush) String() string {
	switch f {
	case NoFlush:
		return "Z_NO_FLUSH"
	case PartialFlush:
		return "Z_PARTIAL_FLUSH"
	case SyncFlush:
		return "Z_SYNC_FLUSH"
	case FullFlush:
		return "Z_FULL_FLUSH"
	case Finish:
		return "Z_FINISH"
	case Block:
		return "Z_BLOCK"
	case Trees:
		return "Z_TREES"
	}
	return fmt.Sprintf("Flush(%d)", int(f))
}

// rank orders flush modes by strength, with BLOCK and TREES between
// NO_FLUSH and SYNC_FLUSH, the way zlib compares consecutive flushes.
func rank(f Flush) int {
	r := int(f) * 2
	if f > Finish {
		r -= 9
	}
	return r
}

// Strategy tunes the compression algorithm.
type Strategy int

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

func (s Strategy) String() string {
	switch s {
	case DefaultStrategy:
		return "Z_DEFAULT_STRATEGY"
	case Filtered:
		return "Z_FILTERED"
	case HuffmanOnly:
		return "Z_HUFFMAN_ONLY"
	case RLE:
		return "Z_RLE"
	case Fixed:
		return "Z_FIXED"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Compression levels.
const (
	NoCompression      = 0
	BestSpeed          = 1
	BestCompression    = 9
	DefaultCompression = -1
)

// Deflated is the only supported compression method.
const Deflated = 8

// Window bits for the three container formats with a 32 KiB window.
const (
	MaxWBits        = 15
	RawWindowBits   = -MaxWBits
	ZlibWindowBits  = MaxWBits
	GzipWindowBits  = MaxWBits + 16
	DefaultMemLevel = 8
	MaxMemLevel     = 9
)

// maxWindow is the deflate history size.
const maxWindow = 1 << MaxWBits

type wrapper uint8

const (
	wrapRaw wrapper = iota
	wrapZlib
	wrapGzip
)

// parseWindowBits returns the container selected by windowBits.
func parseWindowBits(windowBits int) (wrapper, bool) {
	switch {
	case windowBits >= -MaxWBits && windowBits <= -8:
		return wrapRaw, true
	case windowBits >= 8 && windowBits <= MaxWBits:
		return wrapZlib, true
	case windowBits >= 8+16 && windowBits <= MaxWBits+16:
		return wrapGzip, true
	}
	return 0, false
}

// Stream is the state shared between the caller and the codec.
//
// The caller sets NextIn/AvailIn and NextOut/AvailOut before every call.
// AvailIn must not exceed len(NextIn) and AvailOut must not exceed
// len(NextOut). A Stream is owned by one goroutine.
type Stream struct {
	NextIn  []byte
	AvailIn uint32
	TotalIn uint64

	NextOut  []byte
	AvailOut uint32
	TotalOut uint64

	// Msg holds the last error description, if any.
	Msg string

	def *deflateState
	inf *inflateState
}

func (s *Stream) windowsValid() bool {
	return uint64(s.AvailIn) <= uint64(len(s.NextIn)) && uint64(s.AvailOut) <= uint64(len(s.NextOut))
}

// input returns the visible part of the input window.
func (s *Stream) input() []byte {
	return s.NextIn[:s.AvailIn]
}

func (s *Stream) consume(n int) {
	s.NextIn = s.NextIn[n:]
	s.AvailIn -= uint32(n)
	s.TotalIn += uint64(n)
}

// emit copies as much of b as fits in the visible output window and
// returns the number of bytes written.
func (s *Stream) emit(b []byte) int {
	n := copy(s.NextOut[:s.AvailOut], b)
	s.NextOut = s.NextOut[n:]
	s.AvailOut -= uint32(n)
	s.TotalOut += uint64(n)
	return n
}

func (s *Stream) fail(st Status, err error) Status {
	if err != nil {
		s.Msg = err.Error()
	}
	return st
}

// lastWindow returns the trailing deflate window of b.
func lastWindow(b []byte) []byte {
	if len(b) > maxWindow {
		return b[len(b)-maxWindow:]
	}
	return b
}
