// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zstream

import (
	"bytes"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"slices"

	"github.com/klauspost/compress/flate"
)

// Values of deflateState.lastFlush that are not flush modes.
const (
	flushNone    Flush = -2 // no Deflate call yet
	flushStalled Flush = -1 // output window filled up
)

type deflateState struct {
	wrap     wrapper
	level    int
	strategy Strategy
	memLevel int

	fw *flate.Writer
	// pending holds compressed output not yet copied to the caller.
	pending bytes.Buffer
	// history is the tail of dictionary and input visible to the decoder,
	// used to seed a replacement compressor after a parameter change.
	history  []byte
	buffered bool

	dictID   uint32
	haveDict bool

	started   bool
	finished  bool
	lastFlush Flush

	sum   hash.Hash32
	isize uint32
}

// flateLevel maps a zlib level and strategy to a flate compression level.
func flateLevel(level int, strategy Strategy) int {
	switch {
	case level == NoCompression:
		return flate.NoCompression
	case strategy == HuffmanOnly:
		return flate.HuffmanOnly
	case strategy == RLE:
		return flate.BestSpeed
	}
	return level
}

// DeflateInit2 prepares s for compression.
// windowBits selects raw (-8..-15), zlib (8..15) or gzip (24..31) framing.
func (s *Stream) DeflateInit2(level, method, windowBits, memLevel int, strategy Strategy) Status {
	wrap, ok := parseWindowBits(windowBits)
	if !ok || method != Deflated || memLevel < 1 || memLevel > MaxMemLevel ||
		level < DefaultCompression || level > BestCompression || !strategy.Valid() {
		return StreamError
	}
	if level == DefaultCompression {
		level = 6
	}
	d := &deflateState{
		wrap:      wrap,
		level:     level,
		strategy:  strategy,
		memLevel:  memLevel,
		lastFlush: flushNone,
	}
	switch wrap {
	case wrapZlib:
		d.sum = adler32.New()
	case wrapGzip:
		d.sum = crc32.NewIEEE()
	}
	if err := d.reset(nil); err != nil {
		return s.fail(StreamError, err)
	}
	s.def, s.inf = d, nil
	s.TotalIn, s.TotalOut, s.Msg = 0, 0, ""
	return OK
}

// reset replaces the compressor with one that may reference history.
func (d *deflateState) reset(history []byte) error {
	var err error
	d.history = history
	if len(history) == 0 {
		d.fw, err = flate.NewWriter(&d.pending, flateLevel(d.level, d.strategy))
	} else {
		d.fw, err = flate.NewWriterDict(&d.pending, flateLevel(d.level, d.strategy), lastWindow(history))
	}
	d.buffered = false
	return err
}

// DeflateSetDictionary installs a preset dictionary.
// It must be called before the first Deflate call and is not
// available for gzip streams.
func (s *Stream) DeflateSetDictionary(dict []byte) Status {
	d := s.def
	if d == nil || d.wrap == wrapGzip || d.started {
		return StreamError
	}
	if d.wrap == wrapZlib {
		d.dictID = adler32.Checksum(dict)
		d.haveDict = true
	}
	if err := d.reset(slices.Clone(lastWindow(dict))); err != nil {
		return s.fail(StreamError, err)
	}
	return OK
}

func (d *deflateState) header() []byte {
	switch d.wrap {
	case wrapZlib:
		return zlibHeader(d.level, d.strategy, d.dictID, d.haveDict)
	case wrapGzip:
		return gzipHeader(d.level, d.strategy)
	}
	return nil
}

func (d *deflateState) write(p []byte) error {
	if _, err := d.fw.Write(p); err != nil {
		return err
	}
	if d.sum != nil {
		d.sum.Write(p)
	}
	d.isize += uint32(len(p))
	d.buffered = true
	d.history = append(d.history, p...)
	if len(d.history) > 2*maxWindow {
		d.history = append([]byte(nil), lastWindow(d.history)...)
	}
	return nil
}

func (d *deflateState) flush(mode Flush) error {
	switch mode {
	case PartialFlush, SyncFlush, Block:
		d.buffered = false
		return d.fw.Flush()
	case FullFlush:
		if err := d.fw.Flush(); err != nil {
			return err
		}
		return d.reset(nil)
	case Finish:
		if err := d.fw.Close(); err != nil {
			return err
		}
		d.buffered = false
		switch d.wrap {
		case wrapZlib:
			d.pending.Write(zlibTrailer(d.sum.Sum32()))
		case wrapGzip:
			d.pending.Write(gzipTrailer(d.sum.Sum32(), d.isize))
		}
		d.finished = true
	}
	return nil
}

func (s *Stream) drain(d *deflateState) {
	n := s.emit(d.pending.Bytes())
	d.pending.Next(n)
}

// Deflate compresses as much of the visible input as possible and copies
// as much pending output as fits.
//
// It returns BufError when no progress is possible: no output room, or a
// repeated flush with no new input. With Finish it returns StreamEnd once
// the complete stream including the trailer has been delivered.
func (s *Stream) Deflate(flush Flush) Status {
	d := s.def
	if d == nil || flush < NoFlush || flush > Block || !s.windowsValid() {
		return StreamError
	}
	if d.finished && flush != Finish {
		return StreamError
	}
	if s.AvailOut == 0 {
		return BufError
	}

	oldFlush := d.lastFlush
	d.lastFlush = flush
	if d.pending.Len() > 0 {
		s.drain(d)
		if s.AvailOut == 0 {
			d.lastFlush = flushStalled
			return OK
		}
	} else if s.AvailIn == 0 && rank(flush) <= rank(oldFlush) && flush != Finish {
		return BufError
	}
	if d.finished && s.AvailIn != 0 {
		return BufError
	}

	if !d.finished {
		if !d.started {
			d.pending.Write(d.header())
			d.started = true
		}
		if in := s.input(); len(in) > 0 {
			if err := d.write(in); err != nil {
				return s.fail(StreamError, err)
			}
			s.consume(len(in))
		}
		if err := d.flush(flush); err != nil {
			return s.fail(StreamError, err)
		}
	}
	s.drain(d)
	if s.AvailOut == 0 {
		d.lastFlush = flushStalled
	}
	if flush == Finish && d.finished && d.pending.Len() == 0 {
		return StreamEnd
	}
	return OK
}

// DeflateParams changes the compression level and strategy.
//
// Once compression has started, input given so far is flushed as a
// block boundary before switching. BufError is returned, and the
// parameters kept, when that flush could not complete.
func (s *Stream) DeflateParams(level int, strategy Strategy) Status {
	d := s.def
	if d == nil || level < DefaultCompression || level > BestCompression || !strategy.Valid() || !s.windowsValid() {
		return StreamError
	}
	if level == DefaultCompression {
		level = 6
	}
	if level == d.level && strategy == d.strategy {
		return OK
	}
	if d.started {
		if d.finished {
			return StreamError
		}
		if st := s.Deflate(Block); st == StreamError {
			return st
		}
		if s.AvailIn != 0 || d.buffered {
			return BufError
		}
	}
	d.level, d.strategy = level, strategy
	if err := d.reset(d.history); err != nil {
		return s.fail(StreamError, err)
	}
	return OK
}

// DeflateEnd releases the compression state.
// It returns DataError when the stream was started but never finished.
func (s *Stream) DeflateEnd() Status {
	d := s.def
	if d == nil {
		return StreamError
	}
	s.def = nil
	if d.started && !d.finished {
		return DataError
	}
	return OK
}
