// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zstream

import (
	"bytes"
	"errors"
	"hash/adler32"
	"io"
	"slices"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

type inflatePhase uint8

const (
	phaseRunning inflatePhase = iota
	phaseNeedDict
	phaseDone
)

// inflateState decodes the compressed bytes absorbed so far from the
// start on every call that brings new input. The decoders cannot resume
// after running out of input, and since decoding is deterministic each
// pass yields a prefix of the final output.
type inflateState struct {
	wrap wrapper

	dict     []byte
	haveDict bool
	dictID   uint32

	// in holds the absorbed stream prefix, out everything decoded from it.
	in   []byte
	out  []byte
	sent int

	// stale is set when a dictionary arrived after the last decode.
	stale bool
	phase inflatePhase
	err   error

	// Decoders are reset and reused between passes.
	fr io.ReadCloser
	zr io.ReadCloser
	gz gzip.Reader
}

// InflateInit2 prepares s for decompression.
// windowBits selects raw (-8..-15), zlib (8..15) or gzip (24..31) framing.
func (s *Stream) InflateInit2(windowBits int) Status {
	wrap, ok := parseWindowBits(windowBits)
	if !ok {
		return StreamError
	}
	s.inf, s.def = &inflateState{wrap: wrap}, nil
	s.TotalIn, s.TotalOut, s.Msg = 0, 0, ""
	return OK
}

// InflateSetDictionary supplies the preset dictionary.
// Raw streams accept it before any input is consumed, zlib streams only
// after Inflate returned NeedDict, and only if its adler32 matches.
func (s *Stream) InflateSetDictionary(dict []byte) Status {
	st := s.inf
	if st == nil {
		return StreamError
	}
	switch st.wrap {
	case wrapGzip:
		return StreamError
	case wrapZlib:
		if st.phase != phaseNeedDict {
			return StreamError
		}
		if adler32.Checksum(dict) != st.dictID {
			return s.fail(DataError, errDictionary)
		}
		st.phase = phaseRunning
	case wrapRaw:
		if len(st.in) > 0 {
			return StreamError
		}
	}
	st.dict = slices.Clone(dict)
	st.haveDict = true
	st.stale = true
	return OK
}

// Inflate decompresses as much of the visible input as the stream needs
// and copies as much output as fits.
//
// Input is consumed up to the end of the zlib dictionary id when
// NeedDict is returned, and up to the end of the trailer when the
// stream completes; bytes after the stream are left in NextIn.
func (s *Stream) Inflate(flush Flush) Status {
	st := s.inf
	if st == nil || !flush.Valid() || !s.windowsValid() {
		return StreamError
	}
	if st.err != nil {
		return s.fail(DataError, st.err)
	}

	progress := false
	if st.phase != phaseDone && (s.AvailIn > 0 || st.stale) {
		in := s.input()
		buf := append(st.in[:len(st.in):len(st.in)], in...)
		out, used, phase, err := st.decode(buf)
		st.stale = false
		if err != nil {
			st.err = err
			s.consume(len(in))
			return s.fail(DataError, err)
		}
		if n := used - len(st.in); n > 0 {
			s.consume(n)
			progress = true
		}
		st.in = buf[:used]
		if len(out) > len(st.out) {
			st.out = out
		}
		st.phase = phase
	}
	if st.sent < len(st.out) {
		n := s.emit(st.out[st.sent:])
		st.sent += n
		progress = progress || n > 0
	}

	switch {
	case st.phase == phaseNeedDict:
		return NeedDict
	case st.phase == phaseDone && st.sent == len(st.out):
		return StreamEnd
	case !progress || flush == Finish:
		return BufError
	}
	return OK
}

// prefixReader reads the absorbed part of a stream. Running out of it
// is never a clean end, so a decoder only reports io.EOF after it
// stopped at the final block or trailer by itself.
type prefixReader struct {
	bytes.Reader
}

func (r *prefixReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (r *prefixReader) ReadByte() (byte, error) {
	c, err := r.Reader.ReadByte()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return c, err
}

// decode decodes the stream prefix in.
// It returns the output so far and how many bytes of in belong to the
// part of the stream that was processed.
func (st *inflateState) decode(in []byte) (out []byte, used int, phase inflatePhase, err error) {
	r := &prefixReader{}
	r.Reset(in)
	switch st.wrap {
	case wrapRaw:
		if st.fr == nil {
			st.fr = flate.NewReaderDict(r, st.dict)
		} else if err = st.fr.(flate.Resetter).Reset(r, st.dict); err != nil {
			break
		}
		out, err = io.ReadAll(st.fr)
	case wrapZlib:
		n, id, fdict, complete, herr := parseZlibHeader(in)
		switch {
		case herr != nil:
			return nil, 0, phaseRunning, herr
		case !complete:
			return nil, len(in), phaseRunning, nil
		case fdict && !st.haveDict:
			st.dictID = id
			return nil, n, phaseNeedDict, nil
		}
		var dict []byte
		if fdict {
			dict = st.dict
		}
		if st.zr == nil {
			st.zr, err = zlib.NewReaderDict(r, dict)
		} else {
			err = st.zr.(zlib.Resetter).Reset(r, dict)
		}
		if err == nil {
			out, err = io.ReadAll(st.zr)
		}
	case wrapGzip:
		if err = st.gz.Reset(r); err == nil {
			st.gz.Multistream(false)
			out, err = io.ReadAll(&st.gz)
		}
	}

	switch {
	case err == nil:
		return out, len(in) - r.Len(), phaseDone, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return out, len(in), phaseRunning, nil
	}
	return nil, 0, phaseRunning, err
}

// InflateEnd releases the decompression state.
func (s *Stream) InflateEnd() Status {
	if s.inf == nil {
		return StreamError
	}
	s.inf = nil
	return OK
}
