// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zstream

import (
	"encoding/binary"
	"errors"
)

const (
	zlibDeflate   = 8
	zlibMaxWindow = 7
	zlibFDict     = 0x20

	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8
	gzipOSUnix  = 3
)

var (
	errHeader     = errors.New("zstream: invalid header")
	errDictionary = errors.New("zstream: invalid dictionary")
)

// zlibHeader returns the two byte zlib header followed by the dictionary
// id when a preset dictionary is in use.
func zlibHeader(level int, strategy Strategy, dictID uint32, haveDict bool) []byte {
	cmf := byte(zlibMaxWindow<<4 | zlibDeflate)
	var levelFlags byte
	switch {
	case strategy >= HuffmanOnly || level < 2:
		levelFlags = 0
	case level < 6:
		levelFlags = 1
	case level == 6:
		levelFlags = 2
	default:
		levelFlags = 3
	}
	flg := levelFlags << 6
	if haveDict {
		flg |= zlibFDict
	}
	flg += byte(31 - (uint16(cmf)<<8|uint16(flg))%31)
	hdr := []byte{cmf, flg}
	if haveDict {
		hdr = binary.BigEndian.AppendUint32(hdr, dictID)
	}
	return hdr
}

// parseZlibHeader validates a zlib header prefix.
// It returns the header length, the preset dictionary id if any, and
// whether enough bytes were present to decide.
func parseZlibHeader(b []byte) (n int, dictID uint32, haveDict, complete bool, err error) {
	if len(b) < 2 {
		return 0, 0, false, false, nil
	}
	h := uint16(b[0])<<8 | uint16(b[1])
	if b[0]&0x0f != zlibDeflate || b[0]>>4 > zlibMaxWindow || h%31 != 0 {
		return 0, 0, false, true, errHeader
	}
	if b[1]&zlibFDict == 0 {
		return 2, 0, false, true, nil
	}
	if len(b) < 6 {
		return 0, 0, true, false, nil
	}
	return 6, binary.BigEndian.Uint32(b[2:6]), true, true, nil
}

// zlibTrailer returns the big endian adler32 of the uncompressed data.
func zlibTrailer(sum uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, sum)
}

// gzipHeader returns a minimal gzip member header.
func gzipHeader(level int, strategy Strategy) []byte {
	var xfl byte
	switch {
	case level == BestCompression:
		xfl = 2
	case strategy >= HuffmanOnly || level < 2:
		xfl = 4
	}
	return []byte{gzipID1, gzipID2, gzipDeflate, 0, 0, 0, 0, 0, xfl, gzipOSUnix}
}

// gzipTrailer returns the little endian crc32 and input size modulo 2^32.
func gzipTrailer(crc, size uint32) []byte {
	b := binary.LittleEndian.AppendUint32(nil, crc)
	return binary.LittleEndian.AppendUint32(b, size)
}
