// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/klauspost/flateplan/zstream"
)

// Violation is the panic value of a failed check.
type Violation struct {
	// Check names the failed check, such as "status" or "roundtrip".
	Check  string
	Detail string
}

func (v *Violation) Error() string {
	return "flateplan: " + v.Check + ": " + v.Detail
}

func violate(check, format string, args ...any) {
	panic(&Violation{Check: check, Detail: fmt.Sprintf(format, args...)})
}

// Statuses a replayed op may return.
var (
	deflateAllowed       = []zstream.Status{zstream.OK, zstream.BufError}
	deflateParamsAllowed = []zstream.Status{zstream.OK, zstream.BufError}
	inflateAllowed       = []zstream.Status{zstream.OK, zstream.StreamEnd, zstream.NeedDict, zstream.BufError}
)

func expectStatus(s *zstream.Stream, call string, st zstream.Status, allowed ...zstream.Status) {
	if slices.Contains(allowed, st) {
		return
	}
	if s.Msg != "" {
		violate("status", "%s returned %v (%s), want one of %v", call, st, s.Msg, allowed)
	}
	violate("status", "%s returned %v, want one of %v", call, st, allowed)
}

// verifyCompressed checks the stream after the final Finish call.
func verifyCompressed(s *zstream.Stream, st zstream.Status, capacity uint32) {
	expectStatus(s, "deflate finish", st, zstream.StreamEnd)
	if s.AvailIn != 0 {
		violate("compress", "%d input bytes left after finish", s.AvailIn)
	}
	if actual := uint64(capacity - s.AvailOut); actual != s.TotalOut {
		violate("compress", "wrote %d bytes, stream reports total_out %d", actual, s.TotalOut)
	}
}

// verifyDecompressed checks the stream and recovered data after the
// last Inflate call.
func verifyDecompressed(s *zstream.Stream, st zstream.Status, tail uint32, got, want []byte) {
	expectStatus(s, "inflate", st, zstream.StreamEnd)
	if s.AvailIn != 0 {
		violate("decompress", "%d compressed bytes left after stream end", s.AvailIn)
	}
	if s.AvailOut != tail {
		violate("decompress", "avail_out %d after stream end, want tail size %d", s.AvailOut, tail)
	}
	if !bytes.Equal(got, want) {
		i := 0
		for i < len(got) && i < len(want) && got[i] == want[i] {
			i++
		}
		violate("roundtrip", "recovered data differs at offset %d of %d", i, len(want))
	}
}
