// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"fmt"
	"io"
)

// tracer writes the call trace as C statements that replay the run
// against zlib. A nil writer disables it.
type tracer struct {
	w io.Writer
}

func (t tracer) printf(format string, args ...any) {
	if t.w != nil {
		fmt.Fprintf(t.w, format, args...)
	}
}

// hex returns b as C string escapes.
func (t tracer) hex(b []byte) string {
	if t.w == nil {
		return ""
	}
	const digits = "0123456789abcdef"
	buf := make([]byte, 0, len(b)*4)
	for _, c := range b {
		buf = append(buf, '\\', 'x', digits[c>>4], digits[c&15])
	}
	return string(buf)
}

// buffers declares the input and output buffers of the compression phase.
func (t tracer) buffers(in []byte, outSize int) {
	t.printf("char next_in[%d] = \"%s\";\nchar next_out[%d];\n", len(in), t.hex(in), outSize)
}
