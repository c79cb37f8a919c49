// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

// availOp is the visitor pair shared by both op kinds.
type availOp interface {
	DeflateOp | InflateOp
}

// NormalizeDeflateOps rescales the capacity requests of ops so that each
// side sums to at most totalIn and totalOut, keeping their proportions.
func NormalizeDeflateOps(ops []DeflateOp, totalIn, totalOut uint32) {
	normalize(ops, func(op *DeflateOp) *Avail { return op.MutableAvail() }, totalIn, totalOut)
}

// NormalizeInflateOps is NormalizeDeflateOps for decompression ops.
func NormalizeInflateOps(ops []InflateOp, totalIn, totalOut uint32) {
	normalize(ops, func(op *InflateOp) *Avail { return op.MutableAvail() }, totalIn, totalOut)
}

// normalize sets every value to value*total/sum for its side.
// A side whose requests sum to zero is left as is.
func normalize[T availOp](ops []T, avail func(*T) *Avail, totalIn, totalOut uint32) {
	var sumIn, sumOut uint64
	for i := range ops {
		if a := avail(&ops[i]); a != nil {
			sumIn += uint64(a.In)
			sumOut += uint64(a.Out)
		}
	}
	for i := range ops {
		a := avail(&ops[i])
		if a == nil {
			continue
		}
		if sumIn != 0 {
			a.In = uint32(uint64(a.In) * uint64(totalIn) / sumIn)
		}
		if sumOut != 0 {
			a.Out = uint32(uint64(a.Out) * uint64(totalOut) / sumOut)
		}
	}
}
