// Copyright (c) 2026 Klaus Post. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package harness

import (
	"github.com/klauspost/flateplan/plan"
	"github.com/klauspost/flateplan/zstream"
)

// availGuard limits the windows of a stream to what one op asked for.
// release puts back the true remaining sizes less what the call used.
type availGuard struct {
	s *zstream.Stream

	trueIn, trueOut       uint32
	exposedIn, exposedOut uint32
}

// exposeAvail shrinks the visible windows of s to a.
// The caller must defer release.
func exposeAvail(s *zstream.Stream, a plan.Avail) *availGuard {
	g := &availGuard{
		s:          s,
		trueIn:     s.AvailIn,
		trueOut:    s.AvailOut,
		exposedIn:  min(s.AvailIn, a.In),
		exposedOut: min(s.AvailOut, a.Out),
	}
	s.AvailIn, s.AvailOut = g.exposedIn, g.exposedOut
	return g
}

// release restores the true windows. It runs while a violation
// unwinds too, and reports a codec that claims more than it was shown.
func (g *availGuard) release() {
	s := g.s
	leftIn, leftOut := s.AvailIn, s.AvailOut
	if leftIn > g.exposedIn || leftOut > g.exposedOut {
		s.AvailIn, s.AvailOut = g.trueIn, g.trueOut
		violate("consumption", "windows grew from %d/%d to %d/%d", g.exposedIn, g.exposedOut, leftIn, leftOut)
	}
	usedIn := g.exposedIn - leftIn
	usedOut := g.exposedOut - leftOut
	s.AvailIn = g.trueIn - usedIn
	s.AvailOut = g.trueOut - usedOut
	if uint64(len(s.NextIn)) != uint64(s.AvailIn) || uint64(len(s.NextOut)) != uint64(s.AvailOut) {
		violate("consumption", "used %d/%d but windows advanced to %d/%d remaining of %d/%d",
			usedIn, usedOut, len(s.NextIn), len(s.NextOut), s.AvailIn, s.AvailOut)
	}
}
