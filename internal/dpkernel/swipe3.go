package dpkernel

import (
	"fmt"

	"github.com/diamond-core/diamond-core/internal/scoring"
)

// ThreeFrameLanes is the number of targets batched per call to
// ThreeFrameSwipe (8 targets x 3 frames = 24 parallel lanes sharing one
// query, spec.md §4.2).
const ThreeFrameLanes = 8

// FrameResult is one lane's banded-DP-with-frameshift outcome.
type FrameResult struct {
	Frame  int // 0, 1, or 2: which of the three reading frames the best alignment ended in
	Target int // index into the batch's target slice
	BandedResult
}

// ThreeFrameSwipe scores up to ThreeFrameLanes targets against one query,
// each target considered in all three reading frames simultaneously, with
// frameshift transitions allowed between adjacent frames at a configurable
// penalty (spec.md §4.2 "Three-frame banded swipe"). Each target's three
// frames are expected to already be the translated amino-acid sequences
// for frame offsets 0, 1, 2 of the same underlying nucleotide subject.
func ThreeFrameSwipe(sc scoring.Context, query []byte, targets [][3][]byte, dMin, dEnd int, opts BandedOptions) ([]FrameResult, error) {
	if len(targets) > ThreeFrameLanes {
		return nil, fmt.Errorf("dpkernel: %d targets exceeds %d lanes", len(targets), ThreeFrameLanes)
	}
	out := make([]FrameResult, 0, len(targets)*3)
	for ti, frames := range targets {
		res, err := bandedSWFrameshift(sc, query, frames, dMin, dEnd, opts)
		if err != nil {
			return nil, err
		}
		res.Target = ti
		out = append(out, res)
	}
	return out, nil
}

// bandedSWFrameshift is banded Smith-Waterman extended with a frameshift
// transition: at any band cell, in addition to the usual diagonal/
// insertion/deletion moves within one frame, the DP may continue the
// alignment by jumping to the same query position's best score in one of
// the other two frames at a cost of FrameShiftCost (spec.md glossary:
// "Frame-shift ... penalized rather than forbidden when configured").
// This models the common case of a single-nucleotide indel in the subject
// causing the reading frame to shift mid-alignment.
func bandedSWFrameshift(sc scoring.Context, query []byte, frames [3][]byte, dMin, dEnd int, opts BandedOptions) (FrameResult, error) {
	band := dEnd - dMin
	if band <= 0 {
		return FrameResult{}, fmt.Errorf("dpkernel: empty band [%d, %d)", dMin, dEnd)
	}
	qlen := len(query)
	shiftCost := sc.FrameShiftCost()

	// H[frame][i][k]: best score ending at query position i, band column k,
	// having last aligned in the given frame.
	var H [3][][]int32
	for f := 0; f < 3; f++ {
		H[f] = make([][]int32, qlen+1)
		for i := range H[f] {
			H[f][i] = make([]int32, band)
		}
	}

	scoreAt := func(f, qi, j int) int32 {
		t := frames[f]
		if j < 1 || j > len(t) {
			return negInf
		}
		s := sc.Score(query[qi], t[j-1])
		if opts.Bias != nil && qi < len(opts.Bias) {
			s += opts.Bias[qi]
		}
		return s
	}

	gapOpen, gapExtend := sc.GapOpen(), sc.GapExtend()
	var best int32
	var bestFrame, bestI, bestK int

	for i := 1; i <= qlen; i++ {
		for k := 0; k < band; k++ {
			d := dMin + k
			j := i + d
			for f := 0; f < 3; f++ {
				if j < 1 || j > len(frames[f]) {
					H[f][i][k] = 0
					continue
				}
				diag := int32(0)
				if H[f][i-1][k] > 0 || i == 1 {
					diag = H[f][i-1][k] + scoreAt(f, i-1, j-1)
				}
				var up, left int32
				if k+1 < band {
					up = H[f][i-1][k+1] - gapOpen
				}
				if k > 0 {
					left = H[f][i][k-1] - gapOpen - gapExtend
				}
				// Frameshift: continue from either other frame at the same
				// (i, k), paying the configured penalty once.
				var shifted int32 = negInf
				for g := 0; g < 3; g++ {
					if g == f {
						continue
					}
					if H[g][i][k]-shiftCost > shifted {
						shifted = H[g][i][k] - shiftCost
					}
				}
				h := int32(0)
				for _, cand := range []int32{diag, up, left, shifted} {
					if cand > h {
						h = cand
					}
				}
				H[f][i][k] = h
				if h > best {
					best, bestFrame, bestI, bestK = h, f, i, k
				}
			}
		}
	}

	res := FrameResult{Frame: bestFrame}
	res.Score = best
	if best <= 0 {
		return res, nil
	}
	res.QueryRange = [2]int{0, bestI}
	res.TargetRange = [2]int{0, bestI + dMin + bestK}
	return res, nil
}
