package dpkernel

import (
	"fmt"

	"github.com/diamond-core/diamond-core/internal/scoring"
)

// PrefixScan computes the banded Smith-Waterman best score only (no
// transcript), with the same recurrence as BandedSW. It walks the band
// row by row (i: query offset 1..qlen, k: band column), keeping just the
// previous and current rows of H/E plus the current F, and does not sweep
// anti-diagonals or use lane-parallel prefix scans. Grounded on
// original_source/src/dp/pfscan/pfscan.cpp's banded_smith_waterman
// dispatch, with its 8/16/32-bit SIMD dispatch ladder replaced by this
// single scalar kernel.
func PrefixScan(sc scoring.Context, query, target []byte, dMin, dEnd int, opts BandedOptions) (int32, error) {
	band := dEnd - dMin
	if band <= 0 {
		return 0, fmt.Errorf("dpkernel: empty band [%d, %d)", dMin, dEnd)
	}
	qlen, tlen := len(query), len(target)

	scoreFn := sc.Score
	if opts.Override != nil {
		scoreFn = opts.Override.Score
	}
	scoreAt := func(qi, ti int) int32 {
		s := scoreFn(query[qi], target[ti])
		if opts.Bias != nil && qi < len(opts.Bias) {
			s += opts.Bias[qi]
		}
		return s
	}
	gapOpen, gapExtend := sc.GapOpen(), sc.GapExtend()

	// H/E/F indexed by band column k, one slice per of the two most recent
	// rows (i-1, i); this is algebraically the same recurrence BandedSW
	// uses, with the outer loop walking query rows.
	prevH := make([]int32, band)
	prevE := make([]int32, band)
	curH := make([]int32, band)
	curE := make([]int32, band)
	curF := make([]int32, band)
	for k := range prevE {
		prevE[k] = negInf
	}

	var best int32
	for i := 1; i <= qlen; i++ {
		rowBest := negInf
		for k := 0; k < band; k++ {
			d := dMin + k
			j := i + d
			if j < 1 || j > tlen {
				curH[k], curE[k], curF[k] = negInf, negInf, negInf
				continue
			}
			if k > 0 {
				curF[k] = max32(curH[k-1]-gapOpen-gapExtend, curF[k-1]-gapExtend)
			} else {
				curF[k] = negInf
			}
			if k+1 < band {
				curE[k] = max32(prevH[k+1]-gapOpen-gapExtend, prevE[k+1]-gapExtend)
			} else {
				curE[k] = negInf
			}
			diag := negInf
			if prevH[k] > negInf {
				diag = prevH[k] + scoreAt(i-1, j-1)
			}
			h := int32(0)
			if diag > h {
				h = diag
			}
			if curE[k] > h {
				h = curE[k]
			}
			if curF[k] > h {
				h = curF[k]
			}
			curH[k] = h
			if h > rowBest {
				rowBest = h
			}
			if h > best {
				best = h
			}
		}
		if opts.XDrop > 0 && best-rowBest > opts.XDrop && rowBest <= 0 {
			break
		}
		prevH, curH = curH, prevH
		prevE, curE = curE, prevE
	}
	if best < 0 {
		best = 0
	}
	return best, nil
}
