package dpkernel

import (
	"fmt"
	"math"

	"github.com/diamond-core/diamond-core/internal/scoring"
)

// negInf is a sentinel well clear of any real score, used instead of a
// true -infinity so int32 arithmetic never overflows when combined with
// gap penalties.
const negInf = math.MinInt32 / 4

// BandedOptions configures one banded Smith-Waterman call (spec.md §4.2).
type BandedOptions struct {
	// ScoreOnly skips traceback-table allocation and Transcript
	// construction, used by the pipeline's score-only stage (spec.md
	// §4.4.1 step 3).
	ScoreOnly bool
	// Bias holds a per-query-position signed correction added to every
	// substitution score touching that query position (composition-based
	// score adjustment, spec.md §3 "Query context").
	Bias []int32
	// Override substitutes a different scoring.Context for substitution
	// scores only (gap costs still come from the base context); used to
	// plug in a composition-adjusted matrix per target (spec.md §4.1).
	Override scoring.Context
	// XDrop is the x-drop threshold; row scanning stops early once every
	// band cell's value falls more than XDrop below the running best
	// (spec.md §4.2 "SIMD kernels use an x-drop criterion").
	XDrop int32
}

// BandedResult is either a score (ScoreOnly) or a full HSP with transcript.
type BandedResult struct {
	Score       int32
	QueryRange  [2]int // [start, end) into query, 0-based
	TargetRange [2]int // [start, end) into target, 0-based
	Transcript  Transcript
	Width       SIMDWidth
}

// SelectWidth implements spec.md §4.2's automatic width selection: 8-bit if
// the band times lane count fits a byte's positive range, 16-bit if the
// query/target lengths themselves fit a 16-bit signed range, else 32-bit
// scalar. channels is the number of parallel lanes the caller intends to
// pack into one SIMD-style batch (8 for 16-bit width, 16 for 8-bit width,
// matching the pipeline's batching in spec.md §4.4.1 step 3).
func SelectWidth(band, queryLen, targetLen, channels int) SIMDWidth {
	if band*channels <= overflowSentinel8 {
		return Width8
	}
	if queryLen <= math.MaxInt16 && targetLen <= math.MaxInt16 {
		return Width16
	}
	return Width32
}

// BandedSW runs banded Smith-Waterman on query against target, restricted
// to diagonals in [dMin, dEnd). It returns an error only for a malformed
// band (dEnd <= dMin). There is no batched 8/16-bit banded kernel: this
// scalar kernel always accumulates in int32, so it never overflows and
// never re-runs at a wider width (spec.md §4.2: "8-bit overflow ... re-runs
// the tile at 16-bit"); the width chosen by SelectWidth is only recorded in
// BandedResult.Width.
func BandedSW(sc scoring.Context, query, target []byte, dMin, dEnd int, opts BandedOptions) (BandedResult, error) {
	band := dEnd - dMin
	if band <= 0 {
		return BandedResult{}, fmt.Errorf("dpkernel: empty band [%d, %d)", dMin, dEnd)
	}
	qlen, tlen := len(query), len(target)
	width := SelectWidth(band, qlen, tlen, 8)

	if opts.ScoreOnly {
		score, err := PrefixScan(sc, query, target, dMin, dEnd, opts)
		if err != nil {
			return BandedResult{}, err
		}
		return BandedResult{Score: score, Width: width}, nil
	}

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

	H := make([][]int32, qlen+1)
	E := make([][]int32, qlen+1)
	F := make([][]int32, qlen+1)
	for i := range H {
		H[i] = make([]int32, band)
		E[i] = make([]int32, band)
		F[i] = make([]int32, band)
		for k := range H[i] {
			H[i][k], E[i][k], F[i][k] = 0, negInf, negInf
		}
	}

	trace := make([][]int8, qlen+1)
	for i := range trace {
		trace[i] = make([]int8, band)
	}
	const (
		tbNone = iota
		tbDiag
		tbUp   // insertion: consumes query only
		tbLeft // deletion: consumes subject only
	)

	var best int32
	var bestI, bestK int
	rowBest := int32(0)

	for i := 1; i <= qlen; i++ {
		rowBest = negInf
		for k := 0; k < band; k++ {
			d := dMin + k
			j := i + d // 1-based subject position
			if j < 1 || j > tlen {
				H[i][k], E[i][k], F[i][k] = negInf, negInf, negInf
				continue
			}

			if k > 0 {
				F[i][k] = max32(H[i][k-1]-gapOpen-gapExtend, F[i][k-1]-gapExtend)
			} else {
				F[i][k] = negInf
			}
			if k+1 < band {
				E[i][k] = max32(H[i-1][k+1]-gapOpen-gapExtend, E[i-1][k+1]-gapExtend)
			} else {
				E[i][k] = negInf
			}

			diag := negInf
			if H[i-1][k] > negInf {
				diag = H[i-1][k] + scoreAt(i-1, j-1)
			}

			h := int32(0)
			tb := tbNone
			if diag > h {
				h, tb = diag, tbDiag
			}
			if E[i][k] > h {
				h, tb = E[i][k], tbUp
			}
			if F[i][k] > h {
				h, tb = F[i][k], tbLeft
			}
			H[i][k] = h
			trace[i][k] = int8(tb)

			if h > rowBest {
				rowBest = h
			}
			if h > best {
				best, bestI, bestK = h, i, k
			}
		}
		if opts.XDrop > 0 && best-rowBest > opts.XDrop && rowBest <= 0 {
			break
		}
	}

	if best <= 0 {
		return BandedResult{Score: 0, Width: width}, nil
	}
	res := BandedResult{Score: best, Width: width}

	// Traceback from (bestI, bestK) back to a zero cell.
	var b Builder
	i, k := bestI, bestK
	qEnd := i
	tEnd := i + dMin + k
	for i > 0 {
		d := dMin + k
		j := i + d
		if H[i][k] <= 0 {
			break
		}
		switch trace[i][k] {
		case tbDiag:
			if query[i-1] == target[j-1] {
				b.Add(OpMatch)
			} else {
				b.Add(OpSubst, target[j-1])
			}
			i--
		case tbUp:
			b.Add(OpInsertion, query[i-1])
			i--
			k++
		case tbLeft:
			b.Add(OpDeletion)
			k--
		default:
			i = 0
		}
	}
	b.Reverse()
	res.Transcript = b.Build()
	qStart := i
	tStart := i + dMin + k
	res.QueryRange = [2]int{qStart, qEnd}
	res.TargetRange = [2]int{tStart, tEnd}
	return res, nil
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
