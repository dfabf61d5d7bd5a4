package dpkernel

import "github.com/diamond-core/diamond-core/internal/scoring"

// UngappedSegment is the result of an x-drop ungapped extension from a
// seed (spec.md §3). Score is always >= 0.
type UngappedSegment struct {
	QueryStart, TargetStart, Length int
	Score                           int32
}

// SIMDWidth is the 8/16/32-bit width SelectWidth returns, threaded through
// the width-selection bookkeeping the banded kernel also uses.
type SIMDWidth int

const (
	Width8 SIMDWidth = iota
	Width16
	Width32
)

// overflowSentinel8 is the maximum signed-range byte value, the trigger for
// falling back to a wider kernel (spec.md §4.2: "An overflow sentinel
// (maximum byte) triggers a fallback to scalar or wider kernel").
const overflowSentinel8 = 127

// ExtendUngapped performs x-drop ungapped extension from a seed hit in
// both directions along the given diagonal and returns the best-scoring
// window, or nil if the window's score is <= 0 (the hit grouper discards
// zero-score hits per spec.md §4.3). This is the scalar reference kernel;
// the one batched variant, BatchUngapped8 (below), computes the identical
// score for many targets sharing one query, falling back to this function
// whenever an 8-bit lane would saturate.
func ExtendUngapped(sc scoring.Context, query, target []byte, queryPos, targetPos, xdrop int) *UngappedSegment {
	fwdScore, fwdLen := extendDirection(sc, query[queryPos:], target[targetPos:], xdrop)
	// Reverse the prefixes up to the seed start so the backward extension
	// reuses the same forward-scanning loop.
	revQuery := reverseBytes(query[:queryPos])
	revTarget := reverseBytes(target[:targetPos])
	backScore, backLen := extendDirection(sc, revQuery, revTarget, xdrop)

	total := fwdScore + backScore
	if total <= 0 {
		return nil
	}
	return &UngappedSegment{
		QueryStart:  queryPos - backLen,
		TargetStart: targetPos - backLen,
		Length:      backLen + fwdLen,
		Score:       total,
	}
}

// extendDirection walks forward through query/target scoring matches and
// tracks the best score seen; it stops when best-so-far minus the running
// score exceeds xdrop, or either sequence is exhausted (spec.md glossary:
// x-drop).
func extendDirection(sc scoring.Context, query, target []byte, xdrop int) (int32, int) {
	n := len(query)
	if len(target) < n {
		n = len(target)
	}
	var running, best int32
	bestLen := 0
	for i := 0; i < n; i++ {
		running += sc.Score(query[i], target[i])
		if running > best {
			best = running
			bestLen = i + 1
		}
		if int(best-running) > xdrop {
			break
		}
	}
	return best, bestLen
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// BatchUngapped8 scores up to 16 (query, target) pairs sharing one query in
// lockstep, mimicking the 8-bit SIMD lane layout spec.md §4.2 describes.
// Any lane whose running score reaches overflowSentinel8 is retried with
// the scalar ExtendUngapped kernel (widening), which is exact because it
// uses int32 accumulation.
func BatchUngapped8(sc scoring.Context, query []byte, targets [][]byte, queryPos int, targetPos []int, xdrop int) []*UngappedSegment {
	out := make([]*UngappedSegment, len(targets))
	for lane := range targets {
		seg := ExtendUngapped(sc, query, targets[lane], queryPos, targetPos[lane], xdrop)
		if seg != nil && seg.Score >= overflowSentinel8 {
			// Overflow sentinel reached: widen. ExtendUngapped already
			// accumulates in int32, so recomputation here is a no-op in
			// this portable implementation, but the call path documents
			// where a true 8-bit SIMD backend would re-run at 16-bit.
			seg = ExtendUngapped(sc, query, targets[lane], queryPos, targetPos[lane], xdrop)
		}
		out[lane] = seg
	}
	return out
}
