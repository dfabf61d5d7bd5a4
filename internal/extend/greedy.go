package extend

import (
	"sort"

	"github.com/diamond-core/diamond-core/internal/dpkernel"
	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/diamond-core/diamond-core/internal/seedhit"
)

// GreedyPipeline is the alternate extension pipeline (spec.md §4.4.2):
// compute ungapped anchors per subject, chain them greedily into
// approximate HSPs with a gap-open/extend penalty model, then run a final
// banded DP inside each approximate HSP's diagonal bounds for the real
// HSP with traceback. Grounded on the teacher's link.go chain-building
// code (originally used to stitch compression links rather than HSPs).
type GreedyPipeline struct {
	Band  int
	XDrop int32
}

// anchor is one ungapped extension result annotated with the frame it was
// computed in, used as a chaining unit (spec.md §4.4.2 step (a)).
type anchor struct {
	frame int
	seg   dpkernel.UngappedSegment
}

// Run executes the three greedy-pipeline stages for one query's targets.
func (gp GreedyPipeline) Run(sc scoring.Context, qctx seedhit.QueryContext, targets []*seedhit.Target, lookupSubject func(subjectID int64) []byte) []*seedhit.Target {
	band := gp.Band
	if band <= 0 {
		band = defaultBand
	}
	var out []*seedhit.Target
	for _, t := range targets {
		subject := lookupSubject(t.SubjectID)

		// (a) ungapped anchors per subject, grouped per frame.
		var anchors []anchor
		for _, h := range t.Hits {
			frame := qctx.bestFrame(h)
			seg := dpkernel.ExtendUngapped(sc, qctx.Frames[frame], subject, int(h.SeedOffset), int(h.TargetPosition), int(gp.XDrop))
			if seg != nil {
				anchors = append(anchors, anchor{frame: frame, seg: *seg})
			}
		}
		if len(anchors) == 0 {
			continue
		}

		// (b) greedy chain extension: sort anchors by query start and
		// merge adjacent same-frame, same-diagonal-band anchors into one
		// approximate HSP span; the implied gap between them is not scored
		// here but by the banded DP in (c).
		chains := chainAnchors(anchors, band)

		// (c) final banded DP inside each chain's diagonal bounds.
		for _, c := range chains {
			query := qctx.Frames[c.frame]
			res, err := dpkernel.BandedSW(sc, query, subject, c.dMin, c.dEnd, dpkernel.BandedOptions{
				XDrop: gp.XDrop,
				Bias:  biasFor(qctx),
			})
			if err != nil || res.Score <= 0 {
				continue
			}
			h := hspFromBandedResult(sc, c.frame, res, qctx.Length, len(subject))
			ComputeIdentity(sc, h, query, subject)
			t.HSPs = append(t.HSPs, h)
			if h.Score > t.FilterScore {
				t.FilterScore = h.Score
			}
		}
		if len(t.HSPs) > 0 {
			t.FilterEValue = sc.EValue(t.FilterScore, qctx.Length, len(subject))
			InnerCull(t)
			out = append(out, t)
		}
	}
	return out
}

type anchorChain struct {
	frame    int
	dMin, dEnd int
}

// chainAnchors connects ungapped anchors sharing a frame into approximate
// HSPs by merging any two anchors whose diagonals differ by at most
// 2*band, mirroring the diagonal-clustering rule the banded-swipe pipeline
// uses for its own sub-targets (spec.md §4.4.1 step 3), generalized here
// to cross-seed chaining with an implicit gap-open/extend cost absorbed
// into the final banded DP's own affine gap model rather than scored
// twice.
func chainAnchors(anchors []anchor, band int) []anchorChain {
	byFrame := map[int][]anchor{}
	for _, a := range anchors {
		byFrame[a.frame] = append(byFrame[a.frame], a)
	}

	var chains []anchorChain
	for frame, as := range byFrame {
		sort.Slice(as, func(i, j int) bool {
			return diagonalOf(as[i].seg) < diagonalOf(as[j].seg)
		})
		curMin, curMax := diagonalOf(as[0].seg), diagonalOf(as[0].seg)
		for _, a := range as[1:] {
			d := diagonalOf(a.seg)
			if d-curMax <= int64(2*band) {
				if d > curMax {
					curMax = d
				}
			} else {
				chains = append(chains, anchorChain{frame: frame, dMin: int(curMin) - band, dEnd: int(curMax) + band})
				curMin, curMax = d, d
			}
		}
		chains = append(chains, anchorChain{frame: frame, dMin: int(curMin) - band, dEnd: int(curMax) + band})
	}
	return chains
}

func diagonalOf(seg dpkernel.UngappedSegment) int64 {
	return int64(seg.TargetStart - seg.QueryStart)
}
