package seedhit

import (
	"github.com/diamond-core/diamond-core/internal/dpkernel"
	"github.com/diamond-core/diamond-core/internal/scoring"
)

// Grouper converts a contiguous slice of raw seed hits belonging to one
// query into an ordered slice of Target records (spec.md §4.3).
type Grouper interface {
	Group(sc scoring.Context, query QueryContext, hits []SeedHit, resolve SubjectResolver, lookupTarget func(subjectID int64) []byte) []*Target
}

// DefaultGrouper is the primary hit grouper (spec.md §4.3): sort by
// subject, run a light ungapped prescreen per hit, discard zero-score
// hits, and emit one Target per distinct subject boundary.
type DefaultGrouper struct {
	// XDrop is the x-drop threshold used by the prescreen extension.
	XDrop int
}

// Group implements Grouper. Failure model: none; empty input yields empty
// output (spec.md §4.3 "Failure model").
func (g DefaultGrouper) Group(sc scoring.Context, query QueryContext, hits []SeedHit, resolve SubjectResolver, lookupTarget func(subjectID int64) []byte) []*Target {
	if len(hits) == 0 {
		return nil
	}
	sorted := append([]SeedHit(nil), hits...)
	sortHitsBySubject(sorted, resolve)

	var targets []*Target
	var cur *Target
	var curSubject int64
	haveCur := false

	flush := func() {
		if cur != nil && len(cur.Hits) > 0 {
			targets = append(targets, cur)
		}
	}

	for _, h := range sorted {
		subj := resolve(h.TargetPosition)
		frame := query.bestFrame(h)
		subjectSeq := lookupTarget(subj)

		seg := prescreen(sc, query.Frames[frame], subjectSeq, h, g.XDrop)
		if seg == nil {
			// Zero-score hits are discarded during grouping (spec.md
			// §4.3), but a subject boundary must still be established so
			// later hits on the same subject are not split off into a
			// spurious new Target.
			if !haveCur || subj != curSubject {
				flush()
				cur = &Target{SubjectID: subj}
				curSubject = subj
				haveCur = true
			}
			continue
		}

		if !haveCur || subj != curSubject {
			flush()
			cur = &Target{SubjectID: subj}
			curSubject = subj
			haveCur = true
		}
		cur.Hits = append(cur.Hits, h)
		if cur.TopHit == nil || seg.Score > cur.TopHit.Score {
			cur.TopHit = seg
			cur.FilterScore = seg.Score
		}
	}
	flush()
	return targets
}

// prescreen runs a light ungapped extension from the seed and returns nil
// if its score is zero (spec.md §4.3: "optionally run a light ungapped
// extension ... and discard hits whose score is 0").
func prescreen(sc scoring.Context, query, target []byte, h SeedHit, xdrop int) *dpkernel.UngappedSegment {
	qpos := int(h.SeedOffset)
	tpos := int(h.TargetPosition)
	if qpos >= len(query) || tpos >= len(target) {
		return nil
	}
	seg := dpkernel.ExtendUngapped(sc, query, target, qpos, tpos, xdrop)
	if seg == nil || seg.Score <= 0 {
		return nil
	}
	return seg
}

// bestFrame picks the translated frame a hit addresses. spec.md §9 notes
// the source sometimes uses frame 0 as a dimensioning proxy even when six
// frames are aligned, and leaves the rule to the implementer (an Open
// Question). This implementation resolves it explicitly: with more than
// one frame, the frame is QueryID modulo the number of frames (one
// queryID per frame); the plain amino-acid case always has exactly one
// frame, so it always returns 0.
func (q QueryContext) bestFrame(h SeedHit) int {
	if len(q.Frames) <= 1 {
		return 0
	}
	frame := int(h.QueryID) % len(q.Frames)
	if frame < 0 || frame >= len(q.Frames) {
		return 0
	}
	return frame
}
