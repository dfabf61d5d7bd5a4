package seedhit

import (
	"github.com/diamond-core/diamond-core/internal/scoring"
)

// LegacyGrouper is the older non-SIMD hit-grouping path (grounded on
// original_source/src/align/legacy/query_mapper.{h,cpp}, which the
// distilled spec.md dropped). It partitions hits by subject like
// DefaultGrouper but extends every hit unconditionally (no x-drop prescreen
// short-circuiting) and keeps zero-score hits, and is kept as an
// independent oracle: the grouper tests run both groupers over the same
// input and assert they produce the same set of subjects.
type LegacyGrouper struct{}

// Group implements Grouper with the simpler legacy algorithm: a straight
// subject-keyed partition with no early discard of zero-score hits (they
// are kept with FilterScore 0 and simply never win ranking), matching the
// legacy query_mapper's "keep everything, let ranking sort it out"
// behavior.
func (LegacyGrouper) Group(sc scoring.Context, query QueryContext, hits []SeedHit, resolve SubjectResolver, lookupTarget func(subjectID int64) []byte) []*Target {
	if len(hits) == 0 {
		return nil
	}
	sorted := append([]SeedHit(nil), hits...)
	sortHitsBySubject(sorted, resolve)

	bySubject := make(map[int64]*Target)
	var order []int64
	for _, h := range sorted {
		subj := resolve(h.TargetPosition)
		t, ok := bySubject[subj]
		if !ok {
			t = &Target{SubjectID: subj}
			bySubject[subj] = t
			order = append(order, subj)
		}
		t.Hits = append(t.Hits, h)

		frame := query.bestFrame(h)
		subjectSeq := lookupTarget(subj)
		seg := prescreen(sc, query.Frames[frame], subjectSeq, h, 1<<30)
		if seg != nil && (t.TopHit == nil || seg.Score > t.TopHit.Score) {
			t.TopHit = seg
			t.FilterScore = seg.Score
		}
	}

	targets := make([]*Target, 0, len(order))
	for _, subj := range order {
		targets = append(targets, bySubject[subj])
	}
	return targets
}
