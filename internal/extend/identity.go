package extend

import (
	"github.com/diamond-core/diamond-core/internal/dpkernel"
	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/diamond-core/diamond-core/internal/seedhit"
)

// ComputeIdentity walks an HSP's transcript and fills in identities,
// positives, mismatches, gap openings, and alignment length (spec.md
// §4.4.4). The total gap count is tallied but not stored, since HSP has
// no field for it. It requires the HSP's Transcript to already be set;
// query/target must be the same sequences the transcript was built
// against (the alignment's frame-local query and the subject). sc is used
// to classify substitutions as "positive" (score > 0) per spec.md §3's HSP
// positives field.
func ComputeIdentity(sc scoring.Context, h *seedhit.HSP, query, target []byte) {
	edits, err := dpkernel.Decode(h.Transcript)
	if err != nil {
		return
	}
	qi, ti := h.QueryRange[0], h.SubjectRange[0]
	var identities, positives, mismatches, gapOpenings, gaps, length int
	inGap := false
	for _, e := range edits {
		switch e.Op {
		case dpkernel.OpMatch:
			identities += e.Length
			positives += e.Length
			length += e.Length
			qi += e.Length
			ti += e.Length
			inGap = false
		case dpkernel.OpSubst:
			length++
			mismatches++
			if qi < len(query) && ti < len(target) && sc.Score(query[qi], target[ti]) > 0 {
				positives++
			}
			qi++
			ti++
			inGap = false
		case dpkernel.OpInsertion, dpkernel.OpDeletion:
			length += e.Length
			gaps += e.Length
			if !inGap {
				gapOpenings++
				inGap = true
			}
			if e.Op == dpkernel.OpInsertion {
				qi += e.Length
			} else {
				ti += e.Length
			}
		case dpkernel.OpFrameshiftFwd, dpkernel.OpFrameshiftRev:
			inGap = false
		}
	}
	h.Identities = identities
	h.Positives = positives
	h.Mismatches = mismatches
	h.GapOpenings = gapOpenings
	h.Length = length
	_ = gaps
}

// ApproximateIdentity returns score/length*c, the cheap identity estimate
// used when the full transcript was not requested but score-only output
// is (spec.md §4.4.4). c is the scoring context's matrix-specific scale;
// callers typically pass 1 for an unscaled matrix.
func ApproximateIdentity(score int32, length int, c float64) float64 {
	if length <= 0 {
		return 0
	}
	return float64(score) / float64(length) * c
}

// PercentIdentity renders identities/length as a percentage with standard
// BLAST-style rounding (two decimal places at output time is the
// formatter's job; this returns the raw fraction*100).
func PercentIdentity(h *seedhit.HSP) float64 {
	if h.Length == 0 {
		return 0
	}
	return float64(h.Identities) / float64(h.Length) * 100
}
