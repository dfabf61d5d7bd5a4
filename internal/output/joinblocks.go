package output

import (
	"fmt"
	"io"

	"github.com/diamond-core/diamond-core/internal/dpkernel"
	"github.com/diamond-core/diamond-core/internal/extend"
	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/diamond-core/diamond-core/internal/seedhit"
)

// ChunkSource is one reference chunk's temporary intermediate file plus
// the translation from that chunk's per-file dictionary ids to the
// stable, cross-chunk subject id the join-blocks layer must present
// (spec.md §6.3: "the join-blocks layer translates them back to the
// stable ids").
type ChunkSource struct {
	Reader   io.Reader
	ToStable func(dictID uint32) int64
}

// JoinQuery reads one query's records from every chunk source (they must
// all be positioned at the start of the same query's records -- callers
// drive N chunk readers in lockstep, one query at a time), re-applies
// global culling across the combined target set, and returns the final,
// globally-ordered HSP list for that query (spec.md §4.5: "the
// join-blocks layer ... reads all chunks' records per query, applies
// global culling again ... and writes the final per-query record").
//
// anyOpen reports whether at least one chunk still had records for this
// query (false once every chunk has reached its own end-of-file
// sentinel, meaning the whole run is done).
func JoinQuery(sc scoring.Context, sources []ChunkSource, queryLen int, lookupLen func(stableID int64) int, cull extend.CullParams) (ordered []extend.OutputHSP, anyOpen bool, err error) {
	byStable := map[int64]*seedhit.Target{}
	var order []int64

	for _, src := range sources {
		records, open, err := ReadIntermediateQuery(src.Reader)
		if err != nil {
			return nil, false, fmt.Errorf("output: join-blocks reading chunk: %w", err)
		}
		if open {
			anyOpen = true
		}
		for _, rec := range records {
			stable := src.ToStable(rec.TargetDictID)
			t, ok := byStable[stable]
			if !ok {
				t = &seedhit.Target{SubjectID: stable}
				byStable[stable] = t
				order = append(order, stable)
			}
			h := hspFromIntermediate(sc, rec, queryLen, lookupLen(stable))
			t.HSPs = append(t.HSPs, h)
			if h.Score > t.FilterScore {
				t.FilterScore = h.Score
			}
		}
	}

	targets := make([]*seedhit.Target, 0, len(order))
	for _, id := range order {
		t := byStable[id]
		t.FilterEValue = minEValue(t.HSPs)
		extend.InnerCull(t)
		if len(t.HSPs) > 0 {
			targets = append(targets, t)
		}
	}

	survivors := extend.Cull(targets, cull)
	return extend.SortOutputOrder(survivors), anyOpen, nil
}

func hspFromIntermediate(sc scoring.Context, rec IntermediateRecord, queryLen, targetLen int) *seedhit.HSP {
	t := dpkernel.Transcript(rec.Transcript)
	qLen := t.QueryLength()
	sLen := t.SubjectLength()
	h := &seedhit.HSP{
		Score:        rec.Score,
		QueryRange:   [2]int{rec.QueryBegin, rec.QueryBegin + qLen},
		SubjectRange: [2]int{rec.SubjectBegin, rec.SubjectBegin + sLen},
		Transcript:   t,
		Length:       qLen,
	}
	h.BitScore = sc.BitScore(h.Score)
	h.EValue = sc.EValue(h.Score, queryLen, targetLen)
	return h
}

func minEValue(hsps []*seedhit.HSP) float64 {
	if len(hsps) == 0 {
		return 0
	}
	best := hsps[0].EValue
	for _, h := range hsps[1:] {
		if h.EValue < best {
			best = h.EValue
		}
	}
	return best
}
