package extend

import (
	"sort"

	"github.com/diamond-core/diamond-core/internal/dpkernel"
	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/diamond-core/diamond-core/internal/seedhit"
)

// defaultBand is the half-width added on either side of a diagonal cluster when
// building a sub-target's DP band (spec.md §4.4.1 step 3).
const defaultBand = 32

// PipelineParams bundles the knobs the banded-swipe pipeline's stages
// consume, sourced from the CLI surface (spec.md §6.5) via package config.
type PipelineParams struct {
	Rank  RankParams
	Cull  CullParams
	Band  int
	XDrop int32

	// RangeCulling switches ranking to RangeCull semantics (spec.md
	// §4.4.3). When true, Rank/Cull above are bypassed for target
	// selection.
	RangeCulling bool
	RangeCull    RangeCullParams
}

// diagonalCluster groups a target's seed hits whose diagonals lie within
// 2*band of each other into one DP sub-target (spec.md §4.4.1 step 3).
type diagonalCluster struct {
	minDiag, maxDiag int64
	hits             []seedhit.SeedHit
}

func clusterByDiagonal(hits []seedhit.SeedHit, band int) []diagonalCluster {
	if len(hits) == 0 {
		return nil
	}
	sorted := append([]seedhit.SeedHit(nil), hits...)
	sort.Slice(sorted, func(i, j int) bool { return seedhit.Diagonal(sorted[i]) < seedhit.Diagonal(sorted[j]) })

	var clusters []diagonalCluster
	cur := diagonalCluster{minDiag: seedhit.Diagonal(sorted[0]), maxDiag: seedhit.Diagonal(sorted[0])}
	cur.hits = append(cur.hits, sorted[0])
	for _, h := range sorted[1:] {
		d := seedhit.Diagonal(h)
		if d-cur.maxDiag <= int64(2*band) {
			cur.hits = append(cur.hits, h)
			if d > cur.maxDiag {
				cur.maxDiag = d
			}
		} else {
			clusters = append(clusters, cur)
			cur = diagonalCluster{minDiag: d, maxDiag: d, hits: []seedhit.SeedHit{h}}
		}
	}
	clusters = append(clusters, cur)
	return clusters
}

// BandedSwipePipeline is the primary extension pipeline (spec.md §4.4.1):
// ungapped stage, ranking, score-only banded DP, score-only culling, full
// banded DP with traceback, and inner culling, run in that order for one
// query.
type BandedSwipePipeline struct {
	Params PipelineParams
}

// Run executes all six stages for one query's targets, mutating each
// Target's FilterScore/FilterEValue/HSPs in place and returning the
// surviving, fully-extended, inner-culled targets in pipeline order.
func (pl BandedSwipePipeline) Run(sc scoring.Context, qctx seedhit.QueryContext, targets []*seedhit.Target, lookupSubject func(subjectID int64) []byte) []*seedhit.Target {
	if len(targets) == 0 {
		return nil
	}
	band := pl.Params.Band
	if band <= 0 {
		band = defaultBand
	}

	// Stage 1: ungapped. Targets already carry FilterScore from grouping
	// (seedhit.DefaultGrouper sets it to the top hit's ungapped score);
	// nothing further to do here beyond making the invariant explicit.
	for _, t := range targets {
		if t.TopHit != nil {
			t.FilterScore = t.TopHit.Score
		}
	}

	// Stage 2: ranking.
	var ranked []*seedhit.Target
	var table *RangeIntervalTable
	if pl.Params.RangeCulling {
		table = NewRangeIntervalTable(qctx.Length)
		ranked = targets
	} else {
		ranked = Rank(targets, pl.Params.Rank)
	}

	// Stage 3: score-only banded DP over diagonal clusters.
	for _, t := range ranked {
		subject := lookupSubject(t.SubjectID)
		clusters := clusterByDiagonal(t.Hits, band)
		var best int32
		for _, c := range clusters {
			frame := qctx.bestFrame(c.hits[0])
			query := qctx.Frames[frame]
			dMin := c.minDiag - int64(band)
			dEnd := c.maxDiag + int64(band)
			res, err := dpkernel.BandedSW(sc, query, subject, int(dMin), int(dEnd), dpkernel.BandedOptions{
				ScoreOnly: true,
				XDrop:     pl.Params.XDrop,
				Bias:      biasFor(qctx),
			})
			if err == nil && res.Score > best {
				best = res.Score
			}
		}
		if best > t.FilterScore {
			t.FilterScore = best
		}
		t.FilterEValue = sc.EValue(t.FilterScore, qctx.Length, len(subject))
	}

	// Stage 4: score-only culling.
	var survivors []*seedhit.Target
	if pl.Params.RangeCulling {
		// Range-culling needs at least one HSP per target to cull against,
		// so no target is culled here; every ranked target goes on to
		// stage 5 and range-culling runs once real HSPs exist.
		survivors = ranked
	} else {
		survivors = Cull(ranked, pl.Params.Cull)
	}

	// Stage 5: full banded DP with traceback.
	for _, t := range survivors {
		subject := lookupSubject(t.SubjectID)
		clusters := clusterByDiagonal(t.Hits, band)
		for _, c := range clusters {
			frame := qctx.bestFrame(c.hits[0])
			query := qctx.Frames[frame]
			dMin := c.minDiag - int64(band)
			dEnd := c.maxDiag + int64(band)
			res, err := dpkernel.BandedSW(sc, query, subject, int(dMin), int(dEnd), dpkernel.BandedOptions{
				XDrop: pl.Params.XDrop,
				Bias:  biasFor(qctx),
			})
			if err != nil || res.Score <= 0 {
				continue
			}
			h := hspFromBandedResult(sc, frame, res, qctx.Length, len(subject))
			ComputeIdentity(sc, h, query, subject)
			t.HSPs = append(t.HSPs, h)
		}
	}

	// Stage 4b (range-culling mode only): now that real HSPs exist, apply
	// RangeCull's coverage-based selection.
	if pl.Params.RangeCulling {
		survivors = RangeCull(table, survivors, pl.Params.RangeCull)
	}

	// Stage 6: inner culling.
	for _, t := range survivors {
		InnerCull(t)
	}

	out := survivors[:0:0]
	for _, t := range survivors {
		if len(t.HSPs) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func biasFor(qctx seedhit.QueryContext) []int32 {
	return qctx.Composition
}

func hspFromBandedResult(sc scoring.Context, frame int, res dpkernel.BandedResult, queryLen, targetLen int) *seedhit.HSP {
	return &seedhit.HSP{
		Frame:            frame,
		Score:            res.Score,
		EValue:           sc.EValue(res.Score, queryLen, targetLen),
		BitScore:         sc.BitScore(res.Score),
		QueryRange:       res.QueryRange,
		SubjectRange:     res.TargetRange,
		QuerySourceRange: res.QueryRange,
		Transcript:       res.Transcript,
		Length:           res.QueryRange[1] - res.QueryRange[0],
	}
}

// SortOutputOrder sorts a query's accepted targets' HSPs for output:
// across the whole query, (E-value asc, score desc), ties broken by
// target id asc (spec.md §5 "Ordering guarantees"); within one target,
// score-descending (already true post-InnerCull).
func SortOutputOrder(targets []*seedhit.Target) []OutputHSP {
	var flat []OutputHSP
	for _, t := range targets {
		for _, h := range t.HSPs {
			flat = append(flat, OutputHSP{Target: t, HSP: h})
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		a, b := flat[i], flat[j]
		if a.HSP.EValue != b.HSP.EValue {
			return a.HSP.EValue < b.HSP.EValue
		}
		if a.HSP.Score != b.HSP.Score {
			return a.HSP.Score > b.HSP.Score
		}
		return a.Target.SubjectID < b.Target.SubjectID
	})
	return flat
}

// OutputHSP pairs an HSP with its owning Target for output ordering.
type OutputHSP struct {
	Target *seedhit.Target
	HSP    *seedhit.HSP
}
