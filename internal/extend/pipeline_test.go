package extend

import (
	"testing"

	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/diamond-core/diamond-core/internal/seedhit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stdSC() scoring.Context {
	return scoring.NewStdContext(scoring.NewBlosum62())
}

func TestBandedSwipePipelineSinglePerfectHit(t *testing.T) {
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")
	sc := stdSC()
	qctx := seedhit.QueryContext{Frames: [][]byte{query}, Length: len(query)}

	target := &seedhit.Target{
		SubjectID: 1,
		Hits:      []seedhit.SeedHit{{QueryID: 0, TargetPosition: 0, SeedOffset: 0}},
		TopHit:    nil,
	}
	lookup := func(int64) []byte { return query }

	pl := BandedSwipePipeline{Params: PipelineParams{
		Rank: RankParams{Mode: RankTopN, MaxTargetSeqs: 10, RankFactor: 1, RankRatio: 0},
		Cull: CullParams{MaxEValue: 10},
		Band: 5,
	}}
	out := pl.Run(sc, qctx, []*seedhit.Target{target}, lookup)
	require.Len(t, out, 1)
	require.Len(t, out[0].HSPs, 1)
	h := out[0].HSPs[0]
	assert.Equal(t, len(query), h.Identities)
	assert.Equal(t, 0, h.Mismatches)
}

func TestInnerCullRemovesDominatedOverlap(t *testing.T) {
	t1 := &seedhit.HSP{Score: 100, QueryRange: [2]int{0, 50}}
	t2 := &seedhit.HSP{Score: 40, QueryRange: [2]int{10, 55}} // >50% overlap with t1, lower score
	target := &seedhit.Target{HSPs: []*seedhit.HSP{t1, t2}}

	InnerCull(target)
	require.Len(t, target.HSPs, 1)
	assert.Equal(t, int32(100), target.HSPs[0].Score)
	assert.Equal(t, int32(100), target.FilterScore)
}

func TestInnerCullKeepsNonOverlapping(t *testing.T) {
	t1 := &seedhit.HSP{Score: 100, QueryRange: [2]int{0, 20}}
	t2 := &seedhit.HSP{Score: 80, QueryRange: [2]int{30, 50}}
	target := &seedhit.Target{HSPs: []*seedhit.HSP{t1, t2}}

	InnerCull(target)
	assert.Len(t, target.HSPs, 2)
}

func TestRankTopNRetainsBestAndDropsBelowRatio(t *testing.T) {
	targets := []*seedhit.Target{
		{SubjectID: 1, FilterScore: 100},
		{SubjectID: 2, FilterScore: 90},
		{SubjectID: 3, FilterScore: 10}, // below rank ratio
	}
	out := Rank(targets, RankParams{Mode: RankTopN, MaxTargetSeqs: 10, RankFactor: 1, RankRatio: 0.5})
	assert.Len(t, out, 2)
}

func TestRankTopPercentZeroKeepsOnlyTies(t *testing.T) {
	targets := []*seedhit.Target{
		{SubjectID: 1, FilterScore: 100},
		{SubjectID: 2, FilterScore: 100},
		{SubjectID: 3, FilterScore: 99},
	}
	out := Rank(targets, RankParams{Mode: RankTopPercent, TopPercent: 0})
	assert.Len(t, out, 2)
}

func TestCullDropsAboveMaxEValue(t *testing.T) {
	targets := []*seedhit.Target{
		{SubjectID: 1, FilterEValue: 1e-10, FilterScore: 100},
		{SubjectID: 2, FilterEValue: 5, FilterScore: 10},
	}
	out := Cull(targets, CullParams{MaxEValue: 1e-5})
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].SubjectID)
}

func TestOutputOrderingByEvalueThenScoreThenID(t *testing.T) {
	t1 := &seedhit.Target{SubjectID: 5}
	t2 := &seedhit.Target{SubjectID: 2}
	h1 := &seedhit.HSP{EValue: 1e-5, Score: 50}
	h2 := &seedhit.HSP{EValue: 1e-5, Score: 50}
	t1.HSPs = []*seedhit.HSP{h1}
	t2.HSPs = []*seedhit.HSP{h2}

	ordered := SortOutputOrder([]*seedhit.Target{t1, t2})
	require.Len(t, ordered, 2)
	assert.Equal(t, int64(2), ordered[0].Target.SubjectID)
}

func TestRangeIntervalTableCoverage(t *testing.T) {
	table := NewRangeIntervalTable(100)
	table.Insert([2]int{10, 30}, 50)
	assert.Equal(t, 20, table.CoverageAbove([2]int{0, 100}, 40))
	assert.Equal(t, 0, table.CoverageAbove([2]int{0, 100}, 60))
}

func TestMaxTargetSeqsOneKeepsOneTarget(t *testing.T) {
	targets := []*seedhit.Target{
		{SubjectID: 1, FilterScore: 100},
		{SubjectID: 2, FilterScore: 90},
	}
	out := Rank(targets, RankParams{Mode: RankTopN, MaxTargetSeqs: 1, RankFactor: 1, RankRatio: 0})
	assert.Len(t, out, 1)
}
