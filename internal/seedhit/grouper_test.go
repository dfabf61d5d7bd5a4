package seedhit

import (
	"testing"

	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleResolver(bucket uint64) SubjectResolver {
	return func(pos uint64) int64 { return int64(pos / bucket) }
}

func TestDefaultGrouperEmptyInput(t *testing.T) {
	sc := scoring.NewStdContext(scoring.NewBlosum62())
	g := DefaultGrouper{XDrop: 20}
	q := QueryContext{Frames: [][]byte{[]byte("MKTLLLTLVVVTIVCLDLGYT")}, Length: 21}
	targets := g.Group(sc, q, nil, simpleResolver(1000), func(int64) []byte { return nil })
	assert.Empty(t, targets)
}

func TestDefaultGrouperGroupsBySubject(t *testing.T) {
	sc := scoring.NewStdContext(scoring.NewBlosum62())
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")
	subjects := map[int64][]byte{
		0: query,
		1: append([]byte("XYZ"), query...),
	}
	lookup := func(id int64) []byte { return subjects[id] }

	hits := []SeedHit{
		{QueryID: 0, TargetPosition: 0, SeedOffset: 0},
		{QueryID: 0, TargetPosition: 1000, SeedOffset: 0}, // subject 1, offset inside "XYZ"+query but seed at 0 won't align well
		{QueryID: 0, TargetPosition: 1003, SeedOffset: 0},
	}
	g := DefaultGrouper{XDrop: 20}
	q := QueryContext{Frames: [][]byte{query}, Length: len(query)}
	targets := g.Group(sc, q, hits, simpleResolver(1000), lookup)

	require.NotEmpty(t, targets)
	for _, tg := range targets {
		assert.Equal(t, tg.FilterScore, tg.TopHit.Score)
	}
}

func TestLegacyGrouperAgreesOnSubjectSet(t *testing.T) {
	sc := scoring.NewStdContext(scoring.NewBlosum62())
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")
	subjects := map[int64][]byte{0: query}
	lookup := func(id int64) []byte { return subjects[id] }
	hits := []SeedHit{{QueryID: 0, TargetPosition: 0, SeedOffset: 0}}

	q := QueryContext{Frames: [][]byte{query}, Length: len(query)}
	a := DefaultGrouper{XDrop: 20}.Group(sc, q, hits, simpleResolver(1000), lookup)
	b := LegacyGrouper{}.Group(sc, q, hits, simpleResolver(1000), lookup)

	subjectSet := func(ts []*Target) map[int64]bool {
		m := map[int64]bool{}
		for _, t := range ts {
			m[t.SubjectID] = true
		}
		return m
	}
	assert.Equal(t, subjectSet(a), subjectSet(b))
}

func TestDiagonalComputation(t *testing.T) {
	h := SeedHit{TargetPosition: 105, SeedOffset: 5}
	assert.Equal(t, int64(100), Diagonal(h))
}
