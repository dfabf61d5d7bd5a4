package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlosum62SelfScorePositive(t *testing.T) {
	m := NewBlosum62()
	require.NotNil(t, m)
	assert.Greater(t, m.Score('W', 'W'), int32(0))
	assert.Greater(t, m.Score('A', 'A'), int32(0))
}

func TestScoreFallsBackToGapColumnForUnknownResidue(t *testing.T) {
	m := NewBlosum62()
	// 'J' is not part of the 20-letter amino-acid alphabet; scoring it
	// against a known residue must not panic, matching compress/nw.go's
	// behavior of indexing the gap column for unrecognized residues.
	assert.NotPanics(t, func() { m.Score('J', 'A') })
}

func TestPaddedVariantsAgreeWithRawOnAlphabet(t *testing.T) {
	m := NewBlosum62()
	for _, a := range []byte("ARNDCQEGHILKMFPSTWYV") {
		for _, b := range []byte("ARNDCQEGHILKMFPSTWYV") {
			i, j := m.Index(a), m.Index(b)
			require.GreaterOrEqual(t, i, 0)
			require.GreaterOrEqual(t, j, 0)
			raw := m.Score(a, b)
			assert.Equal(t, int16(raw), m.Signed16[i][j])
			assert.Equal(t, raw, int32(m.Unsigned8[i][j])-m.Bias8())
		}
	}
}

func TestEValueDecreasesWithScore(t *testing.T) {
	c := NewStdContext(NewBlosum62())
	low := c.EValue(30, 300, 300)
	high := c.EValue(80, 300, 300)
	assert.Less(t, high, low)
}

func TestBitScoreRawScoreRoundTrip(t *testing.T) {
	c := NewStdContext(NewBlosum62())
	for _, raw := range []int32{20, 50, 100, 250} {
		bs := c.BitScore(raw)
		back := c.RawScore(bs)
		assert.InDelta(t, float64(raw), float64(back), 1)
	}
}

func TestScaledMatrixLambdaIsPositive(t *testing.T) {
	m := NewBlosum62()
	sm := NewScaledMatrix(m, 100)
	assert.Greater(t, sm.Lambda, 0.0)
	assert.False(t, math.IsNaN(sm.Lambda))
}
