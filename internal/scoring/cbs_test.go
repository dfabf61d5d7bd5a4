package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformFreqs(n int) []float64 {
	f := make([]float64, n)
	for i := range f {
		f[i] = 1.0 / float64(n)
	}
	return f
}

func TestAdjustConvergesForSimilarComposition(t *testing.T) {
	m := NewBlosum62()
	p := DefaultAdjustParams()
	p.QueryLen, p.TargetLen = 200, 200
	p.QueryFreqs = m.BackgroundFrequencies()
	p.TargetFreqs = m.BackgroundFrequencies()

	res := Adjust(m, p)
	require.NoError(t, res.Err)
	assert.Equal(t, MethodMatrixAdjust, res.Method)
	assert.NotNil(t, res.Scores)
}

func TestAdjustWithFallbackNeverReturnsError(t *testing.T) {
	m := NewBlosum62()
	p := DefaultAdjustParams()
	p.QueryLen, p.TargetLen = 200, 200
	// Bias frequencies toward a degenerate corner of the simplex to stress
	// the solver; the fallback chain must still produce usable scores.
	qf := make([]float64, AlphaSize)
	qf[m.Index('K')] = 0.5
	qf[m.Index('R')] = 0.5
	tf := make([]float64, AlphaSize)
	tf[m.Index('D')] = 0.5
	tf[m.Index('E')] = 0.5
	p.QueryFreqs, p.TargetFreqs = qf, tf
	p.MaxIterations = 5 // force non-convergence to exercise the fallback

	res := AdjustWithFallback(m, p)
	assert.NotNil(t, res.Scores)
	assert.NotEqual(t, 0.0, res.Lambda)
}

func TestShouldUseLogRatioThresholds(t *testing.T) {
	p := AdjustParams{
		QueryLen: 400, TargetLen: 50,
		QueryFreqs:  uniformFreqs(AlphaSize),
		TargetFreqs: uniformFreqs(AlphaSize),
	}
	// Identical uniform frequencies give zero KL-distance and zero angle,
	// so even an extreme length ratio must not trigger log-ratio mode.
	assert.False(t, ShouldUseLogRatio(p, 2, 0.1, 0.1))
}

func TestCBSFallbackFromUnadjustedMatchesScaledMatrix(t *testing.T) {
	m := NewBlosum62()
	got := unadjustedFallback(m, AdjustParams{Scale: 100})
	want := NewScaledMatrix(m, 100)
	require.Equal(t, len(want.Scores), len(got.Scores))
	for i := range want.Scores {
		assert.Equal(t, want.Scores[i], got.Scores[i])
	}
}
