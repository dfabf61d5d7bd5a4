package scoring

import "math"

// GapCosts holds the affine gap penalties and their tabulated Karlin-Altschul
// statistics, one entry per supported (open, extend) pair (spec.md §4.1).
type GapCosts struct {
	Open, Extend int32
	Lambda, K    float64
}

// Context is the scoring collaborator contract consumed by the extension
// core (spec.md §6.2). Everything the pipeline needs from "scoring" is
// reached through this interface so dpkernel/extend never depend on the
// concrete Matrix type directly.
type Context interface {
	Score(a, b byte) int32
	GapOpen() int32
	GapExtend() int32
	FrameShiftCost() int32
	Lambda() float64
	K() float64
	BitScore(raw int32) float64
	RawScore(bitScore float64) int32
	EValue(raw int32, queryLen, targetLen int) float64
}

// StdContext is the default scoring.Context: one substitution matrix plus
// one affine gap-cost/statistics pair, ungapped lambda/K for fallback
// E-value estimates, and a configurable frameshift cost for translated
// search mode.
type StdContext struct {
	Matrix *Matrix

	UngappedLambda float64
	UngappedK      float64

	Gapped GapCosts

	FrameShift int32

	// ScaleFactor is the factor a scaled matrix variant multiplied scores by
	// (composition-based statistics); when it is above 1, BitScore divides
	// raw scores by it (rounding) before bit-score conversion.
	ScaleFactor float64
}

// NewStdContext builds a scoring context around the given matrix with the
// ungapped lambda/K DIAMOND and BLAST both tabulate for BLOSUM62 and the
// open=11/extend=1 gapped statistics pair, the most commonly used default.
func NewStdContext(m *Matrix) *StdContext {
	return &StdContext{
		Matrix:         m,
		UngappedLambda: 0.3176,
		UngappedK:      0.134,
		Gapped: GapCosts{
			Open: 11, Extend: 1,
			Lambda: 0.267, K: 0.041,
		},
		FrameShift:  15,
		ScaleFactor: 1,
	}
}

func (c *StdContext) Score(a, b byte) int32 { return c.Matrix.Score(a, b) }
func (c *StdContext) GapOpen() int32        { return c.Gapped.Open }
func (c *StdContext) GapExtend() int32      { return c.Gapped.Extend }
func (c *StdContext) FrameShiftCost() int32 { return c.FrameShift }
func (c *StdContext) Lambda() float64       { return c.Gapped.Lambda }
func (c *StdContext) K() float64            { return c.Gapped.K }

// BitScore converts a raw alignment score to a bit score:
// (lambda*s - ln(K)) / ln(2), descaling by ScaleFactor first if set.
func (c *StdContext) BitScore(raw int32) float64 {
	s := float64(raw)
	if c.ScaleFactor > 1 {
		s = math.Round(s / c.ScaleFactor)
	}
	return (c.Lambda()*s - math.Log(c.K())) / math.Ln2
}

// RawScore is the inverse of BitScore, rounded to the nearest integer.
func (c *StdContext) RawScore(bitScore float64) int32 {
	s := (bitScore*math.Ln2 + math.Log(c.K())) / c.Lambda()
	return int32(math.Round(s))
}

// EValue computes the expected number of alignments with score >= raw
// occurring by chance in a database search of the given query/target
// lengths, using the Karlin-Altschul formula with the gapped search-space
// adjustment BLAST/DIAMOND apply (effective lengths shrunk by expected
// alignment length 1/lambda * ln(K*m*n)).
func (c *StdContext) EValue(raw int32, queryLen, targetLen int) float64 {
	if queryLen <= 0 || targetLen <= 0 {
		return 1
	}
	lambda, k := c.Lambda(), c.K()
	m, n := float64(queryLen), float64(targetLen)

	// Effective lengths: iterate once, as BLAST's edge-effect correction
	// does, rather than solving the fixed point exactly.
	length := math.Log(k*m*n) / lambda
	me, ne := m-length, n-length
	if me < 1 {
		me = 1
	}
	if ne < 1 {
		ne = 1
	}
	return k * me * ne * math.Exp(-lambda*float64(raw))
}

// ScaledMatrix is a 32-bit scaled matrix variant (spec.md §4.1). As built
// by NewScaledMatrix, each entry is round(scale * s_ij) for the base
// matrix's integer score s_ij; entries are not rederived from
// substitution-frequency ratios. Lambda is the value solved so that
// sum(p_i p_j exp(lambda*s_ij))==1 over the scaled scores, via Newton
// iteration (see cbs.go:solveIdealLambda) weighted by background
// frequencies.
type ScaledMatrix struct {
	Scale  float64
	Lambda float64
	Scores [][]int32 // AlphaSize x AlphaSize
}

// NewScaledMatrix builds the scaled variant used as the CBS fallback chain's
// final rung (§4.1: "fall back ... to the unadjusted matrix multiplied by
// the scale factor").
func NewScaledMatrix(m *Matrix, scale float64) *ScaledMatrix {
	n := len(m.raw)
	scores := make([][]int32, n)
	for i := range scores {
		scores[i] = make([]int32, n)
		for j := range scores[i] {
			scores[i][j] = int32(math.Round(float64(m.raw[i][j]) * scale))
		}
	}
	bg := m.BackgroundFrequencies()
	lambda := solveIdealLambda(scores, bg)
	return &ScaledMatrix{Scale: scale, Lambda: lambda, Scores: scores}
}
