package dpkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWavefrontAlignerIdenticalSequences(t *testing.T) {
	seq := []byte("ACGTACGTACGT")
	a := NewWavefrontAligner(seq, seq, 1, 2, 1, MemoryHigh)
	score, _ := a.Align()
	assert.Equal(t, int32(0), score)
}

func TestWavefrontAlignerCompactionModesRun(t *testing.T) {
	query := []byte("ACGTACGTACGTACGT")
	target := []byte("ACGTACGAACGTACGT")
	for _, mode := range []WavefrontMode{MemoryHigh, MemoryMedium, MemoryLow} {
		a := NewWavefrontAligner(query, target, 1, 2, 1, mode)
		score, _ := a.Align()
		assert.GreaterOrEqual(t, score, int32(0))
	}
}
