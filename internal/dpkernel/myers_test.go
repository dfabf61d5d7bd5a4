package dpkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMyersEditDistanceIdentical(t *testing.T) {
	seq := []byte("ACGTACGTACGT")
	res := MyersEditDistance(seq, seq, 0)
	assert.Equal(t, 0, res.Distance)
}

func TestMyersEditDistanceSingleSubstitution(t *testing.T) {
	pattern := []byte("ACGTACGT")
	text := []byte("ACGTTCGT")
	res := MyersEditDistance(pattern, text, 0)
	assert.Equal(t, 1, res.Distance)
}

func TestMyersEditDistanceLongerThanWord(t *testing.T) {
	pattern := make([]byte, 130)
	for i := range pattern {
		pattern[i] = "ACGT"[i%4]
	}
	text := append([]byte(nil), pattern...)
	res := MyersEditDistance(pattern, text, 0)
	assert.Equal(t, 0, res.Distance)
}

func TestMyersEditDistancePruning(t *testing.T) {
	pattern := []byte("AAAAAAAAAA")
	text := []byte("TTTTTTTTTT")
	res := MyersEditDistance(pattern, text, 2)
	assert.True(t, res.Pruned || res.Distance > 2)
}
