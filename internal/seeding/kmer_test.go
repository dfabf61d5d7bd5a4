package seeding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexFindsExactMatch(t *testing.T) {
	subject := []byte("XYZAAAWWWKKKQPR")
	idx := Build(subject, 3)
	hits := idx.Hits(0, []byte("AAAWWWKKK"))
	assert.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Less(t, int(h.TargetPosition), len(subject))
	}
}

func TestIndexSkipsNonAlphaWindows(t *testing.T) {
	idx := Build([]byte("AAA***BBB"), 3)
	hits := idx.Hits(0, []byte("***"))
	assert.Empty(t, hits)
}

func TestIndexDefaultsKmerSize(t *testing.T) {
	idx := Build([]byte("MKTLLLTLVVVTIVCLDLGYT"), 0)
	assert.Equal(t, DefaultKmerSize, idx.k)
}
