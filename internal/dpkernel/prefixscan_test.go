package dpkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixScanAgreesWithTracebackScore(t *testing.T) {
	cases := []struct {
		name          string
		query, target []byte
		dMin, dEnd    int
	}{
		{"perfect_self_hit", []byte("MKTLLLTLVVVTIVCLDLGYT"), []byte("MKTLLLTLVVVTIVCLDLGYT"), 0, 1},
		{"strict_substring", []byte("AAAWWWKKK"), []byte("XYZAAAWWWKKKQPR"), 0, 8},
		{"mismatch_case", []byte("HEAGAWGHEE"), []byte("PAWHEAE"), -3, 4},
	}
	sc := stdContext()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			traced, err := BandedSW(sc, c.query, c.target, c.dMin, c.dEnd, BandedOptions{})
			require.NoError(t, err)

			scoreOnly, err := BandedSW(sc, c.query, c.target, c.dMin, c.dEnd, BandedOptions{ScoreOnly: true})
			require.NoError(t, err)

			assert.Equal(t, traced.Score, scoreOnly.Score)
			assert.Nil(t, scoreOnly.Transcript)
		})
	}
}

func TestPrefixScanRejectsEmptyBand(t *testing.T) {
	sc := stdContext()
	_, err := PrefixScan(sc, []byte("AAA"), []byte("AAA"), 5, 5, BandedOptions{})
	assert.Error(t, err)
}
