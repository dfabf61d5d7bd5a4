package dpkernel

import (
	"testing"

	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stdContext() scoring.Context {
	return scoring.NewStdContext(scoring.NewBlosum62())
}

func TestBandedSWPerfectSelfHit(t *testing.T) {
	seq := []byte("MKTLLLTLVVVTIVCLDLGYT")
	sc := stdContext()
	res, err := BandedSW(sc, seq, seq, 0, 1, BandedOptions{})
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, len(seq)}, res.QueryRange)
	assert.Equal(t, [2]int{0, len(seq)}, res.TargetRange)

	var want int32
	for i := range seq {
		want += sc.Score(seq[i], seq[i])
	}
	assert.Equal(t, want, res.Score)
}

func TestBandedSWStrictSubstring(t *testing.T) {
	query := []byte("AAAWWWKKK")
	target := []byte("XYZAAAWWWKKKQPR")
	sc := stdContext()
	// diagonal = target_pos - query_pos = 3 for a perfect substring match.
	res, err := BandedSW(sc, query, target, 0, 8, BandedOptions{})
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 9}, res.QueryRange)
	assert.Equal(t, [2]int{3, 12}, res.TargetRange)
}

func TestBandedSWRejectsEmptyBand(t *testing.T) {
	sc := stdContext()
	_, err := BandedSW(sc, []byte("AAA"), []byte("AAA"), 5, 5, BandedOptions{})
	assert.Error(t, err)
}

func TestBandedSWScoreOnlySkipsTranscript(t *testing.T) {
	seq := []byte("MKTLLLTLVVVTIVCLDLGYT")
	sc := stdContext()
	res, err := BandedSW(sc, seq, seq, 0, 1, BandedOptions{ScoreOnly: true})
	require.NoError(t, err)
	assert.Nil(t, res.Transcript)
	assert.Greater(t, res.Score, int32(0))
}

func TestScoreAgreesWithTranscript(t *testing.T) {
	query := []byte("HEAGAWGHEE")
	target := []byte("PAWHEAE")
	sc := stdContext()
	res, err := BandedSW(sc, query, target, -3, 4, BandedOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.Transcript)

	edits, err := Decode(res.Transcript)
	require.NoError(t, err)

	qi, ti := res.QueryRange[0], res.TargetRange[0]
	var recomputed int32
	for _, e := range edits {
		switch e.Op {
		case OpMatch, OpSubst:
			for n := 0; n < e.Length; n++ {
				recomputed += sc.Score(query[qi], target[ti])
				qi++
				ti++
			}
		case OpInsertion:
			qi += e.Length
		case OpDeletion:
			ti += e.Length
		}
	}
	assert.Equal(t, res.Score, recomputed, "score_agrees_with_transcript invariant")
	assert.Equal(t, res.QueryRange[1]-res.QueryRange[0], res.Transcript.QueryLength())
	assert.Equal(t, res.TargetRange[1]-res.TargetRange[0], res.Transcript.SubjectLength())
}

func TestSelectWidthEscalatesWithSize(t *testing.T) {
	assert.Equal(t, Width8, SelectWidth(4, 100, 100, 8))
	assert.Equal(t, Width16, SelectWidth(100, 1000, 1000, 8))
	assert.Equal(t, Width32, SelectWidth(100, 1<<20, 1<<20, 8))
}
