package dpkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptRoundTrip(t *testing.T) {
	edits := []Edit{
		{Op: OpMatch, Length: 5},
		{Op: OpSubst, Length: 1, Letters: []byte{'Q'}},
		{Op: OpInsertion, Length: 3, Letters: []byte("WWW")},
		{Op: OpDeletion, Length: 2},
		{Op: OpFrameshiftFwd, Length: 1},
		{Op: OpMatch, Length: 7},
	}
	packed := Encode(edits)
	got, err := Decode(packed)
	require.NoError(t, err)
	assert.Equal(t, edits, got)

	repacked := Encode(got)
	assert.Equal(t, []byte(packed), []byte(repacked))
}

func TestBuilderCoalescesRuns(t *testing.T) {
	var b Builder
	for i := 0; i < 5; i++ {
		b.Add(OpMatch)
	}
	b.Add(OpSubst, 'A')
	for i := 0; i < 3; i++ {
		b.Add(OpInsertion, 'W')
	}
	edits, err := Decode(b.Build())
	require.NoError(t, err)
	require.Len(t, edits, 3)
	assert.Equal(t, 5, edits[0].Length)
	assert.Equal(t, 1, edits[1].Length)
	assert.Equal(t, 3, edits[2].Length)
	assert.Equal(t, []byte("WWW"), edits[2].Letters)
}

func TestQuerySubjectLengthInvariant(t *testing.T) {
	edits := []Edit{
		{Op: OpMatch, Length: 10},
		{Op: OpInsertion, Length: 2, Letters: []byte("AB")},
		{Op: OpDeletion, Length: 3},
	}
	tr := Encode(edits)
	assert.Equal(t, 12, tr.QueryLength())   // 10 match + 2 insertion
	assert.Equal(t, 13, tr.SubjectLength()) // 10 match + 3 deletion
}

func TestDecodeRejectsTruncatedTranscript(t *testing.T) {
	_, err := Decode(Transcript{byte(OpSubst)}) // missing letter byte
	assert.Error(t, err)
}
