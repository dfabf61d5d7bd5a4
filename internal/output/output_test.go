package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/diamond-core/diamond-core/internal/dbstore"
	"github.com/diamond-core/diamond-core/internal/dpkernel"
	"github.com/diamond-core/diamond-core/internal/extend"
	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/diamond-core/diamond-core/internal/seedhit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *dbstore.MemoryDatabase {
	db, err := dbstore.NewMemoryDatabase(0)
	require.NoError(t, err)
	db.Add(dbstore.Record{Title: "sp|P12345|TEST", Residues: []byte("MKTLLLTLVVVTIVCLDLGYT")})
	return db
}

func perfectHSP(sc scoring.Context, query []byte) *seedhit.HSP {
	var b dpkernel.Builder
	for range query {
		b.Add(dpkernel.OpMatch)
	}
	transcript := b.Build()
	var score int32
	for _, r := range query {
		score += sc.Score(r, r)
	}
	return &seedhit.HSP{
		Score: score, BitScore: sc.BitScore(score), EValue: sc.EValue(score, len(query), len(query)),
		QueryRange: [2]int{0, len(query)}, SubjectRange: [2]int{0, len(query)},
		Transcript: transcript, Identities: len(query), Length: len(query),
	}
}

func TestWriteTabularBlast6(t *testing.T) {
	sc := scoring.NewStdContext(scoring.NewBlosum62())
	db := newTestDB(t)
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")
	h := perfectHSP(sc, query)
	target := &seedhit.Target{SubjectID: 0, HSPs: []*seedhit.HSP{h}}

	ordered := extend.SortOutputOrder([]*seedhit.Target{target})
	a := Assembler{Format: FormatBlastTabular, DB: db}
	q := Query{Title: "query1", Length: len(query), Letters: query}

	var buf bytes.Buffer
	require.NoError(t, WriteTabular(&buf, FormatBlastTabular, q, a, ordered))
	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "query1\tsp|P12345|TEST\t100.00\t"))
}

func TestFiltersDropBelowMinBitScore(t *testing.T) {
	sc := scoring.NewStdContext(scoring.NewBlosum62())
	db := newTestDB(t)
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")
	h := perfectHSP(sc, query)
	target := &seedhit.Target{SubjectID: 0, HSPs: []*seedhit.HSP{h}}
	ordered := extend.SortOutputOrder([]*seedhit.Target{target})

	a := Assembler{Format: FormatBlastTabular, DB: db, Filters: Filters{MinBitScore: 1e6}}
	q := Query{Title: "query1", Length: len(query), Letters: query}

	var buf bytes.Buffer
	require.NoError(t, WriteTabular(&buf, FormatBlastTabular, q, a, ordered))
	assert.Empty(t, buf.String())
}

func TestCIGARFromTranscript(t *testing.T) {
	var b dpkernel.Builder
	b.Add(dpkernel.OpMatch)
	b.Add(dpkernel.OpMatch)
	b.Add(dpkernel.OpMatch)
	b.Add(dpkernel.OpDeletion)
	b.Add(dpkernel.OpInsertion, 'A')
	b.Add(dpkernel.OpInsertion, 'A')
	cigar, err := CIGARFromTranscript(b.Build())
	require.NoError(t, err)
	assert.Equal(t, "3M1D2I", cigar)
}

func TestWriteJSONRoundTripsStructure(t *testing.T) {
	sc := scoring.NewStdContext(scoring.NewBlosum62())
	db := newTestDB(t)
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")
	h := perfectHSP(sc, query)
	target := &seedhit.Target{SubjectID: 0, HSPs: []*seedhit.HSP{h}}
	ordered := extend.SortOutputOrder([]*seedhit.Target{target})

	a := Assembler{Format: FormatJSON, DB: db}
	q := Query{Title: "query1", Length: len(query), Letters: query}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, q, a, ordered))
	out := buf.String()
	assert.Contains(t, out, `"title":"query1"`)
	assert.Contains(t, out, `"subject_id":0`)
}

func TestDAAWriterRoundTripsHeader(t *testing.T) {
	var buf bytes.Buffer
	dw, err := NewDAAWriter(&buf, DAAHeader2{BuildNumber: 1, DBSeqs: 1, MatrixName: "BLOSUM62"})
	require.NoError(t, err)

	sc := scoring.NewStdContext(scoring.NewBlosum62())
	db := newTestDB(t)
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")
	h := perfectHSP(sc, query)
	target := &seedhit.Target{SubjectID: 0, HSPs: []*seedhit.HSP{h}}
	ordered := extend.SortOutputOrder([]*seedhit.Target{target})
	a := Assembler{Format: FormatDAA, DB: db}
	q := Query{Title: "query1", Length: len(query), Letters: query}

	require.NoError(t, dw.WriteQuery(q, a, ordered))
	require.NoError(t, dw.Finish(db))

	data := buf.Bytes()
	require.GreaterOrEqual(t, len(data), 72)
	magic := uint64(0)
	for i := 7; i >= 0; i-- {
		magic = magic<<8 | uint64(data[i])
	}
	assert.Equal(t, DAAMagic, magic)
}

func TestIntermediateRoundTrip(t *testing.T) {
	sc := scoring.NewStdContext(scoring.NewBlosum62())
	db := newTestDB(t)
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")
	h := perfectHSP(sc, query)
	target := &seedhit.Target{SubjectID: 0, HSPs: []*seedhit.HSP{h}}
	ordered := extend.SortOutputOrder([]*seedhit.Target{target})
	a := Assembler{Format: FormatIntermediate, DB: db}
	q := Query{Title: "query1", Length: len(query), Letters: query}

	var buf bytes.Buffer
	require.NoError(t, WriteIntermediate(&buf, q, a, ordered))
	require.NoError(t, FinishIntermediateFile(&buf))

	records, open, err := ReadIntermediateQuery(&buf)
	require.NoError(t, err)
	assert.True(t, open)
	require.Len(t, records, 1)
	assert.Equal(t, h.Score, records[0].Score)
	assert.Equal(t, h.QueryRange[0], records[0].QueryBegin)

	_, open2, err := ReadIntermediateQuery(&buf)
	require.NoError(t, err)
	assert.False(t, open2)
}

func TestJoinQueryReappliesGlobalCulling(t *testing.T) {
	sc := scoring.NewStdContext(scoring.NewBlosum62())
	query := []byte("MKTLLLTLVVVTIVCLDLGYT")

	chunk1DB, err := dbstore.NewMemoryDatabase(0)
	require.NoError(t, err)
	chunk1DB.Add(dbstore.Record{DictionaryID: 100, Title: "a", Residues: query})
	chunk2DB, err := dbstore.NewMemoryDatabase(0)
	require.NoError(t, err)
	chunk2DB.Add(dbstore.Record{DictionaryID: 200, Title: "b", Residues: query})

	var buf1, buf2 bytes.Buffer
	h := perfectHSP(sc, query)
	t1 := &seedhit.Target{SubjectID: 0, HSPs: []*seedhit.HSP{h}}
	require.NoError(t, WriteIntermediate(&buf1, Query{Title: "q", Length: len(query)}, Assembler{DB: chunk1DB}, extend.SortOutputOrder([]*seedhit.Target{t1})))
	require.NoError(t, FinishIntermediateFile(&buf1))

	t2 := &seedhit.Target{SubjectID: 0, HSPs: []*seedhit.HSP{h}}
	require.NoError(t, WriteIntermediate(&buf2, Query{Title: "q", Length: len(query)}, Assembler{DB: chunk2DB}, extend.SortOutputOrder([]*seedhit.Target{t2})))
	require.NoError(t, FinishIntermediateFile(&buf2))

	lengths := map[int64]int{100: len(query), 200: len(query)}
	sources := []ChunkSource{
		{Reader: &buf1, ToStable: func(id uint32) int64 { return 100 }},
		{Reader: &buf2, ToStable: func(id uint32) int64 { return 200 }},
	}
	ordered, anyOpen, err := JoinQuery(sc, sources, len(query), func(id int64) int { return lengths[id] }, extend.CullParams{MaxEValue: 10})
	require.NoError(t, err)
	assert.True(t, anyOpen)
	require.Len(t, ordered, 2)
	assert.ElementsMatch(t, []int64{100, 200}, []int64{ordered[0].Target.SubjectID, ordered[1].Target.SubjectID})
}
