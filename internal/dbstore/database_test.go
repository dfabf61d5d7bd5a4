package dbstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDatabaseAddAndLookup(t *testing.T) {
	db, err := NewMemoryDatabase(0)
	require.NoError(t, err)

	id0 := db.Add(Record{DictionaryID: 100, Title: "sp|P12345|TEST", Residues: []byte("MKTLL")})
	id1 := db.Add(Record{DictionaryID: 101, Title: "sp|P99999|OTHER", TaxonIDs: []uint32{9606}, Residues: []byte("AAAWWW")})

	assert.Equal(t, int64(0), id0)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, 2, db.Len())

	seq, err := db.Sequence(id1)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAWWW"), seq)

	dict, err := db.DictionaryID(id1)
	require.NoError(t, err)
	assert.Equal(t, int64(101), dict)

	title, err := db.Title(id0)
	require.NoError(t, err)
	assert.Equal(t, "sp|P12345|TEST", title)

	assert.Equal(t, []uint32{9606}, db.TaxonIDs(id1))
	assert.Nil(t, db.TaxonIDs(id0))
}

func TestMemoryDatabaseOutOfRange(t *testing.T) {
	db, err := NewMemoryDatabase(0)
	require.NoError(t, err)
	db.Add(Record{DictionaryID: 0, Title: "x", Residues: []byte("A")})

	_, err = db.Sequence(5)
	assert.Error(t, err)
	_, err = db.DictionaryID(-1)
	assert.Error(t, err)
	_, err = db.Title(5)
	assert.Error(t, err)
}

func TestDictionaryNamesAndLengths(t *testing.T) {
	db, err := NewMemoryDatabase(0)
	require.NoError(t, err)
	db.Add(Record{Title: "a", Residues: []byte("MKT")})
	db.Add(Record{Title: "b", Residues: []byte("MKTLLL")})

	names, lengths := db.Dictionary()
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, []uint32{3, 6}, lengths)
}

var _ Database = (*MemoryDatabase)(nil)
