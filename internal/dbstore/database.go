// Package dbstore implements the target database collaborator (spec.md
// §6.3): read-only access to target sequences by block id, the block-id
// -> stable dictionary-id mapping, taxon-id sets, and titles. It
// generalizes the teacher's reference.go CoarseDB -- a sync.RWMutex-
// guarded, append-only slice of sequences with integer ids -- from a
// compression reference set to an immutable, pre-built target block, and
// adds an LRU decode cache the teacher has no equivalent for because its
// sequences are never re-decoded from a packed form.
package dbstore

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Record is one target sequence plus the metadata the output formatters
// need (spec.md §6.3, §6.4's DAA dictionary).
type Record struct {
	DictionaryID int64
	Title        string
	TaxonIDs     []uint32
	Residues     []byte
}

// Database is the read-only target collaborator the extension pipeline
// and output assembler consume (spec.md §6.3). A Database corresponds to
// one reference chunk ("block") in blocked-processing mode; join-blocks
// (package output) is responsible for translating per-chunk dictionary
// ids back to the stable ids a caller sees across chunks.
type Database interface {
	// Sequence returns the residues for the target at blockID, a position
	// local to this chunk (spec.md: "sequences ... indexed by a block id").
	Sequence(blockID int64) ([]byte, error)
	// DictionaryID maps a block-local id to the stable out-of-block id
	// (spec.md: "a mapping from block id to a stable out-of-block id (the
	// 'dictionary')").
	DictionaryID(blockID int64) (int64, error)
	// TaxonIDs returns the taxon-id set recorded for a target, or nil if
	// none was loaded.
	TaxonIDs(blockID int64) []uint32
	// Title returns the target's display title (its FASTA header, by
	// convention up to the first whitespace run removed by the loader).
	Title(blockID int64) (string, error)
	// Len reports the number of targets in this chunk.
	Len() int
}

// MemoryDatabase is a Database held entirely resident, loaded once and
// read concurrently by worker goroutines thereafter (spec.md §5: "the
// reference sequence set and the query block are read-only after
// loading"). It mirrors the teacher's CoarseDB: a sync.RWMutex-guarded
// slice indexed by sequential integer id, built once via Add and then
// read lock-free in spirit (RLock is cheap and uncontended once loading
// has finished).
type MemoryDatabase struct {
	mu      sync.RWMutex
	records []Record
	cache   *lru.Cache[int64, []byte]
}

// NewMemoryDatabase creates an empty database. cacheSize > 0 allocates an
// LRU of that size; pass 0 to skip it. MemoryDatabase holds residues
// resident and none of its methods reads or fills the cache.
func NewMemoryDatabase(cacheSize int) (*MemoryDatabase, error) {
	db := &MemoryDatabase{}
	if cacheSize > 0 {
		c, err := lru.New[int64, []byte](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("dbstore: building LRU cache: %w", err)
		}
		db.cache = c
	}
	return db, nil
}

// Add appends one target record, assigning it the next sequential block
// id. It is the loader's job to call Add in block-id order before any
// worker goroutine begins reading.
func (db *MemoryDatabase) Add(r Record) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := int64(len(db.records))
	db.records = append(db.records, r)
	return id
}

func (db *MemoryDatabase) Sequence(blockID int64) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if blockID < 0 || int(blockID) >= len(db.records) {
		return nil, fmt.Errorf("dbstore: block id %d out of range [0,%d)", blockID, len(db.records))
	}
	return db.records[blockID].Residues, nil
}

func (db *MemoryDatabase) DictionaryID(blockID int64) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if blockID < 0 || int(blockID) >= len(db.records) {
		return 0, fmt.Errorf("dbstore: block id %d out of range [0,%d)", blockID, len(db.records))
	}
	return db.records[blockID].DictionaryID, nil
}

func (db *MemoryDatabase) TaxonIDs(blockID int64) []uint32 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if blockID < 0 || int(blockID) >= len(db.records) {
		return nil
	}
	return db.records[blockID].TaxonIDs
}

func (db *MemoryDatabase) Title(blockID int64) (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if blockID < 0 || int(blockID) >= len(db.records) {
		return "", fmt.Errorf("dbstore: block id %d out of range [0,%d)", blockID, len(db.records))
	}
	return db.records[blockID].Title, nil
}

func (db *MemoryDatabase) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.records)
}

// Dictionary renders the target-name and target-length arrays the DAA
// trailer requires (spec.md §6.4: "a dictionary of target names, then a
// parallel array of target lengths").
func (db *MemoryDatabase) Dictionary() (names []string, lengths []uint32) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names = make([]string, len(db.records))
	lengths = make([]uint32, len(db.records))
	for i, r := range db.records {
		names[i] = r.Title
		lengths[i] = uint32(len(r.Residues))
	}
	return names, lengths
}

// dumpFasta writes every record back out as FASTA, in block-id order, a
// debug helper mirroring the teacher's CoarseDB.saveFasta (reference.go);
// nothing in this repository calls it.
func (db *MemoryDatabase) dumpFasta(w *bufio.Writer) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for i, r := range db.records {
		if _, err := fmt.Fprintf(w, ">%s\n%s\n", r.Title, string(r.Residues)); err != nil {
			return fmt.Errorf("dbstore: writing block %d: %w", i, err)
		}
	}
	return w.Flush()
}

var _ Database = (*MemoryDatabase)(nil)

// openFile opens path and wraps any error with the path; grounded on the
// teacher's db.go pattern of passing *os.File handles into loaders rather
// than bare paths.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dbstore: opening %s: %w", path, err)
	}
	return f, nil
}
