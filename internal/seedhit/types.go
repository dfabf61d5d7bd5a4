// Package seedhit consumes the raw seed-hit stream produced by the
// (out-of-scope) indexing/seeding stage and groups it per query into
// Target candidates, generalizing the teacher's seeds.go k-mer table and
// reference.go sequence-table locking discipline to the wire format and
// grouping contract spec.md §3/§4.3 define.
package seedhit

import (
	"sort"

	"github.com/diamond-core/diamond-core/internal/dpkernel"
)

// SeedHit holds the fields of the wire record spec.md §6.1 defines: a match
// between a query frame position and a global reference offset. With Go's
// natural alignment this struct occupies 24 bytes.
type SeedHit struct {
	QueryID        uint32
	TargetPosition uint64
	SeedOffset     uint32
	ScoreHint      uint16
}

// Diagonal is the derived quantity target_position - seed_offset, relative
// to the chosen frame (spec.md §3).
func Diagonal(h SeedHit) int64 {
	return int64(h.TargetPosition) - int64(h.SeedOffset)
}

// HSPTrait is an approximate HSP summary used for culling and to seed
// later pipeline stages without carrying a full transcript (spec.md §3).
type HSPTrait struct {
	Score                  int32
	Frame                  int
	QueryRange, SubjectRange [2]int
	DiagMin, DiagMax       int64
}

// HSP is a high-scoring segment pair (spec.md §3).
type HSP struct {
	Frame             int
	Score             int32
	EValue            float64
	BitScore          float64
	QueryRange        [2]int
	SubjectRange      [2]int
	QuerySourceRange  [2]int
	Transcript        dpkernel.Transcript
	Identities        int
	Mismatches        int
	GapOpenings       int
	Positives         int
	Length            int
}

// Target is the per-query, per-subject record spec.md §3 defines: every
// seed hit sharing a subject, plus culling state and candidate HSPs.
type Target struct {
	SubjectID int64
	Hits      []SeedHit // slice into the sorted, grouped hit list (begin/end window)

	FilterScore  int32
	FilterEValue float64

	HSPs   []*HSP
	Traits []HSPTrait

	TaxonIDs []uint32

	// TopHit is the best ungapped segment observed during grouping
	// (spec.md §4.3: "record the best ungapped segment as top_hit").
	TopHit *dpkernel.UngappedSegment
}

// QueryContext owns one query's translated frames and, if composition-
// based statistics are active, a per-residue score bias (spec.md §3
// "Query context").
type QueryContext struct {
	BlockIndex  int
	Frames      [][]byte
	Length      int
	Composition []int32
}

// subjectIDOf extracts a stable subject identifier from a global target
// position; the (out-of-scope) database collaborator is the real source
// of subject boundaries, but for grouping purposes the hit grouper only
// needs a value that is identical for all hits against the same subject
// and monotonic with target_position, which global-offset-div-by-bucket
// achieves for any reasonable subject size bound. In production this is
// replaced by an exact subject lookup from the target database
// collaborator (spec.md §6.3); it is abstracted here as a pluggable
// function so that callers wire their own subject resolver when it is
// narrower or exact.
type SubjectResolver func(targetPosition uint64) int64

// sortHitsBySubject stable-sorts hits by resolved subject id, preserving
// relative position order within a subject (spec.md §4.3: "Sort the slice
// by subject identifier (stable with respect to position)").
func sortHitsBySubject(hits []SeedHit, resolve SubjectResolver) {
	sort.SliceStable(hits, func(i, j int) bool {
		return resolve(hits[i].TargetPosition) < resolve(hits[j].TargetPosition)
	})
}
