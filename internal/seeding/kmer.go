// Package seeding provides a minimal built-in substitute for spec.md §1's
// out-of-scope "indexing/seeding stage that produces the input hit
// stream". The core extension subsystem only consumes a SeedHit stream
// (spec.md §6.1); it never needs to know how that stream is produced. A
// standalone command still needs something to call, though, so this
// package supplies one concrete producer: an exact k-mer table in the
// style of the teacher's seeds.go (Seeds/SeedLoc/hashKmer), generalized
// from a single reference-compression table into a per-subject index a
// query frame is probed against to yield seedhit.SeedHit records.
package seeding

import (
	"github.com/diamond-core/diamond-core/internal/seedhit"
)

// DefaultKmerSize mirrors the teacher's flagSeedSize default (seeds.go
// callers historically set this to 3 for cablastp's coarse search; the
// core's seeding stand-in uses a longer, BLASTP-like word size since
// exact 3-mers over a full proteome are far too dense to be useful as
// seeds).
const DefaultKmerSize = 6

// Index is an exact k-mer table over one subject sequence's residues,
// playing the role of Seeds/SeedLoc in the teacher's seeds.go but scoped
// to a single target record instead of one global table, since the hit
// grouper (package seedhit) resolves a SeedHit's subject purely from
// TargetPosition and then indexes that same value directly into the
// matched subject's own residues (see seedhit.DefaultGrouper's prescreen)
// -- TargetPosition is therefore kept subject-local here, and the caller
// is expected to build and probe one Index per candidate subject record,
// the way a real seeding stage would shard its table by reference block.
type Index struct {
	k         int
	positions map[string][]uint32 // kmer -> sorted local offsets within this subject
}

// Build indexes every valid k-mer start position within subject, a single
// target record's residues.
func Build(subject []byte, k int) *Index {
	if k <= 0 {
		k = DefaultKmerSize
	}
	idx := &Index{k: k, positions: make(map[string][]uint32)}
	for i := 0; i+k <= len(subject); i++ {
		word := subject[i : i+k]
		if !allUpperAlpha(word) {
			continue
		}
		key := string(word)
		idx.positions[key] = append(idx.positions[key], uint32(i))
	}
	return idx
}

// Hits probes idx with every valid k-mer window of frame (one translated
// reading frame of a query), returning one SeedHit per (window, match)
// pair against the subject idx was built from. score_hint is left at zero
// (spec.md §3: "score_hint ... may be zero"); the hit grouper's ungapped
// prescreen computes a real score before any hit reaches the extension
// pipeline.
func (idx *Index) Hits(queryID uint32, frame []byte) []seedhit.SeedHit {
	var hits []seedhit.SeedHit
	for i := 0; i+idx.k <= len(frame); i++ {
		window := frame[i : i+idx.k]
		if !allUpperAlpha(window) {
			continue
		}
		for _, pos := range idx.positions[string(window)] {
			hits = append(hits, seedhit.SeedHit{
				QueryID:        queryID,
				TargetPosition: uint64(pos),
				SeedOffset:     uint32(i),
			})
		}
	}
	return hits
}

func allUpperAlpha(b []byte) bool {
	for _, c := range b {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
