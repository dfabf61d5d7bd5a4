// Package output implements the per-query output assembler (spec.md
// §4.5, §6.4): tabular (BLAST-6/PAF/SAM), pairwise text, XML, JSON, DAA
// binary, and intermediate binary formats, plus the join-blocks merger
// that combines one temporary file per reference chunk back into a
// single per-query record in blocked-processing mode. Binary encode/decode
// is grounded on the teacher's rw.go, which reads and writes cablastp's
// own binary record formats with encoding/binary and explicit big-endian
// framing; the same idiom is generalized here from the cablastp wire
// format to the DAA/intermediate layouts spec.md §6.4 defines.
package output

import (
	"fmt"

	"github.com/diamond-core/diamond-core/internal/dbstore"
	"github.com/diamond-core/diamond-core/internal/extend"
)

// Format identifies one of the output formats spec.md §6.4 names.
type Format int

const (
	FormatBlastTabular Format = iota
	FormatPAF
	FormatSAM
	FormatPairwise
	FormatXML
	FormatJSON
	FormatDAA
	FormatIntermediate
)

// ParseFormat maps a CLI format code (spec.md §6.5 "output format code")
// onto a Format, mirroring the teacher's cmd.go flag-parsing style of
// translating a short string flag into an internal enum.
func ParseFormat(code string) (Format, error) {
	switch code {
	case "6", "blast", "tabular":
		return FormatBlastTabular, nil
	case "paf":
		return FormatPAF, nil
	case "sam":
		return FormatSAM, nil
	case "0", "pairwise":
		return FormatPairwise, nil
	case "5", "xml":
		return FormatXML, nil
	case "json":
		return FormatJSON, nil
	case "100", "daa":
		return FormatDAA, nil
	case "intermediate":
		return FormatIntermediate, nil
	default:
		return 0, fmt.Errorf("output: unrecognized format code %q", code)
	}
}

// Query bundles one query's identity and the targets the extension
// pipeline accepted for it, the unit the assembler emits a per-query
// intro/body/epilog for (spec.md §4.5).
type Query struct {
	Index   int
	Title   string
	Length  int
	Letters []byte // query residues in the canonical (frame 0) orientation, for pairwise display
}

// Assembler renders one query's accepted output, in the already-sorted
// order extend.SortOutputOrder produced, into the configured format
// (spec.md §4.5: "for each query, open a per-query intro ... emit
// per-HSP records ... close with a per-query epilog").
type Assembler struct {
	Format Format
	DB     dbstore.Database

	// Filters applied at the assembler, not earlier (spec.md §4.5:
	// "Identity thresholds, query-cover, subject-cover, and max-HSPs-per-
	// target filters are applied here, not earlier").
	Filters Filters
}

// Filters are the output-time acceptance thresholds (spec.md §4.5, §6.5).
type Filters struct {
	MinIdentity     float64 // percent, 0 disables
	MinQueryCover   float64 // percent, 0 disables
	MinSubjectCover float64 // percent, 0 disables
	MinBitScore     float64 // 0 disables
	MaxEValue       float64 // 0 disables (use math.Inf if truly unlimited)
	MaxHSPsPerTarget int    // 0 disables
}

// accepts applies Filters to one HSP against its owning target, returning
// false if the record should be dropped from output.
func (f Filters) accepts(h *extend.OutputHSP, targetLen, queryLen int) bool {
	if f.MinBitScore > 0 && h.HSP.BitScore < f.MinBitScore {
		return false
	}
	if f.MaxEValue > 0 && h.HSP.EValue > f.MaxEValue {
		return false
	}
	if f.MinIdentity > 0 {
		pct := 0.0
		if h.HSP.Length > 0 {
			pct = float64(h.HSP.Identities) / float64(h.HSP.Length) * 100
		}
		if pct < f.MinIdentity {
			return false
		}
	}
	if f.MinQueryCover > 0 && queryLen > 0 {
		cov := float64(h.HSP.QueryRange[1]-h.HSP.QueryRange[0]) / float64(queryLen) * 100
		if cov < f.MinQueryCover {
			return false
		}
	}
	if f.MinSubjectCover > 0 && targetLen > 0 {
		cov := float64(h.HSP.SubjectRange[1]-h.HSP.SubjectRange[0]) / float64(targetLen) * 100
		if cov < f.MinSubjectCover {
			return false
		}
	}
	return true
}

// filterOrdered applies Filters and the max-HSPs-per-target cap to an
// already globally-ordered HSP list, preserving order.
func (f Filters) filterOrdered(ordered []extend.OutputHSP, db dbstore.Database, queryLen int) []extend.OutputHSP {
	perTarget := map[int64]int{}
	out := ordered[:0:0]
	for _, h := range ordered {
		tlen := 0
		if seq, err := db.Sequence(h.Target.SubjectID); err == nil {
			tlen = len(seq)
		}
		if !f.accepts(&h, tlen, queryLen) {
			continue
		}
		if f.MaxHSPsPerTarget > 0 {
			n := perTarget[h.Target.SubjectID]
			if n >= f.MaxHSPsPerTarget {
				continue
			}
			perTarget[h.Target.SubjectID] = n + 1
		}
		out = append(out, h)
	}
	return out
}
