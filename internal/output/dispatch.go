package output

import (
	"fmt"
	"io"

	"github.com/diamond-core/diamond-core/internal/extend"
	"github.com/diamond-core/diamond-core/internal/scoring"
)

// WriteQuery dispatches one query's ordered HSPs to the renderer matching
// a.Format, covering every format that can be written standalone per
// query (spec.md §6.4). DAA and the intermediate binary format carry
// cross-query state (a running query count, a trailing dictionary) and
// are written instead through DAAWriter/WriteIntermediate directly by the
// caller, which is why they are not dispatched here.
func WriteQuery(w io.Writer, sc scoring.Context, q Query, a Assembler, ordered []extend.OutputHSP) error {
	switch a.Format {
	case FormatBlastTabular, FormatPAF, FormatSAM:
		return WriteTabular(w, a.Format, q, a, ordered)
	case FormatPairwise:
		return WritePairwise(w, sc, q, a, ordered)
	case FormatXML:
		return WriteXML(w, q, a, ordered)
	case FormatJSON:
		return WriteJSON(w, q, a, ordered)
	default:
		return fmt.Errorf("output: WriteQuery does not support format %d directly; use DAAWriter or WriteIntermediate", a.Format)
	}
}
