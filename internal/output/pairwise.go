package output

import (
	"fmt"
	"io"

	"github.com/diamond-core/diamond-core/internal/extend"
	"github.com/diamond-core/diamond-core/internal/scoring"
)

// WritePairwise renders one query's filtered, ordered HSPs as wrapped
// pairwise text (spec.md §6.4), opening with a query header and closing
// with a blank-line epilog per spec.md §4.5's "open ... emit ... close"
// contract.
func WritePairwise(w io.Writer, sc scoring.Context, q Query, a Assembler, ordered []extend.OutputHSP) error {
	if _, err := fmt.Fprintf(w, "Query= %s\nLength=%d\n\n", q.Title, q.Length); err != nil {
		return err
	}
	filtered := a.Filters.filterOrdered(ordered, a.DB, q.Length)
	for _, h := range filtered {
		subject, err := a.DB.Sequence(h.Target.SubjectID)
		if err != nil {
			return err
		}
		title, err := a.DB.Title(h.Target.SubjectID)
		if err != nil {
			title = fmt.Sprintf("subject_%d", h.Target.SubjectID)
		}
		ql, ml, sl, err := PairwiseLines(sc, h.HSP.Transcript, q.Letters, subject, h.HSP.QueryRange[0], h.HSP.SubjectRange[0])
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, ">%s\n Score = %.1f bits (%d), Expect = %.2e\n Identities = %d/%d, Positives = %d/%d, Gaps = %d\n\n",
			title, h.HSP.BitScore, h.HSP.Score, h.HSP.EValue,
			h.HSP.Identities, h.HSP.Length, h.HSP.Positives, h.HSP.Length, h.HSP.Length-h.HSP.Identities-h.HSP.Mismatches); err != nil {
			return err
		}
		if err := WrapPairwise(w, q.Title, title, ql, ml, sl, h.HSP.QueryRange[0], h.HSP.SubjectRange[0]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return nil
}
