package output

import (
	"fmt"
	"io"

	"github.com/diamond-core/diamond-core/internal/extend"
)

// WriteTabular renders one query's filtered, ordered HSPs as BLAST-6,
// PAF, or SAM text (spec.md §6.4: "plain text, one line per HSP; exact
// per-field semantics match the well-known BLAST/SAM/PAF conventions").
// There is no per-query intro/epilog in these formats beyond the lines
// themselves.
func WriteTabular(w io.Writer, format Format, q Query, a Assembler, ordered []extend.OutputHSP) error {
	filtered := a.Filters.filterOrdered(ordered, a.DB, q.Length)
	for _, h := range filtered {
		var err error
		switch format {
		case FormatBlastTabular:
			err = writeBlast6Line(w, q, a, h)
		case FormatPAF:
			err = writePAFLine(w, q, a, h)
		case FormatSAM:
			err = writeSAMLine(w, q, a, h)
		default:
			return fmt.Errorf("output: WriteTabular called with non-tabular format %d", format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// writeBlast6Line emits one standard 12-column BLAST-6 line: qseqid
// sseqid pident length mismatch gapopen qstart qend sstart send evalue
// bitscore.
func writeBlast6Line(w io.Writer, q Query, a Assembler, h extend.OutputHSP) error {
	title, err := a.DB.Title(h.Target.SubjectID)
	if err != nil {
		title = fmt.Sprintf("subject_%d", h.Target.SubjectID)
	}
	pident := 0.0
	if h.HSP.Length > 0 {
		pident = float64(h.HSP.Identities) / float64(h.HSP.Length) * 100
	}
	_, err = fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2e\t%.1f\n",
		q.Title, title, pident, h.HSP.Length, h.HSP.Mismatches, h.HSP.GapOpenings,
		h.HSP.QueryRange[0]+1, h.HSP.QueryRange[1],
		h.HSP.SubjectRange[0]+1, h.HSP.SubjectRange[1],
		h.HSP.EValue, h.HSP.BitScore)
	return err
}

// writePAFLine emits a PAF record: qname qlen qstart qend strand tname
// tlen tstart tend nmatch alen mapq, with the strand always "+" since
// protein alignment has no reverse-complement concept (frame encodes
// translation direction instead, carried as an SAM-style optional tag).
func writePAFLine(w io.Writer, q Query, a Assembler, h extend.OutputHSP) error {
	title, err := a.DB.Title(h.Target.SubjectID)
	if err != nil {
		title = fmt.Sprintf("subject_%d", h.Target.SubjectID)
	}
	tlen := 0
	if seq, err := a.DB.Sequence(h.Target.SubjectID); err == nil {
		tlen = len(seq)
	}
	alen := h.HSP.QueryRange[1] - h.HSP.QueryRange[0]
	_, err = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t+\t%s\t%d\t%d\t%d\t%d\t%d\t%d\tfr:i:%d\tcs:i:%.0f\n",
		q.Title, q.Length, h.HSP.QueryRange[0], h.HSP.QueryRange[1],
		title, tlen, h.HSP.SubjectRange[0], h.HSP.SubjectRange[1],
		h.HSP.Identities, alen, mappingQuality(h.HSP.BitScore), h.HSP.Frame, h.HSP.BitScore)
	return err
}

// writeSAMLine emits a minimal SAM record using the HSP's transcript
// rendered as a CIGAR string; protein alignment has no mapping flags
// beyond "mapped forward" (flag 0) since there is no reverse strand.
func writeSAMLine(w io.Writer, q Query, a Assembler, h extend.OutputHSP) error {
	title, err := a.DB.Title(h.Target.SubjectID)
	if err != nil {
		title = fmt.Sprintf("subject_%d", h.Target.SubjectID)
	}
	cigar, err := CIGARFromTranscript(h.HSP.Transcript)
	if err != nil {
		cigar = "*"
	}
	_, err = fmt.Fprintf(w, "%s\t0\t%s\t%d\t%d\t%s\t*\t0\t0\t*\t*\tAS:i:%d\tZE:f:%.2e\n",
		q.Title, title, h.HSP.SubjectRange[0]+1, mappingQuality(h.HSP.BitScore), cigar,
		h.HSP.Score, h.HSP.EValue)
	return err
}

func mappingQuality(bitScore float64) int {
	q := int(bitScore)
	if q > 60 {
		return 60
	}
	if q < 0 {
		return 0
	}
	return q
}
