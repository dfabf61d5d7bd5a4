package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/diamond-core/diamond-core/internal/dpkernel"
	"github.com/diamond-core/diamond-core/internal/scoring"
)

// CIGARFromTranscript renders a packed Transcript as a CIGAR string
// (M/I/D run-length-encoded operations), the representation SAM output
// needs. Substitutions are folded into 'M' runs per SAM convention (SAM
// has no dedicated mismatch operation unless the '=/X' extended CIGAR
// alphabet is requested, which this renderer does not use).
func CIGARFromTranscript(t dpkernel.Transcript) (string, error) {
	edits, err := dpkernel.Decode(t)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	runOp := byte(0)
	runLen := 0
	flush := func() {
		if runLen > 0 {
			fmt.Fprintf(&b, "%d%c", runLen, runOp)
			runLen = 0
		}
	}
	for _, e := range edits {
		var op byte
		n := e.Length
		switch e.Op {
		case dpkernel.OpMatch, dpkernel.OpSubst:
			op = 'M'
			if e.Op == dpkernel.OpSubst {
				n = 1
			}
		case dpkernel.OpInsertion:
			op = 'I'
		case dpkernel.OpDeletion:
			op = 'D'
		default:
			continue
		}
		if op == runOp {
			runLen += n
		} else {
			flush()
			runOp, runLen = op, n
		}
	}
	flush()
	if b.Len() == 0 {
		return "*", nil
	}
	return b.String(), nil
}

// PairwiseLines renders the three display lines (query, match, subject)
// spec.md §6.4 requires for the pairwise text format: '|' for identities,
// '+' for positive-scoring substitutions, space otherwise. The lines are
// returned unwrapped; WrapPairwise splits them at 60 residues per line.
func PairwiseLines(sc scoring.Context, t dpkernel.Transcript, query, subject []byte, qStart, sStart int) (queryLine, matchLine, subjectLine string, err error) {
	edits, err := dpkernel.Decode(t)
	if err != nil {
		return "", "", "", err
	}
	var ql, ml, sl strings.Builder
	qi, si := qStart, sStart
	for _, e := range edits {
		switch e.Op {
		case dpkernel.OpMatch:
			for n := 0; n < e.Length; n++ {
				ql.WriteByte(query[qi])
				sl.WriteByte(subject[si])
				ml.WriteByte('|')
				qi++
				si++
			}
		case dpkernel.OpSubst:
			ql.WriteByte(query[qi])
			sl.WriteByte(subject[si])
			if sc.Score(query[qi], subject[si]) > 0 {
				ml.WriteByte('+')
			} else {
				ml.WriteByte(' ')
			}
			qi++
			si++
		case dpkernel.OpInsertion:
			for n := 0; n < e.Length; n++ {
				ql.WriteByte(query[qi])
				sl.WriteByte('-')
				ml.WriteByte(' ')
				qi++
			}
		case dpkernel.OpDeletion:
			for n := 0; n < e.Length; n++ {
				ql.WriteByte('-')
				sl.WriteByte(subject[si])
				ml.WriteByte(' ')
				si++
			}
		}
	}
	return ql.String(), ml.String(), sl.String(), nil
}

// WrapPairwise splits the three aligned lines into 60-residue blocks
// (spec.md §6.4 "60 residues per wrap") and writes them with BLAST-style
// position annotations.
func WrapPairwise(w io.Writer, queryTitle, subjectTitle string, queryLine, matchLine, subjectLine string, qStart, sStart int) error {
	const width = 60
	if _, err := fmt.Fprintf(w, "Query: %s\nSubject: %s\n\n", queryTitle, subjectTitle); err != nil {
		return err
	}
	qPos, sPos := qStart+1, sStart+1
	for off := 0; off < len(queryLine); off += width {
		end := off + width
		if end > len(queryLine) {
			end = len(queryLine)
		}
		qSeg := queryLine[off:end]
		sSeg := subjectLine[off:end]
		qAdvance := countResidues(qSeg)
		sAdvance := countResidues(sSeg)
		if _, err := fmt.Fprintf(w, "Query  %-8d %s %d\n", qPos, qSeg, qPos+qAdvance-1); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "                %s\n", matchLine[off:end]); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Sbjct  %-8d %s %d\n\n", sPos, sSeg, sPos+sAdvance-1); err != nil {
			return err
		}
		qPos += qAdvance
		sPos += sAdvance
	}
	return nil
}

func countResidues(segment string) int {
	n := 0
	for i := 0; i < len(segment); i++ {
		if segment[i] != '-' {
			n++
		}
	}
	return n
}
