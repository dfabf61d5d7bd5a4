package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/diamond-core/diamond-core/internal/extend"
)

// hspRecord is the per-HSP shape shared by XML and JSON output (spec.md
// §6.4: "fields match the identity, length, gap, positives set defined
// in §3").
type hspRecord struct {
	XMLName      xml.Name `xml:"Hsp" json:"-"`
	Score        int32    `xml:"Score" json:"score"`
	BitScore     float64  `xml:"BitScore" json:"bit_score"`
	EValue       float64  `xml:"Evalue" json:"evalue"`
	QueryFrom    int      `xml:"QueryFrom" json:"query_from"`
	QueryTo      int      `xml:"QueryTo" json:"query_to"`
	SubjectFrom  int      `xml:"SubjectFrom" json:"subject_from"`
	SubjectTo    int      `xml:"SubjectTo" json:"subject_to"`
	Identities   int      `xml:"Identities" json:"identities"`
	Positives    int      `xml:"Positives" json:"positives"`
	Mismatches   int      `xml:"Mismatches" json:"mismatches"`
	GapOpenings  int      `xml:"GapOpenings" json:"gap_openings"`
	AlignLength  int      `xml:"AlignLen" json:"align_len"`
	Frame        int      `xml:"Frame" json:"frame"`
}

type hitRecord struct {
	XMLName   xml.Name    `xml:"Hit" json:"-"`
	Title     string      `xml:"Title" json:"title"`
	SubjectID int64       `xml:"SubjectId" json:"subject_id"`
	HSPs      []hspRecord `xml:"Hsps>Hsp" json:"hsps"`
}

type queryRecord struct {
	XMLName xml.Name    `xml:"Query" json:"-"`
	Title   string      `xml:"Title" json:"title"`
	Length  int         `xml:"Length" json:"length"`
	Hits    []hitRecord `xml:"Hits>Hit" json:"hits"`
}

func buildQueryRecord(q Query, a Assembler, ordered []extend.OutputHSP) queryRecord {
	filtered := a.Filters.filterOrdered(ordered, a.DB, q.Length)
	byTarget := map[int64]*hitRecord{}
	var order []int64
	qr := queryRecord{Title: q.Title, Length: q.Length}
	for _, h := range filtered {
		rec, ok := byTarget[h.Target.SubjectID]
		if !ok {
			title, err := a.DB.Title(h.Target.SubjectID)
			if err != nil {
				title = fmt.Sprintf("subject_%d", h.Target.SubjectID)
			}
			byTarget[h.Target.SubjectID] = &hitRecord{Title: title, SubjectID: h.Target.SubjectID}
			rec = byTarget[h.Target.SubjectID]
			order = append(order, h.Target.SubjectID)
		}
		rec.HSPs = append(rec.HSPs, hspRecord{
			Score: h.HSP.Score, BitScore: h.HSP.BitScore, EValue: h.HSP.EValue,
			QueryFrom: h.HSP.QueryRange[0], QueryTo: h.HSP.QueryRange[1],
			SubjectFrom: h.HSP.SubjectRange[0], SubjectTo: h.HSP.SubjectRange[1],
			Identities: h.HSP.Identities, Positives: h.HSP.Positives,
			Mismatches: h.HSP.Mismatches, GapOpenings: h.HSP.GapOpenings,
			AlignLength: h.HSP.Length, Frame: h.HSP.Frame,
		})
	}
	for _, id := range order {
		qr.Hits = append(qr.Hits, *byTarget[id])
	}
	return qr
}

// WriteXML renders one query as a structured XML Query element (spec.md
// §6.4: "structured nested per-query -> per-target -> per-HSP").
func WriteXML(w io.Writer, q Query, a Assembler, ordered []extend.OutputHSP) error {
	qr := buildQueryRecord(q, a, ordered)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(qr); err != nil {
		return fmt.Errorf("output: encoding XML for query %q: %w", q.Title, err)
	}
	_, err := w.Write([]byte("\n"))
	return err
}

// WriteJSON renders one query as a newline-delimited JSON object, one
// per query, matching the same nesting as WriteXML (spec.md §6.4).
func WriteJSON(w io.Writer, q Query, a Assembler, ordered []extend.OutputHSP) error {
	qr := buildQueryRecord(q, a, ordered)
	enc := json.NewEncoder(w)
	if err := enc.Encode(qr); err != nil {
		return fmt.Errorf("output: encoding JSON for query %q: %w", q.Title, err)
	}
	return nil
}
