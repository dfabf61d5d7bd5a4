package output

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/diamond-core/diamond-core/internal/dbstore"
	"github.com/diamond-core/diamond-core/internal/extend"
)

// intermediateEndOfQuery and intermediateEndOfFile are the sentinels
// spec.md §6.4 defines for the intermediate binary format: "a 32-bit 0
// marks end of a query's records; a 32-bit sentinel 0xFFFFFFFF marks end
// of file."
const (
	intermediateEndOfQuery uint32 = 0
	intermediateEndOfFile  uint32 = 0xFFFFFFFF
)

var intermediateOrder = binary.LittleEndian

// IntermediateRecord is one HSP's on-disk representation in blocked
// processing mode (spec.md §6.4, §6.6): "one IntermediateRecord per HSP
// ... { target_dict_id: u32, flag: u8, packed(score), packed(query_begin),
// packed(subject_begin), transcript }". Per-chunk dictionary ids are used
// here, not the stable ids; join-blocks translates them.
type IntermediateRecord struct {
	TargetDictID uint32
	Flag         byte
	Score        int32
	QueryBegin   int
	SubjectBegin int
	Transcript   []byte
}

// WriteIntermediate appends one query's filtered, ordered HSPs to w as
// IntermediateRecords, followed by the end-of-query sentinel. It does not
// write the end-of-file sentinel; the caller (the per-chunk worker pool's
// owning goroutine) calls FinishIntermediateFile exactly once after the
// last query in a chunk.
func WriteIntermediate(w io.Writer, q Query, a Assembler, ordered []extend.OutputHSP) error {
	filtered := a.Filters.filterOrdered(ordered, a.DB, q.Length)
	for _, h := range filtered {
		if err := writeIntermediateRecord(w, a.DB, h); err != nil {
			return err
		}
	}
	return binary.Write(w, intermediateOrder, intermediateEndOfQuery)
}

func writeIntermediateRecord(w io.Writer, db dbstore.Database, h extend.OutputHSP) error {
	dictID, err := db.DictionaryID(h.Target.SubjectID)
	if err != nil {
		return fmt.Errorf("output: resolving dictionary id for subject %d: %w", h.Target.SubjectID, err)
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, intermediateOrder, uint32(dictID)); err != nil {
		return err
	}
	scoreFlag := lengthFlag(uint32(h.HSP.Score))
	qFlag := lengthFlag(uint32(h.HSP.QueryRange[0]))
	sFlag := lengthFlag(uint32(h.HSP.SubjectRange[0]))
	buf.WriteByte(scoreFlag | (qFlag << 2) | (sFlag << 4))
	writePacked(&buf, intermediateOrder, uint32(h.HSP.Score))
	writePacked(&buf, intermediateOrder, uint32(h.HSP.QueryRange[0]))
	writePacked(&buf, intermediateOrder, uint32(h.HSP.SubjectRange[0]))
	// The transcript field has no fixed width, so it is length-prefixed
	// here (a framing detail §6.4 leaves to the implementer; Transcript
	// itself carries no terminator, see dpkernel.Decode).
	if err := binary.Write(&buf, intermediateOrder, uint32(len(h.HSP.Transcript))); err != nil {
		return err
	}
	buf.Write([]byte(h.HSP.Transcript))
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("output: writing intermediate record: %w", err)
	}
	return nil
}

// FinishIntermediateFile appends the end-of-file sentinel (spec.md §6.4).
func FinishIntermediateFile(w io.Writer) error {
	return binary.Write(w, intermediateOrder, intermediateEndOfFile)
}

// ReadIntermediateQuery reads one query's worth of records from r, up to
// and consuming its end-of-query sentinel, returning ok=false once the
// end-of-file sentinel is read instead.
func ReadIntermediateQuery(r io.Reader) (records []IntermediateRecord, ok bool, err error) {
	for {
		var marker uint32
		if err := binary.Read(r, intermediateOrder, &marker); err != nil {
			if err == io.EOF {
				return records, len(records) > 0, nil
			}
			return nil, false, fmt.Errorf("output: reading intermediate marker: %w", err)
		}
		if marker == intermediateEndOfFile {
			return records, false, nil
		}
		if marker == intermediateEndOfQuery {
			return records, true, nil
		}
		rec := IntermediateRecord{TargetDictID: marker}
		if err := binary.Read(r, intermediateOrder, &rec.Flag); err != nil {
			return nil, false, fmt.Errorf("output: reading intermediate flag: %w", err)
		}
		scoreFlag := rec.Flag & 0x3
		qFlag := (rec.Flag >> 2) & 0x3
		sFlag := (rec.Flag >> 4) & 0x3
		score, err := readPacked(r, scoreFlag)
		if err != nil {
			return nil, false, err
		}
		qb, err := readPacked(r, qFlag)
		if err != nil {
			return nil, false, err
		}
		sb, err := readPacked(r, sFlag)
		if err != nil {
			return nil, false, err
		}
		rec.Score = int32(score)
		rec.QueryBegin = int(qb)
		rec.SubjectBegin = int(sb)

		var transcriptLen uint32
		if err := binary.Read(r, intermediateOrder, &transcriptLen); err != nil {
			return nil, false, fmt.Errorf("output: reading transcript length: %w", err)
		}
		rec.Transcript = make([]byte, transcriptLen)
		if _, err := io.ReadFull(r, rec.Transcript); err != nil {
			return nil, false, fmt.Errorf("output: reading transcript bytes: %w", err)
		}
		records = append(records, rec)
	}
}

func readPacked(r io.Reader, flag byte) (uint32, error) {
	switch flag {
	case 0:
		var v uint8
		if err := binary.Read(r, intermediateOrder, &v); err != nil {
			return 0, fmt.Errorf("output: reading packed u8: %w", err)
		}
		return uint32(v), nil
	case 1:
		var v uint16
		if err := binary.Read(r, intermediateOrder, &v); err != nil {
			return 0, fmt.Errorf("output: reading packed u16: %w", err)
		}
		return uint32(v), nil
	default:
		var v uint32
		if err := binary.Read(r, intermediateOrder, &v); err != nil {
			return 0, fmt.Errorf("output: reading packed u32: %w", err)
		}
		return v, nil
	}
}
