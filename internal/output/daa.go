package output

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/diamond-core/diamond-core/internal/dbstore"
	"github.com/diamond-core/diamond-core/internal/extend"
)

// DAAMagic is the fixed 64-bit magic at the start of header 1 (spec.md
// §6.4). DAA multi-byte fields are little-endian, the convention DIAMOND's
// own container uses; nothing elsewhere in this repo depends on endianness
// so this is a free choice made once, here.
const DAAMagic uint64 = 0x3c0e53476d3ee36b
const daaVersion uint32 = 1

// DAAHeader2 carries the fixed-size metadata block that follows header 1
// (spec.md §6.4: "build number, db counts, letters, gap penalties, λ, K,
// E-value cutoff, matrix name, three block-type/block-size arrays").
type DAAHeader2 struct {
	BuildNumber  uint32
	DBSeqs       uint64
	DBLetters    uint64
	GapOpen      int32
	GapExtend    int32
	Lambda       float64
	K            float64
	EValueCutoff float64
	MatrixName   string // stored as a fixed 16-byte, NUL-padded field
	BlockType    [3]uint32
	BlockSize    [3]uint32
}

// DAAWriter streams one DAA container to w: header 1, header 2, one
// record per query (via WriteQuery), then Finish writes the dictionary
// and length trailer. Grounded on the teacher's rw.go writer goroutine
// pattern (buffer-then-write-then-track-offset), adapted from cablastp's
// CSV record format to DAA's fixed binary layout.
type DAAWriter struct {
	w          io.Writer
	order      binary.ByteOrder
	queryCount uint32
}

// NewDAAWriter writes header 1 and header 2 immediately (header 2's
// counts are finalized at construction time since spec.md only requires
// the trailer -- dictionary and lengths -- to be rewritten once counts are
// known; the header fields here are static configuration, not counts).
func NewDAAWriter(w io.Writer, h2 DAAHeader2) (*DAAWriter, error) {
	order := binary.LittleEndian
	header1 := make([]byte, 72)
	order.PutUint64(header1[0:8], DAAMagic)
	order.PutUint32(header1[8:12], daaVersion)
	if _, err := w.Write(header1); err != nil {
		return nil, fmt.Errorf("output: writing DAA header1: %w", err)
	}

	var buf bytes.Buffer
	binary.Write(&buf, order, h2.BuildNumber)
	binary.Write(&buf, order, h2.DBSeqs)
	binary.Write(&buf, order, h2.DBLetters)
	binary.Write(&buf, order, h2.GapOpen)
	binary.Write(&buf, order, h2.GapExtend)
	binary.Write(&buf, order, h2.Lambda)
	binary.Write(&buf, order, h2.K)
	binary.Write(&buf, order, h2.EValueCutoff)
	name := make([]byte, 16)
	copy(name, h2.MatrixName)
	buf.Write(name)
	binary.Write(&buf, order, h2.BlockType)
	binary.Write(&buf, order, h2.BlockSize)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("output: writing DAA header2: %w", err)
	}

	return &DAAWriter{w: w, order: order}, nil
}

// WriteQuery appends one per-query record: length prefix, query length,
// NUL-terminated id, flags, packed sequence, then one per-match record
// per accepted HSP in the caller-supplied order (spec.md §6.4).
func (dw *DAAWriter) WriteQuery(q Query, a Assembler, ordered []extend.OutputHSP) error {
	filtered := a.Filters.filterOrdered(ordered, a.DB, q.Length)

	var body bytes.Buffer
	binary.Write(&body, dw.order, uint32(q.Length))
	body.WriteString(truncateAtDelimiter(q.Title))
	body.WriteByte(0)
	body.WriteByte(flagsForQuery(q.Letters))
	body.Write(q.Letters)

	for _, h := range filtered {
		if err := writeMatchRecord(&body, dw.order, a.DB, h); err != nil {
			return err
		}
	}

	if err := binary.Write(dw.w, dw.order, uint32(body.Len())); err != nil {
		return fmt.Errorf("output: writing DAA record length prefix: %w", err)
	}
	if _, err := dw.w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("output: writing DAA query record: %w", err)
	}
	dw.queryCount++
	return nil
}

// Finish writes the trailer: the dictionary of target names, then a
// parallel array of target lengths (spec.md §6.4).
func (dw *DAAWriter) Finish(db dbstore.Database) error {
	names, lengths := namesAndLengths(db)
	for _, name := range names {
		if _, err := dw.w.Write([]byte(truncateAtDelimiter(name) + "\x00")); err != nil {
			return fmt.Errorf("output: writing DAA dictionary entry: %w", err)
		}
	}
	for _, l := range lengths {
		if err := binary.Write(dw.w, dw.order, l); err != nil {
			return fmt.Errorf("output: writing DAA length trailer: %w", err)
		}
	}
	return nil
}

func namesAndLengths(db dbstore.Database) ([]string, []uint32) {
	if md, ok := db.(*dbstore.MemoryDatabase); ok {
		return md.Dictionary()
	}
	n := db.Len()
	names := make([]string, n)
	lengths := make([]uint32, n)
	for i := 0; i < n; i++ {
		names[i], _ = db.Title(int64(i))
		seq, _ := db.Sequence(int64(i))
		lengths[i] = uint32(len(seq))
	}
	return names, lengths
}

func truncateAtDelimiter(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			return s[:i]
		}
	}
	return s
}

func flagsForQuery(residues []byte) byte {
	for _, r := range residues {
		if r == 'N' || r == 'n' {
			return 1
		}
	}
	return 0
}

// lengthFlag selects the narrowest of u8/u16/u32 that holds v (spec.md
// §6.4: "length_flag in {0,1,2} selects u8 | u16 | u32 encoding").
func lengthFlag(v uint32) byte {
	switch {
	case v <= 0xFF:
		return 0
	case v <= 0xFFFF:
		return 1
	default:
		return 2
	}
}

func writePacked(buf *bytes.Buffer, order binary.ByteOrder, v uint32) byte {
	flag := lengthFlag(v)
	switch flag {
	case 0:
		buf.WriteByte(byte(v))
	case 1:
		b := make([]byte, 2)
		order.PutUint16(b, uint16(v))
		buf.Write(b)
	default:
		b := make([]byte, 4)
		order.PutUint32(b, v)
		buf.Write(b)
	}
	return flag
}

// writeMatchRecord appends one per-match record: target_dict_id, flags,
// three packed fields (score, query_begin, subject_begin), then a 32-bit
// transcript length and the transcript bytes verbatim (spec.md §6.4).
func writeMatchRecord(buf *bytes.Buffer, order binary.ByteOrder, db dbstore.Database, h extend.OutputHSP) error {
	dictID, err := db.DictionaryID(h.Target.SubjectID)
	if err != nil {
		return fmt.Errorf("output: resolving dictionary id for subject %d: %w", h.Target.SubjectID, err)
	}
	if err := binary.Write(buf, order, uint32(dictID)); err != nil {
		return err
	}

	scoreFlag := lengthFlag(uint32(h.HSP.Score))
	qFlag := lengthFlag(uint32(h.HSP.QueryRange[0]))
	sFlag := lengthFlag(uint32(h.HSP.SubjectRange[0]))
	flags := scoreFlag | (qFlag << 2) | (sFlag << 4)
	buf.WriteByte(flags)

	writePacked(buf, order, uint32(h.HSP.Score))
	writePacked(buf, order, uint32(h.HSP.QueryRange[0]))
	writePacked(buf, order, uint32(h.HSP.SubjectRange[0]))
	// length-prefix the transcript field for the same reason the
	// intermediate binary format does (see output.WriteIntermediate).
	if err := binary.Write(buf, order, uint32(len(h.HSP.Transcript))); err != nil {
		return err
	}
	buf.Write([]byte(h.HSP.Transcript))
	return nil
}
