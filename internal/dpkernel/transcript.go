// Package dpkernel implements the DP kernels described in spec.md §4.2:
// ungapped extension, banded Smith-Waterman with automatic SIMD-width
// selection, the three-frame swipe kernel for translated search, Myers'
// bit-parallel edit distance, and the optional wavefront diff algorithm.
//
// True SIMD is not expressible portably from Go, so "SIMD width" here is
// bookkeeping only: SelectWidth (banded.go) picks an 8/16/32-bit width that
// is recorded in BandedResult.Width, while every kernel is scalar and
// accumulates in int32. There are no per-width or per-instruction-set
// kernel implementations.
package dpkernel

import "fmt"

// Op is one edit operation in a packed Transcript.
type Op byte

const (
	// OpMatch is a run of positions where query and subject agree; it
	// consumes the same number of residues from both sequences and
	// carries no letters of its own (the caller reads them from the
	// aligned sequences directly).
	OpMatch Op = iota
	// OpSubst is a single substituted position; it consumes one residue
	// from both sequences and carries the subject's replacement letter.
	OpSubst
	// OpInsertion is a run of residues present in the query but absent
	// from the subject (a gap in the subject); it carries the inserted
	// query letters because there is no subject position to read them
	// from.
	OpInsertion
	// OpDeletion is a run of residues present in the subject but absent
	// from the query (a gap in the query); it carries no letters since
	// they are read directly from the subject sequence at the recorded
	// subject offset.
	OpDeletion
	// OpFrameshiftFwd marks a +1 nucleotide frameshift in a translated
	// alignment (spec.md glossary: "Frame-shift"). It consumes no amino
	// acid positions in either sequence; it is purely a marker the
	// formatter must render distinctly.
	OpFrameshiftFwd
	// OpFrameshiftRev marks a -1 nucleotide frameshift, the mirror of
	// OpFrameshiftFwd.
	OpFrameshiftRev
)

func (o Op) String() string {
	switch o {
	case OpMatch:
		return "M"
	case OpSubst:
		return "X"
	case OpInsertion:
		return "I"
	case OpDeletion:
		return "D"
	case OpFrameshiftFwd:
		return "F+"
	case OpFrameshiftRev:
		return "F-"
	default:
		return "?"
	}
}

// Edit is one decoded transcript element: an operation, its run length
// (always 1 for OpSubst and the frameshift markers), and, for OpSubst and
// OpInsertion, the literal letters carried inline.
type Edit struct {
	Op      Op
	Length  int
	Letters []byte
}

// QueryConsumed reports how many query residues this edit consumes.
func (e Edit) QueryConsumed() int {
	switch e.Op {
	case OpMatch, OpSubst, OpInsertion:
		return e.Length
	default:
		return 0
	}
}

// SubjectConsumed reports how many subject residues this edit consumes.
func (e Edit) SubjectConsumed() int {
	switch e.Op {
	case OpMatch, OpSubst, OpDeletion:
		return e.Length
	default:
		return 0
	}
}

// Transcript is the packed edit-operation sequence attached to an HSP
// (spec.md §3). It round-trips exactly: Encode(Decode(t)) == t for any
// well-formed Transcript (spec.md §8 "Transcript round-trip").
type Transcript []byte

// Builder accumulates Edits and packs them, coalescing adjacent
// same-length-1 runs of the same op the way the traceback loop naturally
// produces them (one byte/letter at a time).
type Builder struct {
	edits []Edit
}

// Add appends a single-position edit to the builder, merging it into the
// previous edit if they are run-compatible (same op, and the op is a
// run-type, i.e. not OpSubst or a frameshift marker).
func (b *Builder) Add(op Op, letters ...byte) {
	if n := len(b.edits); n > 0 {
		last := &b.edits[n-1]
		if last.Op == op && runType(op) {
			last.Length++
			last.Letters = append(last.Letters, letters...)
			return
		}
	}
	b.edits = append(b.edits, Edit{Op: op, Length: 1, Letters: append([]byte(nil), letters...)})
}

func runType(op Op) bool {
	return op == OpMatch || op == OpInsertion || op == OpDeletion
}

// Reverse reverses the accumulated edit order; traceback walks from the
// alignment's end toward its start, so the builder is reversed once before
// packing.
func (b *Builder) Reverse() {
	for i, j := 0, len(b.edits)-1; i < j; i, j = i+1, j-1 {
		b.edits[i], b.edits[j] = b.edits[j], b.edits[i]
	}
}

// Build packs the accumulated edits into a Transcript.
func (b *Builder) Build() Transcript {
	return Encode(b.edits)
}

// Encode packs a decoded edit list into its binary Transcript form.
func Encode(edits []Edit) Transcript {
	var out []byte
	for _, e := range edits {
		out = append(out, byte(e.Op))
		switch e.Op {
		case OpMatch, OpInsertion, OpDeletion:
			out = appendVarint(out, e.Length)
			if e.Op == OpInsertion {
				out = append(out, e.Letters...)
			}
		case OpSubst:
			out = append(out, e.Letters[0])
		case OpFrameshiftFwd, OpFrameshiftRev:
			// no payload
		}
	}
	return out
}

// Decode unpacks a Transcript into its edit list. It returns an error if
// the byte stream is truncated or carries an unrecognized op tag.
func Decode(t Transcript) ([]Edit, error) {
	var edits []Edit
	i := 0
	for i < len(t) {
		op := Op(t[i])
		i++
		switch op {
		case OpMatch, OpInsertion, OpDeletion:
			n, width, err := readVarint(t[i:])
			if err != nil {
				return nil, err
			}
			i += width
			e := Edit{Op: op, Length: n}
			if op == OpInsertion {
				if i+n > len(t) {
					return nil, fmt.Errorf("dpkernel: truncated insertion letters")
				}
				e.Letters = append([]byte(nil), t[i:i+n]...)
				i += n
			}
			edits = append(edits, e)
		case OpSubst:
			if i >= len(t) {
				return nil, fmt.Errorf("dpkernel: truncated substitution")
			}
			edits = append(edits, Edit{Op: op, Length: 1, Letters: []byte{t[i]}})
			i++
		case OpFrameshiftFwd, OpFrameshiftRev:
			edits = append(edits, Edit{Op: op, Length: 1})
		default:
			return nil, fmt.Errorf("dpkernel: unrecognized transcript op %d", op)
		}
	}
	return edits, nil
}

// QueryLength returns the total number of query residues a transcript
// consumes; used to check the §3 invariant that it equals the HSP's
// query_range length.
func (t Transcript) QueryLength() int {
	edits, err := Decode(t)
	if err != nil {
		return -1
	}
	n := 0
	for _, e := range edits {
		n += e.QueryConsumed()
	}
	return n
}

// SubjectLength returns the total number of subject residues a transcript
// consumes; used to check the §3 invariant that it equals the HSP's
// subject_range length.
func (t Transcript) SubjectLength() int {
	edits, err := Decode(t)
	if err != nil {
		return -1
	}
	n := 0
	for _, e := range edits {
		n += e.SubjectConsumed()
	}
	return n
}

func appendVarint(buf []byte, v int) []byte {
	u := uint64(v)
	for u >= 0x80 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	return append(buf, byte(u))
}

func readVarint(buf []byte) (int, int, error) {
	var result uint64
	var shift uint
	for i, b := range buf {
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return int(result), i + 1, nil
		}
		shift += 7
		if shift > 63 {
			return 0, 0, fmt.Errorf("dpkernel: varint too long")
		}
	}
	return 0, 0, fmt.Errorf("dpkernel: truncated varint")
}
