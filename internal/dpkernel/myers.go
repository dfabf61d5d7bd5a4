package dpkernel

// EditResult is the outcome of a Myers bit-parallel edit-distance
// computation: the unit-cost edit distance and whether cutoff pruning
// stopped it early. MyersEditDistance does not produce an alignment, so
// CIGAR is always nil.
type EditResult struct {
	Distance int
	CIGAR    []Edit
	Pruned   bool
}

// myersWord holds one 64-bit word's running bit-vectors and score, the
// per-word state the Pv/Mv/PHin/MHin recurrence threads between text
// columns (spec.md §4.2 "Bit-parallel edit distance (Myers)").
type myersWord struct {
	Pv, Mv uint64
	score  int
}

// MyersEditDistance computes the unit-cost edit distance between two
// nucleotide strings using the bit-parallel Pv/Mv/PHin/MHin recurrence,
// processing the pattern 64 bits at a time. maxDistance, if > 0, enables
// cutoff pruning: once the bottom word's running score exceeds
// maxDistance+1, computation stops early and EditResult.Pruned is set
// (spec.md: "support cutoff pruning that abandons the bottom word once its
// score exceeds max_distance+1").
func MyersEditDistance(pattern, text []byte, maxDistance int) EditResult {
	m := len(pattern)
	if m == 0 {
		return EditResult{Distance: len(text)}
	}
	words := (m + 63) / 64

	rows := make([]myersWord, words)
	peqTable := make([]map[byte]uint64, words)
	for w := 0; w < words; w++ {
		rows[w].Pv = ^uint64(0)
		rows[w].Mv = 0
		rows[w].score = minInt(64*(w+1), m)
		peqTable[w] = buildPeq(pattern, w)
	}

	activeWords := words
	pruned := false

	for _, c := range text {
		hIn := 0
		for w := 0; w < activeWords; w++ {
			eq := peqTable[w][c]
			pv, mv := rows[w].Pv, rows[w].Mv

			xv := eq | mv
			var xh uint64
			if hIn < 0 {
				xh = (((eq & pv) + pv) ^ pv) | eq | 1
			} else {
				xh = (((eq & pv) + pv) ^ pv) | eq
			}
			ph := mv | ^(xh | pv)
			mh := pv & xh

			hOut := 0
			const top = uint64(1) << 63
			if ph&top != 0 {
				hOut = 1
			} else if mh&top != 0 {
				hOut = -1
			}

			ph <<= 1
			mh <<= 1
			if hIn < 0 {
				mh |= 1
			} else if hIn > 0 {
				ph |= 1
			}
			pv = mh | ^(xv | ph)
			mv = ph & xv

			rows[w].Pv, rows[w].Mv = pv, mv
			rows[w].score += hOut
			hIn = hOut
		}
		if maxDistance > 0 {
			bottom := rows[activeWords-1].score
			if bottom > maxDistance+1 {
				pruned = true
				break
			}
		}
	}

	return EditResult{Distance: rows[activeWords-1].score, Pruned: pruned}
}

// buildPeq builds the equality bit-vector table for word w of pattern: bit
// i set iff pattern[64*w+i] == c.
func buildPeq(pattern []byte, w int) map[byte]uint64 {
	peq := make(map[byte]uint64)
	lo := w * 64
	hi := minInt(lo+64, len(pattern))
	for i := lo; i < hi; i++ {
		peq[pattern[i]] |= 1 << uint(i-lo)
	}
	return peq
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
