package dpkernel

// WavefrontMode selects the back-trace buffer memory strategy (spec.md
// §4.2 "Support 'memory-low' and 'memory-medium' modes that compact a
// back-trace buffer periodically").
type WavefrontMode int

const (
	MemoryHigh WavefrontMode = iota
	MemoryMedium
	MemoryLow
)

// waveCell is one back-trace entry: the diagonal it extends from and
// which operation produced it, stored densely so compactBacktrace (below)
// can rewrite indices in place.
type waveCell struct {
	prev int32 // index into the backtrace buffer, or -1
	op   Op
	live bool
}

// WavefrontAligner computes edit or affine-gap distance by iterating over
// alignment scores rather than matrix cells (spec.md §4.2 "Wavefront diff
// algorithm"): it maintains, for each score s, the farthest-reaching point
// on every diagonal reachable at that score, extending through matching
// letters until a mismatch, then computing the next wavefront from the
// previous ones. Align does not read MismatchCost, GapOpen or GapExtend:
// every score step costs 1, a substitution extends the previous layer and
// a gap extends the layer two steps back, so the distance it returns
// counts each mismatch as 1 and each gapped residue as 2.
type WavefrontAligner struct {
	Query, Target []byte
	MismatchCost  int32
	GapOpen       int32
	GapExtend     int32
	Mode          WavefrontMode

	backtrace    []waveCell
	compactEvery int
}

// NewWavefrontAligner constructs an aligner, storing the given costs in its
// fields (Align does not use them; see WavefrontAligner). Mode
// controls how often the back-trace buffer is compacted: MemoryLow
// compacts after every score step, MemoryMedium every 16 steps, MemoryHigh
// never compacts (keeps the full buffer, fastest but most memory).
func NewWavefrontAligner(query, target []byte, mismatch, gapOpen, gapExtend int32, mode WavefrontMode) *WavefrontAligner {
	every := 0
	switch mode {
	case MemoryLow:
		every = 1
	case MemoryMedium:
		every = 16
	}
	return &WavefrontAligner{
		Query: query, Target: target,
		MismatchCost: mismatch, GapOpen: gapOpen, GapExtend: gapExtend,
		Mode: mode, compactEvery: every,
	}
}

// wavefront holds, for one score value, the farthest-reaching query offset
// on each diagonal currently alive, plus the back-trace index to extend
// from.
type wavefront map[int]waveEntry

type waveEntry struct {
	queryOffset int
	btIndex     int32
}

// Align runs the wavefront expansion until a diagonal reaches the bottom-
// right corner, returning the distance and, by walking the back-trace
// buffer, the alignment's substitution and gap events. Runs of matching
// letters are not recorded, so the returned list holds no OpMatch edits.
func (w *WavefrontAligner) Align() (int32, []Edit) {
	qlen, tlen := len(w.Query), len(w.Target)
	target := qlen - tlen // the diagonal the alignment must finish on

	current := wavefront{0: {queryOffset: w.extend(0, 0), btIndex: -1}}
	if w.reached(current, 0, qlen, tlen) {
		return 0, w.traceback(current[0].btIndex, w.diagEdits(0, current[0].queryOffset)...)
	}

	var score int32
	prevLayers := []wavefront{current}
	for step := 1; step < qlen+tlen+1; step++ {
		score++
		next := wavefront{}
		// Mismatch/substitution extends every diagonal in the previous
		// layer by one.
		for d, e := range prevLayers[len(prevLayers)-1] {
			qo := e.queryOffset + 1
			idx := w.push(waveCell{prev: e.btIndex, op: OpSubst})
			qo = w.extend(d, qo)
			w.mergeBest(next, d, qo, idx)
		}
		// Gap open/extend from any earlier layer within the configured
		// affine cost horizon; for a simple (non-benchmarked) portable
		// implementation we look back exactly one gap-open step, which is
		// exact for linear gap costs and a documented approximation for
		// affine costs beyond the immediate open.
		if len(prevLayers) >= 2 {
			back := prevLayers[len(prevLayers)-2]
			for d, e := range back {
				// Diagonals here are query offset minus target offset.
				// Insertion: consumes query only, diagonal+1.
				idx := w.push(waveCell{prev: e.btIndex, op: OpInsertion})
				qo := w.extend(d+1, e.queryOffset+1)
				w.mergeBest(next, d+1, qo, idx)
				// Deletion: consumes subject only, diagonal-1.
				idx2 := w.push(waveCell{prev: e.btIndex, op: OpDeletion})
				qo2 := w.extend(d-1, e.queryOffset)
				w.mergeBest(next, d-1, qo2, idx2)
			}
		}

		prevLayers = append(prevLayers, next)
		if w.compactEvery > 0 && step%w.compactEvery == 0 {
			w.compactBacktrace(prevLayers)
		}
		if e, ok := next[target]; ok && w.reached(next, target, qlen, tlen) {
			return score, w.traceback(e.btIndex, w.diagEdits(target, e.queryOffset)...)
		}
	}
	return score, nil
}

func (w *WavefrontAligner) extend(diag, queryOffset int) int {
	for queryOffset < len(w.Query) {
		t := queryOffset - diag
		if t < 0 || t >= len(w.Target) || w.Query[queryOffset] != w.Target[t] {
			break
		}
		queryOffset++
	}
	return queryOffset
}

func (w *WavefrontAligner) reached(wf wavefront, diag, qlen, tlen int) bool {
	e, ok := wf[diag]
	return ok && e.queryOffset >= qlen && e.queryOffset-diag >= tlen
}

func (w *WavefrontAligner) mergeBest(wf wavefront, diag, queryOffset int, btIndex int32) {
	if cur, ok := wf[diag]; !ok || queryOffset > cur.queryOffset {
		wf[diag] = waveEntry{queryOffset: queryOffset, btIndex: btIndex}
	}
}

func (w *WavefrontAligner) push(c waveCell) int32 {
	c.live = true
	w.backtrace = append(w.backtrace, c)
	return int32(len(w.backtrace) - 1)
}

func (w *WavefrontAligner) diagEdits(diag, queryOffset int) []Edit {
	// The run of matches extended in-place by extend() is not recorded in
	// the back-trace buffer (only score-changing events are), and no edits
	// are returned for it here, so traceback's list carries no OpMatch run.
	_ = diag
	_ = queryOffset
	return nil
}

func (w *WavefrontAligner) traceback(idx int32, tail ...Edit) []Edit {
	var b Builder
	for _, e := range tail {
		b.Add(e.Op, e.Letters...)
	}
	for idx >= 0 {
		c := w.backtrace[idx]
		b.Add(c.op)
		idx = c.prev
	}
	b.Reverse()
	return b.edits
}

// compactBacktrace implements the "cooperative back-trace compaction"
// pattern spec.md §9 calls for: live blocks are marked, then prev-indices
// are rewritten to their post-compaction positions via a rank computed
// over the liveness bitmap (the Go equivalent of WFA2's bitmap_erank).
// Cells are live if any wavefront entry still still references them,
// directly or transitively through prev chains.
func (w *WavefrontAligner) compactBacktrace(layers []wavefront) {
	live := make([]bool, len(w.backtrace))
	var mark func(idx int32)
	mark = func(idx int32) {
		for idx >= 0 && !live[idx] {
			live[idx] = true
			idx = w.backtrace[idx].prev
		}
	}
	for _, layer := range layers {
		for _, e := range layer {
			mark(e.btIndex)
		}
	}

	rank := make([]int32, len(w.backtrace))
	var r int32
	for i, l := range live {
		rank[i] = r
		if l {
			r++
		}
	}

	compacted := make([]waveCell, 0, r)
	for i, l := range live {
		if !l {
			continue
		}
		c := w.backtrace[i]
		if c.prev >= 0 {
			c.prev = rank[c.prev]
		}
		compacted = append(compacted, c)
	}
	w.backtrace = compacted

	for _, layer := range layers {
		for d, e := range layer {
			if e.btIndex >= 0 {
				e.btIndex = rank[e.btIndex]
				layer[d] = e
			}
		}
	}
}
