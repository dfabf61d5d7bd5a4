package extend

import (
	"sort"

	"github.com/diamond-core/diamond-core/internal/seedhit"
)

// intervalNode is one leaf of the ranking interval table: a half-open
// query-position range with the count, min, and max score of HSPs
// currently covering it (spec.md §3 "Ranking interval table").
type intervalNode struct {
	start, end     int
	count          int
	minScore       int32
	maxScore       int32
}

// RangeIntervalTable partitions a query sequence into intervals for
// range-culling mode (spec.md §3, §4.4.3). Insertion is logarithmic: the
// table is kept sorted by start position and insertion uses binary search
// to locate the split point before splicing.
type RangeIntervalTable struct {
	queryLen int
	nodes    []intervalNode
}

// NewRangeIntervalTable creates a table spanning [0, queryLen) as one
// uncovered interval.
func NewRangeIntervalTable(queryLen int) *RangeIntervalTable {
	return &RangeIntervalTable{
		queryLen: queryLen,
		nodes:    []intervalNode{{start: 0, end: queryLen}},
	}
}

// Insert records an HSP's query range and score into the table,
// splitting/merging intervals as needed (spec.md §3: "Insertion is
// logarithmic").
func (t *RangeIntervalTable) Insert(queryRange [2]int, score int32) {
	t.split(queryRange[0])
	t.split(queryRange[1])

	lo := sort.Search(len(t.nodes), func(i int) bool { return t.nodes[i].start >= queryRange[0] })
	for i := lo; i < len(t.nodes) && t.nodes[i].end <= queryRange[1]; i++ {
		n := &t.nodes[i]
		if n.count == 0 {
			n.minScore, n.maxScore = score, score
		} else {
			if score < n.minScore {
				n.minScore = score
			}
			if score > n.maxScore {
				n.maxScore = score
			}
		}
		n.count++
	}
}

// split ensures pos is a node boundary, binary-searching for the node
// containing it and slicing it in two if necessary.
func (t *RangeIntervalTable) split(pos int) {
	if pos <= 0 || pos >= t.queryLen {
		return
	}
	i := sort.Search(len(t.nodes), func(i int) bool { return t.nodes[i].end > pos })
	if i >= len(t.nodes) || t.nodes[i].start == pos {
		return
	}
	n := t.nodes[i]
	left := intervalNode{start: n.start, end: pos, count: n.count, minScore: n.minScore, maxScore: n.maxScore}
	right := intervalNode{start: pos, end: n.end, count: n.count, minScore: n.minScore, maxScore: n.maxScore}
	t.nodes = append(t.nodes[:i], append([]intervalNode{left, right}, t.nodes[i+1:]...)...)
}

// CoverageAbove reports, for the query range, the number of positions
// already covered by HSPs scoring at or above cutoff (spec.md §3:
// "coverage queries report ... the number of positions already covered by
// HSPs at or above that cutoff").
func (t *RangeIntervalTable) CoverageAbove(queryRange [2]int, cutoff int32) int {
	covered := 0
	for _, n := range t.nodes {
		if n.end <= queryRange[0] || n.start >= queryRange[1] {
			continue
		}
		if n.count > 0 && n.maxScore >= cutoff {
			lo, hi := n.start, n.end
			if lo < queryRange[0] {
				lo = queryRange[0]
			}
			if hi > queryRange[1] {
				hi = queryRange[1]
			}
			covered += hi - lo
		}
	}
	return covered
}

// RangeCullParams configures range-culling mode (spec.md §4.4.3).
type RangeCullParams struct {
	QueryRangeCoverPercent float64
	CutoffScore            int32
}

// RangeCull implements spec.md §4.4.3: a target is culled if its best
// HSP's query range is >= QueryRangeCoverPercent covered by already-
// accepted HSPs at or above CutoffScore; otherwise it is accepted and its
// HSPs are inserted into the table.
func RangeCull(table *RangeIntervalTable, targets []*seedhit.Target, p RangeCullParams) []*seedhit.Target {
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].FilterScore > targets[j].FilterScore
	})

	kept := targets[:0:0]
	for _, t := range targets {
		best := bestHSP(t)
		if best == nil {
			continue
		}
		length := best.QueryRange[1] - best.QueryRange[0]
		if length <= 0 {
			continue
		}
		covered := table.CoverageAbove(best.QueryRange, p.CutoffScore)
		if float64(covered)/float64(length)*100 >= p.QueryRangeCoverPercent {
			continue
		}
		kept = append(kept, t)
		for _, h := range t.HSPs {
			table.Insert(h.QueryRange, h.Score)
		}
	}
	return kept
}

func bestHSP(t *seedhit.Target) *seedhit.HSP {
	var best *seedhit.HSP
	for _, h := range t.HSPs {
		if best == nil || h.Score > best.Score {
			best = h
		}
	}
	return best
}
