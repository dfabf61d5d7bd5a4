// Package extend implements the staged extension pipeline of spec.md
// §4.4: ungapped stage, ranking/culling, score-only gapped stage, culling,
// full gapped stage with traceback, and inner culling — grounded on the
// teacher's link.go/link_to_compressed.go chaining code and rewritten for
// HSP extension instead of compression links.
package extend

import (
	"sort"

	"github.com/diamond-core/diamond-core/internal/seedhit"
)

// RankMode selects how Rank (below) retains/drops targets (spec.md §4.4.1
// step 2).
type RankMode int

const (
	RankTopN RankMode = iota
	RankTopPercent
)

// RankParams configures target ranking/culling (spec.md §4.4.1 step 2).
type RankParams struct {
	Mode          RankMode
	MaxTargetSeqs int
	RankFactor    float64 // N = max(max_target_seqs * rank_factor, max_target_seqs)
	RankRatio     float64 // drop targets below rank_ratio * best_score
	TopPercent    float64 // under RankTopPercent: keep filter_score >= best*(1-top_percent/100)
}

// Rank stable-sorts targets by FilterScore descending and retains the
// configured subset (spec.md §4.4.1 step 2).
func Rank(targets []*seedhit.Target, p RankParams) []*seedhit.Target {
	if len(targets) == 0 {
		return targets
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].FilterScore > targets[j].FilterScore
	})
	best := targets[0].FilterScore

	if p.Mode == RankTopPercent {
		cutoff := float64(best) * (1 - p.TopPercent/100)
		kept := targets[:0:0]
		for _, t := range targets {
			if float64(t.FilterScore) >= cutoff {
				kept = append(kept, t)
			}
		}
		return kept
	}

	n := p.MaxTargetSeqs
	if scaled := int(float64(p.MaxTargetSeqs) * p.RankFactor); scaled > n {
		n = scaled
	}
	if n <= 0 || n > len(targets) {
		n = len(targets)
	}
	ratioCutoff := float64(best) * p.RankRatio
	kept := targets[:0:0]
	for i, t := range targets[:n] {
		if i > 0 && float64(t.FilterScore) < ratioCutoff {
			break
		}
		kept = append(kept, t)
	}
	return kept
}

// CullParams configures the score-only culling step (spec.md §4.4.1 step
// 4): E-value, top-percent, and taxon-k-per-target constraints.
type CullParams struct {
	MaxEValue   float64
	TopPercent  float64 // 0 disables top-percent-based culling
	TaxonK      int     // 0 disables taxonomic top-k culling
}

// Cull re-sorts targets by (E-value asc, score desc) and drops any that
// fail the configured constraints (spec.md §4.4.1 step 4).
func Cull(targets []*seedhit.Target, p CullParams) []*seedhit.Target {
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].FilterEValue != targets[j].FilterEValue {
			return targets[i].FilterEValue < targets[j].FilterEValue
		}
		return targets[i].FilterScore > targets[j].FilterScore
	})

	var best int32
	if len(targets) > 0 {
		best = targets[0].FilterScore
	}
	taxonCount := make(map[uint32]int)

	kept := targets[:0:0]
	for _, t := range targets {
		if p.MaxEValue > 0 && t.FilterEValue > p.MaxEValue {
			continue
		}
		if p.TopPercent > 0 {
			cutoff := float64(best) * (1 - p.TopPercent/100)
			if float64(t.FilterScore) < cutoff {
				continue
			}
		}
		if p.TaxonK > 0 && len(t.TaxonIDs) > 0 {
			// Orthogonal to top-percent per spec.md §9's Open Question:
			// taxon-k limits are applied per taxon id independently of
			// whatever top-percent already removed, not instead of it.
			blocked := false
			for _, tax := range t.TaxonIDs {
				if taxonCount[tax] >= p.TaxonK {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}
			for _, tax := range t.TaxonIDs {
				taxonCount[tax]++
			}
		}
		kept = append(kept, t)
	}
	return kept
}

// InnerCull sorts a target's HSPs by score descending and drops any HSP
// whose query range is >= 50% enveloped by a higher-scoring HSP on the
// same target, resetting FilterScore to the best remaining HSP (spec.md
// §4.4.1 step 6, and the Target invariant in spec.md §3).
func InnerCull(t *seedhit.Target) {
	if len(t.HSPs) == 0 {
		return
	}
	sort.SliceStable(t.HSPs, func(i, j int) bool {
		return t.HSPs[i].Score > t.HSPs[j].Score
	})

	kept := t.HSPs[:0:0]
	for _, h := range t.HSPs {
		dominated := false
		for _, k := range kept {
			if overlapFactor(h.QueryRange, k.QueryRange) >= 0.5 {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, h)
		}
	}
	t.HSPs = kept
	if len(kept) > 0 {
		t.FilterScore = kept[0].Score
	}
}

// overlapFactor is overlap(i,j) / min(len_i, len_j), the quantity spec.md
// §8's testable property and §4.4.1 step 6 both reference.
func overlapFactor(a, b [2]int) float64 {
	lo := a[0]
	if b[0] > lo {
		lo = b[0]
	}
	hi := a[1]
	if b[1] < hi {
		hi = b[1]
	}
	overlap := hi - lo
	if overlap <= 0 {
		return 0
	}
	lenA, lenB := a[1]-a[0], b[1]-b[0]
	minLen := lenA
	if lenB < minLen {
		minLen = lenB
	}
	if minLen <= 0 {
		return 0
	}
	return float64(overlap) / float64(minLen)
}
