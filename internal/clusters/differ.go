// Package clusters compares day-over-day customer segmentation snapshots.
package clusters

import (
	"cmp"
	"slices"

	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/pkg/utils"
)

// MaxTransitions is the number of transitions kept by Diff.
const MaxTransitions = 5

type pair struct{ from, to string }

// Diff counts customers present in both snapshots whose cluster changed,
// grouped by (from, to). The result is ordered by count descending, then by
// from and to ascending, and holds at most MaxTransitions entries.
func Diff(today, yesterday map[string]string) []domain.Transition {
	counts := make(map[pair]int)
	for id, to := range today {
		from, ok := yesterday[id]
		if !ok || from == to {
			continue
		}
		counts[pair{from, to}]++
	}

	out := make([]domain.Transition, 0, len(counts))
	for p, n := range counts {
		out = append(out, domain.Transition{From: p.from, To: p.to, Count: n})
	}
	slices.SortFunc(out, func(a, b domain.Transition) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})

	if len(out) > MaxTransitions {
		out = out[:MaxTransitions]
	}
	return out
}

// Membership counts customers only present today (joined) and only present
// yesterday (left). They are never reported as transitions.
func Membership(today, yesterday map[string]string) (joined, left int) {
	for id := range today {
		if _, ok := yesterday[id]; !ok {
			joined++
		}
	}
	for id := range yesterday {
		if _, ok := today[id]; !ok {
			left++
		}
	}
	return joined, left
}

// PercentChange is the relative change from yesterday to today in percent,
// 0 when yesterday is 0.
func PercentChange(today, yesterday float64) float64 {
	return utils.PercentChange(today, yesterday)
}
