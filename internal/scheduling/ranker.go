package scheduling

import (
	"sort"
	"time"
)

// Hours customers historically pick first: mid-morning, early and mid
// afternoon, late afternoon. Slots starting in these hours rank ahead of
// everything else.
var preferredHours = map[int]bool{
	10: true,
	13: true,
	14: true,
	16: true,
	17: true,
}

// Preferred reports whether t starts within a preferred hour.
func Preferred(t time.Time) bool {
	return preferredHours[t.Hour()]
}

// Rank orders candidate slots by preference tier (preferred hours first),
// then chronologically within a tier, and returns at most limit of them.
// Candidates are not mutated.
func Rank(candidates []time.Time, limit int) []time.Time {
	ranked := make([]time.Time, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := Preferred(ranked[i]), Preferred(ranked[j])
		if pi != pj {
			return pi
		}
		return ranked[i].Before(ranked[j])
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
