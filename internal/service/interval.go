package service

import (
	"sort"

	"github.com/halodent/clinic-api/internal/models"
)

// mergeIntervals collapses a set of half-open minute intervals into the minimal
// ordered list of disjoint intervals. Touching intervals (next.Start == cur.End)
// are merged. Zero-length intervals contribute nothing.
func mergeIntervals(intervals []models.Interval) []models.Interval {
	cleaned := make([]models.Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.Empty() {
			cleaned = append(cleaned, iv)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	sort.Slice(cleaned, func(i, j int) bool {
		if cleaned[i].Start == cleaned[j].Start {
			return cleaned[i].End < cleaned[j].End
		}
		return cleaned[i].Start < cleaned[j].Start
	})

	merged := []models.Interval{cleaned[0]}
	for _, iv := range cleaned[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtractIntervals removes every overlapping busy portion from each base
// interval and returns the remaining free intervals in order. A busy interval
// fully covering a base interval removes it entirely; partial overlap trims the
// affected end; disjoint busy intervals leave the base untouched.
func subtractIntervals(base, busy []models.Interval) []models.Interval {
	var free []models.Interval
	for _, b := range base {
		if b.Empty() {
			continue
		}
		remaining := []models.Interval{b}
		for _, occ := range busy {
			if occ.Empty() {
				continue
			}
			next := remaining[:0:0]
			for _, seg := range remaining {
				if occ.End <= seg.Start || occ.Start >= seg.End {
					next = append(next, seg)
					continue
				}
				if occ.Start > seg.Start {
					next = append(next, models.Interval{Start: seg.Start, End: occ.Start})
				}
				if occ.End < seg.End {
					next = append(next, models.Interval{Start: occ.End, End: seg.End})
				}
			}
			remaining = next
		}
		free = append(free, remaining...)
	}
	return free
}
