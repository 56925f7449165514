package grading

import (
	"math"
	"sort"
)

// ScaleEntry maps a numeric threshold to a display label.
type ScaleEntry struct {
	Threshold float64 `json:"threshold"`
	Label     string  `json:"label"`
}

// GradeScale is an ordered lookup table used for display equivalence only.
type GradeScale struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Entries []ScaleEntry `json:"entries"`
}

// Resolve maps average to the label of the nearest threshold. Averages outside
// the scale clamp to its ends; equidistant thresholds resolve to the lower one.
// A nil scale, empty scale, nil average or NaN yields nil.
func (s *GradeScale) Resolve(average *float64) *string {
	if s == nil || len(s.Entries) == 0 || average == nil || math.IsNaN(*average) {
		return nil
	}
	entries := s.sorted()
	value := *average

	if value <= entries[0].Threshold {
		return labelOf(entries[0])
	}
	last := entries[len(entries)-1]
	if value >= last.Threshold {
		return labelOf(last)
	}

	best := entries[0]
	bestDistance := math.Abs(value - best.Threshold)
	for _, e := range entries[1:] {
		if e.Threshold == value {
			return labelOf(e)
		}
		if d := math.Abs(value - e.Threshold); d < bestDistance {
			best, bestDistance = e, d
		}
	}
	return labelOf(best)
}

func (s *GradeScale) sorted() []ScaleEntry {
	entries := make([]ScaleEntry, len(s.Entries))
	copy(entries, s.Entries)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Threshold < entries[j].Threshold })
	return entries
}

func labelOf(e ScaleEntry) *string {
	label := e.Label
	return &label
}
