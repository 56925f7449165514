package grading

import (
	"sort"
	"time"
)

// Period is a grading window weighted against the subject's general average.
type Period struct {
	ID              string
	Name            string
	Weight          float64
	MinPassingScore float64
	Supplementary   bool
	Order           int
}

// SubPeriod is the smallest grading window, weighted against its period.
type SubPeriod struct {
	ID     string
	Name   string
	Weight float64
	Order  int
	Period *Period
}

// Task is a discrete graded activity that belongs to a sub-period.
type Task struct {
	ID        string
	SubPeriod *SubPeriod
}

// Record is one recorded score. Its sub-period is reached either directly or
// through a task; records that only carry a legacy partial label are resolved
// through Options.LegacyPartials.
type Record struct {
	ID         string
	StudentID  string
	SubjectID  string
	Value      float64
	SubPeriod  *SubPeriod
	Task       *Task
	Partial    string
	RecordedAt time.Time
}

// Options tunes how records are placed into sub-periods.
type Options struct {
	// LegacyPartials maps a legacy partial label to the sub-period it stands for.
	LegacyPartials map[string]*SubPeriod
}

// ResolveSubPeriod returns the sub-period a record belongs to, or nil.
func (o Options) ResolveSubPeriod(r Record) *SubPeriod {
	if r.SubPeriod != nil {
		return r.SubPeriod
	}
	if r.Task != nil && r.Task.SubPeriod != nil {
		return r.Task.SubPeriod
	}
	if r.Partial != "" && o.LegacyPartials != nil {
		return o.LegacyPartials[r.Partial]
	}
	return nil
}

// SubPeriodAverage is the derived average of one sub-period.
type SubPeriodAverage struct {
	SubPeriodID string
	Name        string
	Weight      float64
	Order       int
	Average     float64
	// Weighted is Average * Weight / 100.
	Weighted float64
}

// PeriodAverage is the derived average of one period.
type PeriodAverage struct {
	PeriodID        string
	Name            string
	Weight          float64
	MinPassingScore float64
	Supplementary   bool
	Order           int
	Average         float64
	Contribution    float64
	SubPeriods      []SubPeriodAverage
}

// SubjectResult carries every derived aggregate of one subject for one student.
type SubjectResult struct {
	SubjectID      string
	Periods        []PeriodAverage
	GeneralAverage *float64
}

// Standings returns the regular periods in the shape used for supplementary decisions.
func (r SubjectResult) Standings() []PeriodStanding {
	standings := make([]PeriodStanding, 0, len(r.Periods))
	for _, p := range r.Periods {
		if p.Supplementary {
			continue
		}
		standings = append(standings, PeriodStanding{
			PeriodID:        p.PeriodID,
			Name:            p.Name,
			Average:         p.Average,
			Weight:          p.Weight,
			MinPassingScore: p.MinPassingScore,
		})
	}
	return standings
}

// StandingsFor returns a standing for every regular period of calendar, in
// (order, id) order. Periods the student has no grade in are marked Ungraded
// so their minimum still counts.
func (r SubjectResult) StandingsFor(calendar []*Period) []PeriodStanding {
	graded := make(map[string]PeriodStanding, len(r.Periods))
	for _, s := range r.Standings() {
		graded[s.PeriodID] = s
	}
	regular := make([]*Period, 0, len(calendar))
	for _, p := range calendar {
		if p != nil && !p.Supplementary {
			regular = append(regular, p)
		}
	}
	sort.SliceStable(regular, func(i, j int) bool {
		if regular[i].Order != regular[j].Order {
			return regular[i].Order < regular[j].Order
		}
		return regular[i].ID < regular[j].ID
	})

	standings := make([]PeriodStanding, 0, len(regular))
	for _, p := range regular {
		if s, ok := graded[p.ID]; ok {
			standings = append(standings, s)
			continue
		}
		standings = append(standings, PeriodStanding{
			PeriodID:        p.ID,
			Name:            p.Name,
			Weight:          p.Weight,
			MinPassingScore: p.MinPassingScore,
			Ungraded:        true,
		})
	}
	return standings
}

// SupplementaryScore returns the average of the supplementary period, if graded.
func (r SubjectResult) SupplementaryScore() *float64 {
	for _, p := range r.Periods {
		if p.Supplementary {
			score := p.Average
			return &score
		}
	}
	return nil
}

// ComputeSubject runs the sub-period -> period -> general pipeline over the
// records of a single subject. Sub-periods without grades are omitted, and
// supplementary periods are reported but excluded from the general average.
func ComputeSubject(subjectID string, records []Record, opts Options) SubjectResult {
	type bucket struct {
		sub    *SubPeriod
		values []float64
	}
	buckets := make(map[string]*bucket)
	for _, rec := range records {
		sp := opts.ResolveSubPeriod(rec)
		if sp == nil || sp.Period == nil {
			continue
		}
		b, ok := buckets[sp.ID]
		if !ok {
			b = &bucket{sub: sp}
			buckets[sp.ID] = b
		}
		b.values = append(b.values, rec.Value)
	}

	periods := make(map[string]*PeriodAverage)
	for _, b := range buckets {
		avg := AverageScores(b.values)
		if avg == nil {
			continue
		}
		p := b.sub.Period
		pa, ok := periods[p.ID]
		if !ok {
			pa = &PeriodAverage{
				PeriodID:        p.ID,
				Name:            p.Name,
				Weight:          p.Weight,
				MinPassingScore: p.MinPassingScore,
				Supplementary:   p.Supplementary,
				Order:           p.Order,
			}
			periods[p.ID] = pa
		}
		pa.SubPeriods = append(pa.SubPeriods, SubPeriodAverage{
			SubPeriodID: b.sub.ID,
			Name:        b.sub.Name,
			Weight:      b.sub.Weight,
			Order:       b.sub.Order,
			Average:     *avg,
			Weighted:    *avg * b.sub.Weight / 100,
		})
	}

	result := SubjectResult{SubjectID: subjectID, Periods: make([]PeriodAverage, 0, len(periods))}
	for _, pa := range periods {
		sortSubPeriods(pa.SubPeriods)
		parts := make([]WeightedScore, 0, len(pa.SubPeriods))
		for _, sp := range pa.SubPeriods {
			parts = append(parts, WeightedScore{Average: sp.Average, Weight: sp.Weight})
		}
		rolled := RollUpPeriod(parts, pa.Weight)
		pa.Average = rolled.Average
		pa.Contribution = rolled.Contribution
		result.Periods = append(result.Periods, *pa)
	}
	sort.Slice(result.Periods, func(i, j int) bool {
		if result.Periods[i].Order != result.Periods[j].Order {
			return result.Periods[i].Order < result.Periods[j].Order
		}
		return result.Periods[i].PeriodID < result.Periods[j].PeriodID
	})

	contributions := make([]float64, 0, len(result.Periods))
	for _, p := range result.Periods {
		if p.Supplementary {
			continue
		}
		contributions = append(contributions, p.Contribution)
	}
	result.GeneralAverage = Aggregate(contributions)
	return result
}

// GroupBySubject splits records by subject id, keeping the input order inside each group.
func GroupBySubject(records []Record) map[string][]Record {
	groups := make(map[string][]Record)
	for _, r := range records {
		groups[r.SubjectID] = append(groups[r.SubjectID], r)
	}
	return groups
}

// GroupByStudent splits records by student id, keeping the input order inside each group.
func GroupByStudent(records []Record) map[string][]Record {
	groups := make(map[string][]Record)
	for _, r := range records {
		groups[r.StudentID] = append(groups[r.StudentID], r)
	}
	return groups
}

func sortSubPeriods(subs []SubPeriodAverage) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Order != subs[j].Order {
			return subs[i].Order < subs[j].Order
		}
		return subs[i].SubPeriodID < subs[j].SubPeriodID
	})
}
