package service

import (
	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
)

// gradingCatalog links the stored calendar of an academic year to the
// structures consumed by the grading package.
type gradingCatalog struct {
	periods    []*grading.Period
	subPeriods map[string]*grading.SubPeriod
	legacy     map[string]*grading.SubPeriod
	ordered    []models.Period
}

func newGradingCatalog(periods []models.Period) *gradingCatalog {
	c := &gradingCatalog{
		subPeriods: make(map[string]*grading.SubPeriod),
		legacy:     make(map[string]*grading.SubPeriod),
		ordered:    periods,
	}
	for _, p := range periods {
		period := &grading.Period{
			ID:              p.ID,
			Name:            p.Name,
			Weight:          p.Weight,
			MinPassingScore: p.MinPassingScore,
			Supplementary:   p.IsSupplementary,
			Order:           p.DisplayOrder,
		}
		c.periods = append(c.periods, period)
		for _, sp := range p.SubPeriods {
			sub := &grading.SubPeriod{
				ID:     sp.ID,
				Name:   sp.Name,
				Weight: sp.Weight,
				Order:  sp.DisplayOrder,
				Period: period,
			}
			c.subPeriods[sp.ID] = sub
			if sp.LegacyLabel != nil && *sp.LegacyLabel != "" {
				c.legacy[*sp.LegacyLabel] = sub
			}
		}
	}
	return c
}

func (c *gradingCatalog) options() grading.Options {
	return grading.Options{LegacyPartials: c.legacy}
}

// subPeriod looks up a sub-period of the catalogued year.
func (c *gradingCatalog) subPeriod(id string) (*grading.SubPeriod, bool) {
	sp, ok := c.subPeriods[id]
	return sp, ok
}

func (c *gradingCatalog) record(row models.GradeRow) grading.Record {
	rec := grading.Record{
		ID:         row.ID,
		StudentID:  row.StudentID,
		SubjectID:  row.SubjectID,
		Value:      row.Value,
		RecordedAt: row.RecordedAt,
	}
	if row.SubPeriodID != nil {
		rec.SubPeriod = c.subPeriods[*row.SubPeriodID]
	}
	if row.TaskID != nil {
		task := &grading.Task{ID: *row.TaskID}
		if row.TaskSubPeriodID != nil {
			task.SubPeriod = c.subPeriods[*row.TaskSubPeriodID]
		}
		rec.Task = task
	}
	if row.Partial != nil {
		rec.Partial = *row.Partial
	}
	return rec
}

func (c *gradingCatalog) records(rows []models.GradeRow) []grading.Record {
	out := make([]grading.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, c.record(row))
	}
	return out
}

func (c *gradingCatalog) compute(subjectID string, records []grading.Record) grading.SubjectResult {
	return grading.ComputeSubject(subjectID, records, c.options())
}

// standings places a subject result against every regular period of the year.
func (c *gradingCatalog) standings(result grading.SubjectResult) []grading.PeriodStanding {
	return result.StandingsFor(c.periods)
}

func toGradingScale(scale *models.GradeScale) *grading.GradeScale {
	if scale == nil {
		return nil
	}
	out := &grading.GradeScale{ID: scale.ID, Name: scale.Name, Entries: make([]grading.ScaleEntry, 0, len(scale.Entries))}
	for _, e := range scale.Entries {
		out.Entries = append(out.Entries, grading.ScaleEntry{Threshold: e.Threshold, Label: e.Label})
	}
	return out
}
