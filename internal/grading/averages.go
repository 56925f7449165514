package grading

// AverageEntry is one named average in the serialised subject structure.
type AverageEntry struct {
	Name            string  `json:"nombre"`
	Average         float64 `json:"promedio"`
	WeightedAverage float64 `json:"promedioPonderado"`
	Weight          float64 `json:"ponderacion"`
}

// SubjectAverages is the per-subject structure every report renders from.
// The JSON field names are shared with the tabular, card, spreadsheet and PDF
// renderers and must not change.
type SubjectAverages struct {
	SubPeriodAverages map[string]AverageEntry `json:"promediosSubPeriodo"`
	PeriodAverages    map[string]AverageEntry `json:"promediosPeriodo"`
	GeneralAverage    *float64                `json:"promedioGeneral"`
	GeneralEquivalent *string                 `json:"equivalenteGeneral"`
}

// Averages converts the result into the serialised structure, resolving the
// general equivalence against scale (which may be nil).
func (r SubjectResult) Averages(scale *GradeScale) SubjectAverages {
	out := SubjectAverages{
		SubPeriodAverages: make(map[string]AverageEntry),
		PeriodAverages:    make(map[string]AverageEntry, len(r.Periods)),
		GeneralAverage:    r.GeneralAverage,
		GeneralEquivalent: scale.Resolve(r.GeneralAverage),
	}
	for _, p := range r.Periods {
		out.PeriodAverages[p.PeriodID] = AverageEntry{
			Name:            p.Name,
			Average:         p.Average,
			WeightedAverage: p.Contribution,
			Weight:          p.Weight,
		}
		for _, sp := range p.SubPeriods {
			out.SubPeriodAverages[sp.SubPeriodID] = AverageEntry{
				Name:            sp.Name,
				Average:         sp.Average,
				WeightedAverage: sp.Weighted,
				Weight:          sp.Weight,
			}
		}
	}
	return out
}
