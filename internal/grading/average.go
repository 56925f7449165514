package grading

// WeightedScore pairs an average with its weight in percent of its parent.
type WeightedScore struct {
	Average float64
	Weight  float64
}

// PeriodRollUp is the outcome of combining sub-period averages into a period.
type PeriodRollUp struct {
	Average float64
	// Contribution is Average * periodWeight / 100 and is left untruncated so
	// the general average is truncated exactly once.
	Contribution float64
}

// AverageScores returns the truncated mean of values, or nil when there are none.
func AverageScores(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := Truncate(sum / float64(len(values)))
	return &avg
}

// RollUpPeriod combines the sub-period averages present in a period.
// Weights are normalised against the sum actually present, so a period whose
// sub-period weights do not add up to 100 still yields a 0-10 average.
func RollUpPeriod(parts []WeightedScore, periodWeight float64) PeriodRollUp {
	var weightedSum, weightSum float64
	for _, p := range parts {
		if p.Weight <= 0 {
			continue
		}
		weightedSum += p.Average * p.Weight / 100
		weightSum += p.Weight / 100
	}
	var avg float64
	if weightSum > 0 {
		avg = weightedSum / weightSum
	}
	avg = Truncate(avg)
	return PeriodRollUp{Average: avg, Contribution: avg * (periodWeight / 100)}
}

// Aggregate sums period contributions into the general average.
// It returns nil when no period contributed, which is not the same as 0.
func Aggregate(contributions []float64) *float64 {
	if len(contributions) == 0 {
		return nil
	}
	var sum float64
	for _, c := range contributions {
		sum += c
	}
	total := Truncate(sum)
	return &total
}

// MeanOf averages the present values and skips absent ones.
func MeanOf(values []*float64) *float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, *v)
		}
	}
	return AverageScores(present)
}
