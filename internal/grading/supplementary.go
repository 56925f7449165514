package grading

import (
	"fmt"
	"sort"
)

// PeriodStanding is a regular period average together with its pass threshold.
// An ungraded period still counts towards the sum of minimums but has no
// average to contribute or replace.
type PeriodStanding struct {
	PeriodID        string  `json:"period_id"`
	Name            string  `json:"name"`
	Average         float64 `json:"average"`
	Weight          float64 `json:"weight"`
	MinPassingScore float64 `json:"min_passing_score"`
	Ungraded        bool    `json:"ungraded,omitempty"`
}

func contributionsOf(standings []PeriodStanding) []float64 {
	contributions := make([]float64, 0, len(standings))
	for _, s := range standings {
		if s.Ungraded {
			continue
		}
		contributions = append(contributions, s.Average*(s.Weight/100))
	}
	return contributions
}

// Qualification holds the two figures compared to admit a make-up exam.
type Qualification struct {
	GeneralAverage *float64 `json:"general_average"`
	SumOfMinimums  float64  `json:"sum_of_minimums"`
	Qualifies      bool     `json:"qualifies"`
}

// QualificationError rejects a supplementary score for a student who does not qualify.
type QualificationError struct {
	GeneralAverage *float64
	SumOfMinimums  float64
}

func (e *QualificationError) Error() string {
	if e.GeneralAverage == nil {
		return fmt.Sprintf("student has no regular average to compare against minimum sum %.2f", e.SumOfMinimums)
	}
	return fmt.Sprintf("general average %.2f is not below minimum sum %.2f", *e.GeneralAverage, e.SumOfMinimums)
}

// Replacement records a period average overwritten by the supplementary score.
type Replacement struct {
	PeriodID         string  `json:"period_id"`
	PeriodName       string  `json:"period_name"`
	OriginalAverage  float64 `json:"original_average"`
	ReplacementScore float64 `json:"replacement_score"`
}

// SupplementaryOutcome is the final standing after applying a make-up score.
type SupplementaryOutcome struct {
	SupplementaryScore float64       `json:"supplementary_score"`
	GeneralAverage     *float64      `json:"general_average"`
	Replacements       []Replacement `json:"replacements"`
}

// EvaluateQualification compares the regular general average with the sum of
// each regular period's minimum passing score. The comparison is strict.
func EvaluateQualification(standings []PeriodStanding) Qualification {
	var sumOfMinimums float64
	for _, s := range standings {
		sumOfMinimums += s.MinPassingScore
	}
	general := Aggregate(contributionsOf(standings))
	q := Qualification{GeneralAverage: general, SumOfMinimums: sumOfMinimums}
	if general != nil {
		q.Qualifies = *general < sumOfMinimums
	}
	return q
}

// CheckQualification returns a *QualificationError when the student may not sit the make-up exam.
func CheckQualification(standings []PeriodStanding) (Qualification, error) {
	q := EvaluateQualification(standings)
	if !q.Qualifies {
		return q, &QualificationError{GeneralAverage: q.GeneralAverage, SumOfMinimums: q.SumOfMinimums}
	}
	return q, nil
}

// ApplySupplementary replaces every failing period, worst first, with score
// and recomputes the general average. Passing and ungraded periods are left
// untouched.
func ApplySupplementary(standings []PeriodStanding, score float64) SupplementaryOutcome {
	adjusted := make([]PeriodStanding, len(standings))
	copy(adjusted, standings)

	failing := make([]int, 0, len(adjusted))
	for i, s := range adjusted {
		if !s.Ungraded && s.Average < s.MinPassingScore {
			failing = append(failing, i)
		}
	}
	sort.SliceStable(failing, func(a, b int) bool {
		return adjusted[failing[a]].Average < adjusted[failing[b]].Average
	})

	replacements := make([]Replacement, 0, len(failing))
	for _, idx := range failing {
		replacements = append(replacements, Replacement{
			PeriodID:         adjusted[idx].PeriodID,
			PeriodName:       adjusted[idx].Name,
			OriginalAverage:  adjusted[idx].Average,
			ReplacementScore: score,
		})
		adjusted[idx].Average = score
	}

	return SupplementaryOutcome{
		SupplementaryScore: score,
		GeneralAverage:     Aggregate(contributionsOf(adjusted)),
		Replacements:       replacements,
	}
}
