package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	q1, q2, supp       *Period
	q1a, q1b, q2a, sup *SubPeriod
}

func newFixture() fixture {
	f := fixture{
		q1:   &Period{ID: "q1", Name: "First Quarter", Weight: 50, MinPassingScore: 7, Order: 1},
		q2:   &Period{ID: "q2", Name: "Second Quarter", Weight: 50, MinPassingScore: 7, Order: 2},
		supp: &Period{ID: "sup", Name: "Supplementary", Weight: 0, Supplementary: true, Order: 3},
	}
	f.q1a = &SubPeriod{ID: "q1a", Name: "First Partial", Weight: 40, Order: 1, Period: f.q1}
	f.q1b = &SubPeriod{ID: "q1b", Name: "Second Partial", Weight: 60, Order: 2, Period: f.q1}
	f.q2a = &SubPeriod{ID: "q2a", Name: "Exam", Weight: 100, Order: 1, Period: f.q2}
	f.sup = &SubPeriod{ID: "supa", Name: "Make-up", Weight: 100, Order: 1, Period: f.supp}
	return f
}

func TestComputeSubject(t *testing.T) {
	f := newFixture()
	records := []Record{
		{SubjectID: "math", Value: 8, SubPeriod: f.q1a},
		{SubjectID: "math", Value: 9, SubPeriod: f.q1a},
		{SubjectID: "math", Value: 9, SubPeriod: f.q1b},
		{SubjectID: "math", Value: 6, SubPeriod: f.q2a},
	}
	result := ComputeSubject("math", records, Options{})

	require.Len(t, result.Periods, 2)
	assert.Equal(t, "q1", result.Periods[0].PeriodID)
	assert.Equal(t, 8.8, result.Periods[0].Average)
	require.Len(t, result.Periods[0].SubPeriods, 2)
	assert.Equal(t, 8.5, result.Periods[0].SubPeriods[0].Average)
	assert.Equal(t, 6.0, result.Periods[1].Average)

	require.NotNil(t, result.GeneralAverage)
	assert.Equal(t, 7.4, *result.GeneralAverage)
}

func TestComputeSubjectTaskLinkageIsEquivalent(t *testing.T) {
	f := newFixture()
	direct := []Record{
		{SubjectID: "math", Value: 7, SubPeriod: f.q1a},
		{SubjectID: "math", Value: 10, SubPeriod: f.q2a},
	}
	viaTask := []Record{
		{SubjectID: "math", Value: 7, Task: &Task{ID: "t1", SubPeriod: f.q1a}},
		{SubjectID: "math", Value: 10, Task: &Task{ID: "t2", SubPeriod: f.q2a}},
	}
	a := ComputeSubject("math", direct, Options{})
	b := ComputeSubject("math", viaTask, Options{})
	assert.Equal(t, a.Averages(nil), b.Averages(nil))
}

func TestComputeSubjectLegacyPartial(t *testing.T) {
	f := newFixture()
	records := []Record{
		{SubjectID: "math", Value: 6, Partial: "P1"},
		{SubjectID: "math", Value: 9, Partial: "unknown"},
	}
	result := ComputeSubject("math", records, Options{LegacyPartials: map[string]*SubPeriod{"P1": f.q2a}})
	require.Len(t, result.Periods, 1)
	assert.Equal(t, "q2", result.Periods[0].PeriodID)
	require.NotNil(t, result.GeneralAverage)
	assert.Equal(t, 3.0, *result.GeneralAverage)

	result = ComputeSubject("math", records, Options{})
	assert.Empty(t, result.Periods)
	assert.Nil(t, result.GeneralAverage)
}

func TestComputeSubjectWithoutRecordsIsNull(t *testing.T) {
	result := ComputeSubject("math", nil, Options{})
	assert.Nil(t, result.GeneralAverage)

	payload, err := json.Marshal(result.Averages(letterScale()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"promediosSubPeriodo":{},"promediosPeriodo":{},"promedioGeneral":null,"equivalenteGeneral":null}`, string(payload))
}

func TestComputeSubjectExcludesSupplementaryFromGeneral(t *testing.T) {
	f := newFixture()
	records := []Record{
		{SubjectID: "math", Value: 5, SubPeriod: f.q1a},
		{SubjectID: "math", Value: 6, SubPeriod: f.q2a},
		{SubjectID: "math", Value: 9, SubPeriod: f.sup},
	}
	result := ComputeSubject("math", records, Options{})
	require.NotNil(t, result.GeneralAverage)
	assert.Equal(t, 5.5, *result.GeneralAverage)

	score := result.SupplementaryScore()
	require.NotNil(t, score)
	assert.Equal(t, 9.0, *score)

	standings := result.Standings()
	require.Len(t, standings, 2)
	out := ApplySupplementary(standings, *score)
	require.NotNil(t, out.GeneralAverage)
	assert.Equal(t, 9.0, *out.GeneralAverage)
	require.Len(t, out.Replacements, 2)
	assert.Equal(t, "q1", out.Replacements[0].PeriodID)
}

func TestSubjectAveragesShape(t *testing.T) {
	f := newFixture()
	records := []Record{
		{SubjectID: "math", Value: 8, SubPeriod: f.q1a},
		{SubjectID: "math", Value: 9, SubPeriod: f.q1b},
	}
	averages := ComputeSubject("math", records, Options{}).Averages(letterScale())

	entry, ok := averages.SubPeriodAverages["q1a"]
	require.True(t, ok)
	assert.Equal(t, "First Partial", entry.Name)
	assert.Equal(t, 8.0, entry.Average)
	assert.InDelta(t, 3.2, entry.WeightedAverage, 1e-9)
	assert.Equal(t, 40.0, entry.Weight)

	period := averages.PeriodAverages["q1"]
	assert.Equal(t, 8.6, period.Average)
	assert.InDelta(t, 4.3, period.WeightedAverage, 1e-9)
	assert.Equal(t, 50.0, period.Weight)

	require.NotNil(t, averages.GeneralAverage)
	assert.Equal(t, 4.3, *averages.GeneralAverage)
	require.NotNil(t, averages.GeneralEquivalent)
	assert.Equal(t, "C", *averages.GeneralEquivalent)

	var generic map[string]interface{}
	payload, err := json.Marshal(averages)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &generic))
	for _, key := range []string{"promediosSubPeriodo", "promediosPeriodo", "promedioGeneral", "equivalenteGeneral"} {
		assert.Contains(t, generic, key)
	}
	sub := generic["promediosSubPeriodo"].(map[string]interface{})["q1a"].(map[string]interface{})
	for _, key := range []string{"nombre", "promedio", "promedioPonderado", "ponderacion"} {
		assert.Contains(t, sub, key)
	}
}

func TestComputeSubjectIsIdempotent(t *testing.T) {
	f := newFixture()
	records := []Record{
		{SubjectID: "math", Value: 7.3, SubPeriod: f.q1a},
		{SubjectID: "math", Value: 8.9, SubPeriod: f.q1b},
		{SubjectID: "math", Value: 6.1, Task: &Task{ID: "t", SubPeriod: f.q2a}},
		{SubjectID: "math", Value: 4.2, SubPeriod: f.sup},
	}
	first, err := json.Marshal(ComputeSubject("math", records, Options{}).Averages(letterScale()))
	require.NoError(t, err)
	second, err := json.Marshal(ComputeSubject("math", records, Options{}).Averages(letterScale()))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGroupBySubjectAndStudent(t *testing.T) {
	records := []Record{
		{StudentID: "s1", SubjectID: "math", Value: 1},
		{StudentID: "s2", SubjectID: "art", Value: 2},
		{StudentID: "s1", SubjectID: "art", Value: 3},
	}
	bySubject := GroupBySubject(records)
	assert.Len(t, bySubject["art"], 2)
	assert.Equal(t, 2.0, bySubject["art"][0].Value)

	byStudent := GroupByStudent(records)
	assert.Len(t, byStudent["s1"], 2)
}

func TestStandingsForIncludesUngradedRegularPeriods(t *testing.T) {
	f := newFixture()
	records := []Record{
		{SubjectID: "math", Value: 9, SubPeriod: f.q1a},
		{SubjectID: "math", Value: 9, SubPeriod: f.q1b},
	}
	result := ComputeSubject("math", records, Options{})
	require.Len(t, result.Standings(), 1)

	standings := result.StandingsFor([]*Period{f.supp, f.q2, f.q1})
	require.Len(t, standings, 2)
	assert.Equal(t, "q1", standings[0].PeriodID)
	assert.False(t, standings[0].Ungraded)
	assert.Equal(t, 9.0, standings[0].Average)
	assert.Equal(t, "q2", standings[1].PeriodID)
	assert.True(t, standings[1].Ungraded)
	assert.Equal(t, 7.0, standings[1].MinPassingScore)

	q := EvaluateQualification(standings)
	assert.Equal(t, 14.0, q.SumOfMinimums)
	require.NotNil(t, q.GeneralAverage)
	assert.Equal(t, 4.5, *q.GeneralAverage)
	assert.True(t, q.Qualifies)
}
