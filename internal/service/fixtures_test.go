package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/repository"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

const testYear = "ay-1"

func strRef(s string) *string { return &s }

func floatRef(f float64) *float64 { return &f }

// testPeriods is a two-term year with a make-up period:
// Q1 (50%, min 3) = Q1-A 40% + Q1-B 60%, Q2 (50%, min 3) = Q2-A 100%.
func testPeriods() []models.Period {
	return []models.Period{
		{
			ID: "q1", AcademicYearID: testYear, Name: "Q1", Weight: 50, MinPassingScore: 3, DisplayOrder: 1,
			SubPeriods: []models.SubPeriod{
				{ID: "q1a", PeriodID: "q1", Name: "Q1-A", Weight: 40, DisplayOrder: 1, LegacyLabel: strRef("P1")},
				{ID: "q1b", PeriodID: "q1", Name: "Q1-B", Weight: 60, DisplayOrder: 2},
			},
		},
		{
			ID: "q2", AcademicYearID: testYear, Name: "Q2", Weight: 50, MinPassingScore: 3, DisplayOrder: 2,
			SubPeriods: []models.SubPeriod{
				{ID: "q2a", PeriodID: "q2", Name: "Q2-A", Weight: 100, DisplayOrder: 1},
			},
		},
		{
			ID: "sup", AcademicYearID: testYear, Name: "Supplementary", IsSupplementary: true, DisplayOrder: 3,
			SubPeriods: []models.SubPeriod{
				{ID: "supa", PeriodID: "sup", Name: "Make-up", Weight: 100, DisplayOrder: 1},
			},
		},
	}
}

type periodStub struct {
	periods []models.Period
	tasks   map[string]*models.Task
	err     error
}

func newPeriodStub() *periodStub {
	return &periodStub{
		periods: testPeriods(),
		tasks: map[string]*models.Task{
			"task-1": {ID: "task-1", SubPeriodID: "q1b", SubjectID: "math", Title: "Essay"},
		},
	}
}

func (p *periodStub) ListByAcademicYear(ctx context.Context, academicYearID string) ([]models.Period, error) {
	if p.err != nil {
		return nil, p.err
	}
	if academicYearID != testYear {
		return nil, nil
	}
	return p.periods, nil
}

func (p *periodStub) FindSupplementary(ctx context.Context, academicYearID string) (*models.Period, error) {
	if academicYearID == testYear {
		for i := range p.periods {
			if p.periods[i].IsSupplementary {
				return &p.periods[i], nil
			}
		}
	}
	return nil, fmt.Errorf("find supplementary period: %w", sql.ErrNoRows)
}

func (p *periodStub) FindTask(ctx context.Context, id string) (*models.Task, error) {
	task, ok := p.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return task, nil
}

type gradeStub struct {
	rows    []models.GradeRow
	created []*models.Grade
	seq     int
}

func gradeRow(id, student, subject, subPeriod string, value float64) models.GradeRow {
	return models.GradeRow{Grade: models.Grade{
		ID:             id,
		StudentID:      student,
		SubjectID:      subject,
		AcademicYearID: testYear,
		SubPeriodID:    strRef(subPeriod),
		Value:          value,
	}}
}

func (g *gradeStub) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRow, error) {
	var out []models.GradeRow
	for _, row := range g.rows {
		if filter.AcademicYearID != "" && row.AcademicYearID != filter.AcademicYearID {
			continue
		}
		if filter.SubjectID != "" && row.SubjectID != filter.SubjectID {
			continue
		}
		if len(filter.StudentIDs) > 0 && !contains(filter.StudentIDs, row.StudentID) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (g *gradeStub) Count(ctx context.Context, filter models.GradeFilter) (int, error) {
	rows, _ := g.List(ctx, filter)
	return len(rows), nil
}

func (g *gradeStub) FindByID(ctx context.Context, id string) (*models.GradeRow, error) {
	for i := range g.rows {
		if g.rows[i].ID == id {
			row := g.rows[i]
			return &row, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (g *gradeStub) Create(ctx context.Context, grade *models.Grade) error {
	g.seq++
	grade.ID = fmt.Sprintf("new-%d", g.seq)
	g.created = append(g.created, grade)
	g.rows = append(g.rows, models.GradeRow{Grade: *grade})
	return nil
}

func (g *gradeStub) UpdateValue(ctx context.Context, id string, value float64) error {
	for i := range g.rows {
		if g.rows[i].ID == id {
			g.rows[i].Value = value
			return nil
		}
	}
	return repository.ErrNoRowsAffected
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type enrollmentStub struct {
	rows []models.EnrollmentDetail
}

func enrollment(student, name, class, year string, status models.EnrollmentStatus) models.EnrollmentDetail {
	return models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:             student + "-" + class + "-" + year,
			StudentID:      student,
			ClassID:        class,
			AcademicYearID: year,
			Status:         status,
		},
		StudentName:      name,
		StudentNIS:       "nis-" + student,
		ClassName:        strings.ToUpper(class),
		AcademicYearName: "Year " + year,
	}
}

func (e *enrollmentStub) ListByClassAndYear(ctx context.Context, classID, academicYearID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, row := range e.rows {
		if row.ClassID == classID && row.AcademicYearID == academicYearID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (e *enrollmentStub) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, row := range e.rows {
		if row.StudentID == studentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (e *enrollmentStub) FindActive(ctx context.Context, studentID, academicYearID string) (*models.EnrollmentDetail, error) {
	for _, row := range e.rows {
		if row.StudentID == studentID && row.AcademicYearID == academicYearID && row.Status == models.EnrollmentStatusActive {
			found := row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type subjectStub struct {
	subjects map[string]*models.Subject
	offered  []models.ClassSubject
}

func newSubjectStub() *subjectStub {
	return &subjectStub{
		subjects: map[string]*models.Subject{
			"math":    {ID: "math", Code: "MAT", Name: "Mathematics"},
			"science": {ID: "science", Code: "SCI", Name: "Science"},
		},
		offered: []models.ClassSubject{
			{ID: "cs-1", ClassID: "class-a", SubjectID: "math", AcademicYearID: testYear, SubjectName: "Mathematics"},
			{ID: "cs-2", ClassID: "class-a", SubjectID: "science", AcademicYearID: testYear, SubjectName: "Science"},
		},
	}
}

func (s *subjectStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

func (s *subjectStub) ListByClass(ctx context.Context, classID, academicYearID string) ([]models.ClassSubject, error) {
	var out []models.ClassSubject
	for _, cs := range s.offered {
		if cs.ClassID == classID && cs.AcademicYearID == academicYearID {
			out = append(out, cs)
		}
	}
	return out, nil
}

type studentStub map[string]*models.Student

func (s studentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

type classStub map[string]*models.Class

func (c classStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := c[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

// scaleStub serves the same scale for every class and subject listed.
type scaleStub struct {
	scale    *models.GradeScale
	subjects []string
}

func testScale() *models.GradeScale {
	return &models.GradeScale{ID: "scale-1", Name: "Letters", Entries: []models.GradeScaleEntry{
		{Threshold: 5, Label: "D"},
		{Threshold: 7, Label: "C"},
		{Threshold: 8.5, Label: "B"},
		{Threshold: 10, Label: "A"},
	}}
}

func (s *scaleStub) FindByClassSubject(ctx context.Context, classID, subjectID, academicYearID string) (*models.GradeScale, error) {
	if s.scale == nil || !contains(s.subjects, subjectID) {
		return nil, nil
	}
	return s.scale, nil
}

func (s *scaleStub) ListByClass(ctx context.Context, classID, academicYearID string) (map[string]*models.GradeScale, error) {
	out := make(map[string]*models.GradeScale)
	if s.scale == nil {
		return out, nil
	}
	for _, subject := range s.subjects {
		out[subject] = s.scale
	}
	return out, nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) Create(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

// memoryCache keeps JSON payloads in a map the way the redis repository does.
type memoryCache struct {
	data    map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	m.deleted = append(m.deleted, pattern)
	return nil
}

// gradingFixture wires every reader used by the grading services around the
// same in-memory data.
type gradingFixture struct {
	periods     *periodStub
	grades      *gradeStub
	enrollments *enrollmentStub
	subjects    *subjectStub
	students    studentStub
	classes     classStub
	scales      *scaleStub
	audits      *auditStub
	store       *memoryCache
	cache       *CacheService
	metrics     *MetricsService
}

// newGradingFixture seeds class-a with three students:
//
//	stu-1 math: Q1-A 8 and 9, Q1-B 9, Q2-A 6; science: Q1-A 7
//	stu-2 math: Q1-A 2, Q2-A 6
//	stu-3 has no grades
func newGradingFixture() *gradingFixture {
	f := &gradingFixture{
		periods: newPeriodStub(),
		grades: &gradeStub{rows: []models.GradeRow{
			gradeRow("g1", "stu-1", "math", "q1a", 8),
			gradeRow("g2", "stu-1", "math", "q1a", 9),
			gradeRow("g3", "stu-1", "math", "q1b", 9),
			gradeRow("g4", "stu-1", "math", "q2a", 6),
			gradeRow("g5", "stu-1", "science", "q1a", 7),
			gradeRow("g6", "stu-2", "math", "q1a", 2),
			gradeRow("g7", "stu-2", "math", "q2a", 6),
		}},
		enrollments: &enrollmentStub{rows: []models.EnrollmentDetail{
			enrollment("stu-3", "Citra", "class-a", testYear, models.EnrollmentStatusActive),
			enrollment("stu-2", "Budi", "class-a", testYear, models.EnrollmentStatusActive),
			enrollment("stu-1", "Ani", "class-a", testYear, models.EnrollmentStatusActive),
		}},
		subjects: newSubjectStub(),
		students: studentStub{
			"stu-1": {ID: "stu-1", NIS: "nis-stu-1", FullName: "Ani"},
			"stu-2": {ID: "stu-2", NIS: "nis-stu-2", FullName: "Budi"},
			"stu-3": {ID: "stu-3", NIS: "nis-stu-3", FullName: "Citra"},
		},
		classes: classStub{"class-a": {ID: "class-a", Name: "X-A"}},
		scales:  &scaleStub{scale: testScale(), subjects: []string{"math"}},
		audits:  &auditStub{},
		store:   newMemoryCache(),
		metrics: NewMetricsService(),
	}
	f.cache = NewCacheService(f.store, f.metrics, time.Minute, nil, true)
	return f
}

func (f *gradingFixture) averageService() *AverageService {
	return NewAverageService(f.grades, f.periods, f.scales, f.enrollments, f.subjects, f.students, f.classes, f.cache, f.metrics, nil, AverageServiceConfig{CacheTTL: time.Minute})
}

func (f *gradingFixture) gradeService() *GradeService {
	return NewGradeService(f.grades, f.periods, f.periods, f.enrollments, f.audits, f.cache, nil, nil, ScoreBounds{Min: 0, Max: 10})
}

func (f *gradingFixture) supplementaryService() *SupplementaryService {
	return NewSupplementaryService(f.grades, f.periods, f.enrollments, f.cache, f.metrics, nil, nil, ScoreBounds{Min: 0, Max: 10})
}

// counterValue sums a counter family from the service registry. A non-empty
// label restricts the sum to series carrying that label value.
func counterValue(t *testing.T, m *MetricsService, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := label == ""
			for _, pair := range metric.GetLabel() {
				if pair.GetValue() == label {
					matched = true
				}
			}
			if matched {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}
