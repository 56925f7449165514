package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type gradeReader interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRow, error)
}

type periodReader interface {
	ListByAcademicYear(ctx context.Context, academicYearID string) ([]models.Period, error)
}

type gradeScaleReader interface {
	FindByClassSubject(ctx context.Context, classID, subjectID, academicYearID string) (*models.GradeScale, error)
	ListByClass(ctx context.Context, classID, academicYearID string) (map[string]*models.GradeScale, error)
}

type enrollmentReader interface {
	ListByClassAndYear(ctx context.Context, classID, academicYearID string) ([]models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	FindActive(ctx context.Context, studentID, academicYearID string) (*models.EnrollmentDetail, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByClass(ctx context.Context, classID, academicYearID string) ([]models.ClassSubject, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// AverageServiceConfig tunes caching of class-wide reports.
type AverageServiceConfig struct {
	CacheTTL time.Duration
}

// AverageService computes the individual, class, historical and pivot views
// of grade averages.
type AverageService struct {
	grades      gradeReader
	periods     periodReader
	scales      gradeScaleReader
	enrollments enrollmentReader
	subjects    subjectReader
	students    studentReader
	classes     classReader
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         AverageServiceConfig
}

// NewAverageService constructs the average service.
func NewAverageService(grades gradeReader, periods periodReader, scales gradeScaleReader, enrollments enrollmentReader, subjects subjectReader, students studentReader, classes classReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg AverageServiceConfig) *AverageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AverageService{
		grades:      grades,
		periods:     periods,
		scales:      scales,
		enrollments: enrollments,
		subjects:    subjects,
		students:    students,
		classes:     classes,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// classYear is everything needed to compute averages for one class in one year.
type classYear struct {
	catalog  *gradingCatalog
	subjects []models.ClassSubject
	scales   map[string]*grading.GradeScale
}

func (s *AverageService) loadClassYear(ctx context.Context, classID, academicYearID string) (*classYear, error) {
	periods, err := s.periods.ListByAcademicYear(ctx, academicYearID)
	if err != nil {
		return nil, internalError(err, "failed to load grading periods")
	}
	subjects, err := s.subjects.ListByClass(ctx, classID, academicYearID)
	if err != nil {
		return nil, internalError(err, "failed to load class subjects")
	}
	stored, err := s.scales.ListByClass(ctx, classID, academicYearID)
	if err != nil {
		return nil, internalError(err, "failed to load grade scales")
	}
	scales := make(map[string]*grading.GradeScale, len(stored))
	for subjectID, scale := range stored {
		scales[subjectID] = toGradingScale(scale)
	}
	return &classYear{catalog: newGradingCatalog(periods), subjects: subjects, scales: scales}, nil
}

// subjectViews computes every subject offered to the class from one
// student's records, plus the mean of the graded subjects.
func (s *AverageService) subjectViews(cy *classYear, records []grading.Record) ([]models.SubjectAverageView, *float64) {
	bySubject := grading.GroupBySubject(records)
	views := make([]models.SubjectAverageView, 0, len(cy.subjects))
	generals := make([]*float64, 0, len(cy.subjects))
	for _, subject := range cy.subjects {
		result := cy.catalog.compute(subject.SubjectID, bySubject[subject.SubjectID])
		views = append(views, models.SubjectAverageView{
			SubjectID:       subject.SubjectID,
			SubjectName:     subject.SubjectName,
			SubjectAverages: result.Averages(cy.scales[subject.SubjectID]),
		})
		generals = append(generals, result.GeneralAverage)
	}
	s.metrics.RecordSubjectComputations(len(cy.subjects))
	return views, grading.MeanOf(generals)
}

func (s *AverageService) classGrades(ctx context.Context, enrollments []models.EnrollmentDetail, subjectID, academicYearID string) ([]models.GradeRow, error) {
	if len(enrollments) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	rows, err := s.grades.List(ctx, models.GradeFilter{StudentIDs: ids, SubjectID: subjectID, AcademicYearID: academicYearID})
	if err != nil {
		return nil, internalError(err, "failed to load grades")
	}
	return rows, nil
}

// StudentAverages returns the averages of every subject of the class the
// student is enrolled in for the academic year.
func (s *AverageService) StudentAverages(ctx context.Context, studentID, academicYearID string) (*models.StudentAverages, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	enrollment, err := s.enrollments.FindActive(ctx, studentID, academicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no active enrollment in the academic year")
		}
		return nil, internalError(err, "failed to load enrollment")
	}
	cy, err := s.loadClassYear(ctx, enrollment.ClassID, academicYearID)
	if err != nil {
		return nil, err
	}
	rows, err := s.grades.List(ctx, models.GradeFilter{StudentIDs: []string{studentID}, AcademicYearID: academicYearID})
	if err != nil {
		return nil, internalError(err, "failed to load grades")
	}
	views, overall := s.subjectViews(cy, cy.catalog.records(rows))
	return &models.StudentAverages{
		StudentID:      student.ID,
		StudentName:    student.FullName,
		AcademicYearID: academicYearID,
		ClassID:        enrollment.ClassID,
		Subjects:       views,
		OverallAverage: overall,
	}, nil
}

// ClassReportCard computes every student's subject averages for a class. The
// boolean result reports whether the card was served from cache.
func (s *AverageService) ClassReportCard(ctx context.Context, classID, academicYearID string) (*models.ClassReportCard, bool, error) {
	key := classCacheKey(classID, academicYearID, "report-card")
	var cached models.ClassReportCard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, false, lookupError(err, "class")
	}
	enrollments, err := s.enrollments.ListByClassAndYear(ctx, classID, academicYearID)
	if err != nil {
		return nil, false, internalError(err, "failed to load class enrollments")
	}
	cy, err := s.loadClassYear(ctx, classID, academicYearID)
	if err != nil {
		return nil, false, err
	}
	rows, err := s.classGrades(ctx, enrollments, "", academicYearID)
	if err != nil {
		return nil, false, err
	}
	byStudent := grading.GroupByStudent(cy.catalog.records(rows))

	card := &models.ClassReportCard{
		ClassID:        class.ID,
		ClassName:      class.Name,
		AcademicYearID: academicYearID,
		Subjects:       make([]models.ReportCardSubject, 0, len(cy.subjects)),
		Students:       make([]models.ReportCardRow, 0, len(enrollments)),
	}
	subjectGenerals := make(map[string][]*float64, len(cy.subjects))
	overalls := make([]*float64, 0, len(enrollments))
	for _, e := range uniqueStudents(enrollments) {
		views, overall := s.subjectViews(cy, byStudent[e.StudentID])
		for _, v := range views {
			subjectGenerals[v.SubjectID] = append(subjectGenerals[v.SubjectID], v.GeneralAverage)
		}
		card.Students = append(card.Students, models.ReportCardRow{
			StudentID:      e.StudentID,
			StudentName:    e.StudentName,
			StudentNIS:     e.StudentNIS,
			OverallAverage: overall,
			Subjects:       views,
		})
		overalls = append(overalls, overall)
	}
	for _, subject := range cy.subjects {
		card.Subjects = append(card.Subjects, models.ReportCardSubject{
			SubjectID:    subject.SubjectID,
			SubjectName:  subject.SubjectName,
			ClassAverage: grading.MeanOf(subjectGenerals[subject.SubjectID]),
		})
	}
	card.ClassAverage = grading.MeanOf(overalls)
	rankStudents(card.Students)

	_ = s.cache.Set(ctx, key, card, s.cfg.CacheTTL)
	return card, false, nil
}

// StudentHistory computes a student's averages for every academic year they
// were enrolled in, oldest first. When a student changed class during a year
// the latest enrollment decides the subjects.
func (s *AverageService) StudentHistory(ctx context.Context, studentID string) (*models.StudentHistory, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load enrollments")
	}

	var latest []models.EnrollmentDetail
	index := make(map[string]int)
	for _, e := range enrollments {
		if i, ok := index[e.AcademicYearID]; ok {
			latest[i] = e
			continue
		}
		index[e.AcademicYearID] = len(latest)
		latest = append(latest, e)
	}

	history := &models.StudentHistory{StudentID: student.ID, StudentName: student.FullName, Years: make([]models.HistoryYear, 0, len(latest))}
	for _, e := range latest {
		cy, err := s.loadClassYear(ctx, e.ClassID, e.AcademicYearID)
		if err != nil {
			return nil, err
		}
		rows, err := s.grades.List(ctx, models.GradeFilter{StudentIDs: []string{studentID}, AcademicYearID: e.AcademicYearID})
		if err != nil {
			return nil, internalError(err, "failed to load grades")
		}
		views, overall := s.subjectViews(cy, cy.catalog.records(rows))
		history.Years = append(history.Years, models.HistoryYear{
			AcademicYearID:   e.AcademicYearID,
			AcademicYearName: e.AcademicYearName,
			ClassID:          e.ClassID,
			ClassName:        e.ClassName,
			Subjects:         views,
			OverallAverage:   overall,
		})
	}
	return history, nil
}

// PivotReport tabulates one subject of a class: a column per sub-period and
// period, a row per student. The boolean result reports a cache hit.
func (s *AverageService) PivotReport(ctx context.Context, classID, subjectID, academicYearID string) (*models.PivotReport, bool, error) {
	key := classCacheKey(classID, academicYearID, "pivot:"+subjectID)
	var cached models.PivotReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, false, lookupError(err, "class")
	}
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, false, lookupError(err, "subject")
	}
	enrollments, err := s.enrollments.ListByClassAndYear(ctx, classID, academicYearID)
	if err != nil {
		return nil, false, internalError(err, "failed to load class enrollments")
	}
	periods, err := s.periods.ListByAcademicYear(ctx, academicYearID)
	if err != nil {
		return nil, false, internalError(err, "failed to load grading periods")
	}
	stored, err := s.scales.FindByClassSubject(ctx, classID, subjectID, academicYearID)
	if err != nil {
		return nil, false, internalError(err, "failed to load grade scale")
	}
	scale := toGradingScale(stored)
	rows, err := s.classGrades(ctx, enrollments, subjectID, academicYearID)
	if err != nil {
		return nil, false, err
	}

	catalog := newGradingCatalog(periods)
	byStudent := grading.GroupByStudent(catalog.records(rows))
	report := &models.PivotReport{
		ClassID:        class.ID,
		SubjectID:      subject.ID,
		SubjectName:    subject.Name,
		AcademicYearID: academicYearID,
		Columns:        pivotColumns(periods),
		Rows:           make([]models.PivotRow, 0, len(enrollments)),
	}
	generals := make([]*float64, 0, len(enrollments))
	for _, e := range uniqueStudents(enrollments) {
		result := catalog.compute(subjectID, byStudent[e.StudentID])
		row := models.PivotRow{
			StudentID:         e.StudentID,
			StudentName:       e.StudentName,
			Cells:             make(map[string]float64),
			GeneralAverage:    result.GeneralAverage,
			GeneralEquivalent: scale.Resolve(result.GeneralAverage),
		}
		for _, p := range result.Periods {
			for _, sp := range p.SubPeriods {
				row.Cells[sp.SubPeriodID] = sp.Average
			}
			row.Cells[p.PeriodID] = p.Average
		}
		if score := result.SupplementaryScore(); score != nil {
			standings := catalog.standings(result)
			if grading.EvaluateQualification(standings).Qualifies {
				outcome := grading.ApplySupplementary(standings, *score)
				row.Supplementary = &outcome
			}
		}
		report.Rows = append(report.Rows, row)
		generals = append(generals, result.GeneralAverage)
	}
	s.metrics.RecordSubjectComputations(len(report.Rows))
	report.ClassAverage = grading.MeanOf(generals)

	_ = s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return report, false, nil
}

func pivotColumns(periods []models.Period) []models.PivotColumn {
	var columns []models.PivotColumn
	for _, p := range periods {
		for _, sp := range p.SubPeriods {
			columns = append(columns, models.PivotColumn{
				ID:            sp.ID,
				Name:          sp.Name,
				Kind:          models.PivotColumnSubPeriod,
				Weight:        sp.Weight,
				Supplementary: p.IsSupplementary,
			})
		}
		columns = append(columns, models.PivotColumn{
			ID:            p.ID,
			Name:          p.Name,
			Kind:          models.PivotColumnPeriod,
			Weight:        p.Weight,
			Supplementary: p.IsSupplementary,
		})
	}
	return columns
}

// uniqueStudents keeps the first enrollment of each student, preserving order.
func uniqueStudents(enrollments []models.EnrollmentDetail) []models.EnrollmentDetail {
	seen := make(map[string]struct{}, len(enrollments))
	out := make([]models.EnrollmentDetail, 0, len(enrollments))
	for _, e := range enrollments {
		if _, ok := seen[e.StudentID]; ok {
			continue
		}
		seen[e.StudentID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// rankStudents assigns competition ranks (1, 2, 2, 4) by overall average and
// orders the rows by rank. Students without an overall average are unranked
// and listed last, in their original order.
func rankStudents(rows []models.ReportCardRow) {
	ranked := make([]int, 0, len(rows))
	for i := range rows {
		if rows[i].OverallAverage != nil {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return *rows[ranked[a]].OverallAverage > *rows[ranked[b]].OverallAverage
	})
	for pos, idx := range ranked {
		rank := pos + 1
		if pos > 0 {
			prev := rows[ranked[pos-1]]
			if *prev.OverallAverage == *rows[idx].OverallAverage {
				rank = *prev.Rank
			}
		}
		rows[idx].Rank = &rank
	}
	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := rows[a].Rank, rows[b].Rank
		switch {
		case ra == nil:
			return false
		case rb == nil:
			return true
		default:
			return *ra < *rb
		}
	})
}
