package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/repository"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type gradeStore interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRow, error)
	Count(ctx context.Context, filter models.GradeFilter) (int, error)
	FindByID(ctx context.Context, id string) (*models.GradeRow, error)
	Create(ctx context.Context, grade *models.Grade) error
	UpdateValue(ctx context.Context, id string, value float64) error
}

type taskReader interface {
	FindTask(ctx context.Context, id string) (*models.Task, error)
}

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// ScoreBounds is the inclusive range accepted at data entry.
type ScoreBounds struct {
	Min float64
	Max float64
}

// Actor identifies the user behind a grade write.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

const defaultGradePageSize = 50

// GradeService records and corrects raw scores.
type GradeService struct {
	grades      gradeStore
	periods     periodReader
	tasks       taskReader
	enrollments enrollmentReader
	audits      auditWriter
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	bounds      ScoreBounds
}

// NewGradeService constructs GradeService.
func NewGradeService(grades gradeStore, periods periodReader, tasks taskReader, enrollments enrollmentReader, audits auditWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, bounds ScoreBounds) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bounds.Max <= bounds.Min {
		bounds = ScoreBounds{Min: 0, Max: 10}
	}
	return &GradeService{
		grades:      grades,
		periods:     periods,
		tasks:       tasks,
		enrollments: enrollments,
		audits:      audits,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		bounds:      bounds,
	}
}

// List returns a page of grades of an academic year.
func (s *GradeService) List(ctx context.Context, query dto.GradeListQuery) ([]models.GradeRow, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade filter")
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = defaultGradePageSize
	}
	filter := models.GradeFilter{
		SubjectID:      query.SubjectID,
		AcademicYearID: query.AcademicYearID,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	if query.StudentID != "" {
		filter.StudentIDs = []string{query.StudentID}
	}
	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list grades")
	}
	total, err := s.grades.Count(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to count grades")
	}
	return grades, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}, nil
}

// Record stores a new score for a regular sub-period, given directly or
// through one of its tasks.
func (s *GradeService) Record(ctx context.Context, req dto.RecordGradeRequest, actor Actor) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.SubPeriodID != "" && req.TaskID != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "provide either sub_period_id or task_id, not both")
	}
	if err := s.checkBounds(*req.Value); err != nil {
		return nil, err
	}

	subPeriodID := req.SubPeriodID
	if req.TaskID != "" {
		task, err := s.tasks.FindTask(ctx, req.TaskID)
		if err != nil {
			return nil, lookupError(err, "task")
		}
		if task.SubjectID != req.SubjectID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "task belongs to another subject")
		}
		subPeriodID = task.SubPeriodID
	}

	periods, err := s.periods.ListByAcademicYear(ctx, req.AcademicYearID)
	if err != nil {
		return nil, internalError(err, "failed to load grading periods")
	}
	sp, ok := newGradingCatalog(periods).subPeriod(subPeriodID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sub-period does not belong to the academic year")
	}
	if sp.Period.Supplementary {
		return nil, appErrors.Clone(appErrors.ErrValidation, "supplementary scores are recorded through the supplementary endpoint")
	}
	if _, err := s.enrollments.FindActive(ctx, req.StudentID, req.AcademicYearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student has no active enrollment in the academic year")
		}
		return nil, internalError(err, "failed to load enrollment")
	}

	grade := &models.Grade{
		StudentID:      req.StudentID,
		SubjectID:      req.SubjectID,
		AcademicYearID: req.AcademicYearID,
		Value:          *req.Value,
		RecordedBy:     actor.UserID,
	}
	if req.TaskID != "" {
		grade.TaskID = &req.TaskID
	} else {
		grade.SubPeriodID = &subPeriodID
	}
	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, internalError(err, "failed to record grade")
	}
	s.invalidate(ctx, grade.StudentID, grade.AcademicYearID)
	return grade, nil
}

// Correct replaces the score of an existing grade and keeps the previous
// value in the audit trail.
func (s *GradeService) Correct(ctx context.Context, id string, req dto.CorrectGradeRequest, actor Actor) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := s.checkBounds(*req.Value); err != nil {
		return nil, err
	}
	row, err := s.grades.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "grade")
	}
	previous := row.Value
	if err := s.grades.UpdateValue(ctx, id, *req.Value); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, internalError(err, "failed to correct grade")
	}

	oldValues, _ := json.Marshal(map[string]interface{}{"value": previous})
	newValues, _ := json.Marshal(map[string]interface{}{"value": *req.Value, "reason": strings.TrimSpace(req.Reason)})
	entry := &models.AuditLog{
		Action:     models.AuditActionGradeCorrect,
		Resource:   "grades",
		ResourceID: &row.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
	if actor.UserID != "" {
		entry.UserID = &actor.UserID
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write grade correction audit", zap.String("grade_id", id), zap.Error(err))
	}

	s.invalidate(ctx, row.StudentID, row.AcademicYearID)
	grade := row.Grade
	grade.Value = *req.Value
	return &grade, nil
}

func (s *GradeService) checkBounds(value float64) error {
	if value < s.bounds.Min || value > s.bounds.Max {
		return appErrors.WithDetails(appErrors.ErrScoreRange, map[string]interface{}{
			"min":   s.bounds.Min,
			"max":   s.bounds.Max,
			"value": value,
		})
	}
	return nil
}

// invalidate drops cached class reports of every class the student attended
// in the academic year.
func (s *GradeService) invalidate(ctx context.Context, studentID, academicYearID string) {
	invalidateStudentYear(ctx, s.cache, s.enrollments, s.logger, studentID, academicYearID)
}

func invalidateStudentYear(ctx context.Context, cache *CacheService, enrollments enrollmentReader, logger *zap.Logger, studentID, academicYearID string) {
	if !cache.Enabled() {
		return
	}
	history, err := enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		logger.Warn("failed to resolve classes for cache invalidation", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	for _, e := range history {
		if e.AcademicYearID != academicYearID {
			continue
		}
		_ = cache.Invalidate(ctx, classCachePattern(e.ClassID, academicYearID))
	}
}
