package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/grading"
	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type supplementaryPeriodReader interface {
	periodReader
	FindSupplementary(ctx context.Context, academicYearID string) (*models.Period, error)
}

type gradeWriter interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRow, error)
	Create(ctx context.Context, grade *models.Grade) error
}

// SupplementaryService decides supplementary-exam eligibility and applies
// make-up scores to failed periods.
type SupplementaryService struct {
	grades      gradeWriter
	periods     supplementaryPeriodReader
	enrollments enrollmentReader
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	bounds      ScoreBounds
}

// NewSupplementaryService constructs the service.
func NewSupplementaryService(grades gradeWriter, periods supplementaryPeriodReader, enrollments enrollmentReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, bounds ScoreBounds) *SupplementaryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bounds.Max <= bounds.Min {
		bounds = ScoreBounds{Min: 0, Max: 10}
	}
	return &SupplementaryService{
		grades:      grades,
		periods:     periods,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		bounds:      bounds,
	}
}

// subjectResult computes the subject and its standings against every regular
// period of the year, graded or not.
func (s *SupplementaryService) subjectResult(ctx context.Context, studentID, subjectID, academicYearID string) (grading.SubjectResult, []grading.PeriodStanding, error) {
	periods, err := s.periods.ListByAcademicYear(ctx, academicYearID)
	if err != nil {
		return grading.SubjectResult{}, nil, internalError(err, "failed to load grading periods")
	}
	rows, err := s.grades.List(ctx, models.GradeFilter{StudentIDs: []string{studentID}, SubjectID: subjectID, AcademicYearID: academicYearID})
	if err != nil {
		return grading.SubjectResult{}, nil, internalError(err, "failed to load grades")
	}
	catalog := newGradingCatalog(periods)
	s.metrics.RecordSubjectComputations(1)
	result := catalog.compute(subjectID, catalog.records(rows))
	return result, catalog.standings(result), nil
}

// Evaluate reports whether the student qualifies for the supplementary exam
// of a subject and, once a make-up score exists, the resulting average.
func (s *SupplementaryService) Evaluate(ctx context.Context, studentID, subjectID, academicYearID string) (*models.SupplementaryEvaluation, error) {
	result, standings, err := s.subjectResult(ctx, studentID, subjectID, academicYearID)
	if err != nil {
		return nil, err
	}
	eval := &models.SupplementaryEvaluation{
		StudentID:          studentID,
		SubjectID:          subjectID,
		AcademicYearID:     academicYearID,
		Qualification:      grading.EvaluateQualification(standings),
		SupplementaryScore: result.SupplementaryScore(),
	}
	switch {
	case !eval.Qualification.Qualifies:
		s.metrics.RecordSupplementaryDecision(SupplementaryNotQualified)
	case eval.SupplementaryScore == nil:
		s.metrics.RecordSupplementaryDecision(SupplementaryPending)
	default:
		outcome := grading.ApplySupplementary(standings, *eval.SupplementaryScore)
		eval.Outcome = &outcome
		s.metrics.RecordSupplementaryDecision(SupplementaryApplied)
	}
	return eval, nil
}

// Record stores a make-up score in the supplementary period of the year. The
// student must qualify and may hold only one supplementary score per subject.
func (s *SupplementaryService) Record(ctx context.Context, req dto.RecordSupplementaryRequest, actor Actor) (*models.SupplementaryEvaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid supplementary payload")
	}
	value := *req.Value
	if value < s.bounds.Min || value > s.bounds.Max {
		return nil, appErrors.WithDetails(appErrors.ErrScoreRange, map[string]interface{}{
			"min":   s.bounds.Min,
			"max":   s.bounds.Max,
			"value": value,
		})
	}

	period, err := s.periods.FindSupplementary(ctx, req.AcademicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoSupplementary
		}
		return nil, internalError(err, "failed to load supplementary period")
	}
	if len(period.SubPeriods) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoSupplementary, "supplementary period has no sub-period to record into")
	}
	if _, err := s.enrollments.FindActive(ctx, req.StudentID, req.AcademicYearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student has no active enrollment in the academic year")
		}
		return nil, internalError(err, "failed to load enrollment")
	}

	result, standings, err := s.subjectResult(ctx, req.StudentID, req.SubjectID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}
	if result.SupplementaryScore() != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "supplementary score already recorded; correct it instead")
	}
	qualification, err := grading.CheckQualification(standings)
	if err != nil {
		s.metrics.RecordSupplementaryDecision(SupplementaryNotQualified)
		var qErr *grading.QualificationError
		if errors.As(err, &qErr) {
			return nil, appErrors.WithDetails(appErrors.ErrNotQualified, map[string]interface{}{
				"general_average": qErr.GeneralAverage,
				"sum_of_minimums": qErr.SumOfMinimums,
			})
		}
		return nil, appErrors.ErrNotQualified
	}

	subPeriodID := period.SubPeriods[0].ID
	grade := &models.Grade{
		StudentID:      req.StudentID,
		SubjectID:      req.SubjectID,
		AcademicYearID: req.AcademicYearID,
		SubPeriodID:    &subPeriodID,
		Value:          value,
		RecordedBy:     actor.UserID,
	}
	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, internalError(err, "failed to record supplementary score")
	}
	invalidateStudentYear(ctx, s.cache, s.enrollments, s.logger, req.StudentID, req.AcademicYearID)

	score := grading.Truncate(value)
	outcome := grading.ApplySupplementary(standings, score)
	s.metrics.RecordSupplementaryDecision(SupplementaryApplied)
	s.logger.Info("supplementary score recorded",
		zap.String("student_id", req.StudentID),
		zap.String("subject_id", req.SubjectID),
		zap.Int("replaced_periods", len(outcome.Replacements)),
	)
	return &models.SupplementaryEvaluation{
		StudentID:          req.StudentID,
		SubjectID:          req.SubjectID,
		AcademicYearID:     req.AcademicYearID,
		Qualification:      qualification,
		SupplementaryScore: &score,
		Outcome:            &outcome,
	}, nil
}
