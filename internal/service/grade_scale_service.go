package service

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

// GradeScaleService resolves averages to the qualitative labels of the
// scale configured for a class subject.
type GradeScaleService struct {
	scales    gradeScaleReader
	validator *validator.Validate
}

// NewGradeScaleService constructs the service.
func NewGradeScaleService(scales gradeScaleReader, validate *validator.Validate) *GradeScaleService {
	if validate == nil {
		validate = validator.New()
	}
	return &GradeScaleService{scales: scales, validator: validate}
}

// Resolve returns the label equivalent to an average. A subject without a
// configured scale resolves to no label rather than an error.
func (s *GradeScaleService) Resolve(ctx context.Context, query dto.ResolveScaleQuery) (*dto.ScaleResolution, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scale query")
	}
	stored, err := s.scales.FindByClassSubject(ctx, query.ClassID, query.SubjectID, query.AcademicYearID)
	if err != nil {
		return nil, internalError(err, "failed to load grade scale")
	}
	resolution := &dto.ScaleResolution{}
	if stored != nil {
		resolution.ScaleID = &stored.ID
		resolution.ScaleName = &stored.Name
	}
	average := *query.Average
	if math.IsNaN(average) || math.IsInf(average, 0) {
		return resolution, nil
	}
	resolution.Average = &average
	resolution.Label = toGradingScale(stored).Resolve(&average)
	return resolution, nil
}
