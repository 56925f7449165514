package service

import (
	"context"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/models"
)

type academicYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	List(ctx context.Context) ([]models.AcademicYear, error)
}

// AcademicYearService exposes the grading calendar.
type AcademicYearService struct {
	years   academicYearReader
	periods periodReader
}

// NewAcademicYearService constructs the service.
func NewAcademicYearService(years academicYearReader, periods periodReader) *AcademicYearService {
	return &AcademicYearService{years: years, periods: periods}
}

// List returns every academic year, most recent first.
func (s *AcademicYearService) List(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.years.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list academic years")
	}
	if years == nil {
		years = []models.AcademicYear{}
	}
	return years, nil
}

// Get returns an academic year with its periods and sub-periods in display order.
func (s *AcademicYearService) Get(ctx context.Context, id string) (*dto.AcademicYearDetail, error) {
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "academic year")
	}
	periods, err := s.periods.ListByAcademicYear(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load periods")
	}
	if periods == nil {
		periods = []models.Period{}
	}
	return &dto.AcademicYearDetail{AcademicYear: *year, Periods: periods}, nil
}
