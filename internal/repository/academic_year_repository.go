package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

const academicYearColumns = `id, name, start_date, end_date, is_active, created_at, updated_at`

// AcademicYearRepository reads academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository creates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// FindByID returns an academic year.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, "SELECT "+academicYearColumns+" FROM academic_years WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("find academic year: %w", err)
	}
	return &year, nil
}

// List returns every academic year, most recent first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, "SELECT "+academicYearColumns+" FROM academic_years ORDER BY start_date DESC"); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}
