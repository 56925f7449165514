package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.class_id, e.academic_year_id, e.joined_at, e.left_at, e.status,
s.full_name AS student_name, s.nis AS student_nis, c.name AS class_name, ay.name AS academic_year_name
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN classes c ON c.id = e.class_id
JOIN academic_years ay ON ay.id = e.academic_year_id`

// EnrollmentRepository manages enrollment queries.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByClassAndYear returns the students enrolled in a class for an academic
// year, ordered by name. Students who left the class are included so their
// grades still appear on the report card.
func (r *EnrollmentRepository) ListByClassAndYear(ctx context.Context, classID, academicYearID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + " WHERE e.class_id = $1 AND e.academic_year_id = $2 ORDER BY s.full_name, s.id"
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, classID, academicYearID); err != nil {
		return nil, fmt.Errorf("list class enrollments: %w", err)
	}
	return rows, nil
}

// ListByStudent returns every enrollment of a student, oldest academic year first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + " WHERE e.student_id = $1 ORDER BY ay.start_date, e.joined_at"
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return rows, nil
}

// FindActive returns the active enrollment of a student in an academic year.
func (r *EnrollmentRepository) FindActive(ctx context.Context, studentID, academicYearID string) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + " WHERE e.student_id = $1 AND e.academic_year_id = $2 AND e.status = $3 ORDER BY e.joined_at DESC LIMIT 1"
	var row models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &row, query, studentID, academicYearID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}
	return &row, nil
}
