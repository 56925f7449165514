package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

// SubjectRepository reads subjects and the subjects offered to classes.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns a subject.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// ListByClass returns the subjects offered to a class in an academic year, by name.
func (r *SubjectRepository) ListByClass(ctx context.Context, classID, academicYearID string) ([]models.ClassSubject, error) {
	const query = `SELECT cs.id, cs.class_id, cs.subject_id, cs.academic_year_id, cs.grade_scale_id, s.name AS subject_name, s.code AS subject_code
FROM class_subjects cs JOIN subjects s ON s.id = cs.subject_id
WHERE cs.class_id = $1 AND cs.academic_year_id = $2 ORDER BY s.name, s.id`
	var rows []models.ClassSubject
	if err := r.db.SelectContext(ctx, &rows, query, classID, academicYearID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return rows, nil
}
