package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

const gradeSelect = `SELECT g.id, g.student_id, g.subject_id, g.academic_year_id, g.sub_period_id, g.task_id, g.partial, g.value, g.recorded_by, g.recorded_at, g.updated_at, t.sub_period_id AS task_sub_period_id
FROM grades g
LEFT JOIN tasks t ON t.id = g.task_id`

// GradeRepository handles grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

func gradeWhere(filter models.GradeFilter) (string, []interface{}) {
	clauses := []string{"1=1"}
	var args []interface{}
	if len(filter.StudentIDs) > 0 {
		args = append(args, pq.Array(filter.StudentIDs))
		clauses = append(clauses, fmt.Sprintf("g.student_id = ANY($%d)", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		clauses = append(clauses, fmt.Sprintf("g.subject_id = $%d", len(args)))
	}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		clauses = append(clauses, fmt.Sprintf("g.academic_year_id = $%d", len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns grades matching the filter together with the sub-period their
// task links to. Results are paged when filter.PageSize is set.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRow, error) {
	where, args := gradeWhere(filter)
	query := gradeSelect + where + " ORDER BY g.recorded_at, g.id"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	var rows []models.GradeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return rows, nil
}

// Count returns the number of grades matching the filter, ignoring paging.
func (r *GradeRepository) Count(ctx context.Context, filter models.GradeFilter) (int, error) {
	where, args := gradeWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM grades g"+where, args...); err != nil {
		return 0, fmt.Errorf("count grades: %w", err)
	}
	return total, nil
}

// FindByID returns a single grade.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.GradeRow, error) {
	var row models.GradeRow
	if err := r.db.GetContext(ctx, &row, gradeSelect+" WHERE g.id = $1", id); err != nil {
		return nil, fmt.Errorf("find grade: %w", err)
	}
	return &row, nil
}

// Create inserts a grade, assigning its id and timestamps when missing.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.RecordedAt.IsZero() {
		grade.RecordedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, student_id, subject_id, academic_year_id, sub_period_id, task_id, partial, value, recorded_by, recorded_at, updated_at)
VALUES (:id, :student_id, :subject_id, :academic_year_id, :sub_period_id, :task_id, :partial, :value, :recorded_by, :recorded_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// UpdateValue corrects the score of an existing grade.
func (r *GradeRepository) UpdateValue(ctx context.Context, id string, value float64) error {
	const query = `UPDATE grades SET value = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update grade %s: %w", id, ErrNoRowsAffected)
	}
	return nil
}
