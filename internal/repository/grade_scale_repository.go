package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

// GradeScaleRepository loads the grade scales attached to class subjects.
type GradeScaleRepository struct {
	db *sqlx.DB
}

// NewGradeScaleRepository creates a grade scale repository.
func NewGradeScaleRepository(db *sqlx.DB) *GradeScaleRepository {
	return &GradeScaleRepository{db: db}
}

// FindByClassSubject returns the scale configured for a subject of a class in
// an academic year. It returns nil without error when no scale is configured.
func (r *GradeScaleRepository) FindByClassSubject(ctx context.Context, classID, subjectID, academicYearID string) (*models.GradeScale, error) {
	const query = `SELECT gs.id, gs.name FROM grade_scales gs
JOIN class_subjects cs ON cs.grade_scale_id = gs.id
WHERE cs.class_id = $1 AND cs.subject_id = $2 AND cs.academic_year_id = $3`
	var scales []models.GradeScale
	if err := r.db.SelectContext(ctx, &scales, query, classID, subjectID, academicYearID); err != nil {
		return nil, fmt.Errorf("find grade scale: %w", err)
	}
	if len(scales) == 0 {
		return nil, nil
	}
	scale := scales[0]
	entries, err := r.entries(ctx, []string{scale.ID})
	if err != nil {
		return nil, err
	}
	scale.Entries = entries[scale.ID]
	return &scale, nil
}

// ListByClass returns the configured scale of every subject of a class, keyed
// by subject id. Subjects without a scale are absent from the map.
func (r *GradeScaleRepository) ListByClass(ctx context.Context, classID, academicYearID string) (map[string]*models.GradeScale, error) {
	const query = `SELECT cs.subject_id, gs.id, gs.name FROM grade_scales gs
JOIN class_subjects cs ON cs.grade_scale_id = gs.id
WHERE cs.class_id = $1 AND cs.academic_year_id = $2`
	var rows []struct {
		SubjectID string `db:"subject_id"`
		models.GradeScale
	}
	if err := r.db.SelectContext(ctx, &rows, query, classID, academicYearID); err != nil {
		return nil, fmt.Errorf("list class grade scales: %w", err)
	}
	result := make(map[string]*models.GradeScale, len(rows))
	if len(rows) == 0 {
		return result, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	entries, err := r.entries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		scale := row.GradeScale
		scale.Entries = entries[scale.ID]
		result[row.SubjectID] = &scale
	}
	return result, nil
}

func (r *GradeScaleRepository) entries(ctx context.Context, scaleIDs []string) (map[string][]models.GradeScaleEntry, error) {
	const query = `SELECT id, grade_scale_id, threshold, label FROM grade_scale_entries
WHERE grade_scale_id = ANY($1) ORDER BY grade_scale_id, threshold`
	var entries []models.GradeScaleEntry
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(scaleIDs)); err != nil {
		return nil, fmt.Errorf("list grade scale entries: %w", err)
	}
	grouped := make(map[string][]models.GradeScaleEntry, len(scaleIDs))
	for _, e := range entries {
		grouped[e.GradeScaleID] = append(grouped[e.GradeScaleID], e)
	}
	return grouped, nil
}
