package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

// PeriodRepository reads the grading calendar of academic years.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository creates a period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// ListByAcademicYear returns every period of the year with its sub-periods,
// both in display order.
func (r *PeriodRepository) ListByAcademicYear(ctx context.Context, academicYearID string) ([]models.Period, error) {
	const periodQuery = `SELECT id, academic_year_id, name, weight, min_passing_score, is_supplementary, display_order, created_at
FROM periods WHERE academic_year_id = $1 ORDER BY display_order, id`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, periodQuery, academicYearID); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	if len(periods) == 0 {
		return periods, nil
	}

	const subQuery = `SELECT sp.id, sp.period_id, sp.name, sp.weight, sp.display_order, sp.legacy_label, sp.created_at
FROM sub_periods sp JOIN periods p ON p.id = sp.period_id
WHERE p.academic_year_id = $1 ORDER BY sp.display_order, sp.id`
	var subs []models.SubPeriod
	if err := r.db.SelectContext(ctx, &subs, subQuery, academicYearID); err != nil {
		return nil, fmt.Errorf("list sub-periods: %w", err)
	}
	index := make(map[string]int, len(periods))
	for i := range periods {
		index[periods[i].ID] = i
	}
	for _, sp := range subs {
		if i, ok := index[sp.PeriodID]; ok {
			periods[i].SubPeriods = append(periods[i].SubPeriods, sp)
		}
	}
	return periods, nil
}

// FindSupplementary returns the supplementary period of the year, or sql.ErrNoRows.
func (r *PeriodRepository) FindSupplementary(ctx context.Context, academicYearID string) (*models.Period, error) {
	const query = `SELECT id, academic_year_id, name, weight, min_passing_score, is_supplementary, display_order, created_at
FROM periods WHERE academic_year_id = $1 AND is_supplementary = TRUE LIMIT 1`
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, academicYearID); err != nil {
		return nil, fmt.Errorf("find supplementary period: %w", err)
	}
	const subQuery = `SELECT id, period_id, name, weight, display_order, legacy_label, created_at
FROM sub_periods WHERE period_id = $1 ORDER BY display_order, id`
	if err := r.db.SelectContext(ctx, &period.SubPeriods, subQuery, period.ID); err != nil {
		return nil, fmt.Errorf("list supplementary sub-periods: %w", err)
	}
	return &period, nil
}

// FindTask returns a task.
func (r *PeriodRepository) FindTask(ctx context.Context, id string) (*models.Task, error) {
	const query = `SELECT id, sub_period_id, subject_id, title, created_at FROM tasks WHERE id = $1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}
