package models

import "time"

// AcademicYear groups the grading periods of one school year.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Period is a grading window of an academic year. Weight is a percentage of
// the subject's general average.
type Period struct {
	ID              string      `db:"id" json:"id"`
	AcademicYearID  string      `db:"academic_year_id" json:"academic_year_id"`
	Name            string      `db:"name" json:"name"`
	Weight          float64     `db:"weight" json:"weight"`
	MinPassingScore float64     `db:"min_passing_score" json:"min_passing_score"`
	IsSupplementary bool        `db:"is_supplementary" json:"is_supplementary"`
	DisplayOrder    int         `db:"display_order" json:"display_order"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	SubPeriods      []SubPeriod `db:"-" json:"sub_periods,omitempty"`
}

// SubPeriod is the smallest grading window. Weight is a percentage of its period.
// LegacyLabel is the partial label older grade rows carry instead of a link.
type SubPeriod struct {
	ID           string    `db:"id" json:"id"`
	PeriodID     string    `db:"period_id" json:"period_id"`
	Name         string    `db:"name" json:"name"`
	Weight       float64   `db:"weight" json:"weight"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	LegacyLabel  *string   `db:"legacy_label" json:"legacy_label,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Task is a discrete graded activity inside a sub-period.
type Task struct {
	ID          string    `db:"id" json:"id"`
	SubPeriodID string    `db:"sub_period_id" json:"sub_period_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	Title       string    `db:"title" json:"title"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
