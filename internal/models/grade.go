package models

import "time"

// Grade is one recorded score. It reaches its sub-period directly, through a
// task, or (for rows imported from the legacy system) only by a partial label.
type Grade struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	SubPeriodID    *string   `db:"sub_period_id" json:"sub_period_id,omitempty"`
	TaskID         *string   `db:"task_id" json:"task_id,omitempty"`
	Partial        *string   `db:"partial" json:"partial,omitempty"`
	Value          float64   `db:"value" json:"value"`
	RecordedBy     string    `db:"recorded_by" json:"recorded_by"`
	RecordedAt     time.Time `db:"recorded_at" json:"recorded_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// GradeRow is a grade joined with the sub-period reached through its task.
type GradeRow struct {
	Grade
	TaskSubPeriodID *string `db:"task_sub_period_id" json:"task_sub_period_id,omitempty"`
}

// GradeFilter scopes grade queries. Empty fields are not applied.
type GradeFilter struct {
	StudentIDs     []string
	SubjectID      string
	AcademicYearID string
	Page           int
	PageSize       int
}
