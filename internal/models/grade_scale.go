package models

// GradeScale is a threshold-to-label table attached to class subjects.
type GradeScale struct {
	ID      string            `db:"id" json:"id"`
	Name    string            `db:"name" json:"name"`
	Entries []GradeScaleEntry `db:"-" json:"entries"`
}

// GradeScaleEntry is one threshold of a grade scale.
type GradeScaleEntry struct {
	ID           string  `db:"id" json:"id"`
	GradeScaleID string  `db:"grade_scale_id" json:"grade_scale_id"`
	Threshold    float64 `db:"threshold" json:"threshold"`
	Label        string  `db:"label" json:"label"`
}
