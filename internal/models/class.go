package models

import "time"

// Class represents an academic class or section.
type Class struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	GradeLevel string    `db:"grade_level" json:"grade_level"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClassSubject is a subject offered to a class in an academic year, with the
// grade scale used for display equivalence.
type ClassSubject struct {
	ID             string  `db:"id" json:"id"`
	ClassID        string  `db:"class_id" json:"class_id"`
	SubjectID      string  `db:"subject_id" json:"subject_id"`
	AcademicYearID string  `db:"academic_year_id" json:"academic_year_id"`
	GradeScaleID   *string `db:"grade_scale_id" json:"grade_scale_id,omitempty"`
	SubjectName    string  `db:"subject_name" json:"subject_name"`
	SubjectCode    string  `db:"subject_code" json:"subject_code"`
}
