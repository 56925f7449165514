package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusLeft        EnrollmentStatus = "LEFT"
)

// Enrollment captures a student's registration to a class within an academic year.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	JoinedAt       time.Time        `db:"joined_at" json:"joined_at"`
	LeftAt         *time.Time       `db:"left_at" json:"left_at,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentDetail enriches Enrollment with student, class and year names.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string `db:"student_name" json:"student_name"`
	StudentNIS       string `db:"student_nis" json:"student_nis"`
	ClassName        string `db:"class_name" json:"class_name"`
	AcademicYearName string `db:"academic_year_name" json:"academic_year_name"`
}
