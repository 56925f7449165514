package dto

import "github.com/noah-isme/sma-grading-api/internal/models"

// RecordGradeRequest captures POST /grades. A score is linked either to a
// sub-period directly or to a task inside one.
type RecordGradeRequest struct {
	StudentID      string   `json:"student_id" validate:"required"`
	SubjectID      string   `json:"subject_id" validate:"required"`
	AcademicYearID string   `json:"academic_year_id" validate:"required"`
	SubPeriodID    string   `json:"sub_period_id" validate:"required_without=TaskID"`
	TaskID         string   `json:"task_id" validate:"required_without=SubPeriodID"`
	Value          *float64 `json:"value" validate:"required"`
}

// CorrectGradeRequest captures PUT /grades/:id.
type CorrectGradeRequest struct {
	Value  *float64 `json:"value" validate:"required"`
	Reason string   `json:"reason" validate:"omitempty,max=255"`
}

// GradeListQuery filters GET /grades.
type GradeListQuery struct {
	StudentID      string `form:"studentId"`
	SubjectID      string `form:"subjectId"`
	AcademicYearID string `form:"academicYearId" validate:"required"`
	Page           int    `form:"page" validate:"omitempty,min=1"`
	PageSize       int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// RecordSupplementaryRequest captures POST /supplementary.
type RecordSupplementaryRequest struct {
	StudentID      string   `json:"student_id" validate:"required"`
	SubjectID      string   `json:"subject_id" validate:"required"`
	AcademicYearID string   `json:"academic_year_id" validate:"required"`
	Value          *float64 `json:"value" validate:"required"`
}

// ResolveScaleQuery captures GET /grade-scales/resolve.
type ResolveScaleQuery struct {
	ClassID        string   `form:"classId" validate:"required"`
	SubjectID      string   `form:"subjectId" validate:"required"`
	AcademicYearID string   `form:"academicYearId" validate:"required"`
	Average        *float64 `form:"average" validate:"required"`
}

// ScaleResolution is the grade-scale label of an average. Label is null
// when the subject has no scale configured. Average and Label are both null
// for a NaN or infinite average.
type ScaleResolution struct {
	ScaleID   *string  `json:"scale_id"`
	ScaleName *string  `json:"scale_name"`
	Average   *float64 `json:"average"`
	Label     *string  `json:"label"`
}

// AcademicYearDetail is an academic year with its grading calendar.
type AcademicYearDetail struct {
	models.AcademicYear
	Periods []models.Period `json:"periods"`
}
