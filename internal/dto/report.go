package dto

import "github.com/noah-isme/sma-grading-api/internal/models"

// ReportRequest captures POST /reports/generate payload. Report cards and
// pivots need classId, pivots also subjectId, histories studentId.
type ReportRequest struct {
	Type           models.ReportType   `json:"type" validate:"required,oneof=report_card pivot history"`
	AcademicYearID string              `json:"academicYearId"`
	ClassID        string              `json:"classId"`
	SubjectID      string              `json:"subjectId"`
	StudentID      string              `json:"studentId"`
	Format         models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
