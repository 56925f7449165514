package models

import "github.com/noah-isme/sma-grading-api/internal/grading"

// SubjectAverageView is the averages structure of one subject labelled with
// the subject it belongs to. The grading fields are inlined in JSON.
type SubjectAverageView struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	grading.SubjectAverages
}

// StudentAverages is the individual view of a student's year.
type StudentAverages struct {
	StudentID      string               `json:"student_id"`
	StudentName    string               `json:"student_name"`
	AcademicYearID string               `json:"academic_year_id"`
	ClassID        string               `json:"class_id"`
	Subjects       []SubjectAverageView `json:"subjects"`
	OverallAverage *float64             `json:"overall_average"`
}

// ReportCardSubject summarises one subject across the class.
type ReportCardSubject struct {
	SubjectID    string   `json:"subject_id"`
	SubjectName  string   `json:"subject_name"`
	ClassAverage *float64 `json:"class_average"`
}

// ReportCardRow is one student line of a class report card. Rank is nil for
// students without any graded subject.
type ReportCardRow struct {
	StudentID      string               `json:"student_id"`
	StudentName    string               `json:"student_name"`
	StudentNIS     string               `json:"student_nis"`
	Rank           *int                 `json:"rank"`
	OverallAverage *float64             `json:"overall_average"`
	Subjects       []SubjectAverageView `json:"subjects"`
}

// ClassReportCard is the class-wide report card of an academic year.
type ClassReportCard struct {
	ClassID        string              `json:"class_id"`
	ClassName      string              `json:"class_name"`
	AcademicYearID string              `json:"academic_year_id"`
	Subjects       []ReportCardSubject `json:"subjects"`
	Students       []ReportCardRow     `json:"students"`
	ClassAverage   *float64            `json:"class_average"`
}

// HistoryYear is one academic year of a student's historical report.
type HistoryYear struct {
	AcademicYearID   string               `json:"academic_year_id"`
	AcademicYearName string               `json:"academic_year_name"`
	ClassID          string               `json:"class_id"`
	ClassName        string               `json:"class_name"`
	Subjects         []SubjectAverageView `json:"subjects"`
	OverallAverage   *float64             `json:"overall_average"`
}

// StudentHistory lists a student's averages across every enrolled year.
type StudentHistory struct {
	StudentID   string        `json:"student_id"`
	StudentName string        `json:"student_name"`
	Years       []HistoryYear `json:"years"`
}

// PivotColumnKind distinguishes sub-period from period columns.
type PivotColumnKind string

const (
	PivotColumnSubPeriod PivotColumnKind = "sub_period"
	PivotColumnPeriod    PivotColumnKind = "period"
)

// PivotColumn is one column of the pivot report.
type PivotColumn struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Kind          PivotColumnKind `json:"kind"`
	Weight        float64         `json:"weight"`
	Supplementary bool            `json:"supplementary,omitempty"`
}

// PivotRow is one student of the pivot report. Cells are keyed by column id;
// a missing key means no grades for that column.
type PivotRow struct {
	StudentID         string                        `json:"student_id"`
	StudentName       string                        `json:"student_name"`
	Cells             map[string]float64            `json:"cells"`
	GeneralAverage    *float64                      `json:"general_average"`
	GeneralEquivalent *string                       `json:"general_equivalent"`
	Supplementary     *grading.SupplementaryOutcome `json:"supplementary,omitempty"`
}

// PivotReport tabulates every sub-period and period average of one subject
// for every student in a class.
type PivotReport struct {
	ClassID        string        `json:"class_id"`
	SubjectID      string        `json:"subject_id"`
	SubjectName    string        `json:"subject_name"`
	AcademicYearID string        `json:"academic_year_id"`
	Columns        []PivotColumn `json:"columns"`
	Rows           []PivotRow    `json:"rows"`
	ClassAverage   *float64      `json:"class_average"`
}

// SupplementaryEvaluation reports a student's make-up exam standing for one subject.
type SupplementaryEvaluation struct {
	StudentID          string                        `json:"student_id"`
	SubjectID          string                        `json:"subject_id"`
	AcademicYearID     string                        `json:"academic_year_id"`
	Qualification      grading.Qualification         `json:"qualification"`
	SupplementaryScore *float64                      `json:"supplementary_score"`
	Outcome            *grading.SupplementaryOutcome `json:"outcome,omitempty"`
}
