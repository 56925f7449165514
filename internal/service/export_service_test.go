package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/pkg/storage"
)

var exportClock = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newExportServiceForTest(t *testing.T, source reportSource) *ExportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	svc := NewExportService(source, files, signer, ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour}, nil, nil, nil)
	svc.now = func() time.Time { return exportClock }
	return svc
}

func readExport(t *testing.T, svc *ExportService, relPath string) string {
	t.Helper()
	file, size, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)
	return string(data)
}

func TestExportServiceReportCardCSV(t *testing.T) {
	f := newGradingFixture()
	svc := newExportServiceForTest(t, f.averageService())

	result, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeReportCard,
		Params: models.ReportJobParams{ClassID: "class-a", AcademicYearID: testYear, Format: models.ReportFormatCSV},
	})
	require.NoError(t, err)
	assert.Equal(t, "report_card_class-a_20260314_093000.csv", result.RelativePath)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/job-1."), result.URL)
	assert.Equal(t, result.Token, extractToken(result.URL))

	lines := strings.Split(strings.TrimSpace(readExport(t, svc, result.RelativePath)), "\n")
	assert.Equal(t, []string{
		"Rank,NIS,Student,Mathematics,Science,Overall",
		"1,nis-stu-1,Ani,7.40,3.50,5.45",
		"2,nis-stu-2,Budi,4.00,,4.00",
		"-,nis-stu-3,Citra,,,",
		",,Class average,5.70,3.50,4.72",
	}, lines)
}

func TestExportServiceHistoryCSV(t *testing.T) {
	f := newGradingFixture()
	svc := newExportServiceForTest(t, f.averageService())

	result, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-2",
		Type:   models.ReportTypeHistory,
		Params: models.ReportJobParams{StudentID: "stu-1", Format: models.ReportFormatCSV},
	})
	require.NoError(t, err)
	assert.Equal(t, "history_stu-1_20260314_093000.csv", result.RelativePath)

	content := readExport(t, svc, result.RelativePath)
	assert.Contains(t, content, "Academic Year,Class,Subject,General Average,Equivalent\n")
	assert.Contains(t, content, "Year ay-1,CLASS-A,Mathematics,7.40,C\n")
	assert.Contains(t, content, "Year ay-1,CLASS-A,Overall,5.45,\n")
}

func TestExportServicePivotPDF(t *testing.T) {
	f := newGradingFixture()
	svc := newExportServiceForTest(t, f.averageService())

	result, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypePivot,
		Params: models.ReportJobParams{ClassID: "class-a", SubjectID: "math", AcademicYearID: testYear, Format: models.ReportFormatPDF},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)
	assert.True(t, strings.HasPrefix(readExport(t, svc, result.RelativePath), "%PDF"))

	grant, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-3", grant.JobID)
	assert.Equal(t, result.RelativePath, grant.Path)
}

func TestExportServiceGenerateErrors(t *testing.T) {
	f := newGradingFixture()
	svc := newExportServiceForTest(t, f.averageService())

	_, err := svc.Generate(context.Background(), nil)
	assert.Error(t, err)

	_, err = svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-4",
		Type:   models.ReportTypeReportCard,
		Params: models.ReportJobParams{ClassID: "class-x", AcademicYearID: testYear, Format: models.ReportFormatCSV},
	})
	assert.Error(t, err)

	_, err = svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-5",
		Type:   models.ReportTypeReportCard,
		Params: models.ReportJobParams{ClassID: "class-a", AcademicYearID: testYear, Format: "xlsx"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestPivotDatasetLayout(t *testing.T) {
	dataset := pivotDataset(&models.PivotReport{
		ClassID:        "class-a",
		SubjectName:    "Mathematics",
		AcademicYearID: testYear,
		Columns: []models.PivotColumn{
			{ID: "q1a", Name: "Q1-A", Kind: models.PivotColumnSubPeriod, Weight: 40},
			{ID: "q1", Name: "Q1", Kind: models.PivotColumnPeriod, Weight: 50},
		},
		Rows: []models.PivotRow{
			{StudentName: "Ani", Cells: map[string]float64{"q1a": 8.5, "q1": 8.8}, GeneralAverage: floatRef(4.4), GeneralEquivalent: strRef("D")},
			{StudentName: "Citra", Cells: map[string]float64{}},
		},
		ClassAverage: floatRef(4.4),
	})

	assert.Equal(t, []string{"Student", "Q1-A (40%)", "Q1 (50%)", "General", "Equivalent", "After Supplementary"}, dataset.Headers)
	require.Len(t, dataset.Rows, 3)
	assert.Equal(t, []string{"Ani", "8.50", "8.80", "4.40", "D", ""}, dataset.Rows[0])
	assert.Equal(t, []string{"Citra", "", "", "", "", ""}, dataset.Rows[1])
	assert.Equal(t, []string{"Class average", "", "", "4.40"}, dataset.Rows[2])
	require.NoError(t, dataset.Validate())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "class_a-b-c", sanitizeFilename("class a/b:c"))
	assert.Len(t, sanitizeFilename(strings.Repeat("x", 150)), 100)
}
