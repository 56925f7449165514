package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/pkg/export"
	"github.com/noah-isme/sma-grading-api/pkg/storage"
)

type reportSource interface {
	ClassReportCard(ctx context.Context, classID, academicYearID string) (*models.ClassReportCard, bool, error)
	PivotReport(ctx context.Context, classID, subjectID, academicYearID string) (*models.PivotReport, bool, error)
	StudentHistory(ctx context.Context, studentID string) (*models.StudentHistory, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, int64, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders computed grade reports to files and signs download links.
type ExportService struct {
	reports reportSource
	storage fileStorage
	csv     datasetRenderer
	pdf     datasetRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(reports reportSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		reports: reports,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate builds the dataset of a job, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("report rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Grant, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file and its size.
func (s *ExportService) Open(relPath string) (*os.File, int64, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	scope := job.Params.ClassID
	if job.Type == models.ReportTypeHistory {
		scope = job.Params.StudentID
	}
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), sanitizeFilename(scope), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	p := job.Params
	switch job.Type {
	case models.ReportTypeReportCard:
		card, _, err := s.reports.ClassReportCard(ctx, p.ClassID, p.AcademicYearID)
		if err != nil {
			return export.Dataset{}, err
		}
		return reportCardDataset(card), nil
	case models.ReportTypePivot:
		pivot, _, err := s.reports.PivotReport(ctx, p.ClassID, p.SubjectID, p.AcademicYearID)
		if err != nil {
			return export.Dataset{}, err
		}
		return pivotDataset(pivot), nil
	case models.ReportTypeHistory:
		history, err := s.reports.StudentHistory(ctx, p.StudentID)
		if err != nil {
			return export.Dataset{}, err
		}
		return historyDataset(history), nil
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func formatAverage(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatLabel(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func reportCardDataset(card *models.ClassReportCard) export.Dataset {
	headers := []string{"Rank", "NIS", "Student"}
	for _, subject := range card.Subjects {
		headers = append(headers, subject.SubjectName)
	}
	headers = append(headers, "Overall")

	rows := make([][]string, 0, len(card.Students)+1)
	for _, student := range card.Students {
		rank := "-"
		if student.Rank != nil {
			rank = fmt.Sprintf("%d", *student.Rank)
		}
		row := []string{rank, student.StudentNIS, student.StudentName}
		for _, subject := range student.Subjects {
			row = append(row, formatAverage(subject.GeneralAverage))
		}
		rows = append(rows, append(row, formatAverage(student.OverallAverage)))
	}
	footer := []string{"", "", "Class average"}
	for _, subject := range card.Subjects {
		footer = append(footer, formatAverage(subject.ClassAverage))
	}
	rows = append(rows, append(footer, formatAverage(card.ClassAverage)))

	return export.Dataset{
		Title:    fmt.Sprintf("Report Card %s", card.ClassName),
		Subtitle: []string{fmt.Sprintf("Academic year: %s", card.AcademicYearID)},
		Headers:  headers,
		Rows:     rows,
	}
}

func pivotDataset(pivot *models.PivotReport) export.Dataset {
	headers := []string{"Student"}
	for _, col := range pivot.Columns {
		headers = append(headers, fmt.Sprintf("%s (%g%%)", col.Name, col.Weight))
	}
	headers = append(headers, "General", "Equivalent", "After Supplementary")

	rows := make([][]string, 0, len(pivot.Rows)+1)
	for _, r := range pivot.Rows {
		row := []string{r.StudentName}
		for _, col := range pivot.Columns {
			cell := ""
			if v, ok := r.Cells[col.ID]; ok {
				cell = fmt.Sprintf("%.2f", v)
			}
			row = append(row, cell)
		}
		after := ""
		if r.Supplementary != nil {
			after = formatAverage(r.Supplementary.GeneralAverage)
		}
		rows = append(rows, append(row, formatAverage(r.GeneralAverage), formatLabel(r.GeneralEquivalent), after))
	}
	footer := make([]string, len(pivot.Columns)+1)
	footer[0] = "Class average"
	rows = append(rows, append(footer, formatAverage(pivot.ClassAverage)))

	return export.Dataset{
		Title:    fmt.Sprintf("%s Pivot", pivot.SubjectName),
		Subtitle: []string{fmt.Sprintf("Class: %s", pivot.ClassID), fmt.Sprintf("Academic year: %s", pivot.AcademicYearID)},
		Headers:  headers,
		Rows:     rows,
	}
}

func historyDataset(history *models.StudentHistory) export.Dataset {
	var rows [][]string
	for _, year := range history.Years {
		for _, subject := range year.Subjects {
			rows = append(rows, []string{
				year.AcademicYearName,
				year.ClassName,
				subject.SubjectName,
				formatAverage(subject.GeneralAverage),
				formatLabel(subject.GeneralEquivalent),
			})
		}
		rows = append(rows, []string{year.AcademicYearName, year.ClassName, "Overall", formatAverage(year.OverallAverage), ""})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Academic History %s", history.StudentName),
		Headers: []string{"Academic Year", "Class", "Subject", "General Average", "Equivalent"},
		Rows:    rows,
	}
}
