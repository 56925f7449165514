package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/service"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type reportServiceMock struct {
	createResp  *dto.ReportJobResponse
	createErr   error
	statusResp  *dto.ReportStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error
	actor       *models.JWTClaims
	token       string
}

func (m *reportServiceMock) CreateJob(ctx context.Context, req dto.ReportRequest, actor *models.JWTClaims) (*dto.ReportJobResponse, error) {
	m.actor = actor
	return m.createResp, m.createErr
}

func (m *reportServiceMock) GetStatus(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ReportStatusResponse, error) {
	m.actor = actor
	return m.statusResp, m.statusErr
}

func (m *reportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error) {
	m.token = token
	return m.download, m.downloadErr
}

func TestReportHandlerGenerateReport(t *testing.T) {
	mockSvc := &reportServiceMock{
		createResp: &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued, Progress: 0},
	}
	handler := NewReportHandler(mockSvc)

	payload, _ := json.Marshal(dto.ReportRequest{Type: models.ReportTypeReportCard, AcademicYearID: "ay-1", ClassID: "class-a", Format: models.ReportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/reports/generate", payload)
	withClaims(c, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "admin", mockSvc.actor.UserID)
	id, _ := c.Get("audit_resource_id")
	assert.Equal(t, "job-1", id)
}

func TestReportHandlerGenerateReportRequiresClaims(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{})
	c, w := newGinContext(http.MethodPost, "/reports/generate", []byte(`{}`))
	handler.GenerateReport(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerReportStatus(t *testing.T) {
	mockSvc := &reportServiceMock{
		statusResp: &dto.ReportStatusResponse{ID: "job-1", Status: models.ReportStatusFinished, Progress: 100},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/reports/status/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	withClaims(c, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.ReportStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportHandlerReportStatusForbidden(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{statusErr: appErrors.ErrForbidden})
	c, w := newGinContext(http.MethodGet, "/reports/status/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	withClaims(c, &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher})

	handler.ReportStatus(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_card.csv")
	require.NoError(t, os.WriteFile(path, []byte("student,average\nAni,5.45\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &reportServiceMock{download: &service.ReportDownload{
		File:      file,
		Size:      25,
		Filename:  "report_card.csv",
		Format:    models.ReportFormatCSV,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/export/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", mockSvc.token)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_card.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "student,average\nAni,5.45\n", w.Body.String())
}

func TestReportHandlerDownloadInvalidToken(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})
	c, w := newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerDownloadMissingToken(t *testing.T) {
	mockSvc := &reportServiceMock{downloadErr: errors.New("unexpected")}
	handler := NewReportHandler(mockSvc)
	c, w := newGinContext(http.MethodGet, "/export/", nil)
	handler.Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.token)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", contentType(models.ReportFormatPDF))
	assert.Equal(t, "text/csv", contentType(models.ReportFormatCSV))
}
