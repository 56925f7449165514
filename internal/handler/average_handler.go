package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-grading-api/internal/middleware"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/pkg/response"
)

type averageService interface {
	StudentAverages(ctx context.Context, studentID, academicYearID string) (*models.StudentAverages, error)
	StudentHistory(ctx context.Context, studentID string) (*models.StudentHistory, error)
	ClassReportCard(ctx context.Context, classID, academicYearID string) (*models.ClassReportCard, bool, error)
	PivotReport(ctx context.Context, classID, subjectID, academicYearID string) (*models.PivotReport, bool, error)
}

// AverageHandler serves computed averages.
type AverageHandler struct {
	averages averageService
}

// NewAverageHandler constructs handler.
func NewAverageHandler(averages averageService) *AverageHandler {
	return &AverageHandler{averages: averages}
}

// StudentAverages godoc
// @Summary Averages of a student for an academic year
// @Tags Averages
// @Produce json
// @Param id path string true "Student ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/averages [get]
func (h *AverageHandler) StudentAverages(c *gin.Context) {
	yearID, ok := requireQuery(c, "academicYearId")
	if !ok {
		return
	}
	res, err := h.averages.StudentAverages(c.Request.Context(), c.Param("id"), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// StudentHistory godoc
// @Summary Averages of a student across academic years
// @Tags Averages
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/history [get]
func (h *AverageHandler) StudentHistory(c *gin.Context) {
	res, err := h.averages.StudentHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ClassReportCard godoc
// @Summary Class report card
// @Tags Averages
// @Produce json
// @Param id path string true "Class ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/report-card [get]
func (h *AverageHandler) ClassReportCard(c *gin.Context) {
	yearID, ok := requireQuery(c, "academicYearId")
	if !ok {
		return
	}
	card, hit, err := h.averages.ClassReportCard(c.Request.Context(), c.Param("id"), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, card, nil, middleware.ExtractMeta(c))
}

// PivotReport godoc
// @Summary Pivot table of one subject for a class
// @Tags Averages
// @Produce json
// @Param id path string true "Class ID"
// @Param subjectId path string true "Subject ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/subjects/{subjectId}/pivot [get]
func (h *AverageHandler) PivotReport(c *gin.Context) {
	yearID, ok := requireQuery(c, "academicYearId")
	if !ok {
		return
	}
	report, hit, err := h.averages.PivotReport(c.Request.Context(), c.Param("id"), c.Param("subjectId"), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}
