package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/pkg/response"
)

type gradeScaleService interface {
	Resolve(ctx context.Context, query dto.ResolveScaleQuery) (*dto.ScaleResolution, error)
}

// GradeScaleHandler resolves averages to scale labels.
type GradeScaleHandler struct {
	scales gradeScaleService
}

// NewGradeScaleHandler constructs handler.
func NewGradeScaleHandler(scales gradeScaleService) *GradeScaleHandler {
	return &GradeScaleHandler{scales: scales}
}

// Resolve godoc
// @Summary Label equivalent to an average
// @Tags Grade Scales
// @Produce json
// @Param classId query string true "Class ID"
// @Param subjectId query string true "Subject ID"
// @Param academicYearId query string true "Academic year"
// @Param average query number true "Average"
// @Success 200 {object} response.Envelope
// @Router /grade-scales/resolve [get]
func (h *GradeScaleHandler) Resolve(c *gin.Context) {
	var query dto.ResolveScaleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c, err)
		return
	}
	res, err := h.scales.Resolve(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
