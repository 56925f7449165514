package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/middleware"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/service"
	"github.com/noah-isme/sma-grading-api/pkg/response"
)

type gradeService interface {
	List(ctx context.Context, query dto.GradeListQuery) ([]models.GradeRow, *models.Pagination, error)
	Record(ctx context.Context, req dto.RecordGradeRequest, actor service.Actor) (*models.Grade, error)
	Correct(ctx context.Context, id string, req dto.CorrectGradeRequest, actor service.Actor) (*models.Grade, error)
}

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List recorded grades
// @Tags Grades
// @Produce json
// @Param academicYearId query string true "Academic year"
// @Param studentId query string false "Filter by student"
// @Param subjectId query string false "Filter by subject"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	var query dto.GradeListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c, err)
		return
	}
	grades, pagination, err := h.grades.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, pagination)
}

// Record godoc
// @Summary Record a score
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.RecordGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	var req dto.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	grade, err := h.grades.Record(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResourceID(c, grade.ID)
	response.Created(c, grade)
}

// Correct godoc
// @Summary Correct a recorded score
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body dto.CorrectGradeRequest true "Correction"
// @Success 200 {object} response.Envelope
// @Router /grades/{id} [put]
func (h *GradeHandler) Correct(c *gin.Context) {
	var req dto.CorrectGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	grade, err := h.grades.Correct(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}
