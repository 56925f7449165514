package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/service"
	"github.com/noah-isme/sma-grading-api/pkg/response"
)

type supplementaryService interface {
	Evaluate(ctx context.Context, studentID, subjectID, academicYearID string) (*models.SupplementaryEvaluation, error)
	Record(ctx context.Context, req dto.RecordSupplementaryRequest, actor service.Actor) (*models.SupplementaryEvaluation, error)
}

// SupplementaryHandler exposes make-up exam endpoints.
type SupplementaryHandler struct {
	supplementary supplementaryService
}

// NewSupplementaryHandler constructs handler.
func NewSupplementaryHandler(supplementary supplementaryService) *SupplementaryHandler {
	return &SupplementaryHandler{supplementary: supplementary}
}

// Evaluate godoc
// @Summary Supplementary exam standing of a student in a subject
// @Tags Supplementary
// @Produce json
// @Param id path string true "Student ID"
// @Param subjectId path string true "Subject ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/subjects/{subjectId}/supplementary [get]
func (h *SupplementaryHandler) Evaluate(c *gin.Context) {
	yearID, ok := requireQuery(c, "academicYearId")
	if !ok {
		return
	}
	eval, err := h.supplementary.Evaluate(c.Request.Context(), c.Param("id"), c.Param("subjectId"), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eval, nil)
}

// Record godoc
// @Summary Record a supplementary exam score
// @Description Rejected with NOT_QUALIFIED, carrying general_average and sum_of_minimums, when the student does not qualify.
// @Tags Supplementary
// @Accept json
// @Produce json
// @Param payload body dto.RecordSupplementaryRequest true "Supplementary score"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /supplementary [post]
func (h *SupplementaryHandler) Record(c *gin.Context) {
	var req dto.RecordSupplementaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	eval, err := h.supplementary.Record(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, eval)
}
