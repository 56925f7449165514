package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/dto"
	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type academicYearServiceMock struct{}

func (academicYearServiceMock) List(ctx context.Context) ([]models.AcademicYear, error) {
	return []models.AcademicYear{{ID: "ay-1", Name: "2025/2026"}}, nil
}

func (academicYearServiceMock) Get(ctx context.Context, id string) (*dto.AcademicYearDetail, error) {
	if id != "ay-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}
	return &dto.AcademicYearDetail{
		AcademicYear: models.AcademicYear{ID: id, Name: "2025/2026"},
		Periods:      []models.Period{{ID: "q1", Name: "Q1", Weight: 50}},
	}, nil
}

func TestAcademicYearHandlerList(t *testing.T) {
	h := NewAcademicYearHandler(academicYearServiceMock{})
	c, w := newGinContext(http.MethodGet, "/academic-years", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"name":"2025/2026"`)
}

func TestAcademicYearHandlerGet(t *testing.T) {
	h := NewAcademicYearHandler(academicYearServiceMock{})

	c, w := newGinContext(http.MethodGet, "/academic-years/ay-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "ay-1"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"periods":[{"id":"q1"`)

	c, w = newGinContext(http.MethodGet, "/academic-years/ay-9", nil)
	c.Params = gin.Params{{Key: "id", Value: "ay-9"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
