package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/models"
	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

type yearStub map[string]*models.AcademicYear

func (y yearStub) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, ok := y[id]
	if !ok {
		return nil, fmt.Errorf("find academic year: %w", sql.ErrNoRows)
	}
	return year, nil
}

func (y yearStub) List(ctx context.Context) ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	for _, year := range y {
		years = append(years, *year)
	}
	return years, nil
}

func TestAcademicYearServiceGet(t *testing.T) {
	svc := NewAcademicYearService(yearStub{testYear: {ID: testYear, Name: "2025/2026"}}, newPeriodStub())

	detail, err := svc.Get(context.Background(), testYear)
	require.NoError(t, err)
	assert.Equal(t, "2025/2026", detail.Name)
	require.Len(t, detail.Periods, 3)
	assert.Len(t, detail.Periods[0].SubPeriods, 2)

	_, err = svc.Get(context.Background(), "ay-9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAcademicYearServiceListEmpty(t *testing.T) {
	svc := NewAcademicYearService(yearStub{}, newPeriodStub())
	years, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, years)
	assert.Empty(t, years)
}

func TestAcademicYearServiceGetPeriodsFailure(t *testing.T) {
	periods := newPeriodStub()
	periods.err = errors.New("db down")
	svc := NewAcademicYearService(yearStub{testYear: {ID: testYear}}, periods)

	_, err := svc.Get(context.Background(), testYear)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
