package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	periodColumns    = []string{"id", "academic_year_id", "name", "weight", "min_passing_score", "is_supplementary", "display_order", "created_at"}
	subPeriodColumns = []string{"id", "period_id", "name", "weight", "display_order", "legacy_label", "created_at"}
)

func TestPeriodRepositoryListByAcademicYearAttachesSubPeriods(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM periods WHERE academic_year_id = $1 ORDER BY display_order, id")).
		WithArgs("ay-1").
		WillReturnRows(sqlmock.NewRows(periodColumns).
			AddRow("q1", "ay-1", "First Quarter", 50.0, 7.0, false, 1, now).
			AddRow("q2", "ay-1", "Second Quarter", 50.0, 7.0, false, 2, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sub_periods sp JOIN periods p ON p.id = sp.period_id WHERE p.academic_year_id = $1")).
		WithArgs("ay-1").
		WillReturnRows(sqlmock.NewRows(subPeriodColumns).
			AddRow("q1a", "q1", "First Partial", 40.0, 1, "P1", now).
			AddRow("q2a", "q2", "Exam", 100.0, 1, nil, now).
			AddRow("q1b", "q1", "Second Partial", 60.0, 2, nil, now))

	periods, err := repo.ListByAcademicYear(context.Background(), "ay-1")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	require.Len(t, periods[0].SubPeriods, 2)
	assert.Equal(t, "q1b", periods[0].SubPeriods[1].ID)
	assert.Equal(t, "P1", *periods[0].SubPeriods[0].LegacyLabel)
	require.Len(t, periods[1].SubPeriods, 1)
	assert.Nil(t, periods[1].SubPeriods[0].LegacyLabel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryListByAcademicYearWithoutPeriods(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM periods WHERE academic_year_id = $1")).
		WithArgs("ay-empty").
		WillReturnRows(sqlmock.NewRows(periodColumns))

	periods, err := repo.ListByAcademicYear(context.Background(), "ay-empty")
	require.NoError(t, err)
	assert.Empty(t, periods)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindSupplementary(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM periods WHERE academic_year_id = $1 AND is_supplementary = TRUE LIMIT 1")).
		WithArgs("ay-1").
		WillReturnRows(sqlmock.NewRows(periodColumns).AddRow("sup", "ay-1", "Supplementary", 0.0, 0.0, true, 3, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sub_periods WHERE period_id = $1 ORDER BY display_order, id")).
		WithArgs("sup").
		WillReturnRows(sqlmock.NewRows(subPeriodColumns).AddRow("supa", "sup", "Make-up", 100.0, 1, nil, now))

	period, err := repo.FindSupplementary(context.Background(), "ay-1")
	require.NoError(t, err)
	assert.True(t, period.IsSupplementary)
	require.Len(t, period.SubPeriods, 1)
	assert.Equal(t, "supa", period.SubPeriods[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindSupplementaryMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND is_supplementary = TRUE")).
		WithArgs("ay-1").
		WillReturnRows(sqlmock.NewRows(periodColumns))

	_, err := repo.FindSupplementary(context.Background(), "ay-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindTask(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, sub_period_id, subject_id, title, created_at FROM tasks WHERE id = $1")).
		WithArgs("task-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sub_period_id", "subject_id", "title", "created_at"}).
			AddRow("task-1", "q1a", "math", "Homework 1", now))

	task, err := repo.FindTask(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, "q1a", task.SubPeriodID)
	require.NoError(t, mock.ExpectationsWereMet())
}
