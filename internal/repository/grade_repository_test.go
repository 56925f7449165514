package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-grading-api/internal/models"
)

var gradeRowColumns = []string{"id", "student_id", "subject_id", "academic_year_id", "sub_period_id", "task_id", "partial", "value", "recorded_by", "recorded_at", "updated_at", "task_sub_period_id"}

func TestGradeRepositoryListReturnsBothLinkages(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(gradeRowColumns).
		AddRow("g-1", "stu-1", "math", "ay-1", "sp-1", nil, nil, "8.50", "teacher-1", now, now, nil).
		AddRow("g-2", "stu-1", "math", "ay-1", nil, "task-1", nil, "9.00", "teacher-1", now, now, "sp-2").
		AddRow("g-3", "stu-1", "math", "ay-1", nil, nil, "P1", "6.00", "import", now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta(gradeSelect + " WHERE 1=1 AND g.student_id = ANY($1) AND g.subject_id = $2 AND g.academic_year_id = $3 ORDER BY g.recorded_at, g.id")).
		WithArgs(pq.Array([]string{"stu-1"}), "math", "ay-1").
		WillReturnRows(rows)

	grades, err := repo.List(context.Background(), models.GradeFilter{StudentIDs: []string{"stu-1"}, SubjectID: "math", AcademicYearID: "ay-1"})
	require.NoError(t, err)
	require.Len(t, grades, 3)
	assert.Equal(t, "sp-1", *grades[0].SubPeriodID)
	assert.Equal(t, 8.5, grades[0].Value)
	assert.Nil(t, grades[1].SubPeriodID)
	assert.Equal(t, "sp-2", *grades[1].TaskSubPeriodID)
	assert.Equal(t, "P1", *grades[2].Partial)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListPaged(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND g.subject_id = $1 ORDER BY g.recorded_at, g.id LIMIT $2 OFFSET $3")).
		WithArgs("math", 20, 20).
		WillReturnRows(sqlmock.NewRows(gradeRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grades g WHERE 1=1 AND g.subject_id = $1")).
		WithArgs("math").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	filter := models.GradeFilter{SubjectID: "math", Page: 2, PageSize: 20}
	grades, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, grades)
	total, err := repo.Count(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "math", "ay-1", "sp-1", nil, nil, 7.5, "teacher-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	grade := &models.Grade{StudentID: "stu-1", SubjectID: "math", AcademicYearID: "ay-1", SubPeriodID: strPtr("sp-1"), Value: 7.5, RecordedBy: "teacher-1"}
	require.NoError(t, repo.Create(context.Background(), grade))
	assert.NotEmpty(t, grade.ID)
	assert.False(t, grade.RecordedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdateValue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grades SET value = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(9.25, sqlmock.AnyArg(), "g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grades SET value = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(9.25, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateValue(context.Background(), "g-1", 9.25))
	err := repo.UpdateValue(context.Background(), "missing", 9.25)
	require.ErrorIs(t, err, ErrNoRowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}
