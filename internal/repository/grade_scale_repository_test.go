package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scaleEntryColumns = []string{"id", "grade_scale_id", "threshold", "label"}

func TestGradeScaleRepositoryFindByClassSubject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeScaleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE cs.class_id = $1 AND cs.subject_id = $2 AND cs.academic_year_id = $3")).
		WithArgs("class-1", "math", "ay-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("letters", "Letters"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_scale_entries WHERE grade_scale_id = ANY($1)")).
		WithArgs(pq.Array([]string{"letters"})).
		WillReturnRows(sqlmock.NewRows(scaleEntryColumns).
			AddRow("e1", "letters", 0.0, "F").
			AddRow("e2", "letters", 7.0, "B").
			AddRow("e3", "letters", 10.0, "A"))

	scale, err := repo.FindByClassSubject(context.Background(), "class-1", "math", "ay-1")
	require.NoError(t, err)
	require.NotNil(t, scale)
	assert.Equal(t, "Letters", scale.Name)
	require.Len(t, scale.Entries, 3)
	assert.Equal(t, "A", scale.Entries[2].Label)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeScaleRepositoryFindByClassSubjectUnconfigured(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeScaleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_scales gs")).
		WithArgs("class-1", "art", "ay-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	scale, err := repo.FindByClassSubject(context.Background(), "class-1", "art", "ay-1")
	require.NoError(t, err)
	assert.Nil(t, scale)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeScaleRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeScaleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE cs.class_id = $1 AND cs.academic_year_id = $2")).
		WithArgs("class-1", "ay-1").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "id", "name"}).
			AddRow("math", "letters", "Letters").
			AddRow("science", "letters", "Letters"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_scale_entries")).
		WithArgs(pq.Array([]string{"letters", "letters"})).
		WillReturnRows(sqlmock.NewRows(scaleEntryColumns).AddRow("e1", "letters", 5.0, "C"))

	scales, err := repo.ListByClass(context.Background(), "class-1", "ay-1")
	require.NoError(t, err)
	require.Len(t, scales, 2)
	assert.Len(t, scales["science"].Entries, 1)
	assert.NotContains(t, scales, "art")
	require.NoError(t, mock.ExpectationsWereMet())
}
