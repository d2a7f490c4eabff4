package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

func newOfferingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func offeringTestContext() context.Context {
	return tenancy.WithTenant(context.Background(), "tenant-1")
}

func TestOfferingRepositoryCreateWithTxDuplicateRace(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_offerings")).
		WillReturnError(&pq.Error{Code: "23505"})

	ctx := offeringTestContext()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	offering := &models.CourseOffering{TeacherID: "teacher-1", SubjectID: "sub-1", CohortID: "c1", SectionID: "sec1"}
	err = repo.CreateWithTx(ctx, tx, offering)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrDuplicateEntry))
	require.NoError(t, mock.ExpectationsWereMet())
}
