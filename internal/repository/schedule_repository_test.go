package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scheduleTestContext() context.Context {
	return tenancy.WithTenant(context.Background(), "tenant-1")
}

func TestScheduleRepositoryListSameDayExcludesRow(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "offering_id", "day_of_week", "start_time", "end_time", "grace_minutes", "archived", "created_at", "updated_at"}).
		AddRow("sched-2", "tenant-1", "off-1", 1, "09:00", "10:00", 15, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules WHERE tenant_id = $1 AND offering_id = $2 AND day_of_week = $3 AND archived = FALSE AND id <> $4")).
		WithArgs("tenant-1", "off-1", 1, "sched-1").
		WillReturnRows(rows)

	schedules, err := repo.ListSameDay(scheduleTestContext(), "off-1", 1, "sched-1")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	require.Equal(t, "sched-2", schedules[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListByOfferingAndDaySkipsArchived(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "offering_id", "day_of_week", "start_time", "end_time", "grace_minutes", "archived", "created_at", "updated_at"}).
		AddRow("sched-1", "tenant-1", "off-1", 1, "09:00", "10:00", 15, false, now, now).
		AddRow("sched-2", "tenant-1", "off-1", 1, "11:00", "12:00", 15, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("AND day_of_week = $3 AND archived = FALSE ORDER BY start_time ASC")).
		WithArgs("tenant-1", "off-1", 1).
		WillReturnRows(rows)

	schedules, err := repo.ListByOfferingAndDay(scheduleTestContext(), "off-1", 1)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	require.Equal(t, "09:00", schedules[0].StartTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryArchive(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_schedules SET archived = TRUE")).
		WithArgs("sched-1", "tenant-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Archive(scheduleTestContext(), "sched-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUnresolvedTenant(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	_, err := repo.FindByID(context.Background(), "sched-1")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrTenantNotResolved))
	require.NoError(t, mock.ExpectationsWereMet())
}
