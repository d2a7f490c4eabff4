package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceTestContext() context.Context {
	return tenancy.WithTenant(context.Background(), "tenant-1")
}

func TestAttendanceRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	records := []models.AttendanceRecord{
		{EnrollmentID: "enr-1", OfferingID: "off-1", ScheduleID: "sched-1", Date: date, Status: models.AttendanceStatusPresent, MarkedBy: "teacher-1"},
		{EnrollmentID: "enr-2", OfferingID: "off-1", ScheduleID: "sched-1", Date: date, Status: models.AttendanceStatusAbsent, MarkedBy: "teacher-1"},
	}
	err := repo.CreateBatch(attendanceTestContext(), records)
	require.NoError(t, err)
	require.NotEmpty(t, records[0].ID)
	require.Equal(t, "tenant-1", records[0].TenantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreateBatchDuplicateRollsBack(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	records := []models.AttendanceRecord{
		{EnrollmentID: "enr-1", OfferingID: "off-1", ScheduleID: "sched-1", Date: time.Now(), Status: models.AttendanceStatusPresent, MarkedBy: "teacher-1"},
	}
	err := repo.CreateBatch(attendanceTestContext(), records)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrAlreadyMarked))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreateBatchRequiresTenant(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	err := repo.CreateBatch(context.Background(), []models.AttendanceRecord{
		{EnrollmentID: "enr-1"},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryExistsForSession(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM attendance_records WHERE tenant_id = $1 AND schedule_id = $2 AND date = $3")).
		WithArgs("tenant-1", "sched-1", date).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForSession(attendanceTestContext(), "sched-1", date)
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM attendance_records WHERE tenant_id = $1 AND schedule_id = $2 AND date = $3")).
		WithArgs("tenant-1", "sched-2", date).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsForSession(attendanceTestContext(), "sched-2", date)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStudentCounts(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"present", "absent", "leave", "total"}).AddRow(8, 1, 1, 10)
	mock.ExpectQuery("SELECT").
		WithArgs("tenant-1", "stu-1", "off-1").
		WillReturnRows(rows)

	counts, err := repo.StudentCounts(attendanceTestContext(), "stu-1", "off-1")
	require.NoError(t, err)
	require.Equal(t, 8, counts.Present)
	require.Equal(t, 1, counts.Absent)
	require.Equal(t, 1, counts.Leave)
	require.Equal(t, 10, counts.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}
