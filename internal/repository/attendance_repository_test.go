package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/attendance-api/internal/models"
)

func TestInsertIfAbsentInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendances").WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := repo.InsertIfAbsent(context.Background(), &models.Attendance{
		SessionID: "sess-1",
		StudentID: "stud-1",
		Status:    models.AttendanceStatusPresent,
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIfAbsentKeepsExistingRecord(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// ON CONFLICT DO NOTHING reports zero rows when a record already exists.
	mock.ExpectExec("INSERT INTO attendances").WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertIfAbsent(context.Background(), &models.Attendance{
		SessionID: "sess-1",
		StudentID: "stud-1",
		Status:    models.AttendanceStatusPresent,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertRunsInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendances").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendances").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entries := []models.BulkMarkEntry{
		{StudentID: "stud-1", Status: models.AttendanceStatusPresent},
		{StudentID: "stud-2", Status: models.AttendanceStatusAbsent},
	}
	err := repo.BulkUpsert(context.Background(), "sess-1", "user-1", entries)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendances").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	entries := []models.BulkMarkEntry{{StudentID: "stud-1", Status: models.AttendanceStatusPresent}}
	err := repo.BulkUpsert(context.Background(), "sess-1", "user-1", entries)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStudentCourseRecords(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"session_id", "date", "start_time", "end_time", "status", "recorded_at"}).
		AddRow("sess-1", now, "09:00:00", "10:00:00", "present", now).
		AddRow("sess-2", now, "09:00:00", "10:00:00", "absent", nil)
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(a.status, 'absent')")).
		WithArgs("stud-1", "course-1").
		WillReturnRows(rows)

	records, err := repo.ListStudentCourseRecords(context.Background(), "stud-1", "course-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.AttendanceStatusPresent, records[0].Status)
	assert.Equal(t, models.AttendanceStatusAbsent, records[1].Status)
	assert.Nil(t, records[1].RecordedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
