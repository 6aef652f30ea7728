package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/attendance-api/internal/models"
)

func sessionRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "course_id", "faculty_id", "date", "start_time", "end_time", "session_code", "active", "location", "notes", "created_at", "updated_at"}).
		AddRow("sess-1", "course-1", "fac-1", now, "09:00:00", "10:00:00", "aB3dE5fG7hJ9kL1m", true, nil, nil, now, now)
}

func TestFindByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_sessions WHERE session_code = $1 LIMIT 1")).
		WithArgs("aB3dE5fG7hJ9kL1m").
		WillReturnRows(sessionRows(now))

	session, err := repo.FindByCode(context.Background(), "aB3dE5fG7hJ9kL1m")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.True(t, session.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByCodeNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_sessions WHERE session_code = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSessionReturnsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "attendance_sessions_session_code_key"})

	err := repo.Create(context.Background(), &models.AttendanceSession{
		CourseID:    "course-1",
		FacultyID:   "fac-1",
		Date:        time.Now(),
		StartTime:   "09:00",
		EndTime:     "10:00",
		SessionCode: "duplicate-code-16",
		Active:      true,
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_sessions SET active = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("sess-1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetActive(context.Background(), "sess-1", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain error")))
	assert.False(t, IsUniqueViolation(nil))
}
