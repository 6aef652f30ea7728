package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionPresentCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(12)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendances WHERE session_id = $1 AND status IN ('present', 'late')")).
		WithArgs("sess-1").
		WillReturnRows(rows)

	count, err := repo.SessionPresentCount(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseStudentCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "roll_number", "name", "present_count"}).
		AddRow("stud-1", "CS-001", "Alice Ahmed", 8).
		AddRow("stud-2", "CS-002", "Bob Brown", 0)
	mock.ExpectQuery("FROM enrollments e").
		WithArgs("course-1").
		WillReturnRows(rows)

	stats, err := repo.CourseStudentCounts(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 8, stats[0].PresentCount)
	assert.Equal(t, 0, stats[1].PresentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"department", "total_records", "present_records"}).
		AddRow("CSE", 100, 80).
		AddRow("EEE", 50, 45)
	mock.ExpectQuery("GROUP BY s.department").WillReturnRows(rows)

	rates, err := repo.DepartmentRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "CSE", rates[0].Department)
	assert.Equal(t, 80, rates[0].PresentRecords)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"students", "faculty", "courses", "sessions"}).
		AddRow(120, 15, 24, 310)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	students, faculty, courses, sessions, err := repo.EntityCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, students)
	assert.Equal(t, 15, faculty)
	assert.Equal(t, 24, courses)
	assert.Equal(t, 310, sessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}
