package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrollmentDetailRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "course_id", "enrolled_at", "active", "roll_number", "student_name", "course_code", "course_title"}).
		AddRow("enr-1", "stud-1", "course-1", now, true, "21CS001", "Ada Lovelace", "CS101", "Intro to Computing")
}

func TestListByStudentOnlyActiveEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.student_id = $1 AND e.active = TRUE")).
		WithArgs("stud-1").
		WillReturnRows(enrollmentDetailRows(time.Now()))

	enrollments, err := repo.ListByStudent(context.Background(), "stud-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "CS101", enrollments[0].CourseCode)
	assert.True(t, enrollments[0].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByCourseOnlyActiveEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.course_id = $1 AND e.active = TRUE")).
		WithArgs("course-1").
		WillReturnRows(enrollmentDetailRows(time.Now()))

	roster, err := repo.ListByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "stud-1", roster[0].StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
