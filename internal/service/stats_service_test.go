package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/attendance-api/internal/models"
)

type mockStatsRepo struct {
	sessionPresent  map[string]int
	courseStudents  map[string][]models.StudentCourseStat
	courseSessions  map[string]int
	studentPresent  map[string]int
	studentSessions map[string]int
	departments     []models.DepartmentRate
}

func (m *mockStatsRepo) SessionPresentCount(ctx context.Context, sessionID string) (int, error) {
	return m.sessionPresent[sessionID], nil
}

func (m *mockStatsRepo) CourseStudentCounts(ctx context.Context, courseID string) ([]models.StudentCourseStat, error) {
	return m.courseStudents[courseID], nil
}

func (m *mockStatsRepo) CourseSessionCount(ctx context.Context, courseID string) (int, error) {
	return m.courseSessions[courseID], nil
}

func (m *mockStatsRepo) StudentPresentCount(ctx context.Context, studentID, courseID string) (int, error) {
	return m.studentPresent[studentID+"|"+courseID], nil
}

func (m *mockStatsRepo) StudentSessionCount(ctx context.Context, studentID, courseID string) (int, error) {
	return m.studentSessions[studentID+"|"+courseID], nil
}

func (m *mockStatsRepo) DepartmentRates(ctx context.Context) ([]models.DepartmentRate, error) {
	return m.departments, nil
}

func (m *mockStatsRepo) EntityCounts(ctx context.Context) (int, int, int, int, error) {
	return 10, 2, 3, 4, nil
}

type mockStatsSessionRepo struct {
	sessions map[string]models.AttendanceSession
	recent   []models.SessionDetail
}

func (m *mockStatsSessionRepo) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStatsSessionRepo) Recent(ctx context.Context, limit int) ([]models.SessionDetail, error) {
	return m.recent, nil
}

type mockRosterCounter struct {
	counts map[string]int
}

func (m *mockRosterCounter) CountActiveByCourse(ctx context.Context, courseID string) (int, error) {
	return m.counts[courseID], nil
}

// Two sessions, two students. Student one attends both, student two
// attends neither. Percentages are 100 and 0; the course average is
// their mean, 50, not the pooled rate.
func TestCourseStatsMeanOfPerStudentPercentages(t *testing.T) {
	stats := &mockStatsRepo{
		courseSessions: map[string]int{"course-1": 2},
		courseStudents: map[string][]models.StudentCourseStat{
			"course-1": {
				{StudentID: "stud-1", RollNumber: "R1", Name: "Alice A", PresentCount: 2},
				{StudentID: "stud-2", RollNumber: "R2", Name: "Bob B", PresentCount: 0},
			},
		},
	}
	svc := NewStatsService(stats, &mockStatsSessionRepo{}, &mockRosterCounter{}, nil, 0, nil)

	result, err := svc.CourseStats(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalSessions)
	assert.Equal(t, 2, result.TotalStudents)
	require.Len(t, result.PerStudent, 2)
	assert.Equal(t, 100.0, result.PerStudent[0].AttendancePercentage)
	assert.Equal(t, 0.0, result.PerStudent[1].AttendancePercentage)
	assert.Equal(t, 0, result.PerStudent[0].AbsentCount)
	assert.Equal(t, 2, result.PerStudent[1].AbsentCount)
	assert.Equal(t, 50.0, result.AverageAttendancePercentage)
}

func TestCourseStatsNoSessionsYieldsZero(t *testing.T) {
	stats := &mockStatsRepo{
		courseSessions: map[string]int{"course-1": 0},
		courseStudents: map[string][]models.StudentCourseStat{
			"course-1": {{StudentID: "stud-1", RollNumber: "R1", Name: "Alice A"}},
		},
	}
	svc := NewStatsService(stats, &mockStatsSessionRepo{}, &mockRosterCounter{}, nil, 0, nil)

	result, err := svc.CourseStats(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.PerStudent[0].AttendancePercentage)
	assert.Equal(t, 0.0, result.AverageAttendancePercentage)
}

func TestSessionCountsPresentPlusAbsentEqualsTotal(t *testing.T) {
	stats := &mockStatsRepo{sessionPresent: map[string]int{"sess-1": 7}}
	sessions := &mockStatsSessionRepo{sessions: map[string]models.AttendanceSession{
		"sess-1": {ID: "sess-1", CourseID: "course-1"},
	}}
	roster := &mockRosterCounter{counts: map[string]int{"course-1": 10}}
	svc := NewStatsService(stats, sessions, roster, nil, 0, nil)

	counts, err := svc.SessionCounts(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 7, counts.Present)
	assert.Equal(t, 3, counts.Absent)
	assert.Equal(t, 10, counts.Total)
	assert.Equal(t, counts.Total, counts.Present+counts.Absent)
}

func TestStudentPercentageZeroDenominator(t *testing.T) {
	stats := &mockStatsRepo{
		studentSessions: map[string]int{},
		studentPresent:  map[string]int{},
	}
	svc := NewStatsService(stats, &mockStatsSessionRepo{}, &mockRosterCounter{}, nil, 0, nil)

	result, err := svc.StudentPercentage(context.Background(), "stud-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Percentage)
}

func TestStudentPercentageScopedToCourse(t *testing.T) {
	stats := &mockStatsRepo{
		studentSessions: map[string]int{"stud-1|course-1": 4},
		studentPresent:  map[string]int{"stud-1|course-1": 3},
	}
	svc := NewStatsService(stats, &mockStatsSessionRepo{}, &mockRosterCounter{}, nil, 0, nil)

	result, err := svc.StudentPercentage(context.Background(), "stud-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 75.0, result.Percentage)
}

func TestDepartmentRates(t *testing.T) {
	stats := &mockStatsRepo{departments: []models.DepartmentRate{
		{Department: "CSE", TotalRecords: 100, PresentRecords: 80},
		{Department: "EEE", TotalRecords: 0, PresentRecords: 0},
	}}
	svc := NewStatsService(stats, &mockStatsSessionRepo{}, &mockRosterCounter{}, nil, 0, nil)

	rates, err := svc.DepartmentRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, 80.0, rates[0].Rate)
	assert.Equal(t, 0.0, rates[1].Rate)
}

func TestOverview(t *testing.T) {
	sessions := &mockStatsSessionRepo{recent: []models.SessionDetail{{CourseCode: "CS101"}}}
	svc := NewStatsService(&mockStatsRepo{}, sessions, &mockRosterCounter{}, nil, 0, nil)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, overview.TotalStudents)
	assert.Equal(t, 2, overview.TotalFaculty)
	require.Len(t, overview.RecentSessions, 1)
}
