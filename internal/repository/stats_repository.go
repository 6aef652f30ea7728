package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edutrack/attendance-api/internal/models"
)

// StatsRepository runs the aggregate queries behind the statistics
// endpoints. Percentage math lives in the service layer; this layer
// only returns raw counts.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new instance of StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// SessionPresentCount counts recorded attendances with a present or
// late status for one session.
func (r *StatsRepository) SessionPresentCount(ctx context.Context, sessionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendances WHERE session_id = $1 AND status IN ('present', 'late')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sessionID); err != nil {
		return 0, fmt.Errorf("count session present: %w", err)
	}
	return count, nil
}

// studentCourseCount is one row of the per-student aggregate.
type studentCourseCount struct {
	StudentID    string `db:"student_id"`
	RollNumber   string `db:"roll_number"`
	Name         string `db:"name"`
	PresentCount int    `db:"present_count"`
}

// CourseStudentCounts returns present counts per enrolled student for
// all sessions of a course. Students with no records still appear.
func (r *StatsRepository) CourseStudentCounts(ctx context.Context, courseID string) ([]models.StudentCourseStat, error) {
	const query = `SELECT s.id AS student_id, s.roll_number, u.first_name || ' ' || u.last_name AS name,
		COUNT(a.id) FILTER (WHERE a.status IN ('present', 'late')) AS present_count
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		JOIN users u ON u.id = s.user_id
		LEFT JOIN attendances a ON a.student_id = s.id
			AND a.session_id IN (SELECT id FROM attendance_sessions WHERE course_id = $1)
		WHERE e.course_id = $1 AND e.active = TRUE
		GROUP BY s.id, s.roll_number, u.first_name, u.last_name
		ORDER BY s.roll_number ASC`

	var rows []studentCourseCount
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("course student counts: %w", err)
	}

	stats := make([]models.StudentCourseStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.StudentCourseStat{
			StudentID:    row.StudentID,
			RollNumber:   row.RollNumber,
			Name:         row.Name,
			PresentCount: row.PresentCount,
		})
	}
	return stats, nil
}

// CourseSessionCount returns the number of sessions held for a course.
func (r *StatsRepository) CourseSessionCount(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_sessions WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count course sessions: %w", err)
	}
	return count, nil
}

// StudentPresentCount counts a student's present or late records,
// optionally scoped to one course.
func (r *StatsRepository) StudentPresentCount(ctx context.Context, studentID, courseID string) (int, error) {
	if courseID != "" {
		const query = `SELECT COUNT(*) FROM attendances a JOIN attendance_sessions ss ON ss.id = a.session_id WHERE a.student_id = $1 AND ss.course_id = $2 AND a.status IN ('present', 'late')`
		var count int
		if err := r.db.GetContext(ctx, &count, query, studentID, courseID); err != nil {
			return 0, fmt.Errorf("count student present: %w", err)
		}
		return count, nil
	}
	const query = `SELECT COUNT(*) FROM attendances WHERE student_id = $1 AND status IN ('present', 'late')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count student present: %w", err)
	}
	return count, nil
}

// StudentSessionCount counts the sessions a student is accountable for,
// optionally scoped to one course. Only sessions of courses with an
// active enrollment count toward the denominator.
func (r *StatsRepository) StudentSessionCount(ctx context.Context, studentID, courseID string) (int, error) {
	if courseID != "" {
		const query = `SELECT COUNT(*) FROM attendance_sessions WHERE course_id = $1`
		var count int
		if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
			return 0, fmt.Errorf("count student sessions: %w", err)
		}
		return count, nil
	}
	const query = `SELECT COUNT(*) FROM attendance_sessions ss JOIN enrollments e ON e.course_id = ss.course_id WHERE e.student_id = $1 AND e.active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count student sessions: %w", err)
	}
	return count, nil
}

// DepartmentRates groups raw attendance rows by student department.
func (r *StatsRepository) DepartmentRates(ctx context.Context) ([]models.DepartmentRate, error) {
	const query = `SELECT s.department,
		COUNT(a.id) AS total_records,
		COUNT(a.id) FILTER (WHERE a.status IN ('present', 'late')) AS present_records
		FROM attendances a
		JOIN students s ON s.id = a.student_id
		GROUP BY s.department
		ORDER BY s.department ASC`

	var rates []models.DepartmentRate
	if err := r.db.SelectContext(ctx, &rates, query); err != nil {
		return nil, fmt.Errorf("department rates: %w", err)
	}
	return rates, nil
}

// EntityCounts returns the dashboard totals in one round trip.
func (r *StatsRepository) EntityCounts(ctx context.Context) (students, faculty, courses, sessions int, err error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM students) AS students,
		(SELECT COUNT(*) FROM faculty) AS faculty,
		(SELECT COUNT(*) FROM courses) AS courses,
		(SELECT COUNT(*) FROM attendance_sessions) AS sessions`

	var counts struct {
		Students int `db:"students"`
		Faculty  int `db:"faculty"`
		Courses  int `db:"courses"`
		Sessions int `db:"sessions"`
	}
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("entity counts: %w", err)
	}
	return counts.Students, counts.Faculty, counts.Courses, counts.Sessions, nil
}
