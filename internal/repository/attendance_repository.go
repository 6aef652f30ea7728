package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack/attendance-api/internal/models"
)

// AttendanceRepository provides database access for attendance records.
// The unique_attendance constraint on (session_id, student_id) is the
// last line of defence against concurrent duplicate writes.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, session_id, student_id, status, recorded_at, marked_by, location, ip_address, device_info, comments`

// InsertIfAbsent records attendance only when no record exists yet for
// the (session, student) pair. Returns false when a record already won
// the race; the existing record is never overwritten.
func (r *AttendanceRepository) InsertIfAbsent(ctx context.Context, attendance *models.Attendance) (bool, error) {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	if attendance.RecordedAt.IsZero() {
		attendance.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendances (id, session_id, student_id, status, recorded_at, marked_by, location, ip_address, device_info, comments) VALUES (:id, :session_id, :student_id, :status, :recorded_at, :marked_by, :location, :ip_address, :device_info, :comments) ON CONFLICT (session_id, student_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, attendance)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert attendance rows affected: %w", err)
	}
	return affected > 0, nil
}

// BulkUpsert overwrites attendance for the given entries in a single
// transaction. Faculty marking always wins over prior records.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, sessionID, markedBy string, entries []models.BulkMarkEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk upsert: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO attendances (id, session_id, student_id, status, recorded_at, marked_by) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (session_id, student_id) DO UPDATE SET status = EXCLUDED.status, recorded_at = EXCLUDED.recorded_at, marked_by = EXCLUDED.marked_by`
	now := time.Now().UTC()
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), sessionID, entry.StudentID, entry.Status, now, markedBy); err != nil {
			return fmt.Errorf("bulk upsert attendance for student %s: %w", entry.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk upsert: %w", err)
	}
	return nil
}

// FindBySessionAndStudent returns the attendance record for a pair.
func (r *AttendanceRepository) FindBySessionAndStudent(ctx context.Context, sessionID, studentID string) (*models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendances WHERE session_id = $1 AND student_id = $2 LIMIT 1`, attendanceColumns)
	var attendance models.Attendance
	if err := r.db.GetContext(ctx, &attendance, query, sessionID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &attendance, nil
}

// ListBySession returns all attendance records of a session.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendances WHERE session_id = $1 ORDER BY recorded_at ASC`, attendanceColumns)
	var attendances []models.Attendance
	if err := r.db.SelectContext(ctx, &attendances, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendances by session: %w", err)
	}
	return attendances, nil
}

// ListStudentCourseRecords returns a student's per-session records for a
// course. Sessions without a record surface with status 'absent'.
func (r *AttendanceRepository) ListStudentCourseRecords(ctx context.Context, studentID, courseID string) ([]models.StudentSessionRecord, error) {
	const query = `SELECT ss.id AS session_id, ss.date, ss.start_time, ss.end_time, COALESCE(a.status, 'absent') AS status, a.recorded_at FROM attendance_sessions ss LEFT JOIN attendances a ON a.session_id = ss.id AND a.student_id = $1 WHERE ss.course_id = $2 ORDER BY ss.date ASC, ss.start_time ASC`
	var records []models.StudentSessionRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("list student course records: %w", err)
	}
	return records, nil
}
