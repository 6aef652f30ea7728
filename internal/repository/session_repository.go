package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edutrack/attendance-api/internal/models"
)

// SessionRepository provides database access for attendance sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, course_id, faculty_id, date, start_time, end_time, session_code, active, location, notes, created_at, updated_at`

// IsUniqueViolation reports whether the error is a Postgres unique
// constraint violation. Used by callers retrying session code collisions.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// Create inserts a new session. Returns the raw error on unique
// violations so callers can regenerate the session code.
func (r *SessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO attendance_sessions (id, course_id, faculty_id, date, start_time, end_time, session_code, active, location, notes, created_at, updated_at) VALUES (:id, :course_id, :faculty_id, :date, :start_time, :end_time, :session_code, :active, :location, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE id = $1 LIMIT 1`, sessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &session, nil
}

// FindByCode returns a session by its session code.
func (r *SessionRepository) FindByCode(ctx context.Context, code string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE session_code = $1 LIMIT 1`, sessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by code: %w", err)
	}
	return &session, nil
}

// SetActive opens or closes a session.
func (r *SessionRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE attendance_sessions SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set session active: %w", err)
	}
	return nil
}

// UpdateCode replaces the session code. Returns the raw error on unique
// violations so callers can regenerate.
func (r *SessionRepository) UpdateCode(ctx context.Context, id, code string) error {
	const query = `UPDATE attendance_sessions SET session_code = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, code, time.Now().UTC()); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("update session code: %w", err)
	}
	return nil
}

// Update updates mutable session fields.
func (r *SessionRepository) Update(ctx context.Context, session *models.AttendanceSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendance_sessions SET date = :date, start_time = :start_time, end_time = :end_time, location = :location, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// List returns sessions with course context based on filters.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error) {
	baseQuery := `FROM attendance_sessions ss JOIN courses c ON c.id = ss.course_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("ss.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("ss.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("ss.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("ss.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("ss.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	selectColumns := `ss.id, ss.course_id, ss.faculty_id, ss.date, ss.start_time, ss.end_time, ss.session_code, ss.active, ss.location, ss.notes, ss.created_at, ss.updated_at, c.course_code, c.title AS course_title`
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY ss.date %s, ss.start_time %s LIMIT %d OFFSET %d", selectColumns, baseQuery, sortOrder, sortOrder, pageSize, offset)

	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// Recent returns the most recently created sessions for dashboards.
func (r *SessionRepository) Recent(ctx context.Context, limit int) ([]models.SessionDetail, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	selectColumns := `ss.id, ss.course_id, ss.faculty_id, ss.date, ss.start_time, ss.end_time, ss.session_code, ss.active, ss.location, ss.notes, ss.created_at, ss.updated_at, c.course_code, c.title AS course_title`
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions ss JOIN courses c ON c.id = ss.course_id ORDER BY ss.created_at DESC LIMIT %d`, selectColumns, limit)
	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	return sessions, nil
}
