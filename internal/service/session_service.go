package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/internal/repository"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
	"github.com/edutrack/attendance-api/pkg/sessioncode"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	FindByCode(ctx context.Context, code string) (*models.AttendanceSession, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdateCode(ctx context.Context, id, code string) error
	Update(ctx context.Context, session *models.AttendanceSession) error
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error)
}

type sessionCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateSessionRequest is the faculty payload to open a new session.
type CreateSessionRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Location  string `json:"location"`
	Notes     string `json:"notes"`
}

// SessionConfig tunes session code generation.
type SessionConfig struct {
	CodeLength      int
	CodeMaxAttempts int
}

// SessionService owns the attendance session lifecycle. Codes are
// unguessable and unique; a collision triggers regeneration up to
// CodeMaxAttempts before giving up.
type SessionService struct {
	sessions  sessionRepository
	courses   sessionCourseRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionConfig
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(sessions sessionRepository, courses sessionCourseRepository, validate *validator.Validate, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.CodeLength <= 0 {
		config.CodeLength = sessioncode.DefaultLength
	}
	if config.CodeMaxAttempts <= 0 {
		config.CodeMaxAttempts = 3
	}
	return &SessionService{sessions: sessions, courses: courses, validator: validate, logger: logger, config: config}
}

// Create opens a new attendance session for a course the caller teaches.
// Admins may create sessions for any course.
func (s *SessionService) Create(ctx context.Context, actor models.JWTClaims, facultyID string, req CreateSessionRequest) (*models.AttendanceSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if actor.Role != models.RoleAdmin && course.FacultyID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not taught by this faculty member")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	if today := time.Now().UTC().Truncate(24 * time.Hour); date.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session date cannot be in the past")
	}

	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	session := &models.AttendanceSession{
		CourseID:  course.ID,
		FacultyID: course.FacultyID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Active:    true,
	}
	if req.Location != "" {
		session.Location = &req.Location
	}
	if req.Notes != "" {
		session.Notes = &req.Notes
	}

	for attempt := 1; ; attempt++ {
		code, err := sessioncode.Generate(s.config.CodeLength)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate session code")
		}
		session.SessionCode = code

		err = s.sessions.Create(ctx, session)
		if err == nil {
			break
		}
		if repository.IsUniqueViolation(err) && attempt < s.config.CodeMaxAttempts {
			s.logger.Warn("session code collision, regenerating",
				zap.Int("attempt", attempt))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("course_id", session.CourseID))

	return session, nil
}

// Get returns a session by identifier.
func (s *SessionService) Get(ctx context.Context, id string) (*models.AttendanceSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// FindByCode resolves a session from its code. Used on check-in; the
// caller decides whether an inactive session is acceptable.
func (s *SessionService) FindByCode(ctx context.Context, code string) (*models.AttendanceSession, error) {
	session, err := s.sessions.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session code")
	}
	return session, nil
}

// Close deactivates a session, stopping further self check-ins.
// Faculty bulk marking still works on closed sessions.
func (s *SessionService) Close(ctx context.Context, actor models.JWTClaims, facultyID, id string) (*models.AttendanceSession, error) {
	return s.setActive(ctx, actor, facultyID, id, false)
}

// Reopen reactivates a closed session.
func (s *SessionService) Reopen(ctx context.Context, actor models.JWTClaims, facultyID, id string) (*models.AttendanceSession, error) {
	return s.setActive(ctx, actor, facultyID, id, true)
}

func (s *SessionService) setActive(ctx context.Context, actor models.JWTClaims, facultyID, id string, active bool) (*models.AttendanceSession, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin && session.FacultyID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another faculty member")
	}

	if err := s.sessions.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session state")
	}
	session.Active = active

	s.logger.Info("session state changed",
		zap.String("session_id", id),
		zap.Bool("active", active))

	return session, nil
}

// RotateCode replaces the session code, invalidating the old one
// immediately. Useful when a code leaks beyond the classroom.
func (s *SessionService) RotateCode(ctx context.Context, actor models.JWTClaims, facultyID, id string) (*models.AttendanceSession, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin && session.FacultyID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another faculty member")
	}

	for attempt := 1; ; attempt++ {
		code, err := sessioncode.Generate(s.config.CodeLength)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate session code")
		}

		err = s.sessions.UpdateCode(ctx, id, code)
		if err == nil {
			session.SessionCode = code
			break
		}
		if repository.IsUniqueViolation(err) && attempt < s.config.CodeMaxAttempts {
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate session code")
	}

	s.logger.Info("session code rotated", zap.String("session_id", id))
	return session, nil
}

// List returns sessions matching the filter.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error) {
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return sessions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
