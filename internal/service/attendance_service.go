package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

type attendanceRepository interface {
	InsertIfAbsent(ctx context.Context, attendance *models.Attendance) (bool, error)
	BulkUpsert(ctx context.Context, sessionID, markedBy string, entries []models.BulkMarkEntry) error
	ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error)
	ListStudentCourseRecords(ctx context.Context, studentID, courseID string) ([]models.StudentSessionRecord, error)
}

type attendanceSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	FindByCode(ctx context.Context, code string) (*models.AttendanceSession, error)
}

type attendanceEnrollmentRepository interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type attendanceStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

// attendanceNotifier receives fire-and-forget events after writes.
// Implementations must not block the check-in path.
type attendanceNotifier interface {
	CheckInRecorded(ctx context.Context, student models.StudentDetail, session models.AttendanceSession)
	AttendanceMarked(ctx context.Context, sessionID string, marked int)
}

// attendanceStatsInvalidator drops cached course rollups after a
// write so statistics never serve stale data past the cache TTL.
type attendanceStatsInvalidator interface {
	InvalidateCourse(ctx context.Context, courseID string)
}

// CheckInRequest is the student payload to record attendance.
type CheckInRequest struct {
	SessionCode string `json:"session_code" validate:"required"`
	Location    string `json:"location"`
}

// AttendanceService is the write path for attendance records. Self
// check-in is gated only on the session's active flag; the recorded
// time window is informational.
type AttendanceService struct {
	attendances attendanceRepository
	sessions    attendanceSessionRepository
	enrollments attendanceEnrollmentRepository
	students    attendanceStudentRepository
	notifier    attendanceNotifier
	stats       attendanceStatsInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(
	attendances attendanceRepository,
	sessions attendanceSessionRepository,
	enrollments attendanceEnrollmentRepository,
	students attendanceStudentRepository,
	notifier attendanceNotifier,
	stats attendanceStatsInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		attendances: attendances,
		sessions:    sessions,
		enrollments: enrollments,
		students:    students,
		notifier:    notifier,
		stats:       stats,
		validator:   validate,
		logger:      logger,
	}
}

// CheckIn records the calling student as present for the session behind
// the code. The first record wins; duplicates are rejected without
// modifying the stored record.
func (s *AttendanceService) CheckIn(ctx context.Context, userID string, req CheckInRequest, meta models.CheckinMetadata) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	session, err := s.sessions.FindByCode(ctx, req.SessionCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no session matches this code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session code")
	}

	if !session.Active {
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "this session is no longer accepting check-ins")
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, student.ID, session.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "you are not enrolled in this course")
	}

	attendance := &models.Attendance{
		SessionID: session.ID,
		StudentID: student.ID,
		Status:    models.AttendanceStatusPresent,
		MarkedBy:  &userID,
	}
	if meta.IPAddress != "" {
		attendance.IPAddress = &meta.IPAddress
	}
	if meta.DeviceInfo != "" {
		attendance.DeviceInfo = &meta.DeviceInfo
	}
	if req.Location != "" {
		attendance.Location = &req.Location
	} else if meta.Location != "" {
		attendance.Location = &meta.Location
	}

	inserted, err := s.attendances.InsertIfAbsent(ctx, attendance)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	if !inserted {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRecorded, "attendance already recorded for this session")
	}

	s.logger.Info("check-in recorded",
		zap.String("session_id", session.ID),
		zap.String("student_id", student.ID))

	if s.stats != nil {
		s.stats.InvalidateCourse(ctx, session.CourseID)
	}
	if s.notifier != nil {
		s.notifier.CheckInRecorded(ctx, *student, *session)
	}

	return attendance, nil
}

// BulkMark overwrites attendance for roster students in one
// transaction. Entries for students outside the active roster are
// skipped and reported, never written.
func (s *AttendanceService) BulkMark(ctx context.Context, actor models.JWTClaims, facultyID, sessionID string, entries []models.BulkMarkEntry) (*models.BulkMarkResult, error) {
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no entries to mark")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if actor.Role != models.RoleAdmin && session.FacultyID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another faculty member")
	}

	for _, entry := range entries {
		if !entry.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status: "+string(entry.Status))
		}
	}

	roster, err := s.enrollments.ListByCourse(ctx, session.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	onRoster := make(map[string]struct{}, len(roster))
	for _, enrollment := range roster {
		onRoster[enrollment.StudentID] = struct{}{}
	}

	accepted := make([]models.BulkMarkEntry, 0, len(entries))
	var skipped []string
	for _, entry := range entries {
		if _, ok := onRoster[entry.StudentID]; !ok {
			skipped = append(skipped, entry.StudentID)
			continue
		}
		accepted = append(accepted, entry)
	}

	if len(accepted) > 0 {
		if err := s.attendances.BulkUpsert(ctx, sessionID, actor.UserID, accepted); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
		}
	}

	s.logger.Info("bulk attendance marked",
		zap.String("session_id", sessionID),
		zap.Int("marked", len(accepted)),
		zap.Int("skipped", len(skipped)))

	if s.stats != nil && len(accepted) > 0 {
		s.stats.InvalidateCourse(ctx, session.CourseID)
	}
	if s.notifier != nil && len(accepted) > 0 {
		s.notifier.AttendanceMarked(ctx, sessionID, len(accepted))
	}

	return &models.BulkMarkResult{Marked: len(accepted), Skipped: skipped}, nil
}

// SessionRoster resolves the full roster of a session with each
// student's status. Enrolled students without a record show as absent.
func (s *AttendanceService) SessionRoster(ctx context.Context, actor models.JWTClaims, facultyID, sessionID string) ([]models.RosterEntry, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if actor.Role != models.RoleAdmin && session.FacultyID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another faculty member")
	}

	roster, err := s.enrollments.ListByCourse(ctx, session.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	records, err := s.attendances.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}
	byStudent := make(map[string]models.Attendance, len(records))
	for _, record := range records {
		byStudent[record.StudentID] = record
	}

	entries := make([]models.RosterEntry, 0, len(roster))
	for _, enrollment := range roster {
		entry := models.RosterEntry{
			StudentID:  enrollment.StudentID,
			RollNumber: enrollment.RollNumber,
			Name:       enrollment.StudentName,
			Status:     models.AttendanceStatusAbsent,
		}
		if record, ok := byStudent[enrollment.StudentID]; ok {
			entry.Status = record.Status
			recordedAt := record.RecordedAt
			entry.RecordedAt = &recordedAt
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// StudentCourseRecords returns the caller's per-session history for one
// course, absent rows included.
func (s *AttendanceService) StudentCourseRecords(ctx context.Context, userID, courseID string) ([]models.StudentSessionRecord, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, student.ID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "you are not enrolled in this course")
	}

	records, err := s.attendances.ListStudentCourseRecords(ctx, student.ID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return records, nil
}
