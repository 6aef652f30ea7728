package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/pkg/config"
	"github.com/edutrack/attendance-api/pkg/jobs"
	"github.com/edutrack/attendance-api/pkg/mailer"
)

const (
	jobTypeMail               = "mail"
	jobTypeLowAttendanceCheck = "low_attendance_check"
)

type lowAttendancePayload struct {
	Student  models.StudentDetail
	CourseID string
}

type percentageProvider interface {
	StudentPercentage(ctx context.Context, studentID, courseID string) (*models.StudentPercentage, error)
}

// NotificationService delivers attendance events off the request path.
// All work goes through an in-memory queue so a slow SMTP relay never
// delays a check-in response.
type NotificationService struct {
	queue     *jobs.Queue
	mail      mailer.Mailer
	stats     percentageProvider
	enabled   bool
	threshold float64
	logger    *zap.Logger
}

// NewNotificationService constructs the notification pipeline.
func NewNotificationService(mail mailer.Mailer, stats percentageProvider, metrics *MetricsService, cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &NotificationService{
		mail:      mail,
		stats:     stats,
		enabled:   cfg.Enabled,
		threshold: cfg.LowAttendanceThreshold,
		logger:    logger,
	}

	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
		Observe: func(jobType string, duration time.Duration) {
			metrics.ObserveJob("notifications", jobType, duration)
		},
	})

	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// CheckInRecorded queues a confirmation mail and a low-attendance
// check for the student who just checked in.
func (s *NotificationService) CheckInRecorded(ctx context.Context, student models.StudentDetail, session models.AttendanceSession) {
	if !s.enabled {
		return
	}

	msg := mailer.Message{
		To:      student.Email,
		Subject: "Attendance recorded",
		Body: fmt.Sprintf("Hi %s,\n\nYour attendance for the session on %s has been recorded.\n",
			student.FirstName, session.Date.Format("2006-01-02")),
	}
	s.enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeMail, Payload: msg})

	s.enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeLowAttendanceCheck, Payload: lowAttendancePayload{
		Student:  student,
		CourseID: session.CourseID,
	}})
}

// PasswordResetRequested queues the reset mail carrying the one-time
// token.
func (s *NotificationService) PasswordResetRequested(ctx context.Context, email, token string) {
	if !s.enabled {
		return
	}

	msg := mailer.Message{
		To:      email,
		Subject: "Password reset",
		Body:    fmt.Sprintf("A password reset was requested for your account.\n\nReset token: %s\n\nIf you did not request this, ignore this mail.\n", token),
	}
	s.enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeMail, Payload: msg})
}

// AttendanceMarked records a bulk marking event. Kept as a log entry;
// students are not mailed for faculty corrections.
func (s *NotificationService) AttendanceMarked(ctx context.Context, sessionID string, marked int) {
	s.logger.Info("attendance marked",
		zap.String("session_id", sessionID),
		zap.Int("marked", marked))
}

func (s *NotificationService) enqueue(job jobs.Job) {
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", job.Type),
			zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeMail:
		msg, ok := job.Payload.(mailer.Message)
		if !ok {
			s.logger.Error("invalid mail payload", zap.String("job_id", job.ID))
			return nil
		}
		return s.mail.Send(msg)

	case jobTypeLowAttendanceCheck:
		payload, ok := job.Payload.(lowAttendancePayload)
		if !ok {
			s.logger.Error("invalid low attendance payload", zap.String("job_id", job.ID))
			return nil
		}
		return s.checkLowAttendance(ctx, payload)

	default:
		s.logger.Warn("unknown notification job type", zap.String("type", job.Type))
		return nil
	}
}

func (s *NotificationService) checkLowAttendance(ctx context.Context, payload lowAttendancePayload) error {
	pct, err := s.stats.StudentPercentage(ctx, payload.Student.ID, payload.CourseID)
	if err != nil {
		return err
	}
	if pct.Percentage >= s.threshold {
		return nil
	}

	msg := mailer.Message{
		To:      payload.Student.Email,
		Subject: "Low attendance warning",
		Body: fmt.Sprintf("Hi %s,\n\nYour attendance in this course is at %.2f%%, below the required %.0f%%. Please attend upcoming sessions.\n",
			payload.Student.FirstName, pct.Percentage, s.threshold),
	}
	return s.mail.Send(msg)
}
