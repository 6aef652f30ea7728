package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/pkg/config"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
	"github.com/edutrack/attendance-api/pkg/export"
	"github.com/edutrack/attendance-api/pkg/jobs"
	"github.com/edutrack/attendance-api/pkg/storage"
)

type reportRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	MarkDone(ctx context.Context, id, filePath string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
	ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]models.ReportJob, error)
	Delete(ctx context.Context, id string) error
}

type reportCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type courseStatsProvider interface {
	CourseStats(ctx context.Context, courseID string) (*models.CourseStats, error)
}

// ReportDownload is an open report file ready to stream to the client.
type ReportDownload struct {
	File     *os.File
	Filename string
	Format   models.ReportFormat
}

// ReportService renders course attendance reports asynchronously.
// Callers poll job status and download finished files through short
// lived signed tokens.
type ReportService struct {
	reports reportRepository
	courses reportCourseRepository
	stats   courseStatsProvider
	store   *storage.LocalStorage
	signer  *storage.DownloadTokenSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	queue   *jobs.Queue
	cfg     config.ReportsConfig
	logger  *zap.Logger
}

// NewReportService constructs the report pipeline.
func NewReportService(
	reports reportRepository,
	courses reportCourseRepository,
	stats courseStatsProvider,
	store *storage.LocalStorage,
	signer *storage.DownloadTokenSigner,
	metrics *MetricsService,
	cfg config.ReportsConfig,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ReportService{
		reports: reports,
		courses: courses,
		stats:   stats,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		cfg:     cfg,
		logger:  logger,
	}

	s.queue = jobs.NewQueue("reports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
		Observe: func(jobType string, duration time.Duration) {
			metrics.ObserveJob("reports", jobType, duration)
		},
	})

	return s
}

// Start launches the report workers and the cleanup loop.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.CleanupInterval > 0 {
		go s.cleanupLoop(ctx)
	}
}

// Stop drains the report workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Generate queues a new report job for a course.
func (s *ReportService) Generate(ctx context.Context, actor models.JWTClaims, facultyID, courseID string, format models.ReportFormat) (*models.ReportJob, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format: "+string(format))
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if actor.Role != models.RoleAdmin && course.FacultyID != facultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not taught by this faculty member")
	}

	job := &models.ReportJob{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Format:    format,
		Status:    models.ReportStatusQueued,
		CreatedBy: actor.UserID,
	}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report", Payload: job.ID}); err != nil {
		now := time.Now().UTC()
		if markErr := s.reports.MarkFailed(ctx, job.ID, "queue unavailable", now); markErr != nil {
			s.logger.Error("failed to mark report job failed", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report job")
	}

	return job, nil
}

// Status returns a job and, when done, a signed download token.
func (s *ReportService) Status(ctx context.Context, id string) (*models.ReportJob, string, error) {
	job, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}

	var token string
	if job.Status == models.ReportStatusDone && job.FilePath != nil {
		token, _, err = s.signer.Sign(job.ID, *job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign report url", zap.Error(err))
			token = ""
		}
	}
	return job, token, nil
}

// Download validates a signed token against the requested job and
// opens the file for streaming.
func (s *ReportService) Download(ctx context.Context, requestedJobID, token string) (*ReportDownload, error) {
	tok, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	if requestedJobID != "" && requestedJobID != tok.JobID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not match this report")
	}

	job, err := s.reports.FindByID(ctx, tok.JobID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	if job.Status != models.ReportStatusDone || job.FilePath == nil || *job.FilePath != tok.Path {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report file not available")
	}

	file, err := s.store.Open(tok.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}

	return &ReportDownload{File: file, Filename: tok.Path, Format: job.Format}, nil
}

func (s *ReportService) process(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("invalid report payload", zap.String("job_id", job.ID))
		return nil
	}

	record, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", jobID, err)
	}

	now := time.Now().UTC()
	if err := s.reports.MarkProcessing(ctx, jobID, now); err != nil {
		return fmt.Errorf("mark report processing: %w", err)
	}

	relPath, err := s.render(ctx, record)
	if err != nil {
		if markErr := s.reports.MarkFailed(ctx, jobID, err.Error(), time.Now().UTC()); markErr != nil {
			s.logger.Error("failed to mark report failed", zap.Error(markErr))
		}
		return err
	}

	if err := s.reports.MarkDone(ctx, jobID, relPath, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report done: %w", err)
	}

	s.logger.Info("report generated",
		zap.String("report_id", jobID),
		zap.String("file", relPath))
	return nil
}

func (s *ReportService) render(ctx context.Context, job *models.ReportJob) (string, error) {
	course, err := s.courses.FindByID(ctx, job.CourseID)
	if err != nil {
		return "", fmt.Errorf("load course: %w", err)
	}

	stats, err := s.stats.CourseStats(ctx, job.CourseID)
	if err != nil {
		return "", fmt.Errorf("compute course stats: %w", err)
	}

	if err := s.reports.UpdateProgress(ctx, job.ID, 50); err != nil {
		s.logger.Warn("failed to update report progress", zap.Error(err))
	}

	report := buildAttendanceReport(course, stats)

	var payload []byte
	switch job.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(report)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(report)
	default:
		return "", fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("%s/%s.%s", course.CourseCode, job.ID, job.Format)
	return s.store.Save(filename, payload)
}

func buildAttendanceReport(course *models.Course, stats *models.CourseStats) export.AttendanceReport {
	rows := make([]export.AttendanceRow, 0, len(stats.PerStudent))
	for _, st := range stats.PerStudent {
		rows = append(rows, export.AttendanceRow{
			RollNumber: st.RollNumber,
			Name:       st.Name,
			Present:    st.PresentCount,
			Absent:     st.AbsentCount,
			Percentage: st.AttendancePercentage,
		})
	}
	return export.AttendanceReport{
		CourseCode:    course.CourseCode,
		CourseTitle:   course.Title,
		TotalSessions: stats.TotalSessions,
		Average:       stats.AverageAttendancePercentage,
		Rows:          rows,
	}
}

func (s *ReportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(ctx)
		}
	}
}

func (s *ReportService) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.RetentionPeriod)
	finished, err := s.reports.ListFinishedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Warn("report cleanup query failed", zap.Error(err))
		return
	}
	for _, job := range finished {
		if job.FilePath != nil {
			if err := s.store.Delete(*job.FilePath); err != nil {
				s.logger.Warn("failed to delete report file", zap.Error(err))
				continue
			}
		}
		if err := s.reports.Delete(ctx, job.ID); err != nil {
			s.logger.Warn("failed to delete report job", zap.Error(err))
		}
	}
	if len(finished) > 0 {
		s.logger.Info("report cleanup completed", zap.Int("removed", len(finished)))
	}
}
