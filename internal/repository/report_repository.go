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

// ReportRepository tracks asynchronous report jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, course_id, format, status, progress, file_path, error_message, created_by, created_at, started_at, finished_at`

// Create inserts a new report job row.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs (id, course_id, format, status, progress, created_by, created_at) VALUES (:id, :course_id, :format, :status, :progress, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns a report job by identifier.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_jobs WHERE id = $1 LIMIT 1`, reportColumns)
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report job: %w", err)
	}
	return &job, nil
}

// MarkProcessing transitions a job to processing.
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, started_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusProcessing, startedAt); err != nil {
		return fmt.Errorf("mark report processing: %w", err)
	}
	return nil
}

// UpdateProgress stores a progress percentage for a running job.
func (r *ReportRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	const query = `UPDATE report_jobs SET progress = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, progress); err != nil {
		return fmt.Errorf("update report progress: %w", err)
	}
	return nil
}

// MarkDone transitions a job to done with its output path.
func (r *ReportRepository) MarkDone(ctx context.Context, id, filePath string, finishedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, progress = 100, file_path = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusDone, filePath, finishedAt); err != nil {
		return fmt.Errorf("mark report done: %w", err)
	}
	return nil
}

// MarkFailed transitions a job to failed with the error message.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, error_message = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusFailed, message, finishedAt); err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}

// ListFinishedBefore returns done or failed jobs older than the cutoff,
// used by the cleanup loop to prune report files.
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]models.ReportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_jobs WHERE status IN ($1, $2) AND finished_at < $3`, reportColumns)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, models.ReportStatusDone, models.ReportStatusFailed, cutoff); err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a report job row.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM report_jobs WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete report job: %w", err)
	}
	return nil
}
