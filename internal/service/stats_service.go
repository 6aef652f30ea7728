package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

type statsRepository interface {
	SessionPresentCount(ctx context.Context, sessionID string) (int, error)
	CourseStudentCounts(ctx context.Context, courseID string) ([]models.StudentCourseStat, error)
	CourseSessionCount(ctx context.Context, courseID string) (int, error)
	StudentPresentCount(ctx context.Context, studentID, courseID string) (int, error)
	StudentSessionCount(ctx context.Context, studentID, courseID string) (int, error)
	DepartmentRates(ctx context.Context) ([]models.DepartmentRate, error)
	EntityCounts(ctx context.Context) (students, faculty, courses, sessions int, err error)
}

type statsSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	Recent(ctx context.Context, limit int) ([]models.SessionDetail, error)
}

type statsEnrollmentRepository interface {
	CountActiveByCourse(ctx context.Context, courseID string) (int, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// StatsService computes attendance aggregates. Expensive course and
// department rollups are cached; per-session counts are always live.
type StatsService struct {
	stats       statsRepository
	sessions    statsSessionRepository
	enrollments statsEnrollmentRepository
	cache       statsCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewStatsService constructs a StatsService instance.
func NewStatsService(stats statsRepository, sessions statsSessionRepository, enrollments statsEnrollmentRepository, cache statsCache, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &StatsService{stats: stats, sessions: sessions, enrollments: enrollments, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// InvalidateCourse drops cached rollups touched by an attendance
// write against the course.
func (s *StatsService) InvalidateCourse(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"stats:course:" + courseID, "stats:departments"} {
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate stats cache",
				zap.String("pattern", pattern),
				zap.Error(err))
		}
	}
}

// SessionCounts returns present, absent and total for one session.
// present + absent always equals the active roster size.
func (s *StatsService) SessionCounts(ctx context.Context, sessionID string) (*models.SessionCounts, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	total, err := s.enrollments.CountActiveByCourse(ctx, session.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}

	present, err := s.stats.SessionPresentCount(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	if present > total {
		present = total
	}

	return &models.SessionCounts{
		Present: present,
		Absent:  total - present,
		Total:   total,
	}, nil
}

// CourseStats returns per-student percentages and their arithmetic
// mean for a course. A student with no sessions scores zero rather
// than dividing by zero.
func (s *StatsService) CourseStats(ctx context.Context, courseID string) (*models.CourseStats, error) {
	cacheKey := "stats:course:" + courseID
	if s.cache != nil {
		var cached models.CourseStats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	totalSessions, err := s.stats.CourseSessionCount(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}

	perStudent, err := s.stats.CourseStudentCounts(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}

	var sum float64
	for i := range perStudent {
		perStudent[i].AbsentCount = totalSessions - perStudent[i].PresentCount
		if totalSessions > 0 {
			perStudent[i].AttendancePercentage = round2(float64(perStudent[i].PresentCount) / float64(totalSessions) * 100)
		}
		sum += perStudent[i].AttendancePercentage
	}

	stats := &models.CourseStats{
		CourseID:      courseID,
		TotalSessions: totalSessions,
		TotalStudents: len(perStudent),
		PerStudent:    perStudent,
	}
	if len(perStudent) > 0 {
		stats.AverageAttendancePercentage = round2(sum / float64(len(perStudent)))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache course stats", zap.Error(err))
		}
	}

	return stats, nil
}

// StudentPercentage returns a student's attendance rate, optionally
// scoped to a single course. Zero sessions yields zero percent.
func (s *StatsService) StudentPercentage(ctx context.Context, studentID, courseID string) (*models.StudentPercentage, error) {
	sessions, err := s.stats.StudentSessionCount(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}

	result := &models.StudentPercentage{StudentID: studentID, CourseID: courseID}
	if sessions == 0 {
		return result, nil
	}

	present, err := s.stats.StudentPresentCount(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}

	result.Percentage = round2(float64(present) / float64(sessions) * 100)
	return result, nil
}

// DepartmentRates returns the present rate per student department over
// all recorded attendance rows.
func (s *StatsService) DepartmentRates(ctx context.Context) ([]models.DepartmentRate, error) {
	cacheKey := "stats:departments"
	if s.cache != nil {
		var cached []models.DepartmentRate
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	rates, err := s.stats.DepartmentRates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate department rates")
	}

	for i := range rates {
		if rates[i].TotalRecords > 0 {
			rates[i].Rate = round2(float64(rates[i].PresentRecords) / float64(rates[i].TotalRecords) * 100)
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, rates, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache department rates", zap.Error(err))
		}
	}

	return rates, nil
}

// Overview returns the admin dashboard totals and recent sessions.
func (s *StatsService) Overview(ctx context.Context) (*models.OverviewStats, error) {
	students, faculty, courses, sessions, err := s.stats.EntityCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count entities")
	}

	recent, err := s.sessions.Recent(ctx, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent sessions")
	}

	return &models.OverviewStats{
		TotalStudents:  students,
		TotalFaculty:   faculty,
		TotalCourses:   courses,
		TotalSessions:  sessions,
		RecentSessions: recent,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
