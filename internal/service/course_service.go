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

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
}

type courseFacultyRepository interface {
	FindByID(ctx context.Context, id string) (*models.FacultyDetail, error)
}

// CreateCourseRequest is the admin payload for defining a course.
type CreateCourseRequest struct {
	CourseCode  string `json:"course_code" validate:"required,min=2,max=20"`
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description"`
	Credits     int    `json:"credits" validate:"required,min=1,max=10"`
	FacultyID   string `json:"faculty_id" validate:"required"`
	Department  string `json:"department" validate:"required"`
	Semester    int    `json:"semester" validate:"required,min=1,max=8"`
	Year        int    `json:"year" validate:"required,min=2000"`
}

// UpdateCourseRequest updates a course. Reassigning faculty moves all
// future session ownership with it.
type UpdateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description"`
	Credits     int    `json:"credits" validate:"required,min=1,max=10"`
	FacultyID   string `json:"faculty_id" validate:"required"`
	Department  string `json:"department" validate:"required"`
	Semester    int    `json:"semester" validate:"required,min=1,max=8"`
	Year        int    `json:"year" validate:"required,min=2000"`
}

// CourseService manages the course catalogue.
type CourseService struct {
	courses   courseRepository
	faculty   courseFacultyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses courseRepository, faculty courseFacultyRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{courses: courses, faculty: faculty, validator: validate, logger: logger}
}

// Create registers a new course assigned to one faculty member.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	if _, err := s.courses.FindByCode(ctx, req.CourseCode); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}

	if _, err := s.faculty.FindByID(ctx, req.FacultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assigned faculty member does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify faculty")
	}

	course := &models.Course{
		CourseCode:  req.CourseCode,
		Title:       req.Title,
		Description: req.Description,
		Credits:     req.Credits,
		FacultyID:   req.FacultyID,
		Department:  req.Department,
		Semester:    req.Semester,
		Year:        req.Year,
		Active:      true,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("course_code", course.CourseCode))

	return course, nil
}

// Get returns a course by identifier.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Update applies mutable course fields.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.faculty.FindByID(ctx, req.FacultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assigned faculty member does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify faculty")
	}

	course.Title = req.Title
	course.Description = req.Description
	course.Credits = req.Credits
	course.FacultyID = req.FacultyID
	course.Department = req.Department
	course.Semester = req.Semester
	course.Year = req.Year

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// SetActive archives or restores a course.
func (s *CourseService) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.courses.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course state")
	}
	return nil
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, paginationFor(filter.Page, filter.PageSize, total), nil
}
