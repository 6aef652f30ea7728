package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

type directoryUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

type directoryFacultyRepository interface {
	Create(ctx context.Context, faculty *models.Faculty) error
	FindByID(ctx context.Context, id string) (*models.FacultyDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.FacultyDetail, error)
	List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, int, error)
}

type directoryStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	Update(ctx context.Context, student *models.Student) error
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
}

// CreateFacultyRequest is the admin payload for onboarding faculty.
type CreateFacultyRequest struct {
	Username    string `json:"username" validate:"required,min=2,max=20"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	FirstName   string `json:"first_name" validate:"required,min=2,max=50"`
	LastName    string `json:"last_name" validate:"required,min=2,max=50"`
	EmployeeID  string `json:"employee_id" validate:"required"`
	Department  string `json:"department" validate:"required"`
	Designation string `json:"designation" validate:"required"`
	JoiningDate string `json:"joining_date" validate:"required,datetime=2006-01-02"`
}

// UpdateUserRequest updates account identity fields.
type UpdateUserRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `json:"last_name" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
}

// UpdateStudentRequest updates a student's academic profile.
type UpdateStudentRequest struct {
	Department string `json:"department" validate:"required"`
	Semester   int    `json:"semester" validate:"required,min=1,max=8"`
	Section    string `json:"section"`
}

// UserService is the directory: accounts, student profiles and faculty
// profiles. Deactivation replaces deletion so attendance history stays
// attributable.
type UserService struct {
	users     directoryUserRepository
	students  directoryStudentRepository
	faculty   directoryFacultyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users directoryUserRepository, students directoryStudentRepository, faculty directoryFacultyRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, students: students, faculty: faculty, validator: validate, logger: logger}
}

// CreateFaculty onboards a faculty member with account and profile.
func (s *UserService) CreateFaculty(ctx context.Context, req CreateFacultyRequest) (*models.FacultyDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	joiningDate, err := time.Parse("2006-01-02", req.JoiningDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid joining date")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleFaculty,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	faculty := &models.Faculty{
		UserID:      user.ID,
		EmployeeID:  req.EmployeeID,
		Department:  req.Department,
		Designation: req.Designation,
		JoiningDate: joiningDate,
	}
	if err := s.faculty.Create(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty profile")
	}

	s.logger.Info("faculty onboarded",
		zap.String("user_id", user.ID),
		zap.String("employee_id", faculty.EmployeeID))

	return &models.FacultyDetail{
		Faculty:   *faculty,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Active:    user.Active,
	}, nil
}

// GetUser returns an account by identifier.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// ListUsers returns accounts matching the filter.
func (s *UserService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// UpdateUser updates an account's name and email.
func (s *UserService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != user.Email {
		if existing, err := s.users.FindByEmail(ctx, req.Email); err == nil && existing.ID != user.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Email = req.Email
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// SetUserActive activates or deactivates an account. Deactivation also
// revokes outstanding refresh tokens.
func (s *UserService) SetUserActive(ctx context.Context, id string, active bool) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account state")
	}
	if !active {
		if err := s.users.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke tokens on deactivation", zap.Error(err))
		}
	}
	s.logger.Info("account state changed", zap.String("user_id", id), zap.Bool("active", active))
	return nil
}

// GetStudent returns a student profile by identifier.
func (s *UserService) GetStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetStudentByUser resolves the profile owned by a user account.
func (s *UserService) GetStudentByUser(ctx context.Context, userID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student profile for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ListStudents returns student profiles matching the filter.
func (s *UserService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// UpdateStudent updates a student's academic profile.
func (s *UserService) UpdateStudent(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	student.Department = req.Department
	student.Semester = req.Semester
	student.Section = req.Section
	if err := s.students.Update(ctx, &student.Student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// GetFaculty returns a faculty profile by identifier.
func (s *UserService) GetFaculty(ctx context.Context, id string) (*models.FacultyDetail, error) {
	faculty, err := s.faculty.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// GetFacultyByUser resolves the profile owned by a user account.
func (s *UserService) GetFacultyByUser(ctx context.Context, userID string) (*models.FacultyDetail, error) {
	faculty, err := s.faculty.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no faculty profile for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// ListFaculty returns faculty profiles matching the filter.
func (s *UserService) ListFaculty(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, *models.Pagination, error) {
	faculty, total, err := s.faculty.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return faculty, paginationFor(filter.Page, filter.PageSize, total), nil
}

func paginationFor(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
