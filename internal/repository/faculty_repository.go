package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edutrack/attendance-api/internal/models"
)

// FacultyRepository provides database access for faculty profiles.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new instance of FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

const facultyDetailColumns = `f.id, f.user_id, f.employee_id, f.department, f.designation, f.joining_date, u.first_name, u.last_name, u.email, u.active`

// Create inserts a new faculty profile.
func (r *FacultyRepository) Create(ctx context.Context, faculty *models.Faculty) error {
	if faculty.ID == "" {
		faculty.ID = uuid.NewString()
	}
	const query = `INSERT INTO faculty (id, user_id, employee_id, department, designation, joining_date) VALUES (:id, :user_id, :employee_id, :department, :designation, :joining_date)`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// FindByID returns a faculty member with user identity fields.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM faculty f JOIN users u ON u.id = f.user_id WHERE f.id = $1 LIMIT 1`, facultyDetailColumns)
	var faculty models.FacultyDetail
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by id: %w", err)
	}
	return &faculty, nil
}

// FindByUserID returns the faculty profile owned by a user account.
func (r *FacultyRepository) FindByUserID(ctx context.Context, userID string) (*models.FacultyDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM faculty f JOIN users u ON u.id = f.user_id WHERE f.user_id = $1 LIMIT 1`, facultyDetailColumns)
	var faculty models.FacultyDetail
	if err := r.db.GetContext(ctx, &faculty, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by user id: %w", err)
	}
	return &faculty, nil
}

// Update updates mutable profile fields.
func (r *FacultyRepository) Update(ctx context.Context, faculty *models.Faculty) error {
	const query = `UPDATE faculty SET employee_id = :employee_id, department = :department, designation = :designation, joining_date = :joining_date WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	return nil
}

// List returns faculty based on filters with total count.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, int, error) {
	baseQuery := `FROM faculty f JOIN users u ON u.id = f.user_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("f.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(f.employee_id) LIKE $%d OR LOWER(u.first_name || ' ' || u.last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY f.employee_id ASC LIMIT %d OFFSET %d", facultyDetailColumns, baseQuery, pageSize, offset)

	var faculty []models.FacultyDetail
	if err := r.db.SelectContext(ctx, &faculty, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculty: %w", err)
	}

	return faculty, total, nil
}
