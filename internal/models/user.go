package models

import "time"

// UserRole is the closed set of roles known to the system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleFaculty UserRole = "FACULTY"
	RoleStudent UserRole = "STUDENT"
)

// Valid reports whether the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	default:
		return false
	}
}

// Capability names an operation class gated by role. Authorization is
// resolved once at the middleware boundary instead of scattering role
// comparisons through the services.
type Capability string

const (
	CapManageDirectory Capability = "directory:manage"
	CapManageCourses   Capability = "courses:manage"
	CapRunSessions     Capability = "sessions:run"
	CapCheckIn         Capability = "attendance:checkin"
	CapViewAllStats    Capability = "stats:view-all"
	CapGenerateReports Capability = "reports:generate"
)

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleAdmin: {
		CapManageDirectory: {},
		CapManageCourses:   {},
		CapRunSessions:     {},
		CapViewAllStats:    {},
		CapGenerateReports: {},
	},
	RoleFaculty: {
		CapRunSessions:     {},
		CapViewAllStats:    {},
		CapGenerateReports: {},
	},
	RoleStudent: {
		CapCheckIn: {},
	},
}

// Can reports whether the role grants the capability.
func (r UserRole) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// User represents an application user stored in the users table.
// Users are deactivated rather than deleted.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts for display.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
