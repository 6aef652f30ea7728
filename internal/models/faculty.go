package models

import "time"

// Faculty is the teaching-staff profile owned 1:1 by a user account.
type Faculty struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	EmployeeID  string    `db:"employee_id" json:"employee_id"`
	Department  string    `db:"department" json:"department"`
	Designation string    `db:"designation" json:"designation"`
	JoiningDate time.Time `db:"joining_date" json:"joining_date"`
}

// FacultyDetail enriches Faculty with the owning user's identity fields.
type FacultyDetail struct {
	Faculty
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
	Active    bool   `db:"active" json:"active"`
}

// FacultyFilter encapsulates search parameters for listing faculty.
type FacultyFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
