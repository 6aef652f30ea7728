package models

import "time"

// Course always has exactly one responsible faculty member.
type Course struct {
	ID          string    `db:"id" json:"id"`
	CourseCode  string    `db:"course_code" json:"course_code"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Credits     int       `db:"credits" json:"credits"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	Department  string    `db:"department" json:"department"`
	Semester    int       `db:"semester" json:"semester"`
	Year        int       `db:"year" json:"year"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	FacultyID  string
	Department string
	Active     *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
