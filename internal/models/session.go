package models

import "time"

// AttendanceSession is a single class meeting students check in to.
// The session_code is globally unique and drawn from a cryptographically
// secure source; only the active flag gates check-in.
type AttendanceSession struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	Date        time.Time `db:"date" json:"date"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	SessionCode string    `db:"session_code" json:"session_code"`
	Active      bool      `db:"active" json:"active"`
	Location    *string   `db:"location" json:"location,omitempty"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SessionDetail enriches a session with course context for listings.
type SessionDetail struct {
	AttendanceSession
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
}

// SessionFilter scopes session listings.
type SessionFilter struct {
	CourseID  string
	FacultyID string
	Active    *bool
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
