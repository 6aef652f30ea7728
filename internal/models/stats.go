package models

import "time"

// SessionCounts summarises one session against the active roster.
// present + absent always equals total.
type SessionCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}

// StudentCourseStat is a per-student row inside CourseStats.
type StudentCourseStat struct {
	StudentID            string  `json:"student_id"`
	RollNumber           string  `json:"roll_number"`
	Name                 string  `json:"name"`
	PresentCount         int     `json:"present_count"`
	AbsentCount          int     `json:"absent_count"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// CourseStats aggregates attendance across a course. The average is the
// arithmetic mean of the per-student percentages, not the pooled rate.
type CourseStats struct {
	CourseID                    string              `json:"course_id"`
	TotalSessions               int                 `json:"total_sessions"`
	TotalStudents               int                 `json:"total_students"`
	AverageAttendancePercentage float64             `json:"average_attendance_percentage"`
	PerStudent                  []StudentCourseStat `json:"per_student"`
}

// DepartmentRate groups raw attendance rows by student department.
type DepartmentRate struct {
	Department     string  `db:"department" json:"department"`
	TotalRecords   int     `db:"total_records" json:"total_records"`
	PresentRecords int     `db:"present_records" json:"present_records"`
	Rate           float64 `json:"rate"`
}

// OverviewStats backs the admin dashboard.
type OverviewStats struct {
	TotalStudents  int             `json:"total_students"`
	TotalFaculty   int             `json:"total_faculty"`
	TotalCourses   int             `json:"total_courses"`
	TotalSessions  int             `json:"total_sessions"`
	RecentSessions []SessionDetail `json:"recent_sessions"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// StudentPercentage is the response for a single student rate lookup.
type StudentPercentage struct {
	StudentID  string  `json:"student_id"`
	CourseID   string  `json:"course_id,omitempty"`
	Percentage float64 `json:"percentage"`
}
