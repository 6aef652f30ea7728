package models

import "time"

// AttendanceStatus is the status recorded for a student in a session.
// Absent is the implicit default for enrolled students without a row;
// it is only materialized when faculty marks it explicitly.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attendance is the single record per (session, student) pair.
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	SessionID  string           `db:"session_id" json:"session_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	Status     AttendanceStatus `db:"status" json:"status"`
	RecordedAt time.Time        `db:"recorded_at" json:"recorded_at"`
	MarkedBy   *string          `db:"marked_by" json:"marked_by,omitempty"`
	Location   *string          `db:"location" json:"location,omitempty"`
	IPAddress  *string          `db:"ip_address" json:"ip_address,omitempty"`
	DeviceInfo *string          `db:"device_info" json:"device_info,omitempty"`
	Comments   *string          `db:"comments" json:"comments,omitempty"`
}

// CheckinMetadata carries the client context captured on self check-in.
type CheckinMetadata struct {
	IPAddress  string
	DeviceInfo string
	Location   string
}

// RosterEntry is one student on a session roster with the resolved
// status, absent when no attendance row exists.
type RosterEntry struct {
	StudentID  string           `json:"student_id"`
	RollNumber string           `json:"roll_number"`
	Name       string           `json:"name"`
	Status     AttendanceStatus `json:"status"`
	RecordedAt *time.Time       `json:"recorded_at,omitempty"`
}

// BulkMarkEntry is one faculty-submitted (student, status) pair.
type BulkMarkEntry struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required"`
}

// BulkMarkResult reports the partial-success outcome of a bulk mark.
type BulkMarkResult struct {
	Marked  int      `json:"marked"`
	Skipped []string `json:"skipped,omitempty"`
}

// StudentSessionRecord is a per-session view of one student's attendance
// within a course, absent when no row exists.
type StudentSessionRecord struct {
	SessionID  string           `db:"session_id" json:"session_id"`
	Date       time.Time        `db:"date" json:"date"`
	StartTime  string           `db:"start_time" json:"start_time"`
	EndTime    string           `db:"end_time" json:"end_time"`
	Status     AttendanceStatus `db:"status" json:"status"`
	RecordedAt *time.Time       `db:"recorded_at" json:"recorded_at,omitempty"`
}
