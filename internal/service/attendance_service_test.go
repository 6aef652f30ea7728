package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

type mockAttendanceRepo struct {
	records map[string]models.Attendance
	bulked  []models.BulkMarkEntry
	history []models.StudentSessionRecord
}

func attendanceKey(sessionID, studentID string) string {
	return sessionID + "|" + studentID
}

func (m *mockAttendanceRepo) InsertIfAbsent(ctx context.Context, attendance *models.Attendance) (bool, error) {
	if m.records == nil {
		m.records = make(map[string]models.Attendance)
	}
	key := attendanceKey(attendance.SessionID, attendance.StudentID)
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	if attendance.ID == "" {
		attendance.ID = "att-" + key
	}
	attendance.RecordedAt = time.Now().UTC()
	m.records[key] = *attendance
	return true, nil
}

func (m *mockAttendanceRepo) BulkUpsert(ctx context.Context, sessionID, markedBy string, entries []models.BulkMarkEntry) error {
	if m.records == nil {
		m.records = make(map[string]models.Attendance)
	}
	for _, entry := range entries {
		key := attendanceKey(sessionID, entry.StudentID)
		m.records[key] = models.Attendance{
			SessionID: sessionID,
			StudentID: entry.StudentID,
			Status:    entry.Status,
			MarkedBy:  &markedBy,
		}
	}
	m.bulked = append(m.bulked, entries...)
	return nil
}

func (m *mockAttendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	var out []models.Attendance
	for _, record := range m.records {
		if record.SessionID == sessionID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *mockAttendanceRepo) ListStudentCourseRecords(ctx context.Context, studentID, courseID string) ([]models.StudentSessionRecord, error) {
	return m.history, nil
}

type mockSessionRepo struct {
	sessions map[string]models.AttendanceSession
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) FindByCode(ctx context.Context, code string) (*models.AttendanceSession, error) {
	for _, s := range m.sessions {
		if s.SessionCode == code {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockEnrollmentChecker struct {
	enrolled map[string]bool
	roster   []models.EnrollmentDetail
}

func (m *mockEnrollmentChecker) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	return m.enrolled[studentID+"|"+courseID], nil
}

func (m *mockEnrollmentChecker) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	return m.roster, nil
}

type mockStudentLookup struct {
	byUser map[string]models.StudentDetail
}

func (m *mockStudentLookup) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	if s, ok := m.byUser[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type recordingNotifier struct {
	checkIns int
	marked   int
}

func (n *recordingNotifier) CheckInRecorded(ctx context.Context, student models.StudentDetail, session models.AttendanceSession) {
	n.checkIns++
}

func (n *recordingNotifier) AttendanceMarked(ctx context.Context, sessionID string, marked int) {
	n.marked += marked
}

func newAttendanceFixture() (*AttendanceService, *mockAttendanceRepo, *mockSessionRepo, *mockEnrollmentChecker, *recordingNotifier) {
	attendances := &mockAttendanceRepo{}
	sessions := &mockSessionRepo{sessions: map[string]models.AttendanceSession{
		"sess-open": {
			ID:          "sess-open",
			CourseID:    "course-1",
			FacultyID:   "fac-1",
			SessionCode: "openSessionCode1",
			Active:      true,
			Date:        time.Now(),
		},
		"sess-closed": {
			ID:          "sess-closed",
			CourseID:    "course-1",
			FacultyID:   "fac-1",
			SessionCode: "closedSessionCd1",
			Active:      false,
			Date:        time.Now(),
		},
	}}
	enrollments := &mockEnrollmentChecker{
		enrolled: map[string]bool{
			"stud-1|course-1": true,
			"stud-2|course-1": true,
		},
		roster: []models.EnrollmentDetail{
			{Enrollment: models.Enrollment{StudentID: "stud-1", CourseID: "course-1"}, RollNumber: "R1", StudentName: "Alice A"},
			{Enrollment: models.Enrollment{StudentID: "stud-2", CourseID: "course-1"}, RollNumber: "R2", StudentName: "Bob B"},
		},
	}
	students := &mockStudentLookup{byUser: map[string]models.StudentDetail{
		"user-1": {Student: models.Student{ID: "stud-1"}, FirstName: "Alice", Email: "alice@example.com"},
		"user-3": {Student: models.Student{ID: "stud-3"}, FirstName: "Eve", Email: "eve@example.com"},
	}}
	notifier := &recordingNotifier{}
	svc := NewAttendanceService(attendances, sessions, enrollments, students, notifier, nil, nil, nil)
	return svc, attendances, sessions, enrollments, notifier
}

func TestCheckInRecordsPresent(t *testing.T) {
	svc, attendances, _, _, notifier := newAttendanceFixture()

	record, err := svc.CheckIn(context.Background(), "user-1", CheckInRequest{SessionCode: "openSessionCode1"}, models.CheckinMetadata{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.Equal(t, "stud-1", record.StudentID)
	require.NotNil(t, record.MarkedBy)
	assert.Equal(t, "user-1", *record.MarkedBy)
	require.NotNil(t, record.IPAddress)
	assert.Equal(t, "10.0.0.1", *record.IPAddress)
	assert.Len(t, attendances.records, 1)
	assert.Equal(t, 1, notifier.checkIns)
}

func TestCheckInDuplicateKeepsFirstRecord(t *testing.T) {
	svc, attendances, _, _, _ := newAttendanceFixture()

	first, err := svc.CheckIn(context.Background(), "user-1", CheckInRequest{SessionCode: "openSessionCode1"}, models.CheckinMetadata{})
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), "user-1", CheckInRequest{SessionCode: "openSessionCode1"}, models.CheckinMetadata{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyRecorded.Code, appErrors.FromError(err).Code)

	stored := attendances.records[attendanceKey("sess-open", "stud-1")]
	assert.Equal(t, first.ID, stored.ID)
}

func TestCheckInClosedSessionRejected(t *testing.T) {
	svc, attendances, _, _, _ := newAttendanceFixture()

	_, err := svc.CheckIn(context.Background(), "user-1", CheckInRequest{SessionCode: "closedSessionCd1"}, models.CheckinMetadata{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionClosed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, attendances.records)
}

func TestCheckInUnknownCodeRejected(t *testing.T) {
	svc, _, _, _, _ := newAttendanceFixture()

	_, err := svc.CheckIn(context.Background(), "user-1", CheckInRequest{SessionCode: "nosuchcode000000"}, models.CheckinMetadata{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCheckInNotEnrolledRejected(t *testing.T) {
	svc, attendances, _, _, _ := newAttendanceFixture()

	_, err := svc.CheckIn(context.Background(), "user-3", CheckInRequest{SessionCode: "openSessionCode1"}, models.CheckinMetadata{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
	assert.Empty(t, attendances.records)
}

func TestBulkMarkSkipsNonRosterStudents(t *testing.T) {
	svc, attendances, _, _, notifier := newAttendanceFixture()

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	entries := []models.BulkMarkEntry{
		{StudentID: "stud-1", Status: models.AttendanceStatusPresent},
		{StudentID: "stud-2", Status: models.AttendanceStatusAbsent},
		{StudentID: "stud-ghost", Status: models.AttendanceStatusPresent},
	}

	result, err := svc.BulkMark(context.Background(), actor, "fac-1", "sess-open", entries)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Marked)
	assert.Equal(t, []string{"stud-ghost"}, result.Skipped)
	assert.Len(t, attendances.bulked, 2)
	assert.Equal(t, 2, notifier.marked)
}

func TestBulkMarkOverwritesCheckIn(t *testing.T) {
	svc, attendances, _, _, _ := newAttendanceFixture()

	_, err := svc.CheckIn(context.Background(), "user-1", CheckInRequest{SessionCode: "openSessionCode1"}, models.CheckinMetadata{})
	require.NoError(t, err)

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	_, err = svc.BulkMark(context.Background(), actor, "fac-1", "sess-open", []models.BulkMarkEntry{
		{StudentID: "stud-1", Status: models.AttendanceStatusAbsent},
	})
	require.NoError(t, err)

	stored := attendances.records[attendanceKey("sess-open", "stud-1")]
	assert.Equal(t, models.AttendanceStatusAbsent, stored.Status)
}

func TestBulkMarkForeignFacultyForbidden(t *testing.T) {
	svc, _, _, _, _ := newAttendanceFixture()

	actor := models.JWTClaims{UserID: "user-other", Role: models.RoleFaculty}
	_, err := svc.BulkMark(context.Background(), actor, "fac-other", "sess-open", []models.BulkMarkEntry{
		{StudentID: "stud-1", Status: models.AttendanceStatusPresent},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBulkMarkAdminBypassesOwnership(t *testing.T) {
	svc, _, _, _, _ := newAttendanceFixture()

	actor := models.JWTClaims{UserID: "user-admin", Role: models.RoleAdmin}
	result, err := svc.BulkMark(context.Background(), actor, "", "sess-open", []models.BulkMarkEntry{
		{StudentID: "stud-1", Status: models.AttendanceStatusLate},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Marked)
}

func TestBulkMarkRejectsUnknownStatus(t *testing.T) {
	svc, _, _, _, _ := newAttendanceFixture()

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	_, err := svc.BulkMark(context.Background(), actor, "fac-1", "sess-open", []models.BulkMarkEntry{
		{StudentID: "stud-1", Status: "vanished"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionRosterDefaultsToAbsent(t *testing.T) {
	svc, _, _, _, _ := newAttendanceFixture()

	_, err := svc.CheckIn(context.Background(), "user-1", CheckInRequest{SessionCode: "openSessionCode1"}, models.CheckinMetadata{})
	require.NoError(t, err)

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	roster, err := svc.SessionRoster(context.Background(), actor, "fac-1", "sess-open")
	require.NoError(t, err)
	require.Len(t, roster, 2)

	byStudent := map[string]models.RosterEntry{}
	for _, entry := range roster {
		byStudent[entry.StudentID] = entry
	}
	assert.Equal(t, models.AttendanceStatusPresent, byStudent["stud-1"].Status)
	assert.NotNil(t, byStudent["stud-1"].RecordedAt)
	assert.Equal(t, models.AttendanceStatusAbsent, byStudent["stud-2"].Status)
	assert.Nil(t, byStudent["stud-2"].RecordedAt)
}
