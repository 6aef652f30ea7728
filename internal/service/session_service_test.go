package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

type mockSessionStore struct {
	sessions     map[string]models.AttendanceSession
	failCreates  int
	createCalls  int
	codeHistory  []string
	activeStates map[string]bool
}

func (m *mockSessionStore) Create(ctx context.Context, session *models.AttendanceSession) error {
	m.createCalls++
	m.codeHistory = append(m.codeHistory, session.SessionCode)
	if m.failCreates > 0 {
		m.failCreates--
		return &pq.Error{Code: "23505", Constraint: "attendance_sessions_session_code_key"}
	}
	if m.sessions == nil {
		m.sessions = make(map[string]models.AttendanceSession)
	}
	if session.ID == "" {
		session.ID = "sess-new"
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *mockSessionStore) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionStore) FindByCode(ctx context.Context, code string) (*models.AttendanceSession, error) {
	for _, s := range m.sessions {
		if s.SessionCode == code {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionStore) SetActive(ctx context.Context, id string, active bool) error {
	if m.activeStates == nil {
		m.activeStates = make(map[string]bool)
	}
	m.activeStates[id] = active
	if s, ok := m.sessions[id]; ok {
		s.Active = active
		m.sessions[id] = s
	}
	return nil
}

func (m *mockSessionStore) UpdateCode(ctx context.Context, id, code string) error {
	if s, ok := m.sessions[id]; ok {
		s.SessionCode = code
		m.sessions[id] = s
	}
	return nil
}

func (m *mockSessionStore) Update(ctx context.Context, session *models.AttendanceSession) error {
	m.sessions[session.ID] = *session
	return nil
}

func (m *mockSessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error) {
	return nil, 0, nil
}

type mockCourseLookup struct {
	courses map[string]models.Course
}

func (m *mockCourseLookup) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func newSessionFixture(store *mockSessionStore) *SessionService {
	courses := &mockCourseLookup{courses: map[string]models.Course{
		"course-1": {ID: "course-1", FacultyID: "fac-1", Active: true},
	}}
	return NewSessionService(store, courses, nil, nil, SessionConfig{CodeLength: 16, CodeMaxAttempts: 3})
}

func validCreateRequest() CreateSessionRequest {
	return CreateSessionRequest{
		CourseID:  "course-1",
		Date:      time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"),
		StartTime: "09:00",
		EndTime:   "10:00",
	}
}

func TestCreateSessionRejectsPastDate(t *testing.T) {
	store := &mockSessionStore{}
	svc := newSessionFixture(store)

	req := validCreateRequest()
	req.Date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	_, err := svc.Create(context.Background(), actor, "fac-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, store.createCalls)
}

func TestCreateSessionGeneratesCode(t *testing.T) {
	store := &mockSessionStore{}
	svc := newSessionFixture(store)

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	session, err := svc.Create(context.Background(), actor, "fac-1", validCreateRequest())
	require.NoError(t, err)
	assert.Len(t, session.SessionCode, 16)
	assert.True(t, session.Active)
	assert.Equal(t, "course-1", session.CourseID)
}

func TestCreateSessionRetriesOnCodeCollision(t *testing.T) {
	store := &mockSessionStore{failCreates: 2}
	svc := newSessionFixture(store)

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	session, err := svc.Create(context.Background(), actor, "fac-1", validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, store.createCalls)
	// Each retry draws a fresh code.
	assert.NotEqual(t, store.codeHistory[0], session.SessionCode)
}

func TestCreateSessionGivesUpAfterMaxAttempts(t *testing.T) {
	store := &mockSessionStore{failCreates: 5}
	svc := newSessionFixture(store)

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	_, err := svc.Create(context.Background(), actor, "fac-1", validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, 3, store.createCalls)
}

func TestCreateSessionForeignCourseForbidden(t *testing.T) {
	store := &mockSessionStore{}
	svc := newSessionFixture(store)

	actor := models.JWTClaims{UserID: "user-other", Role: models.RoleFaculty}
	_, err := svc.Create(context.Background(), actor, "fac-other", validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, store.createCalls)
}

func TestCreateSessionRejectsInvertedTimes(t *testing.T) {
	store := &mockSessionStore{}
	svc := newSessionFixture(store)

	req := validCreateRequest()
	req.StartTime = "10:00"
	req.EndTime = "09:00"

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	_, err := svc.Create(context.Background(), actor, "fac-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCloseAndReopenSession(t *testing.T) {
	store := &mockSessionStore{sessions: map[string]models.AttendanceSession{
		"sess-1": {ID: "sess-1", CourseID: "course-1", FacultyID: "fac-1", Active: true},
	}}
	svc := newSessionFixture(store)

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	session, err := svc.Close(context.Background(), actor, "fac-1", "sess-1")
	require.NoError(t, err)
	assert.False(t, session.Active)

	session, err = svc.Reopen(context.Background(), actor, "fac-1", "sess-1")
	require.NoError(t, err)
	assert.True(t, session.Active)
}

func TestRotateCodeReplacesOldCode(t *testing.T) {
	store := &mockSessionStore{sessions: map[string]models.AttendanceSession{
		"sess-1": {ID: "sess-1", CourseID: "course-1", FacultyID: "fac-1", SessionCode: "oldCode890123456", Active: true},
	}}
	svc := newSessionFixture(store)

	actor := models.JWTClaims{UserID: "user-fac", Role: models.RoleFaculty}
	session, err := svc.RotateCode(context.Background(), actor, "fac-1", "sess-1")
	require.NoError(t, err)
	assert.NotEqual(t, "oldCode890123456", session.SessionCode)
	assert.Len(t, session.SessionCode, 16)
}
