package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

type mockUserStore struct {
	byEmail    map[string]models.User
	byUsername map[string]models.User
	tokens     map[string]models.RefreshToken
	created    []models.User
	revokedAll []string
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := m.byUsername[username]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-new"
	}
	m.created = append(m.created, *user)
	return nil
}

func (m *mockUserStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func (m *mockUserStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockUserStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]models.RefreshToken)
	}
	m.tokens[token.Token] = *token
	return nil
}

func (m *mockUserStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			m.tokens[key] = t
		}
	}
	return nil
}

type mockStudentStore struct {
	byRoll  map[string]models.StudentDetail
	created []models.Student
}

func (m *mockStudentStore) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "stud-new"
	}
	m.created = append(m.created, *student)
	return nil
}

func (m *mockStudentStore) FindByRollNumber(ctx context.Context, rollNumber string) (*models.StudentDetail, error) {
	if s, ok := m.byRoll[rollNumber]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func authConfigForTest() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "attendance-api-test",
	}
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginSuccessIssuesTokens(t *testing.T) {
	users := &mockUserStore{byEmail: map[string]models.User{
		"alice@example.com": {
			ID:           "user-1",
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: hashFor(t, "secret123"),
			Role:         models.RoleStudent,
			Active:       true,
		},
	}}
	svc := NewAuthService(users, &mockStudentStore{}, nil, nil, nil, authConfigForTest())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	users := &mockUserStore{byEmail: map[string]models.User{
		"alice@example.com": {
			ID:           "user-1",
			Email:        "alice@example.com",
			PasswordHash: hashFor(t, "secret123"),
			Active:       true,
		},
	}}
	svc := NewAuthService(users, &mockStudentStore{}, nil, nil, nil, authConfigForTest())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccountRejected(t *testing.T) {
	users := &mockUserStore{byEmail: map[string]models.User{
		"bob@example.com": {
			ID:           "user-2",
			Email:        "bob@example.com",
			PasswordHash: hashFor(t, "secret123"),
			Active:       false,
		},
	}}
	svc := NewAuthService(users, &mockStudentStore{}, nil, nil, nil, authConfigForTest())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "bob@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func validRegisterRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Username:       "newstudent",
		Email:          "new@example.com",
		Password:       "secret123",
		FirstName:      "New",
		LastName:       "Student",
		RollNumber:     "CS-100",
		EnrollmentYear: 2026,
		Department:     "CSE",
		Semester:       1,
	}
}

func TestRegisterStudentCreatesAccountAndProfile(t *testing.T) {
	users := &mockUserStore{}
	students := &mockStudentStore{}
	svc := NewAuthService(users, students, nil, nil, nil, authConfigForTest())

	info, err := svc.RegisterStudent(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)
	require.Len(t, users.created, 1)
	require.Len(t, students.created, 1)
	assert.Equal(t, users.created[0].ID, students.created[0].UserID)
	assert.NotEqual(t, "secret123", users.created[0].PasswordHash)
}

func TestRegisterStudentDuplicateEmailRejected(t *testing.T) {
	users := &mockUserStore{byEmail: map[string]models.User{
		"new@example.com": {ID: "user-1", Email: "new@example.com"},
	}}
	svc := NewAuthService(users, &mockStudentStore{}, nil, nil, nil, authConfigForTest())

	_, err := svc.RegisterStudent(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterStudentDuplicateRollNumberRejected(t *testing.T) {
	students := &mockStudentStore{byRoll: map[string]models.StudentDetail{
		"CS-100": {Student: models.Student{ID: "stud-1", RollNumber: "CS-100"}},
	}}
	svc := NewAuthService(&mockUserStore{}, students, nil, nil, nil, authConfigForTest())

	_, err := svc.RegisterStudent(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRefreshTokenRotates(t *testing.T) {
	users := &mockUserStore{byEmail: map[string]models.User{
		"alice@example.com": {
			ID:           "user-1",
			Email:        "alice@example.com",
			PasswordHash: hashFor(t, "secret123"),
			Active:       true,
			Role:         models.RoleStudent,
		},
	}}
	svc := NewAuthService(users, &mockStudentStore{}, nil, nil, nil, authConfigForTest())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token was revoked on rotation.
	old := users.tokens[login.RefreshToken]
	assert.True(t, old.Revoked)
}

type captureNotifier struct {
	email string
	token string
}

func (n *captureNotifier) PasswordResetRequested(ctx context.Context, email, token string) {
	n.email = email
	n.token = token
}

func TestPasswordResetRoundTrip(t *testing.T) {
	users := &mockUserStore{byEmail: map[string]models.User{
		"alice@example.com": {
			ID:           "user-1",
			Email:        "alice@example.com",
			PasswordHash: hashFor(t, "secret123"),
			Active:       true,
		},
	}}
	notifier := &captureNotifier{}
	svc := NewAuthService(users, &mockStudentStore{}, notifier, nil, nil, authConfigForTest())

	err := svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, notifier.token)
	assert.Equal(t, "alice@example.com", notifier.email)

	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{
		Token:       notifier.token,
		NewPassword: "newsecret",
	})
	require.NoError(t, err)
	// All sessions are revoked after a reset.
	assert.Contains(t, users.revokedAll, "user-1")
}

func TestForgotPasswordUnknownEmailSilent(t *testing.T) {
	notifier := &captureNotifier{}
	svc := NewAuthService(&mockUserStore{}, &mockStudentStore{}, notifier, nil, nil, authConfigForTest())

	err := svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Empty(t, notifier.token)
}

func TestResetPasswordRejectsAccessToken(t *testing.T) {
	users := &mockUserStore{byEmail: map[string]models.User{
		"alice@example.com": {
			ID:           "user-1",
			Email:        "alice@example.com",
			PasswordHash: hashFor(t, "secret123"),
			Role:         models.RoleStudent,
			Active:       true,
		},
	}}
	svc := NewAuthService(users, &mockStudentStore{}, nil, nil, nil, authConfigForTest())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	// An access token carries no reset purpose claim.
	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{
		Token:       login.AccessToken,
		NewPassword: "newsecret",
	})
	require.Error(t, err)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := NewAuthService(&mockUserStore{}, &mockStudentStore{}, nil, nil, nil, authConfigForTest())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
