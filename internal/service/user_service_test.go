package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

type fakeDirectoryUsers struct {
	byID       map[string]models.User
	byEmail    map[string]models.User
	updated    []models.User
	deactivate []string
	revokedAll []string
}

func (f *fakeDirectoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDirectoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDirectoryUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeDirectoryUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-new"
	}
	return nil
}

func (f *fakeDirectoryUsers) Update(ctx context.Context, user *models.User) error {
	f.updated = append(f.updated, *user)
	return nil
}

func (f *fakeDirectoryUsers) SetActive(ctx context.Context, id string, active bool) error {
	if !active {
		f.deactivate = append(f.deactivate, id)
	}
	return nil
}

func (f *fakeDirectoryUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (f *fakeDirectoryUsers) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	f.revokedAll = append(f.revokedAll, userID)
	return nil
}

func directoryFixture() (*UserService, *fakeDirectoryUsers) {
	users := &fakeDirectoryUsers{
		byID: map[string]models.User{
			"user-1": {ID: "user-1", Email: "a@edu.test", FirstName: "Ada", LastName: "Lovelace", Active: true},
		},
		byEmail: map[string]models.User{
			"a@edu.test":     {ID: "user-1", Email: "a@edu.test"},
			"taken@edu.test": {ID: "user-2", Email: "taken@edu.test"},
		},
	}
	return NewUserService(users, nil, nil, nil, nil), users
}

func TestUpdateUser(t *testing.T) {
	svc, users := directoryFixture()

	updated, err := svc.UpdateUser(context.Background(), "user-1", UpdateUserRequest{
		FirstName: "Ada",
		LastName:  "King",
		Email:     "new@edu.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "King", updated.LastName)
	assert.Equal(t, "new@edu.test", updated.Email)
	require.Len(t, users.updated, 1)
}

func TestUpdateUserEmailConflict(t *testing.T) {
	svc, users := directoryFixture()

	_, err := svc.UpdateUser(context.Background(), "user-1", UpdateUserRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "taken@edu.test",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.updated)
}

func TestSetUserActiveDeactivationRevokesTokens(t *testing.T) {
	svc, users := directoryFixture()

	require.NoError(t, svc.SetUserActive(context.Background(), "user-1", false))
	assert.Contains(t, users.deactivate, "user-1")
	assert.Contains(t, users.revokedAll, "user-1")
}
