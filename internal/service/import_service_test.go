package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

type mockRegistrar struct {
	seen    []models.RegisterRequest
	failFor map[string]error
}

func (m *mockRegistrar) RegisterStudent(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	m.seen = append(m.seen, req)
	if err, ok := m.failFor[req.RollNumber]; ok {
		return nil, err
	}
	return &models.UserInfo{ID: "user-" + req.RollNumber, Role: models.RoleStudent}, nil
}

const importCSVHeader = "username,email,password,first_name,last_name,roll_number,enrollment_year,department,semester,section\n"

func TestImportStudentsPartialSuccess(t *testing.T) {
	registrar := &mockRegistrar{failFor: map[string]error{
		"CS-002": appErrors.Clone(appErrors.ErrConflict, "roll number already registered"),
	}}
	svc := NewImportService(registrar, nil)

	csv := importCSVHeader +
		"alice,alice@example.com,secret123,Alice,A,CS-001,2026,CSE,1,A\n" +
		"bob,bob@example.com,secret123,Bob,B,CS-002,2026,CSE,1,A\n" +
		"carol,carol@example.com,secret123,Carol,C,CS-003,notayear,CSE,1,A\n"

	result, err := svc.ImportStudents(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "roll number")
	assert.Equal(t, 4, result.Errors[1].Row)
	assert.Contains(t, result.Errors[1].Message, "enrollment year")
	// The bad-year row never reached the registrar.
	assert.Len(t, registrar.seen, 2)
}

func TestImportStudentsRejectsWrongHeader(t *testing.T) {
	svc := NewImportService(&mockRegistrar{}, nil)

	_, err := svc.ImportStudents(context.Background(), strings.NewReader("name,email\nfoo,bar\n"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestImportStudentsEmptyFileRejected(t *testing.T) {
	svc := NewImportService(&mockRegistrar{}, nil)

	_, err := svc.ImportStudents(context.Background(), strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
