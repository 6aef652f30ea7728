package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/edutrack/attendance-api/internal/models"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
)

// maxImportErrors caps how many row errors are echoed back to the
// caller. The counts stay exact; only the detail list is truncated.
const maxImportErrors = 50

var importHeader = []string{"username", "email", "password", "first_name", "last_name", "roll_number", "enrollment_year", "department", "semester", "section"}

type studentRegistrar interface {
	RegisterStudent(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error)
}

// ImportService bulk-creates student accounts from CSV uploads. Rows
// fail independently; one bad row never aborts the batch.
type ImportService struct {
	registrar studentRegistrar
	logger    *zap.Logger
}

// NewImportService constructs an ImportService instance.
func NewImportService(registrar studentRegistrar, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{registrar: registrar, logger: logger}
}

// ImportStudents parses the CSV stream and registers each row.
func (s *ImportService) ImportStudents(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty or unreadable CSV file")
	}
	if err := validateHeader(header); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	result := &models.ImportResult{}
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Failed++
			s.addError(result, rowNum, "malformed CSV row")
			continue
		}

		req, err := rowToRequest(record)
		if err != nil {
			result.Failed++
			s.addError(result, rowNum, err.Error())
			continue
		}

		if _, err := s.registrar.RegisterStudent(ctx, req); err != nil {
			result.Failed++
			s.addError(result, rowNum, appErrors.FromError(err).Message)
			continue
		}
		result.Created++
	}

	s.logger.Info("student import finished",
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (s *ImportService) addError(result *models.ImportResult, row int, message string) {
	if len(result.Errors) >= maxImportErrors {
		result.ErrorsOmitted++
		return
	}
	result.Errors = append(result.Errors, models.ImportRowError{Row: row, Message: message})
}

func validateHeader(header []string) error {
	if len(header) != len(importHeader) {
		return fmt.Errorf("expected %d columns, got %d", len(importHeader), len(header))
	}
	for i, want := range importHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return fmt.Errorf("column %d must be %q", i+1, want)
		}
	}
	return nil
}

func rowToRequest(record []string) (models.RegisterRequest, error) {
	if len(record) != len(importHeader) {
		return models.RegisterRequest{}, fmt.Errorf("expected %d fields, got %d", len(importHeader), len(record))
	}

	year, err := strconv.Atoi(strings.TrimSpace(record[6]))
	if err != nil {
		return models.RegisterRequest{}, fmt.Errorf("invalid enrollment year %q", record[6])
	}
	semester, err := strconv.Atoi(strings.TrimSpace(record[8]))
	if err != nil {
		return models.RegisterRequest{}, fmt.Errorf("invalid semester %q", record[8])
	}

	return models.RegisterRequest{
		Username:       strings.TrimSpace(record[0]),
		Email:          strings.TrimSpace(record[1]),
		Password:       record[2],
		FirstName:      strings.TrimSpace(record[3]),
		LastName:       strings.TrimSpace(record[4]),
		RollNumber:     strings.TrimSpace(record[5]),
		EnrollmentYear: year,
		Department:     strings.TrimSpace(record[7]),
		Semester:       semester,
		Section:        strings.TrimSpace(record[9]),
	}, nil
}
