package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// AttendanceRow is one student line in a course attendance report.
type AttendanceRow struct {
	RollNumber string
	Name       string
	Present    int
	Absent     int
	Percentage float64
}

// AttendanceReport is the content of a rendered course report.
type AttendanceReport struct {
	CourseCode    string
	CourseTitle   string
	TotalSessions int
	Average       float64
	Rows          []AttendanceRow
}

var reportColumns = []string{"Roll Number", "Name", "Present", "Absent", "Percentage"}

// CSVExporter renders attendance reports as CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces one record per student, ordered as the report lists them.
func (e *CSVExporter) Render(report AttendanceReport) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(reportColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range report.Rows {
		record := []string{
			row.RollNumber,
			row.Name,
			strconv.Itoa(row.Present),
			strconv.Itoa(row.Absent),
			fmt.Sprintf("%.2f", row.Percentage),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
