package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() AttendanceReport {
	return AttendanceReport{
		CourseCode:    "CS101",
		CourseTitle:   "Intro to Computing",
		TotalSessions: 10,
		Average:       85.5,
		Rows: []AttendanceRow{
			{RollNumber: "21CS001", Name: "Ada Lovelace", Present: 9, Absent: 1, Percentage: 90},
			{RollNumber: "21CS002", Name: "Alan Turing", Present: 8, Absent: 2, Percentage: 80},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)

	content := string(out)
	assert.Contains(t, content, "Roll Number,Name,Present,Absent,Percentage")
	assert.Contains(t, content, "21CS001,Ada Lovelace,9,1,90.00")
	assert.Contains(t, content, "21CS002,Alan Turing,8,2,80.00")
}

func TestCSVExporterEmptyRoster(t *testing.T) {
	report := sampleReport()
	report.Rows = nil

	out, err := NewCSVExporter().Render(report)
	require.NoError(t, err)
	assert.Equal(t, "Roll Number,Name,Present,Absent,Percentage\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, len(out) > 0)
	assert.Equal(t, "%PDF", string(out[:4]))
}
