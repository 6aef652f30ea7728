package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders attendance reports as a tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a one-table PDF with a course header and summary line.
func (e *PDFExporter) Render(report AttendanceReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 15, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, fmt.Sprintf("Attendance Report - %s", report.CourseCode), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, report.CourseTitle, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6,
		fmt.Sprintf("Sessions held: %d    Course average: %.2f%%", report.TotalSessions, report.Average),
		"", 1, "C", false, 0, "")
	pdf.Ln(4)

	widths := []float64{35, 75, 22, 22, 32}
	pdf.SetFont("Arial", "B", 10)
	for i, col := range reportColumns {
		pdf.CellFormat(widths[i], 8, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range report.Rows {
		pdf.CellFormat(widths[0], 7, row.RollNumber, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], 7, row.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%d", row.Present), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("%d", row.Absent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, fmt.Sprintf("%.2f%%", row.Percentage), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
