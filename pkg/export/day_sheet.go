package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// DaySheetRow is one appointment line on a printable day sheet.
type DaySheetRow struct {
	Sequence  string
	TimeRange string
	Name      string
	Patient   string
	Office    string
	Assistant string
}

// DaySheet is a doctor's appointment list for a single date.
type DaySheet struct {
	ClinicName string
	DoctorName string
	Date       time.Time
	Rows       []DaySheetRow
}

var daySheetHeaders = []string{"No.", "Time", "Appointment", "Patient", "Office", "Assistant"}

func (d DaySheet) record(row DaySheetRow) []string {
	return []string{row.Sequence, row.TimeRange, row.Name, row.Patient, row.Office, row.Assistant}
}

// title builds the PDF heading. The core fonts are cp1252, so the separator
// stays plain ASCII.
func (d DaySheet) title() string {
	return fmt.Sprintf("%s - %s - %s", d.ClinicName, d.DoctorName, d.Date.Format("2006-01-02"))
}

// DaySheetExporter renders day sheets as CSV or PDF.
type DaySheetExporter struct{}

// NewDaySheetExporter builds a day-sheet exporter.
func NewDaySheetExporter() *DaySheetExporter {
	return &DaySheetExporter{}
}

// RenderCSV produces CSV encoded bytes for the day sheet.
func (e *DaySheetExporter) RenderCSV(sheet DaySheet) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(daySheetHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range sheet.Rows {
		if err := writer.Write(sheet.record(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF produces a tabular PDF document for the day sheet.
func (e *DaySheetExporter) RenderPDF(sheet DaySheet) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, sheet.title(), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(daySheetHeaders))
	for _, header := range daySheetHeaders {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range sheet.Rows {
		for _, cell := range sheet.record(row) {
			pdf.CellFormat(colWidth, 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
