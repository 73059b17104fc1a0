package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// ParticipantRow is one line of a participant roster export.
type ParticipantRow struct {
	Name         string
	Username     string
	StudentID    string
	Email        string
	Status       string
	CheckedIn    bool
	RegisteredAt time.Time
}

var participantHeaders = []string{"Name", "Username", "Student ID", "Email", "Status", "Checked In", "Registered At"}

// ParticipantsXLSX renders the roster as an Excel workbook.
func ParticipantsXLSX(title string, rows []ParticipantRow) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Participants"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheet, "A1", title)
	for i, h := range participantHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		row := i + 3
		checked := "no"
		if r.CheckedIn {
			checked = "yes"
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Name)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Username)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.StudentID)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.Email)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.Status)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), checked)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.RegisteredAt.Format("2006-01-02 15:04:05"))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParticipantsPDF renders the roster as a landscape A4 table.
func ParticipantsPDF(title string, rows []ParticipantRow) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	widths := []float64{50, 35, 30, 60, 25, 22, 45}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range participantHeaders {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, r := range rows {
		checked := "no"
		if r.CheckedIn {
			checked = "yes"
		}
		pdf.CellFormat(widths[0], 6, r.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, r.Username, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, r.StudentID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, r.Email, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, r.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[5], 6, checked, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[6], 6, r.RegisteredAt.Format("2006-01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
