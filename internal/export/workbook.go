package export

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"bus_portal/internal/models"
)

// ContentType of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Build creates a workbook with one sheet per SheetSpec, a bold filtered header
// row and heuristic column widths.
func Build(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	for i, s := range sheets {
		name := s.Title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", colName(col+1))
			if err := f.SetCellStr(name, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		end := colName(len(s.Header)) + "1"
		_ = f.SetCellStyle(name, "A1", end, bold)
		_ = f.AutoFilter(name, "A1:"+end, nil)

		for r, row := range s.Rows {
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
				if err := f.SetCellStr(name, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}

		for c := 1; c <= len(s.Header); c++ {
			width := len(s.Header[c-1])
			for r := 0; r < len(s.Rows) && r < 50; r++ {
				if c-1 < len(s.Rows[r]) && len(s.Rows[r][c-1]) > width {
					width = len(s.Rows[r][c-1])
				}
			}
			w := float64(width) * 0.9
			if w < 12 {
				w = 12
			}
			if w > 40 {
				w = 40
			}
			_ = f.SetColWidth(name, colName(c), colName(c), w)
		}
	}
	return f, nil
}

// Write renders the sheets as xlsx into w.
func Write(w io.Writer, sheets ...SheetSpec) error {
	f, err := Build(sheets)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}

func StudentsSheet(students []models.Student) SheetSpec {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		dob := ""
		if s.DateOfBirth != nil {
			dob = s.DateOfBirth.Format("2006-01-02")
		}
		rows = append(rows, []string{
			s.StudentID, s.Name, s.Email, s.Phone, dob, s.Department,
			strconv.Itoa(s.YearOfStudy), s.BoardingStop, s.TransportStatus,
			strconv.FormatBool(s.FirstLoginCompleted),
		})
	}
	return SheetSpec{
		Title: "Students",
		Header: []string{
			"Student ID", "Name", "Email", "Phone", "Date of birth", "Department",
			"Year", "Boarding stop", "Transport status", "First login done",
		},
		Rows: rows,
	}
}

func BookingsSheet(date string, bookings []models.Booking) SheetSpec {
	rows := make([][]string, 0, len(bookings))
	for _, b := range bookings {
		var student, roll, route string
		if b.Student != nil {
			student, roll = b.Student.Name, b.Student.StudentID
		}
		if b.Route != nil {
			route = b.Route.RouteNumber
		}
		rows = append(rows, []string{
			route, roll, student, b.BoardingStop, b.SeatNumber, b.Status,
			b.PaymentStatus, strconv.FormatFloat(b.Amount, 'f', 2, 64),
		})
	}
	return SheetSpec{
		Title:  "Bookings " + date,
		Header: []string{"Route", "Student ID", "Student", "Boarding stop", "Seat", "Status", "Payment", "Amount"},
		Rows:   rows,
	}
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

// Filename builds a safe attachment name.
func Filename(parts ...string) string {
	s := strings.Join(strings.Fields(strings.Join(parts, " ")), "_")
	return invalidFileRe.ReplaceAllString(s, "_") + ".xlsx"
}

func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}
