// Package export renders event data into spreadsheet files for organizers.
package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hrhgit/loginweb-cli/internal/models"
)

// ErrNoRegistrations is returned when an export is requested for an event
// with nothing to export.
var ErrNoRegistrations = errors.New("no registrations to export")

const sheetName = "Registrations"

// Fixed columns preceding the per-question columns.
var fixedHeaders = []string{"Name", "Email", "Status", "Registered At"}

// Registrations writes an xlsx workbook with one row per registration. Fixed
// identity columns come first, followed by one column per form question in
// form order. Answers missing from a registration render as empty cells.
func Registrations(w io.Writer, regs []models.Registration, questions []models.Question) error {
	if len(regs) == 0 {
		return ErrNoRegistrations
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := make([]string, 0, len(fixedHeaders)+len(questions))
	headers = append(headers, fixedHeaders...)
	for _, q := range questions {
		headers = append(headers, q.Title)
	}
	if err := writeRow(f, 1, headers); err != nil {
		return err
	}

	for i, reg := range regs {
		row := make([]string, 0, len(headers))
		row = append(row,
			userName(reg),
			userEmail(reg),
			reg.Status,
			reg.CreatedAt.Format(time.RFC3339),
		)
		for _, q := range questions {
			row = append(row, reg.Answer(q.ID))
		}
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

func userName(reg models.Registration) string {
	if reg.User != nil {
		return reg.User.Name
	}
	return ""
}

func userEmail(reg models.Registration) string {
	if reg.User != nil {
		return reg.User.Email
	}
	return ""
}
