package appointments

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Appointments"

var exportColumns = []string{
	"ID", "Client", "Email", "Phone", "Date (UTC)", "Duration (min)", "Status",
	"Style", "Size", "Placement", "Deposit Paid", "Deposit", "Total", "Description",
}

// ExportXLSX writes the appointments as a single-sheet workbook.
func ExportXLSX(w io.Writer, list []*Appointment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("appointments: rename sheet: %w", err)
	}
	if err := writeRow(f, 1, toAny(exportColumns)); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		end, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = f.SetCellStyle(exportSheet, "A1", end, style)
	}

	for i, a := range list {
		row := []any{
			a.ID,
			a.ClientName,
			a.ClientEmail,
			a.ClientPhone,
			a.AppointmentDate.UTC().Format("2006-01-02 15:04"),
			a.Duration,
			string(a.Status),
			a.TattooStyle,
			a.Size,
			a.Location,
			a.DepositPaid,
			float64(a.DepositAmountCents) / 100,
			float64(a.TotalPriceCents) / 100,
			a.Description,
		}
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("appointments: write workbook: %w", err)
	}
	return nil
}

// ExportFilename names an export taken now.
func ExportFilename() string {
	return fmt.Sprintf("appointments-%s.xlsx", nowUTC().Format("20060102-1504"))
}

func writeRow(f *excelize.File, rowNum int, values []any) error {
	for col, val := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, val); err != nil {
			return fmt.Errorf("appointments: set %s: %w", cell, err)
		}
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
