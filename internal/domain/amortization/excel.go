package amortization

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Schedule"

// WriteXLSX exports the schedule as an Excel workbook for applicants who want
// the full payment plan.
func (s *Schedule) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to create schedule sheet: %w", err)
	}

	headers := []string{"Period", "Payment", "Interest", "Principal", "Balance"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, p := range s.Periods {
		row := p.Number + 1
		values := []interface{}{
			p.Number,
			p.Payment.Round(2).InexactFloat64(),
			p.Interest.Round(2).InexactFloat64(),
			p.Principal.Round(2).InexactFloat64(),
			p.Balance.Round(2).InexactFloat64(),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write period %d: %w", p.Number, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
