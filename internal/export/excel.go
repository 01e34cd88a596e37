package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"kladovka/internal/database"
	"kladovka/internal/models"
)

// WriteReservationsXLSX renders the ledger as a single-sheet workbook, one
// row per (reservation, entry) pair.
func WriteReservationsXLSX(w io.Writer, rows []database.ReservationRow) error {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Reservations"
	file.SetSheetName("Sheet1", sheet)

	header := []string{"Reservation ID", "Entry ID", "Entry Name", "Made By", "Start", "End"}
	for i, col := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	// Bold header row
	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = file.SetCellStyle(sheet, startCell, endCell, style)
	}

	for i, row := range rows {
		values := []any{
			row.ID,
			row.EntryID,
			row.EntryName,
			row.MadeBy,
			row.Start.UTC().Format(models.TimeLayout),
			row.End.UTC().Format(models.TimeLayout),
		}
		for j, val := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	return file.Write(w)
}
