// Package export renders the inventory and the reservation ledger into
// downloadable formats.
package export

import (
	"encoding/csv"
	"io"

	"kladovka/internal/models"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteEntriesCSV streams the inventory as CSV, one row per entry.
func WriteEntriesCSV(w io.Writer, entries []models.Entry) error {
	wtr := csv.NewWriter(w)

	header := []string{"id", "name", "image", "description", "note", "created_at", "stored_in", "responsible_person"}
	if err := wtr.Write(header); err != nil {
		return err
	}

	for _, e := range entries {
		createdAt := ""
		if e.CreatedAt != nil {
			createdAt = e.CreatedAt.UTC().Format(models.TimeLayout)
		}
		record := []string{
			e.ID,
			e.Name,
			deref(e.Image),
			deref(e.Description),
			deref(e.Note),
			createdAt,
			deref(e.StoredIn),
			deref(e.ResponsiblePerson),
		}
		if err := wtr.Write(record); err != nil {
			return err
		}
	}

	wtr.Flush()
	return wtr.Error()
}
