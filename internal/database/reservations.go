package database

import (
	"context"
	"crypto/sha512"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"kladovka/internal/models"
)

// ReservationID derives the reservation id from the window and the reserver.
// Identical requests hash to the same id, making repeated submissions
// idempotent at the id level. This does not replace the overlap check.
func ReservationID(start, end time.Time, madeBy string) string {
	h := sha512.New()
	h.Write([]byte(start.UTC().Format(models.TimeLayout)))
	h.Write([]byte(end.UTC().Format(models.TimeLayout)))
	h.Write([]byte(madeBy))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Overlapping returns the earliest-starting reservation whose window overlaps
// [start, end) for the given entry, or nil if the entry is free. Equal starts
// tie-break on reservation id. The comparison is strict on both sides, so a
// reservation ending exactly at start is not a conflict.
func (db *DB) Overlapping(ctx context.Context, entryID string, start, end time.Time) (*models.ReservationInfo, error) {
	return overlapping(ctx, db.DB, entryID, start, end)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func overlapping(ctx context.Context, q querier, entryID string, start, end time.Time) (*models.ReservationInfo, error) {
	startStr := start.UTC().Format(models.TimeLayout)
	endStr := end.UTC().Format(models.TimeLayout)

	var info models.ReservationInfo
	var rowStart, rowEnd string
	err := q.QueryRowContext(ctx, `
		SELECT r.id, r.made_by, r.start_ts, r.end_ts
		FROM reservations_entries re
		JOIN reservations r ON re.reservation_id = r.id
		WHERE re.entry_id = ?
		  AND r.start_ts < ?
		  AND r.end_ts > ?
		ORDER BY r.start_ts ASC, r.id ASC
		LIMIT 1`,
		entryID, endStr, startStr,
	).Scan(&info.ID, &info.Reserver, &rowStart, &rowEnd)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("overlap lookup: %w", err)
	}

	if info.Window.Start, err = time.ParseInLocation(models.TimeLayout, rowStart, time.UTC); err != nil {
		return nil, fmt.Errorf("bad start_ts %q: %w", rowStart, err)
	}
	if info.Window.End, err = time.ParseInLocation(models.TimeLayout, rowEnd, time.UTC); err != nil {
		return nil, fmt.Errorf("bad end_ts %q: %w", rowEnd, err)
	}
	return &info, nil
}

// Reserve claims every entry in entryIDs for the window, atomically. If any
// entry is already taken the whole call fails with *models.Conflict naming the
// first conflicting entry, and nothing is written. The overlap check runs
// inside the same immediate transaction as the inserts, so two racing calls
// for the same entry cannot both pass it.
func (db *DB) Reserve(ctx context.Context, entryIDs []string, window models.Window, madeBy string) (*models.Reservation, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if len(entryIDs) == 0 {
		return nil, models.ErrNoEntries
	}

	startStr := window.Start.UTC().Format(models.TimeLayout)
	endStr := window.End.UTC().Format(models.TimeLayout)
	reservationID := ReservationID(window.Start, window.End, madeBy)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, entryID := range entryIDs {
		existing, err := overlapping(ctx, tx, entryID, window.Start, window.End)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &models.Conflict{EntryID: entryID, Existing: *existing}
		}
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (id, start_ts, end_ts, made_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		reservationID, startStr, endStr, madeBy, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}

	for _, entryID := range entryIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservations_entries (reservation_id, entry_id)
			VALUES (?, ?)`,
			reservationID, entryID,
		)
		if err != nil {
			return nil, fmt.Errorf("insert reservation entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &models.Reservation{
		ID:        reservationID,
		Window:    window,
		EntryIDs:  append([]string(nil), entryIDs...),
		MadeBy:    madeBy,
		CreatedAt: now,
	}, nil
}

// CancelReservation removes a reservation and its entry associations.
// Returns true if a reservation existed.
func (db *DB) CancelReservation(ctx context.Context, id string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations_entries WHERE reservation_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete reservation entries: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return affected > 0, nil
}

// ReservationRow is a flattened ledger row used for exports.
type ReservationRow struct {
	ID        string
	EntryID   string
	EntryName string
	MadeBy    string
	Start     time.Time
	End       time.Time
}

// ListReservations returns the full ledger joined against entries, ordered by
// start time then entry id.
func (db *DB) ListReservations(ctx context.Context) ([]ReservationRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.id, re.entry_id, COALESCE(e.name, ''), r.made_by, r.start_ts, r.end_ts
		FROM reservations r
		JOIN reservations_entries re ON re.reservation_id = r.id
		LEFT JOIN entries e ON e.id = re.entry_id
		ORDER BY r.start_ts, re.entry_id`)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []ReservationRow
	for rows.Next() {
		var row ReservationRow
		var startStr, endStr string
		if err := rows.Scan(&row.ID, &row.EntryID, &row.EntryName, &row.MadeBy, &startStr, &endStr); err != nil {
			return nil, err
		}
		if row.Start, err = time.ParseInLocation(models.TimeLayout, startStr, time.UTC); err != nil {
			return nil, fmt.Errorf("bad start_ts %q: %w", startStr, err)
		}
		if row.End, err = time.ParseInLocation(models.TimeLayout, endStr, time.UTC); err != nil {
			return nil, fmt.Errorf("bad end_ts %q: %w", endStr, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
