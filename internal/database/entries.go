package database

import (
	"context"
	"database/sql"
	"fmt"

	"kladovka/internal/models"
)

const entryColumns = `id, name, image, description, note, created_at, stored_in, responsible_person`

// AddEntry inserts a new inventory entry. Entry ids are assigned by the
// administrator and never change.
func (db *DB) AddEntry(ctx context.Context, entry *models.Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Name, entry.Image, entry.Description,
		entry.Note, entry.CreatedAt, entry.StoredIn, entry.ResponsiblePerson,
	)
	if err != nil {
		return fmt.Errorf("add entry: %w", err)
	}
	return nil
}

// GetEntry returns the entry with the given id, or nil if there is none.
// A missing entry is an empty result, not an error.
func (db *DB) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns every entry. Each call runs a fresh query.
func (db *DB) ListEntries(ctx context.Context) ([]models.Entry, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// SearchEntries returns up to limit entries whose id, name or description
// contains term. Results are ordered by id so the truncation point is
// deterministic.
func (db *DB) SearchEntries(ctx context.Context, term string, limit int) ([]models.Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE id LIKE '%' || ? || '%'
		   OR name LIKE '%' || ? || '%'
		   OR description LIKE '%' || ? || '%'
		ORDER BY id
		LIMIT ?`,
		term, term, term, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.Entry, error) {
	var e models.Entry
	var image, description, note, storedIn, responsible sql.NullString
	var createdAt sql.NullTime
	err := s.Scan(
		&e.ID, &e.Name, &image, &description,
		&note, &createdAt, &storedIn, &responsible,
	)
	if err != nil {
		return nil, err
	}
	if image.Valid {
		e.Image = &image.String
	}
	if description.Valid {
		e.Description = &description.String
	}
	if note.Valid {
		e.Note = &note.String
	}
	if createdAt.Valid {
		e.CreatedAt = &createdAt.Time
	}
	if storedIn.Valid {
		e.StoredIn = &storedIn.String
	}
	if responsible.Valid {
		e.ResponsiblePerson = &responsible.String
	}
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]models.Entry, error) {
	var entries []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
