package database

import (
	"context"
	"fmt"

	"kladovka/internal/models"
)

// AddToCart stages an entry for later reservation. Adding a pair that is
// already present is a no-op. The entry id is not validated here; validation
// happens when the cart is converted into a reservation.
func (db *DB) AddToCart(ctx context.Context, userID, entryID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO cart (id, entry_id)
		VALUES (?, ?)`,
		userID, entryID,
	)
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

// RemoveFromCart returns true if a row was actually deleted.
func (db *DB) RemoveFromCart(ctx context.Context, userID, entryID string) (bool, error) {
	result, err := db.ExecContext(ctx, `
		DELETE FROM cart
		WHERE id = ? AND entry_id = ?`,
		userID, entryID,
	)
	if err != nil {
		return false, fmt.Errorf("remove from cart: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetCart returns the user's staged entries ordered by entry name.
func (db *DB) GetCart(ctx context.Context, userID string) ([]models.Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.name, e.image, e.description, e.note,
		       e.created_at, e.stored_in, e.responsible_person
		FROM cart c
		JOIN entries e ON e.id = c.entry_id
		WHERE c.id = ?
		ORDER BY e.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ClearCart drops every staged entry for the user, used once a cart has been
// converted into a reservation.
func (db *DB) ClearCart(ctx context.Context, userID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM cart WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// CartEntryIDs returns just the staged entry ids, including ids that do not
// reference an existing entry.
func (db *DB) CartEntryIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT entry_id FROM cart WHERE id = ? ORDER BY entry_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("cart entry ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
