package database

import (
	"context"
	"database/sql"
	"fmt"

	"kladovka/internal/models"
)

// AddUser registers a user, keyed by telegram username.
func (db *DB) AddUser(ctx context.Context, user *models.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (telegram_username, sire)
		VALUES (?, ?)`,
		user.TelegramUsername, user.Sire,
	)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

// GetUser returns the user with the given telegram username, or nil.
func (db *DB) GetUser(ctx context.Context, telegramUsername string) (*models.User, error) {
	var u models.User
	var sire sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT telegram_username, sire
		FROM users
		WHERE telegram_username = ?`,
		telegramUsername,
	).Scan(&u.TelegramUsername, &sire)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if sire.Valid {
		u.Sire = &sire.String
	}
	return &u, nil
}
