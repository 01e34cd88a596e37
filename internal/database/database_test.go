package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"kladovka/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func seedEntry(t *testing.T, db *DB, id, name string) {
	t.Helper()
	err := db.AddEntry(context.Background(), &models.Entry{ID: id, Name: name})
	require.NoError(t, err)
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func window(startHour, endHour int) models.Window {
	return models.Window{Start: at(startHour, 0), End: at(endHour, 0)}
}
