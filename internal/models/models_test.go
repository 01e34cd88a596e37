package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestWindowValidate(t *testing.T) {
	_, err := NewWindow(ts(10, 0), ts(11, 0))
	assert.NoError(t, err)

	_, err = NewWindow(ts(11, 0), ts(10, 0))
	assert.ErrorIs(t, err, ErrInvalidWindow)

	// Zero-length window is invalid too
	_, err = NewWindow(ts(10, 0), ts(10, 0))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestWindowOverlaps(t *testing.T) {
	base := Window{Start: ts(10, 0), End: ts(11, 0)}

	tests := []struct {
		name    string
		other   Window
		overlap bool
	}{
		{"identical", Window{Start: ts(10, 0), End: ts(11, 0)}, true},
		{"contained", Window{Start: ts(10, 15), End: ts(10, 45)}, true},
		{"straddles start", Window{Start: ts(9, 30), End: ts(10, 30)}, true},
		{"straddles end", Window{Start: ts(10, 30), End: ts(11, 30)}, true},
		{"back-to-back after", Window{Start: ts(11, 0), End: ts(12, 0)}, false},
		{"back-to-back before", Window{Start: ts(9, 0), End: ts(10, 0)}, false},
		{"disjoint", Window{Start: ts(13, 0), End: ts(14, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlap, base.Overlaps(tt.other))
			assert.Equal(t, tt.overlap, tt.other.Overlaps(base))
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: ts(10, 0), End: ts(11, 0)}

	assert.True(t, w.Contains(ts(10, 0)), "start instant is inside")
	assert.True(t, w.Contains(ts(10, 30)))
	assert.False(t, w.Contains(ts(11, 0)), "end instant is excluded")
	assert.False(t, w.Contains(ts(9, 59)))
}

func TestConflictError(t *testing.T) {
	c := &Conflict{
		EntryID: "A1",
		Existing: ReservationInfo{
			Reserver: "bob",
			Window:   Window{Start: ts(9, 30), End: ts(9, 45)},
		},
	}

	msg := c.Error()
	assert.Contains(t, msg, "A1")
	assert.Contains(t, msg, "bob")
	assert.Contains(t, msg, "09:30")
}
