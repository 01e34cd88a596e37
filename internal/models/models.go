package models

import (
	"errors"
	"fmt"
	"time"
)

// TimeLayout is the layout reservations are stored with. It also feeds the
// deterministic reservation id hash, so it must never change once data exists.
const TimeLayout = "2006-01-02 15:04:05"

var (
	ErrInvalidWindow = errors.New("window start must be before end")
	ErrNoEntries     = errors.New("reservation needs at least one entry")
)

// User is a person known to the bot, keyed by telegram username.
type User struct {
	TelegramUsername string  `json:"telegram_username"`
	Sire             *string `json:"sire,omitempty"`
}

// Entry is a trackable physical inventory item.
type Entry struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Image             *string    `json:"image,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Note              *string    `json:"note,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	StoredIn          *string    `json:"stored_in,omitempty"`
	ResponsiblePerson *string    `json:"responsible_person,omitempty"`
}

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow builds a validated window.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	return w, w.Validate()
}

// Validate rejects empty and inverted windows.
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Overlaps reports whether two half-open windows intersect. A window ending
// exactly when another begins does not overlap, so back-to-back bookings are
// legal.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Contains reports whether the instant falls inside the window.
func (w Window) Contains(at time.Time) bool {
	return !at.Before(w.Start) && at.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.UTC().Format(TimeLayout), w.End.UTC().Format(TimeLayout))
}

// Reservation is a claim on one or more entries for a window.
type Reservation struct {
	ID        string    `json:"id"`
	Window    Window    `json:"window"`
	EntryIDs  []string  `json:"entry_ids"`
	MadeBy    string    `json:"made_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ReservationInfo describes an existing claim on a single entry, as reported
// by an overlap lookup.
type ReservationInfo struct {
	ID       string `json:"id"`
	Reserver string `json:"reserver"`
	Window   Window `json:"window"`
}

// Conflict is the outcome of a reservation attempt whose window overlaps an
// existing claim on a shared entry. It is an expected result the caller must
// handle, not a fault.
type Conflict struct {
	EntryID  string          `json:"entry_id"`
	Existing ReservationInfo `json:"existing"`
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("entry %s already reserved by %s for %s", c.EntryID, c.Existing.Reserver, c.Existing.Window)
}

// Availability is the answer to "is this entry free at this instant".
type Availability struct {
	Free       bool   `json:"free"`
	ReservedBy string `json:"reserved_by,omitempty"`
	Window     Window `json:"window,omitzero"`
}
