package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"kladovka/internal/clock"
	"kladovka/internal/events"
	"kladovka/internal/metrics"
	"kladovka/internal/models"
)

// ErrEntryNotFound means a reservation named an entry id that does not exist.
// Plain lookups report absence as an empty result instead; this error only
// fires for ids the caller explicitly submitted for booking.
var ErrEntryNotFound = errors.New("entry not found")

// Repository is the storage surface the booking service needs.
type Repository interface {
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	ListEntries(ctx context.Context) ([]models.Entry, error)
	SearchEntries(ctx context.Context, term string, limit int) ([]models.Entry, error)
	Overlapping(ctx context.Context, entryID string, start, end time.Time) (*models.ReservationInfo, error)
	Reserve(ctx context.Context, entryIDs []string, window models.Window, madeBy string) (*models.Reservation, error)
	AddToCart(ctx context.Context, userID, entryID string) error
	RemoveFromCart(ctx context.Context, userID, entryID string) (bool, error)
	GetCart(ctx context.Context, userID string) ([]models.Entry, error)
	CartEntryIDs(ctx context.Context, userID string) ([]string, error)
	ClearCart(ctx context.Context, userID string) error
}

// EventBus is the publish side of the in-process event bus.
type EventBus interface {
	Publish(event events.Event)
}

// SearchCache caches search results; nil disables caching.
type SearchCache interface {
	GetSearch(ctx context.Context, term string, limit int) ([]models.Entry, bool)
	SetSearch(ctx context.Context, term string, limit int, entries []models.Entry)
}

// BookingService orchestrates the entry store, reservation ledger and cart.
type BookingService struct {
	repo   Repository
	bus    EventBus
	cache  SearchCache
	clock  clock.Clock
	logger *zerolog.Logger
}

// NewBookingService wires the service. cache may be nil.
func NewBookingService(repo Repository, bus EventBus, cache SearchCache, clk clock.Clock, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:   repo,
		bus:    bus,
		cache:  cache,
		clock:  clk,
		logger: logger,
	}
}

// Check reports whether the entry is free at the given instant.
func (s *BookingService) Check(ctx context.Context, entryID string, at time.Time) (*models.Availability, error) {
	// Storage granularity is one second, so probing with [at, at+1s) tests
	// exactly "start <= at < end" against existing windows.
	existing, err := s.repo.Overlapping(ctx, entryID, at, at.Add(time.Second))
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &models.Availability{Free: true}, nil
	}
	return &models.Availability{
		Free:       false,
		ReservedBy: existing.Reserver,
		Window:     existing.Window,
	}, nil
}

// Reserve claims every entry for the window on behalf of madeBy. The window
// and the entry ids are validated before any ledger write; a *models.Conflict
// from the ledger passes through unchanged for the caller to handle.
func (s *BookingService) Reserve(ctx context.Context, entryIDs []string, window models.Window, madeBy string) (*models.Reservation, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if len(entryIDs) == 0 {
		return nil, models.ErrNoEntries
	}

	for _, id := range entryIDs {
		entry, err := s.repo.GetEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
	}

	reservation, err := s.repo.Reserve(ctx, entryIDs, window, madeBy)
	if err != nil {
		var conflict *models.Conflict
		if errors.As(err, &conflict) {
			metrics.IncReservationConflict()
		}
		return nil, err
	}

	metrics.IncReservationCreated()
	s.bus.Publish(events.Event{Type: events.TypeReservationCreated, Payload: reservation})
	return reservation, nil
}

// ReserveCart converts the user's staged cart into a reservation and clears
// the cart on success. Ids staged for entries that no longer (or never did)
// exist fail here; the cart itself never validates them.
func (s *BookingService) ReserveCart(ctx context.Context, userID string, window models.Window) (*models.Reservation, error) {
	ids, err := s.repo.CartEntryIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	reservation, err := s.Reserve(ctx, ids, window, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ClearCart(ctx, userID); err != nil {
		// The reservation is already committed; the state is consistent, the
		// user just keeps a stale cart.
		s.logger.Error().Err(err).Str("user", userID).Msg("failed to clear cart after reservation")
	}
	return reservation, nil
}

// Search looks entries up by substring, consulting the cache when configured.
func (s *BookingService) Search(ctx context.Context, term string, limit int) ([]models.Entry, error) {
	if s.cache != nil {
		if entries, ok := s.cache.GetSearch(ctx, term, limit); ok {
			metrics.IncSearch("cache")
			return entries, nil
		}
	}

	entries, err := s.repo.SearchEntries(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	metrics.IncSearch("db")

	if s.cache != nil {
		s.cache.SetSearch(ctx, term, limit, entries)
	}
	return entries, nil
}

// Entry returns a single entry or nil if it does not exist.
func (s *BookingService) Entry(ctx context.Context, id string) (*models.Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

// Entries returns the whole inventory.
func (s *BookingService) Entries(ctx context.Context) ([]models.Entry, error) {
	return s.repo.ListEntries(ctx)
}

// AddToCart stages entries for the user. Unknown ids are tolerated here and
// rejected at reservation time.
func (s *BookingService) AddToCart(ctx context.Context, userID string, entryIDs ...string) error {
	for _, id := range entryIDs {
		if err := s.repo.AddToCart(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFromCart returns true if the entry was actually staged.
func (s *BookingService) RemoveFromCart(ctx context.Context, userID, entryID string) (bool, error) {
	return s.repo.RemoveFromCart(ctx, userID, entryID)
}

// Cart returns the user's staged entries ordered by name.
func (s *BookingService) Cart(ctx context.Context, userID string) ([]models.Entry, error) {
	return s.repo.GetCart(ctx, userID)
}

// Now exposes the injected clock, mostly for the glue layers.
func (s *BookingService) Now() time.Time {
	return s.clock.Now()
}
