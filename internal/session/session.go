// Package session provides the in-memory store of web/bot login sessions.
// Sessions are deliberately not persisted: a process restart invalidates
// every credential.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"kladovka/internal/clock"
	"kladovka/internal/metrics"
)

const tokenBytes = 32 // 256 bits of entropy per token

// Session is what a valid token resolves to.
type Session struct {
	Username  string
	LogoutKey string
	ExpiresAt time.Time
}

type entry struct {
	username  string
	logoutKey string
	expiresAt time.Time
}

// Store maps opaque tokens to sessions with per-entry expiry. Reads take the
// shared lock and never block each other; writes are exclusive. There is no
// I/O behind the lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry
	clock    clock.Clock
}

// NewStore builds an empty store using the given clock.
func NewStore(clk clock.Clock) *Store {
	return &Store{
		sessions: make(map[string]entry),
		clock:    clk,
	}
}

// Create registers a session for username lasting duration and returns the
// session token plus a logout key. The logout key authorizes termination
// without knowing the token itself.
func (s *Store) Create(username string, duration time.Duration) (token, logoutKey string, err error) {
	token, err = randomKey()
	if err != nil {
		return "", "", err
	}
	logoutKey, err = randomKey()
	if err != nil {
		return "", "", err
	}

	s.mu.Lock()
	s.sessions[token] = entry{
		username:  username,
		logoutKey: logoutKey,
		expiresAt: s.clock.Now().Add(duration),
	}
	s.mu.Unlock()

	metrics.IncSessionCreated()
	return token, logoutKey, nil
}

// Check resolves a token. An expired entry is absent even if no sweep has run
// yet; the sweep only bounds memory, it is not the expiry mechanism.
func (s *Store) Check(token string) (Session, bool) {
	s.mu.RLock()
	e, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok || !s.clock.Now().Before(e.expiresAt) {
		return Session{}, false
	}
	return Session{Username: e.username, LogoutKey: e.logoutKey, ExpiresAt: e.expiresAt}, true
}

// Delete removes a session unconditionally. Returns true iff it existed,
// expired or not.
func (s *Store) Delete(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok
}

// DeleteByLogoutKey removes whichever session holds the given logout key.
func (s *Store) DeleteByLogoutKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, e := range s.sessions {
		if e.logoutKey == key {
			delete(s.sessions, token)
			return true
		}
	}
	return false
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	if removed > 0 {
		metrics.AddSessionsSwept(removed)
	}
	return removed
}

// Len reports the number of entries still occupying memory, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper sweeps on the given interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func randomKey() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
