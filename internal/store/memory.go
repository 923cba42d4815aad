package store

import (
	"context"
	"sync"
	"time"

	"weathertracker/internal/weather"
)

type pendingLogin struct {
	callbackURL string
	expiresAt   time.Time
}

// MemoryLoginStore is a concurrency-safe in-memory implementation of
// weather.PendingLoginStore. Entries expire after a TTL, checked lazily on
// Consume; a never-confirmed login is reclaimed the next time its token is
// tried.
type MemoryLoginStore struct {
	mu sync.Mutex

	// key: request token
	entries map[string]pendingLogin

	ttl time.Duration // <= 0 means entries never expire

	now func() time.Time // stubbed in tests
}

// NewMemoryLoginStore creates a new MemoryLoginStore with the given entry TTL.
func NewMemoryLoginStore(ttl time.Duration) *MemoryLoginStore {
	return &MemoryLoginStore{
		entries: make(map[string]pendingLogin),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Add records a pending login. Re-adding an existing token overwrites the
// previous entry and restarts its TTL.
func (s *MemoryLoginStore) Add(_ context.Context, token, callbackURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := pendingLogin{callbackURL: callbackURL}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[token] = entry

	return nil
}

// Consume atomically reads and deletes the entry for token. Unknown,
// already-consumed and expired tokens all report weather.ErrNotFound.
func (s *MemoryLoginStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return "", weather.ErrNotFound
	}
	delete(s.entries, token)

	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		return "", weather.ErrNotFound
	}

	return entry.callbackURL, nil
}
