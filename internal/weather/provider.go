package weather

import (
	"context"
)

// Provider abstracts a source of current weather (e.g. OpenWeatherMap).
// The user identifies who asked; raw upstream adapters ignore it, the
// persisting decorator uses it to attribute the stored observation.
type Provider interface {
	Fetch(ctx context.Context, city string, user User) (Observation, error)
}

// HistoryStore persists observations and serves history queries.
// Implementations must be safe for concurrent use.
type HistoryStore interface {
	// Save records one observation attributed to the given user.
	Save(ctx context.Context, obs Observation, user User) error

	// HistoryByCity returns up to limit observations for a city, most recent
	// first. No matching rows is an empty slice, not an error. A
	// non-positive limit returns an empty slice.
	HistoryByCity(ctx context.Context, limit int, city string) ([]Observation, error)

	// HistoryByUser is HistoryByCity scoped to one user's observations.
	HistoryByUser(ctx context.Context, limit int, telegramID int64) ([]Observation, error)
}

// UserStore maps durable authorization tokens to users.
type UserStore interface {
	// GetByToken returns the user bound to the token, or ErrNotFound.
	GetByToken(ctx context.Context, token string) (User, error)

	// Upsert binds a fresh authorization token to a Telegram identity,
	// replacing any token issued earlier.
	Upsert(ctx context.Context, telegramID int64, token string) error
}

// PendingLoginStore holds single-use login request tokens.
type PendingLoginStore interface {
	// Add records a pending login. Re-adding an existing token overwrites it.
	Add(ctx context.Context, token, callbackURL string) error

	// Consume atomically reads and deletes the entry for token, returning
	// its callback URL. A consumed or unknown token yields ErrNotFound, so
	// replaying a confirmation is impossible by construction.
	Consume(ctx context.Context, token string) (string, error)
}

// Broadcaster receives observations freshly fetched from upstream.
type Broadcaster interface {
	BroadcastObservation(obs Observation)
}
