package weather

import (
	"context"
)

// PersistingProvider wraps a Provider and records every successful fetch in
// the history store before returning it. Errors from the wrapped provider
// pass through unchanged and nothing is written.
type PersistingProvider struct {
	wrapped Provider
	history HistoryStore
}

// NewPersistingProvider creates a write-through decorator over wrapped.
func NewPersistingProvider(wrapped Provider, history HistoryStore) *PersistingProvider {
	return &PersistingProvider{
		wrapped: wrapped,
		history: history,
	}
}

// Fetch delegates to the wrapped provider and saves the observation on
// success. A save failure fails the whole fetch: callers that query history
// right after a fetch rely on the write having happened.
func (p *PersistingProvider) Fetch(ctx context.Context, city string, user User) (Observation, error) {
	obs, err := p.wrapped.Fetch(ctx, city, user)
	if err != nil {
		return Observation{}, err
	}

	if err := p.history.Save(ctx, obs, user); err != nil {
		return Observation{}, err
	}

	return obs, nil
}
