package weather

import (
	"context"
)

// BroadcastingProvider wraps a Provider and pushes every freshly fetched
// observation to a broadcaster. Composed between the caching and persisting
// decorators, so cache hits never produce a broadcast.
type BroadcastingProvider struct {
	wrapped     Provider
	broadcaster Broadcaster
}

// NewBroadcastingProvider creates a broadcasting decorator over wrapped.
func NewBroadcastingProvider(wrapped Provider, broadcaster Broadcaster) *BroadcastingProvider {
	return &BroadcastingProvider{
		wrapped:     wrapped,
		broadcaster: broadcaster,
	}
}

func (b *BroadcastingProvider) Fetch(ctx context.Context, city string, user User) (Observation, error) {
	obs, err := b.wrapped.Fetch(ctx, city, user)
	if err != nil {
		return Observation{}, err
	}

	b.broadcaster.BroadcastObservation(obs)
	return obs, nil
}
