package weather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickingProvider(clock *time.Time) *fakeProvider {
	return &fakeProvider{
		fetch: func(city string, _ User) (Observation, error) {
			return Observation{
				ObservedAt:  *clock,
				City:        city,
				Temperature: 20.5,
				FeelsLike:   19.0,
				Pressure:    1015,
				Humidity:    65,
			}, nil
		},
	}
}

func TestCacheHitReturnsSameObservation(t *testing.T) {
	now := time.Now().UTC()
	inner := tickingProvider(&now)

	cached := NewCachingProvider(inner, 30*time.Minute)
	cached.now = func() time.Time { return now }

	first, err := cached.Fetch(context.Background(), "Kazan", User{TelegramID: 1})
	require.NoError(t, err)

	now = now.Add(time.Minute)

	second, err := cached.Fetch(context.Background(), "Kazan", User{TelegramID: 1})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Now().UTC()
	inner := tickingProvider(&now)

	cached := NewCachingProvider(inner, 30*time.Minute)
	cached.now = func() time.Time { return now }

	first, err := cached.Fetch(context.Background(), "Kazan", User{TelegramID: 1})
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)

	third, err := cached.Fetch(context.Background(), "Kazan", User{TelegramID: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.NotEqual(t, first.ObservedAt, third.ObservedAt)
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	failing := true
	inner := &fakeProvider{
		fetch: func(city string, _ User) (Observation, error) {
			if failing {
				return Observation{}, &ProviderError{Message: "upstream down"}
			}
			return Observation{ObservedAt: time.Now().UTC(), City: city}, nil
		},
	}

	cached := NewCachingProvider(inner, 30*time.Minute)

	_, err := cached.Fetch(context.Background(), "Kazan", User{})
	require.Error(t, err)

	_, err = cached.Fetch(context.Background(), "Kazan", User{})
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls, "errors must not be replayed from cache")

	failing = false
	_, err = cached.Fetch(context.Background(), "Kazan", User{})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCacheIsKeyedByCityOnly(t *testing.T) {
	now := time.Now().UTC()
	inner := tickingProvider(&now)

	cached := NewCachingProvider(inner, 30*time.Minute)

	first, err := cached.Fetch(context.Background(), "London", User{TelegramID: 1})
	require.NoError(t, err)

	// A different user within the TTL window sees the same cached values.
	second, err := cached.Fetch(context.Background(), "London", User{TelegramID: 2})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = cached.Fetch(context.Background(), "Moscow", User{TelegramID: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCacheErrorKeepsExpiredEntryOut(t *testing.T) {
	now := time.Now().UTC()
	failing := false
	inner := &fakeProvider{
		fetch: func(city string, _ User) (Observation, error) {
			if failing {
				return Observation{}, &ProviderError{Message: "upstream down"}
			}
			return Observation{ObservedAt: now, City: city}, nil
		},
	}

	cached := NewCachingProvider(inner, 30*time.Minute)
	cached.now = func() time.Time { return now }

	_, err := cached.Fetch(context.Background(), "Kazan", User{})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	failing = true

	// The expired entry must not be served in place of the error.
	_, err = cached.Fetch(context.Background(), "Kazan", User{})
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
