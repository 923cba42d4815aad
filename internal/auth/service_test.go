package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weathertracker/internal/store"
	"weathertracker/internal/weather"
)

type fakeUserStore struct {
	tokens    map[int64]string
	upsertErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{tokens: make(map[int64]string)}
}

func (f *fakeUserStore) GetByToken(_ context.Context, token string) (weather.User, error) {
	for id, t := range f.tokens {
		if t == token {
			return weather.User{TelegramID: id, AuthToken: t}, nil
		}
	}
	return weather.User{}, weather.ErrNotFound
}

func (f *fakeUserStore) Upsert(_ context.Context, telegramID int64, token string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.tokens[telegramID] = token
	return nil
}

func newTestService(users weather.UserStore) *Service {
	return NewService(users, store.NewMemoryLoginStore(0), "service-secret")
}

func TestConfirmExchangesTokenForCredentials(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestService(users)
	ctx := context.Background()

	require.NoError(t, svc.Initiate(ctx, "t1", "https://cb/x"))

	callback, err := svc.Confirm(ctx, "t1", 42, "service-secret")
	require.NoError(t, err)

	u, err := url.Parse(callback)
	require.NoError(t, err)
	assert.Equal(t, "cb", u.Host)

	q := u.Query()
	assert.Equal(t, "t1", q.Get("token"))
	assert.Equal(t, "42", q.Get("telegram_id"))

	authToken := q.Get("authorization_token")
	_, err = uuid.Parse(authToken)
	require.NoError(t, err, "authorization token must be a freshly minted uuid")
	assert.Equal(t, authToken, users.tokens[42])

	// The request token is single-use.
	_, err = svc.Confirm(ctx, "t1", 42, "service-secret")
	assert.ErrorIs(t, err, weather.ErrNotFound)
}

func TestConfirmWrongSecretDoesNotConsume(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestService(users)
	ctx := context.Background()

	require.NoError(t, svc.Initiate(ctx, "t1", "https://cb/x"))

	_, err := svc.Confirm(ctx, "t1", 42, "wrong-secret")
	assert.ErrorIs(t, err, weather.ErrForbidden)
	assert.Empty(t, users.tokens)

	// The pending entry survived, so a correct confirm still succeeds.
	_, err = svc.Confirm(ctx, "t1", 42, "service-secret")
	require.NoError(t, err)
}

func TestConfirmRotatesAuthorizationToken(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestService(users)
	ctx := context.Background()

	require.NoError(t, svc.Initiate(ctx, "t1", "https://cb/x"))
	_, err := svc.Confirm(ctx, "t1", 42, "service-secret")
	require.NoError(t, err)
	first := users.tokens[42]

	require.NoError(t, svc.Initiate(ctx, "t2", "https://cb/x"))
	_, err = svc.Confirm(ctx, "t2", 42, "service-secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, users.tokens[42], "a new login supersedes the old token")
}

func TestConfirmSurfacesUpsertFailure(t *testing.T) {
	users := newFakeUserStore()
	users.upsertErr = &weather.StoreError{Op: "upsert user", Err: errors.New("disk full")}
	svc := newTestService(users)
	ctx := context.Background()

	require.NoError(t, svc.Initiate(ctx, "t1", "https://cb/x"))

	_, err := svc.Confirm(ctx, "t1", 42, "service-secret")

	var storeErr *weather.StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestLookupUser(t *testing.T) {
	users := newFakeUserStore()
	users.tokens[42] = "tok"
	svc := newTestService(users)

	user, err := svc.LookupUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.TelegramID)

	_, err = svc.LookupUser(context.Background(), "other")
	assert.ErrorIs(t, err, weather.ErrNotFound)
}
