package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weathertracker/internal/weather"
	"weathertracker/pkg/logger"
)

// Service implements the login-token exchange: a short-lived, single-use
// request token is traded for a durable per-user authorization token. The
// confirm step is restricted to a trusted caller holding the shared service
// secret.
type Service struct {
	users  weather.UserStore
	logins weather.PendingLoginStore
	secret string
	log    *zap.SugaredLogger
}

// NewService creates the login-exchange service.
func NewService(users weather.UserStore, logins weather.PendingLoginStore, secret string) *Service {
	return &Service{
		users:  users,
		logins: logins,
		secret: secret,
		log:    logger.Get().With("component", "auth"),
	}
}

// Initiate records a pending login for the request token, remembering where
// the client wants its credentials delivered.
func (s *Service) Initiate(ctx context.Context, token, callbackURL string) error {
	return s.logins.Add(ctx, token, callbackURL)
}

// Confirm completes a pending login. The secret is checked before the
// pending store is touched, so a wrong-secret call never consumes the entry.
// On success the user's authorization token is rotated and the original
// callback URL is returned with token, telegram_id and authorization_token
// attached as query parameters.
func (s *Service) Confirm(ctx context.Context, token string, telegramID int64, serviceToken string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(serviceToken), []byte(s.secret)) != 1 {
		return "", weather.ErrForbidden
	}

	callbackURL, err := s.logins.Consume(ctx, token)
	if err != nil {
		return "", err
	}

	authToken := uuid.NewString()
	if err := s.users.Upsert(ctx, telegramID, authToken); err != nil {
		return "", err
	}

	s.log.Infow("login confirmed", "telegram_id", telegramID)
	return callbackWithCredentials(callbackURL, token, telegramID, authToken)
}

// LookupUser resolves an authorization token to its user, or
// weather.ErrNotFound.
func (s *Service) LookupUser(ctx context.Context, authToken string) (weather.User, error) {
	return s.users.GetByToken(ctx, authToken)
}

func callbackWithCredentials(callbackURL, token string, telegramID int64, authToken string) (string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", fmt.Errorf("invalid callback url: %w", err)
	}

	q := u.Query()
	q.Set("token", token)
	q.Set("telegram_id", strconv.FormatInt(telegramID, 10))
	q.Set("authorization_token", authToken)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
