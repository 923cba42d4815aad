package weather

import (
	"time"
)

// Observation is a single weather reading for a city at a point in time.
// It is immutable once constructed; decorators and stores never modify it.
type Observation struct {
	ObservedAt  time.Time `json:"observed_at"` // always UTC
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Pressure    int       `json:"pressure"` // hPa
	Humidity    int       `json:"humidity"` // percent, 0-100
}

// User is an authenticated client identified by their Telegram account.
// AuthToken is the durable opaque credential minted by the login exchange;
// reissuing it invalidates the previous one.
type User struct {
	TelegramID int64  `json:"telegram_id"`
	AuthToken  string `json:"-"`
}

// PendingLogin correlates a login request token with the callback URL the
// client wants its credentials delivered to. Single-use: consumed on
// confirmation.
type PendingLogin struct {
	Token       string
	CallbackURL string
}
