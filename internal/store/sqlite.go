package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"weathertracker/internal/weather"
	"weathertracker/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS weather_history (
	observed_at INTEGER NOT NULL,
	city        TEXT    NOT NULL,
	telegram_id INTEGER NOT NULL,
	temperature REAL    NOT NULL,
	feels_like  REAL    NOT NULL,
	pressure    INTEGER NOT NULL,
	humidity    INTEGER NOT NULL,
	PRIMARY KEY (observed_at, city, telegram_id)
);

CREATE TABLE IF NOT EXISTS users (
	telegram_id INTEGER PRIMARY KEY,
	auth_token  TEXT    NOT NULL UNIQUE
);
`

// SQLiteStore implements weather.HistoryStore and weather.UserStore on a
// single SQLite database file. Observation times are stored as Unix
// milliseconds; the physical history key is the full (time, city, user)
// triple, so two users observing the same city at the same millisecond do
// not collide.
type SQLiteStore struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

// Open opens (and if needed creates) the database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, &weather.StoreError{Op: "open", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &weather.StoreError{Op: "migrate", Err: err}
	}

	return &SQLiteStore{
		db:  db,
		log: logger.Get().With("component", "sqlite_store"),
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type historyRow struct {
	ObservedAt  int64   `db:"observed_at"`
	City        string  `db:"city"`
	TelegramID  int64   `db:"telegram_id"`
	Temperature float64 `db:"temperature"`
	FeelsLike   float64 `db:"feels_like"`
	Pressure    int     `db:"pressure"`
	Humidity    int     `db:"humidity"`
}

func (r historyRow) observation() weather.Observation {
	return weather.Observation{
		ObservedAt:  time.UnixMilli(r.ObservedAt).UTC(),
		City:        r.City,
		Temperature: r.Temperature,
		FeelsLike:   r.FeelsLike,
		Pressure:    r.Pressure,
		Humidity:    r.Humidity,
	}
}

// Save records one observation attributed to user. Saving the same
// (time, city, user) triple twice is idempotent.
func (s *SQLiteStore) Save(ctx context.Context, obs weather.Observation, user weather.User) error {
	query := `
		INSERT OR REPLACE INTO weather_history
			(observed_at, city, telegram_id, temperature, feels_like, pressure, humidity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		obs.ObservedAt.UnixMilli(),
		obs.City,
		user.TelegramID,
		obs.Temperature,
		obs.FeelsLike,
		obs.Pressure,
		obs.Humidity,
	)
	if err != nil {
		return &weather.StoreError{Op: "save observation", Err: err}
	}

	return nil
}

// HistoryByCity returns up to limit observations for city, most recent first.
func (s *SQLiteStore) HistoryByCity(ctx context.Context, limit int, city string) ([]weather.Observation, error) {
	query := `
		SELECT observed_at, city, telegram_id, temperature, feels_like, pressure, humidity
		FROM weather_history
		WHERE city = ?
		ORDER BY observed_at DESC
		LIMIT ?
	`
	return s.history(ctx, query, limit, city)
}

// HistoryByUser returns up to limit observations made by one user, most
// recent first.
func (s *SQLiteStore) HistoryByUser(ctx context.Context, limit int, telegramID int64) ([]weather.Observation, error) {
	query := `
		SELECT observed_at, city, telegram_id, temperature, feels_like, pressure, humidity
		FROM weather_history
		WHERE telegram_id = ?
		ORDER BY observed_at DESC
		LIMIT ?
	`
	return s.history(ctx, query, limit, telegramID)
}

func (s *SQLiteStore) history(ctx context.Context, query string, limit int, selector any) ([]weather.Observation, error) {
	if limit <= 0 {
		return []weather.Observation{}, nil
	}

	var rows []historyRow
	if err := s.db.SelectContext(ctx, &rows, query, selector, limit); err != nil {
		return nil, &weather.StoreError{Op: "query history", Err: err}
	}

	observations := make([]weather.Observation, 0, len(rows))
	for _, r := range rows {
		observations = append(observations, r.observation())
	}

	return observations, nil
}

// GetByToken returns the user bound to the authorization token.
func (s *SQLiteStore) GetByToken(ctx context.Context, token string) (weather.User, error) {
	var row struct {
		TelegramID int64  `db:"telegram_id"`
		AuthToken  string `db:"auth_token"`
	}

	query := `SELECT telegram_id, auth_token FROM users WHERE auth_token = ?`
	err := s.db.GetContext(ctx, &row, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.User{}, weather.ErrNotFound
	}
	if err != nil {
		return weather.User{}, &weather.StoreError{Op: "get user by token", Err: err}
	}

	return weather.User{TelegramID: row.TelegramID, AuthToken: row.AuthToken}, nil
}

// Upsert binds token to the Telegram identity, replacing any previous token
// for that user.
func (s *SQLiteStore) Upsert(ctx context.Context, telegramID int64, token string) error {
	query := `
		INSERT INTO users (telegram_id, auth_token)
		VALUES (?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET auth_token = excluded.auth_token
	`

	if _, err := s.db.ExecContext(ctx, query, telegramID, token); err != nil {
		return &weather.StoreError{Op: "upsert user", Err: err}
	}

	s.log.Debugw("authorization token rotated", "telegram_id", telegramID)
	return nil
}
