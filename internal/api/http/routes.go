package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"weathertracker/internal/auth"
	"weathertracker/internal/notify"
	"weathertracker/internal/weather"
)

var validate = validator.New()

const localUserKey = "user"

// RegisterRoutes wires the HTTP handlers into the Fiber app. The provider is
// the fully composed decorator chain; history serves read-only queries that
// bypass the chain.
func RegisterRoutes(app *fiber.App, provider weather.Provider, history weather.HistoryStore, authSvc *auth.Service, hub *notify.Hub) {
	v1 := app.Group("/api/v1")

	v1.Post("/login", initiateLoginHandler(authSvc))
	v1.Post("/login/confirm", confirmLoginHandler(authSvc))

	authed := v1.Group("/weather", requireUser(authSvc))
	authed.Get("/", currentWeatherHandler(provider))
	authed.Get("/history", cityHistoryHandler(history))
	authed.Get("/history/me", userHistoryHandler(history))

	registerWebsocket(app, hub)
}

// requireUser resolves the caller's authorization token to a user and stores
// it in the request locals. An unknown token is an authorization failure,
// never an internal error.
func requireUser(authSvc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("X-User-Token")
		if token == "" {
			token = c.Query("user_token")
		}

		user, err := authSvc.LookupUser(c.Context(), token)
		if err != nil {
			if errors.Is(err, weather.ErrNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid user token")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to authorize request")
		}

		c.Locals(localUserKey, user)
		return c.Next()
	}
}

type weatherResponse struct {
	Success     bool    `json:"success"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Pressure    int     `json:"pressure"`
	Humidity    int     `json:"humidity"`
}

func currentWeatherHandler(provider weather.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		city := c.Query("city")
		if city == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city query parameter is required")
		}

		user := c.Locals(localUserKey).(weather.User)

		obs, err := provider.Fetch(c.Context(), city, user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(weatherResponse{
			Success:     true,
			Temperature: obs.Temperature,
			FeelsLike:   obs.FeelsLike,
			Pressure:    obs.Pressure,
			Humidity:    obs.Humidity,
		})
	}
}

// historyQuery holds query parameters for the history endpoints.
type historyQuery struct {
	City  string `validate:"omitempty"`
	Limit int    `validate:"required,min=1,max=1000"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.City = c.Query("city")
	h.Limit = c.QueryInt("limit", 10)
	return validate.Struct(h)
}

func cityHistoryHandler(history weather.HistoryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.City == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city query parameter is required")
		}

		observations, err := history.HistoryByCity(c.Context(), req.Limit, req.City)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{
			"success": true,
			"history": observations,
		})
	}
}

func userHistoryHandler(history weather.HistoryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		user := c.Locals(localUserKey).(weather.User)

		observations, err := history.HistoryByUser(c.Context(), req.Limit, user.TelegramID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{
			"success": true,
			"history": observations,
		})
	}
}

type initiateLoginRequest struct {
	Token       string `json:"token" validate:"required"`
	CallbackURL string `json:"callback_url" validate:"required,url"`
}

func initiateLoginHandler(authSvc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req initiateLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := authSvc.Initiate(c.Context(), req.Token, req.CallbackURL); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

type confirmLoginRequest struct {
	Token      string `json:"token" validate:"required"`
	TelegramID int64  `json:"telegram_id" validate:"required"`
}

func confirmLoginHandler(authSvc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req confirmLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		callback, err := authSvc.Confirm(c.Context(), req.Token, req.TelegramID, c.Get("X-Service-Token"))
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrForbidden):
				return fiber.NewError(fiber.StatusForbidden, "forbidden")
			case errors.Is(err, weather.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, "unknown or already used login token")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"callback": callback,
		})
	}
}

func registerWebsocket(app *fiber.App, hub *notify.Hub) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		hub.Register(conn)
		defer hub.Unregister(conn)

		// Drain client frames until the connection drops; broadcasts flow
		// the other way.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}
