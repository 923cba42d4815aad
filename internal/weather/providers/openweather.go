package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"weathertracker/internal/weather"
)

type latLon struct {
	Lat float64
	Lon float64
}

// OpenWeatherProvider implements weather.Provider against OpenWeatherMap.
// City names are resolved to coordinates through the geocoding API once and
// memoized for the life of the process.
type OpenWeatherProvider struct {
	apiKey     string
	weatherURL string
	geoURL     string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker

	mu     sync.Mutex
	coords map[string]latLon
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherProvider{
		apiKey:     apiKey,
		weatherURL: "https://api.openweathermap.org/data/2.5/weather",
		geoURL:     "https://api.openweathermap.org/geo/1.0/direct",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
		coords:  make(map[string]latLon),
	}
}

// Fetch returns the current weather for city. The user is ignored here:
// attribution happens in the persisting decorator, not at the upstream call.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string, _ weather.User) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, &weather.ProviderError{Message: "openweather api key is not configured"}
	}

	coords, err := p.resolveCity(ctx, city)
	if err != nil {
		return weather.Observation{}, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", coords.Lat))
		values.Set("lon", fmt.Sprintf("%f", coords.Lon))
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		u := fmt.Sprintf("%s?%s", p.weatherURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, &weather.ProviderError{Message: fmt.Sprintf("current weather for %q: %v", city, err)}
	}
	defer resp.Body.Close()

	var payload struct {
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Pressure  int     `json:"pressure"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, &weather.ProviderError{Message: fmt.Sprintf("decode current weather for %q: %v", city, err)}
	}

	return weather.Observation{
		ObservedAt:  time.Now().UTC(),
		City:        city,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Pressure:    payload.Main.Pressure,
		Humidity:    payload.Main.Humidity,
	}, nil
}

// resolveCity returns the memoized coordinates for city, geocoding it on
// first use.
func (p *OpenWeatherProvider) resolveCity(ctx context.Context, city string) (latLon, error) {
	p.mu.Lock()
	coords, ok := p.coords[city]
	p.mu.Unlock()
	if ok {
		return coords, nil
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("limit", "1")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.geoURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return latLon{}, &weather.ProviderError{Message: fmt.Sprintf("geocode %q: %v", city, err)}
	}
	defer resp.Body.Close()

	var payload []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return latLon{}, &weather.ProviderError{Message: fmt.Sprintf("decode geocode response for %q: %v", city, err)}
	}
	if len(payload) == 0 {
		return latLon{}, &weather.ProviderError{Message: fmt.Sprintf("unknown city %q", city)}
	}

	coords = latLon{Lat: payload[0].Lat, Lon: payload[0].Lon}

	p.mu.Lock()
	p.coords[city] = coords
	p.mu.Unlock()

	return coords, nil
}
