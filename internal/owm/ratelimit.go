package owm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ctrl-sourav/SkyCast/internal/models"
)

// API is the surface of Client the rest of the service depends on.
type API interface {
	CurrentWeather(ctx context.Context, q Query) (models.WeatherData, error)
	Forecast(ctx context.Context, q Query) (models.ForecastSeries, error)
	SearchLocations(ctx context.Context, query string, limit int) ([]models.Location, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (models.Location, error)
}

// RateLimited shares one token bucket across every upstream call so the
// free-tier per-minute quota is not exceeded.
type RateLimited struct {
	api     API
	limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second with the given burst.
func NewRateLimited(api API, rps float64, burst int) *RateLimited {
	return &RateLimited{api: api, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return nil
}

func (r *RateLimited) CurrentWeather(ctx context.Context, q Query) (models.WeatherData, error) {
	if err := r.wait(ctx); err != nil {
		return models.WeatherData{}, err
	}
	return r.api.CurrentWeather(ctx, q)
}

func (r *RateLimited) Forecast(ctx context.Context, q Query) (models.ForecastSeries, error) {
	if err := r.wait(ctx); err != nil {
		return models.ForecastSeries{}, err
	}
	return r.api.Forecast(ctx, q)
}

func (r *RateLimited) SearchLocations(ctx context.Context, query string, limit int) ([]models.Location, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.api.SearchLocations(ctx, query, limit)
}

func (r *RateLimited) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Location, error) {
	if err := r.wait(ctx); err != nil {
		return models.Location{}, err
	}
	return r.api.ReverseGeocode(ctx, lat, lon)
}

var (
	_ API = (*Client)(nil)
	_ API = (*RateLimited)(nil)
)
