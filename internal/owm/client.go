package owm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ctrl-sourav/SkyCast/internal/models"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	DefaultGeoURL  = "https://api.openweathermap.org/geo/1.0"
)

// Query selects a location either by free-text place name or by coordinates.
type Query struct {
	Place    string
	Lat      float64
	Lon      float64
	ByCoords bool
}

func PlaceQuery(place string) Query { return Query{Place: strings.TrimSpace(place)} }

func CoordQuery(lat, lon float64) Query { return Query{Lat: lat, Lon: lon, ByCoords: true} }

func (q Query) String() string {
	if q.ByCoords {
		return fmt.Sprintf("%.4f,%.4f", q.Lat, q.Lon)
	}
	return q.Place
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.ByCoords {
		v.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
		v.Set("lon", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	} else {
		v.Set("q", q.Place)
	}
	return v
}

type Client struct {
	apiKey     string
	baseURL    string
	geoURL     string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithGeoURL(u string) Option {
	return func(c *Client) { c.geoURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		geoURL:  DefaultGeoURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func firstCondition(cs []condition) models.Condition {
	if len(cs) == 0 {
		return models.Condition{}
	}
	return models.Condition{Main: cs[0].Main, Description: cs[0].Description, Icon: cs[0].Icon}
}

type currentResponse struct {
	Name  string `json:"name"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Weather []condition `json:"weather"`
	Sys     struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int   `json:"timezone"`
	Dt       int64 `json:"dt"`
}

// CurrentWeather fetches the current-conditions snapshot for q.
func (c *Client) CurrentWeather(ctx context.Context, q Query) (models.WeatherData, error) {
	var resp currentResponse
	if err := c.getJSON(ctx, c.baseURL+"/weather", q.values(), true, &resp); err != nil {
		return models.WeatherData{}, fmt.Errorf("fetching current weather for %q: %w", q.String(), err)
	}
	return models.WeatherData{
		Name:           resp.Name,
		Country:        resp.Sys.Country,
		Lat:            resp.Coord.Lat,
		Lon:            resp.Coord.Lon,
		TempC:          resp.Main.Temp,
		FeelsLikeC:     resp.Main.FeelsLike,
		MinC:           resp.Main.TempMin,
		MaxC:           resp.Main.TempMax,
		Humidity:       resp.Main.Humidity,
		PressureHPa:    resp.Main.Pressure,
		VisibilityM:    resp.Visibility,
		WindSpeedMS:    resp.Wind.Speed,
		WindDeg:        resp.Wind.Deg,
		Condition:      firstCondition(resp.Weather),
		Sunrise:        resp.Sys.Sunrise,
		Sunset:         resp.Sys.Sunset,
		TimezoneOffset: resp.Timezone,
		ObservedAt:     resp.Dt,
	}, nil
}

type forecastResponse struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		Coord   struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []condition `json:"weather"`
		Pop     float64     `json:"pop"`
	} `json:"list"`
}

// Forecast fetches the 5 day / 3 hour forecast series for q. Samples keep
// the order the API returns them in, which is ascending by timestamp.
func (c *Client) Forecast(ctx context.Context, q Query) (models.ForecastSeries, error) {
	var resp forecastResponse
	if err := c.getJSON(ctx, c.baseURL+"/forecast", q.values(), true, &resp); err != nil {
		return models.ForecastSeries{}, fmt.Errorf("fetching forecast for %q: %w", q.String(), err)
	}

	series := models.ForecastSeries{
		City: models.Location{
			Name:    resp.City.Name,
			Country: resp.City.Country,
			Lat:     resp.City.Coord.Lat,
			Lon:     resp.City.Coord.Lon,
		},
		Samples: make([]models.ForecastSample, 0, len(resp.List)),
	}
	for _, item := range resp.List {
		cond := firstCondition(item.Weather)
		series.Samples = append(series.Samples, models.ForecastSample{
			Timestamp:                item.Dt,
			Temperature:              item.Main.Temp,
			TemperatureMin:           item.Main.TempMin,
			TemperatureMax:           item.Main.TempMax,
			FeelsLike:                item.Main.FeelsLike,
			Humidity:                 item.Main.Humidity,
			WindSpeed:                item.Wind.Speed,
			PrecipitationProbability: item.Pop,
			ConditionCode:            cond.Main,
			IconID:                   cond.Icon,
			ConditionDescription:     cond.Description,
		})
	}
	return series, nil
}

type geoResult struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (r geoResult) location() models.Location {
	return models.Location{Name: r.Name, Country: r.Country, State: r.State, Lat: r.Lat, Lon: r.Lon}
}

func (c *Client) SearchLocations(ctx context.Context, query string, limit int) ([]models.Location, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("limit", strconv.Itoa(limit))

	var results []geoResult
	if err := c.getJSON(ctx, c.geoURL+"/direct", v, false, &results); err != nil {
		return nil, fmt.Errorf("searching locations for %q: %w", query, err)
	}

	locations := make([]models.Location, len(results))
	for i, r := range results {
		locations[i] = r.location()
	}
	return locations, nil
}

func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Location, error) {
	v := CoordQuery(lat, lon).values()
	v.Set("limit", "1")

	var results []geoResult
	if err := c.getJSON(ctx, c.geoURL+"/reverse", v, false, &results); err != nil {
		return models.Location{}, fmt.Errorf("reverse geocoding %.4f,%.4f: %w", lat, lon, err)
	}
	if len(results) == 0 {
		return models.Location{}, ErrNotFound
	}
	return results[0].location(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, metric bool, out any) error {
	params.Set("appid", c.apiKey)
	if metric {
		params.Set("units", "metric")
	}
	u := endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	slog.Debug("openweathermap request", "url", redact(u, c.apiKey))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &UpstreamError{Status: resp.StatusCode, Message: apiMessage(body, resp.StatusCode)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiMessage pulls the "message" field out of an error body, falling back to
// the HTTP status text.
func apiMessage(body []byte, status int) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return http.StatusText(status)
}

func redact(u, key string) string {
	if key == "" {
		return u
	}
	return strings.ReplaceAll(u, url.QueryEscape(key), "API_KEY_HIDDEN")
}
