package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ctrl-sourav/SkyCast/internal/dashboard"
	"github.com/ctrl-sourav/SkyCast/internal/geo"
	"github.com/ctrl-sourav/SkyCast/internal/history"
	"github.com/ctrl-sourav/SkyCast/internal/models"
	"github.com/ctrl-sourav/SkyCast/internal/owm"
)

type stubAPI struct {
	currentErr  error
	forecastErr error
}

func (s stubAPI) CurrentWeather(_ context.Context, q owm.Query) (models.WeatherData, error) {
	if s.currentErr != nil {
		return models.WeatherData{}, s.currentErr
	}
	name := q.Place
	if q.ByCoords {
		name = "Here"
	}
	return models.WeatherData{Name: name, Country: "GB", TempC: 14.6, Condition: models.Condition{Main: "Clouds"}}, nil
}

func (s stubAPI) Forecast(_ context.Context, _ owm.Query) (models.ForecastSeries, error) {
	if s.forecastErr != nil {
		return models.ForecastSeries{}, s.forecastErr
	}
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]models.ForecastSample, 20)
	for i := range samples {
		v := float64(10 + i%8)
		samples[i] = models.ForecastSample{
			Timestamp:      start.Add(time.Duration(i) * 3 * time.Hour).Unix(),
			Temperature:    v,
			TemperatureMin: v,
			TemperatureMax: v,
		}
	}
	return models.ForecastSeries{City: models.Location{Name: "London", Country: "GB"}, Samples: samples}, nil
}

func (s stubAPI) SearchLocations(_ context.Context, query string, limit int) ([]models.Location, error) {
	out := []models.Location{{Name: query, Country: "GB"}, {Name: query, Country: "CA"}}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s stubAPI) ReverseGeocode(_ context.Context, lat, lon float64) (models.Location, error) {
	return models.Location{Name: "Greenwich", Country: "GB", Lat: lat, Lon: lon}, nil
}

func newRouter(t *testing.T, api owm.API, opts dashboard.Options, hist HistoryLister) http.Handler {
	t.Helper()
	svc := dashboard.NewService(api, opts)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewServer(svc, hist).RegisterRoutes(r)
	})
	return r
}

func do(t *testing.T, h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWeatherRequiresLocation(t *testing.T) {
	h := newRouter(t, stubAPI{}, dashboard.Options{}, nil)
	rr := do(t, h, "/api/weather", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	rr = do(t, h, "/api/weather?lat=abc&lon=1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad lat, got %d", rr.Code)
	}
	rr = do(t, h, "/api/weather?lat=95&lon=1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range lat, got %d", rr.Code)
	}
}

func TestWeatherReturnsDashboard(t *testing.T) {
	h := newRouter(t, stubAPI{}, dashboard.Options{}, nil)
	rr := do(t, h, "/api/weather?city=London", map[string]string{sessionHeader: "tab-1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get(sessionHeader); got != "tab-1" {
		t.Fatalf("session header not echoed: %q", got)
	}

	var body struct {
		RequestID  uint64              `json:"request_id"`
		Location   string              `json:"location"`
		Theme      string              `json:"theme"`
		Hourly     models.HourlyWindow `json:"hourly"`
		Trend      models.DailyTrend   `json:"trend"`
		Superseded bool                `json:"superseded"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Location != "London, GB" || body.Theme != "clouds" {
		t.Fatalf("unexpected header fields: %+v", body)
	}
	if len(body.Hourly) != 8 || body.Hourly[0].Label != "Now" {
		t.Fatalf("unexpected hourly window: %+v", body.Hourly)
	}
	if len(body.Trend) != 3 || body.Trend[0].CalendarDate != "2024-06-01" {
		t.Fatalf("unexpected trend: %+v", body.Trend)
	}
	if body.RequestID != 1 || body.Superseded {
		t.Fatalf("unexpected request id %d superseded=%v", body.RequestID, body.Superseded)
	}
}

func TestWeatherAssignsSessionWhenMissing(t *testing.T) {
	h := newRouter(t, stubAPI{}, dashboard.Options{}, nil)
	rr := do(t, h, "/api/weather?lat=51.5&lon=-0.12", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get(sessionHeader) == "" {
		t.Fatalf("expected a generated session id")
	}
}

func TestUpstreamErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		api    stubAPI
		status int
		msg    string
	}{
		{"not found", stubAPI{currentErr: owm.ErrNotFound}, http.StatusNotFound, "City not found"},
		{"unauthorized", stubAPI{forecastErr: owm.ErrUnauthorized}, http.StatusBadGateway, "Invalid API key"},
		{"upstream", stubAPI{currentErr: &owm.UpstreamError{Status: 500, Message: "boom"}}, http.StatusBadGateway, "Weather API error: 500 - boom"},
		{"network", stubAPI{forecastErr: &owm.NetworkError{Err: context.DeadlineExceeded}}, http.StatusGatewayTimeout, "unreachable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newRouter(t, tc.api, dashboard.Options{}, nil)
			rr := do(t, h, "/api/weather?city=Atlantis", nil)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.Contains(body["error"], tc.msg) {
				t.Fatalf("expected error containing %q, got %q", tc.msg, body["error"])
			}
		})
	}
}

func TestHereGeolocationErrors(t *testing.T) {
	h := newRouter(t, stubAPI{}, dashboard.Options{Locator: geo.Static{}}, nil)
	if rr := do(t, h, "/api/weather/here", nil); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 when denied, got %d", rr.Code)
	}

	h = newRouter(t, stubAPI{}, dashboard.Options{Locator: geo.Static{Enabled: true}}, nil)
	if rr := do(t, h, "/api/weather/here", nil); rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 when unsupported, got %d", rr.Code)
	}

	home := &geo.Coordinates{Lat: 51.48, Lon: 0}
	h = newRouter(t, stubAPI{}, dashboard.Options{Locator: geo.Static{Enabled: true, Home: home}}, nil)
	rr := do(t, h, "/api/weather/here", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"location":"Here, GB"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestForecastAndCurrent(t *testing.T) {
	h := newRouter(t, stubAPI{}, dashboard.Options{}, nil)

	rr := do(t, h, "/api/weather/forecast?city=London", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("forecast: expected 200, got %d", rr.Code)
	}
	var view dashboard.ForecastView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Hourly) != 8 || len(view.Trend) != 3 || view.Trend[0].Label != "Sat, Jun 1" {
		t.Fatalf("unexpected forecast view: %+v", view)
	}

	rr = do(t, h, "/api/weather/current?city=London", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("current: expected 200, got %d", rr.Code)
	}
	var current models.WeatherData
	if err := json.Unmarshal(rr.Body.Bytes(), &current); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if current.TempC != 14.6 {
		t.Fatalf("unexpected current: %+v", current)
	}
}

func TestSearchAndReverse(t *testing.T) {
	h := newRouter(t, stubAPI{}, dashboard.Options{}, nil)

	if rr := do(t, h, "/api/weather/search", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", rr.Code)
	}
	rr := do(t, h, "/api/weather/search?q=London&limit=1", nil)
	var locs []models.Location
	if err := json.Unmarshal(rr.Body.Bytes(), &locs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("expected 1 location, got %d", len(locs))
	}

	if rr := do(t, h, "/api/weather/reverse?lat=51.48", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without lon, got %d", rr.Code)
	}
	rr = do(t, h, "/api/weather/reverse?lat=51.48&lon=0", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Greenwich") {
		t.Fatalf("unexpected reverse response %d: %s", rr.Code, rr.Body.String())
	}
}

func TestLatestForSession(t *testing.T) {
	h := newRouter(t, stubAPI{}, dashboard.Options{}, nil)

	if rr := do(t, h, "/api/weather/latest", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session, got %d", rr.Code)
	}
	if rr := do(t, h, "/api/weather/latest?session=tab-9", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any lookup, got %d", rr.Code)
	}

	do(t, h, "/api/weather?city=Paris", map[string]string{sessionHeader: "tab-9"})
	do(t, h, "/api/weather?city=Rome", map[string]string{sessionHeader: "tab-9"})

	rr := do(t, h, "/api/weather/latest?session=tab-9", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var d models.Dashboard
	if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Location != "Rome, GB" || d.RequestID != 2 {
		t.Fatalf("expected latest Rome lookup, got %q id=%d", d.Location, d.RequestID)
	}
}

func TestHistory(t *testing.T) {
	h := newRouter(t, stubAPI{}, dashboard.Options{}, nil)
	if rr := do(t, h, "/api/weather/history", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when disabled, got %d", rr.Code)
	}

	db, err := gorm.Open(sqlite.Open("file:httpapi_history?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := history.New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	h = newRouter(t, stubAPI{}, dashboard.Options{Recorder: repo}, repo)

	do(t, h, "/api/weather?city=Oslo", nil)
	do(t, h, "/api/weather?city=Bergen", nil)

	rr := do(t, h, "/api/weather/history?limit=1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var rows []history.SearchRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Query != "Bergen" {
		t.Fatalf("expected newest record Bergen, got %+v", rows)
	}
}
