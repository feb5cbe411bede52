package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ctrl-sourav/SkyCast/internal/dashboard"
	"github.com/ctrl-sourav/SkyCast/internal/geo"
	"github.com/ctrl-sourav/SkyCast/internal/history"
	"github.com/ctrl-sourav/SkyCast/internal/owm"
)

const sessionHeader = "X-Session-ID"

type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.SearchRecord, error)
}

type Server struct {
	svc     *dashboard.Service
	history HistoryLister
}

func NewServer(svc *dashboard.Service, hist HistoryLister) *Server {
	return &Server{svc: svc, history: hist}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/weather", s.handleWeather)
	r.Get("/weather/here", s.handleHere)
	r.Get("/weather/current", s.handleCurrent)
	r.Get("/weather/forecast", s.handleForecast)
	r.Get("/weather/search", s.handleSearchLocations)
	r.Get("/weather/reverse", s.handleReverseGeocode)
	r.Get("/weather/history", s.handleHistory)
	r.Get("/weather/latest", s.handleLatest)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError maps a failure to a status and message the dashboard
// can show as-is.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		upstream *owm.UpstreamError
		network  *owm.NetworkError
	)
	status, msg := http.StatusBadGateway, "failed to fetch weather data"
	switch {
	case errors.Is(err, dashboard.ErrInvalidQuery):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, owm.ErrUnauthorized):
		status, msg = http.StatusBadGateway, "Invalid API key. Please check your OpenWeatherMap API key."
	case errors.Is(err, owm.ErrNotFound):
		status, msg = http.StatusNotFound, "City not found. Please check the city name and try again."
	case errors.Is(err, geo.ErrDenied):
		status, msg = http.StatusUnprocessableEntity, "Location access denied. Please search for a city."
	case errors.Is(err, geo.ErrUnsupported):
		status, msg = http.StatusNotImplemented, "Geolocation not supported"
	case errors.As(err, &upstream):
		msg = "Weather API error: " + strconv.Itoa(upstream.Status) + " - " + upstream.Message
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &network):
		status, msg = http.StatusGatewayTimeout, "weather service unreachable"
	}
	slog.Error("weather request failed", "path", r.URL.Path, "status", status, "error", err)
	writeErr(w, status, msg)
}

func parseCoords(r *http.Request) (lat, lon float64, ok bool, err error) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		return 0, 0, false, nil
	}
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, false, errors.New("invalid lat parameter")
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, false, errors.New("invalid lon parameter")
	}
	return lat, lon, true, nil
}

// parseQuery prefers lat/lon over city when both are given.
func parseQuery(r *http.Request) (owm.Query, error) {
	lat, lon, ok, err := parseCoords(r)
	if err != nil {
		return owm.Query{}, err
	}
	if ok {
		return owm.CoordQuery(lat, lon), nil
	}
	if city := strings.TrimSpace(r.URL.Query().Get("city")); city != "" {
		return owm.PlaceQuery(city), nil
	}
	return owm.Query{}, errors.New("location is required (provide lat/lon or city)")
}

// sessionID ties requests from one dashboard tab together. Requests without
// one get a fresh id, which is echoed back.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(sessionHeader, id)
	return id
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.ResolveFor(r.Context(), sessionID(w, r), q)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHere(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ResolveHere(r.Context(), sessionID(w, r))
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	current, err := s.svc.Current(r.Context(), q)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.svc.Forecast(r.Context(), q)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSearchLocations(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeErr(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 10 {
			limit = l
		}
	}

	locations, err := s.svc.Search(r.Context(), query, limit)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	// Return a plain array for frontend convenience.
	writeJSON(w, http.StatusOK, locations)
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok, err := parseCoords(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeErr(w, http.StatusBadRequest, "lat and lon parameters are required")
		return
	}

	location, err := s.svc.Reverse(r.Context(), lat, lon)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeErr(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.history.List(r.Context(), limit)
	if err != nil {
		slog.Error("history list failed", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("session"))
	}
	if id == "" {
		writeErr(w, http.StatusBadRequest, "session is required")
		return
	}
	d, ok := s.svc.Latest(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "no dashboard for session")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
