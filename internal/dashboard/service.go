// Package dashboard resolves a location into the full dashboard view: it
// fetches current conditions and the forecast series together and runs the
// forecast reductions on the result.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/ctrl-sourav/SkyCast/internal/cache"
	"github.com/ctrl-sourav/SkyCast/internal/forecast"
	"github.com/ctrl-sourav/SkyCast/internal/geo"
	"github.com/ctrl-sourav/SkyCast/internal/models"
	"github.com/ctrl-sourav/SkyCast/internal/observability"
	"github.com/ctrl-sourav/SkyCast/internal/owm"
)

// ErrInvalidQuery wraps validation failures of a location query.
var ErrInvalidQuery = errors.New("invalid location query")

// Recorder keeps a log of user-initiated lookups.
type Recorder interface {
	Record(ctx context.Context, q owm.Query, d models.Dashboard) error
}

// Publisher fans a freshly fetched dashboard out to other consumers.
type Publisher interface {
	Publish(ctx context.Context, d models.Dashboard) error
}

type Options struct {
	Cache     cache.Cache
	Locator   geo.Locator
	Recorder  Recorder
	Publisher Publisher
	Tracker   *Tracker
	// DisplayLocation is used for hour and day labels only.
	DisplayLocation *time.Location
	Now             func() time.Time
}

type Service struct {
	api       owm.API
	cache     cache.Cache
	locator   geo.Locator
	recorder  Recorder
	publisher Publisher
	tracker   *Tracker
	loc       *time.Location
	now       func() time.Time
}

func NewService(api owm.API, opts Options) *Service {
	s := &Service{
		api:       api,
		cache:     opts.Cache,
		locator:   opts.Locator,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		tracker:   opts.Tracker,
		loc:       opts.DisplayLocation,
		now:       opts.Now,
	}
	if s.locator == nil {
		s.locator = geo.Static{}
	}
	if s.tracker == nil {
		s.tracker = NewTracker(0)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func Validate(q owm.Query) error {
	if q.ByCoords {
		if err := (geo.Coordinates{Lat: q.Lat, Lon: q.Lon}).Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		return nil
	}
	if strings.TrimSpace(q.Place) == "" {
		return fmt.Errorf("%w: place name is empty", ErrInvalidQuery)
	}
	return nil
}

// Resolve returns the dashboard for q, served from cache when possible.
func (s *Service) Resolve(ctx context.Context, q owm.Query) (models.Dashboard, error) {
	if err := Validate(q); err != nil {
		return models.Dashboard{}, err
	}
	if s.cache != nil {
		if d, ok := s.cache.Get(ctx, cache.Key(q)); ok {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return d, nil
		}
		observability.CacheLookups.WithLabelValues("miss").Inc()
	}
	return s.Fetch(ctx, q)
}

// Fetch always goes upstream. Current conditions and the forecast series are
// requested concurrently; if either fails the other is canceled and the
// whole lookup fails. The forecast reductions only ever see a complete
// series.
func (s *Service) Fetch(ctx context.Context, q owm.Query) (models.Dashboard, error) {
	if err := Validate(q); err != nil {
		return models.Dashboard{}, err
	}

	ctx, span := otel.Tracer(observability.ServiceName).Start(ctx, "dashboard.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("skycast.query", q.String()))

	start := time.Now()
	var (
		current models.WeatherData
		series  models.ForecastSeries
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.api.CurrentWeather(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		series, err = s.api.Forecast(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		observability.FetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.Dashboard{}, err
	}
	observability.FetchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	d := s.assemble(current, series)
	if s.cache != nil {
		s.cache.Set(ctx, cache.Key(q), d)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, d); err != nil {
			slog.Warn("dashboard publish failed", "location", d.Location, "error", err)
		}
	}
	return d, nil
}

func (s *Service) assemble(current models.WeatherData, series models.ForecastSeries) models.Dashboard {
	location := current.Name
	if current.Country != "" {
		location = current.Name + ", " + current.Country
	}
	return models.Dashboard{
		Location:  location,
		Theme:     owm.Theme(current.Condition.Main),
		Current:   current,
		Hourly:    forecast.SelectHourlyWindow(series.Samples, s.loc),
		Trend:     s.trend(series.Samples),
		FetchedAt: s.now().UTC(),
	}
}

// Result is a dashboard resolved on behalf of a session. Superseded is set
// when a newer request for the same session was issued while this one was
// in flight; such results are not stored as the session's latest.
type Result struct {
	models.Dashboard
	Superseded bool `json:"superseded"`
}

// ResolveFor resolves q for session and records it as the session's latest
// dashboard unless a newer request has been issued meanwhile.
func (s *Service) ResolveFor(ctx context.Context, session string, q owm.Query) (Result, error) {
	id := s.tracker.Begin(session)
	d, err := s.Resolve(ctx, q)
	if err != nil {
		return Result{}, err
	}
	d.RequestID = id

	if err := s.tracker.Commit(session, id, d); err != nil {
		if errors.Is(err, ErrStale) {
			slog.Debug("discarding superseded dashboard", "session", session, "request_id", id)
			return Result{Dashboard: d, Superseded: true}, nil
		}
		return Result{}, err
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, q, d); err != nil {
			slog.Warn("history record failed", "query", q.String(), "error", err)
		}
	}
	return Result{Dashboard: d}, nil
}

// ResolveHere acquires the current position first and only then starts the
// fetch pair.
func (s *Service) ResolveHere(ctx context.Context, session string) (Result, error) {
	coords, err := s.locator.Locate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("locating: %w", err)
	}
	return s.ResolveFor(ctx, session, owm.CoordQuery(coords.Lat, coords.Lon))
}

func (s *Service) Latest(session string) (models.Dashboard, bool) {
	return s.tracker.Latest(session)
}

func (s *Service) Current(ctx context.Context, q owm.Query) (models.WeatherData, error) {
	if err := Validate(q); err != nil {
		return models.WeatherData{}, err
	}
	return s.api.CurrentWeather(ctx, q)
}

type ForecastView struct {
	City   models.Location     `json:"city"`
	Hourly models.HourlyWindow `json:"hourly"`
	Trend  models.DailyTrend   `json:"trend"`
}

func (s *Service) Forecast(ctx context.Context, q owm.Query) (ForecastView, error) {
	if err := Validate(q); err != nil {
		return ForecastView{}, err
	}
	series, err := s.api.Forecast(ctx, q)
	if err != nil {
		return ForecastView{}, err
	}
	return ForecastView{
		City:   series.City,
		Hourly: forecast.SelectHourlyWindow(series.Samples, s.loc),
		Trend:  s.trend(series.Samples),
	}, nil
}

// trend is AggregateDaily with chart labels in the display zone.
func (s *Service) trend(samples []models.ForecastSample) models.DailyTrend {
	trend := forecast.AggregateDaily(samples)
	for i := range trend {
		trend[i].Label = forecast.DayLabel(trend[i].AnchorTimestamp, s.loc)
	}
	return trend
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Location, error) {
	return s.api.SearchLocations(ctx, query, limit)
}

func (s *Service) Reverse(ctx context.Context, lat, lon float64) (models.Location, error) {
	return s.api.ReverseGeocode(ctx, lat, lon)
}
