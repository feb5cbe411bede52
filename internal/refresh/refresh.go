// Package refresh keeps the dashboards of favourite locations warm by
// re-fetching them on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ctrl-sourav/SkyCast/internal/models"
	"github.com/ctrl-sourav/SkyCast/internal/owm"
)

type Fetcher interface {
	Fetch(ctx context.Context, q owm.Query) (models.Dashboard, error)
}

type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

type Options struct {
	// Timeout bounds each fetch pair.
	Timeout time.Duration
	// Pruner and Retention drop old history once a day.
	Pruner    Pruner
	Retention time.Duration
}

type Refresher struct {
	fetcher   Fetcher
	queries   []owm.Query
	cron      *cron.Cron
	timeout   time.Duration
	pruner    Pruner
	retention time.Duration
}

func New(fetcher Fetcher, queries []owm.Query, opts Options) *Refresher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Refresher{
		fetcher:   fetcher,
		queries:   queries,
		cron:      cron.New(),
		timeout:   opts.Timeout,
		pruner:    opts.Pruner,
		retention: opts.Retention,
	}
}

// ParseLocations reads "London;Paris;47.49,19.04" into queries. Entries that
// parse as a lat,lon pair become coordinate queries.
func ParseLocations(raw string) []owm.Query {
	var out []owm.Query
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lat, lon, ok := parseCoords(part); ok {
			out = append(out, owm.CoordQuery(lat, lon))
			continue
		}
		out = append(out, owm.PlaceQuery(part))
	}
	return out
}

func parseCoords(s string) (float64, float64, bool) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// Start schedules refreshes on spec (standard 5-field cron) and, if a pruner
// is configured, a daily history prune.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	if _, err := r.cron.AddFunc(spec, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	if r.pruner != nil && r.retention > 0 {
		if _, err := r.cron.AddFunc("@daily", func() { r.prune(ctx) }); err != nil {
			return err
		}
	}
	r.cron.Start()
	slog.Info("refresh scheduled", "spec", spec, "locations", len(r.queries))
	return nil
}

func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce fetches every configured location once and returns how many
// succeeded. Failures are logged, not retried.
func (r *Refresher) RunOnce(ctx context.Context) int {
	ok := 0
	for _, q := range r.queries {
		if ctx.Err() != nil {
			break
		}
		fctx, cancel := context.WithTimeout(ctx, r.timeout)
		d, err := r.fetcher.Fetch(fctx, q)
		cancel()
		if err != nil {
			slog.Warn("refresh failed", "query", q.String(), "error", err)
			continue
		}
		slog.Debug("refreshed", "query", q.String(), "location", d.Location)
		ok++
	}
	return ok
}

func (r *Refresher) prune(ctx context.Context) {
	n, err := r.pruner.Prune(ctx, time.Now().Add(-r.retention))
	if err != nil {
		slog.Warn("history prune failed", "error", err)
		return
	}
	slog.Info("history pruned", "rows", n)
}
