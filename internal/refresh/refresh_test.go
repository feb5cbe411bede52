package refresh

import (
	"context"
	"testing"

	"github.com/ctrl-sourav/SkyCast/internal/models"
	"github.com/ctrl-sourav/SkyCast/internal/owm"
)

type fakeFetcher struct {
	seen []string
}

func (f *fakeFetcher) Fetch(_ context.Context, q owm.Query) (models.Dashboard, error) {
	f.seen = append(f.seen, q.String())
	if q.Place == "Atlantis" {
		return models.Dashboard{}, owm.ErrNotFound
	}
	return models.Dashboard{Location: q.String()}, nil
}

func TestParseLocations(t *testing.T) {
	qs := ParseLocations(" London ; ;47.4979, 19.0402;Paris, FR")
	if len(qs) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(qs))
	}
	if qs[0].Place != "London" || qs[0].ByCoords {
		t.Fatalf("unexpected first query %+v", qs[0])
	}
	if !qs[1].ByCoords || qs[1].Lat != 47.4979 || qs[1].Lon != 19.0402 {
		t.Fatalf("unexpected coord query %+v", qs[1])
	}
	if qs[2].Place != "Paris, FR" {
		t.Fatalf("place with comma should stay a place: %+v", qs[2])
	}
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	f := &fakeFetcher{}
	r := New(f, ParseLocations("London;Atlantis;Tokyo"), Options{})
	if got := r.RunOnce(context.Background()); got != 2 {
		t.Fatalf("expected 2 successes, got %d", got)
	}
	if len(f.seen) != 3 {
		t.Fatalf("every location should be attempted once, got %v", f.seen)
	}
}

func TestRunOnceStopsWhenCanceled(t *testing.T) {
	f := &fakeFetcher{}
	r := New(f, ParseLocations("London;Tokyo"), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := r.RunOnce(ctx); got != 0 || len(f.seen) != 0 {
		t.Fatalf("expected no work after cancel, got %d %v", got, f.seen)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r := New(&fakeFetcher{}, nil, Options{})
	if err := r.Start(context.Background(), "every now and then"); err == nil {
		r.Stop()
		t.Fatalf("expected schedule error")
	}
}
