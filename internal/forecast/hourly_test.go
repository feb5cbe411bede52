package forecast

import (
	"reflect"
	"testing"
	"time"

	"github.com/ctrl-sourav/SkyCast/internal/models"
)

func TestSelectHourlyWindowShortSeries(t *testing.T) {
	w := SelectHourlyWindow(series(day0, 1, 2, 3), nil)
	if len(w) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(w))
	}
	if w[0].Label != NowLabel {
		t.Fatalf("first label should be %q, got %q", NowLabel, w[0].Label)
	}
	if w[1].Label != "3 AM" || w[2].Label != "6 AM" {
		t.Fatalf("unexpected labels %q %q", w[1].Label, w[2].Label)
	}
}

func TestSelectHourlyWindowCapsAtEight(t *testing.T) {
	samples := series(day0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	w := SelectHourlyWindow(samples, nil)
	if len(w) != HourlyWindowSize {
		t.Fatalf("expected %d entries, got %d", HourlyWindowSize, len(w))
	}
	for i, e := range w {
		if e.Sample.Timestamp != samples[i].Timestamp {
			t.Fatalf("entry %d out of order", i)
		}
	}
}

func TestSelectHourlyWindowEmpty(t *testing.T) {
	if w := SelectHourlyWindow(nil, nil); len(w) != 0 {
		t.Fatalf("expected empty window, got %d", len(w))
	}
}

func TestSelectHourlyWindowFirstIsAlwaysNow(t *testing.T) {
	// A sample far in the past is still labeled as the present.
	old := time.Date(2001, 1, 1, 15, 0, 0, 0, time.UTC)
	w := SelectHourlyWindow([]models.ForecastSample{sampleAt(old, 4)}, nil)
	if w[0].Label != NowLabel {
		t.Fatalf("got %q", w[0].Label)
	}
}

func TestSelectHourlyWindowRounding(t *testing.T) {
	samples := []models.ForecastSample{
		{Timestamp: day0.Unix(), Temperature: 21.5, PrecipitationProbability: 0.275},
		{Timestamp: day0.Add(3 * time.Hour).Unix(), Temperature: -0.6, PrecipitationProbability: 1},
	}
	w := SelectHourlyWindow(samples, nil)
	if w[0].Temperature != 22 || w[0].PrecipitationPercent != 28 {
		t.Fatalf("unexpected rounding %+v", w[0])
	}
	if w[1].Temperature != -1 || w[1].PrecipitationPercent != 100 {
		t.Fatalf("unexpected rounding %+v", w[1])
	}
}

func TestSelectHourlyWindowUsesDisplayZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	w := SelectHourlyWindow(series(day0, 1, 2), loc)
	if w[1].Label != "5 AM" {
		t.Fatalf("expected 5 AM in UTC+2, got %q", w[1].Label)
	}
}

func TestSelectHourlyWindowIdempotent(t *testing.T) {
	samples := series(day0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	if !reflect.DeepEqual(SelectHourlyWindow(samples, nil), SelectHourlyWindow(samples, nil)) {
		t.Fatalf("results differ between calls")
	}
}
