package forecast

import (
	"time"

	"github.com/ctrl-sourav/SkyCast/internal/models"
)

// HourlyWindowSize is the number of samples in the hourly strip.
const HourlyWindowSize = 8

// NowLabel marks the first entry of the hourly strip. The feed's first
// sample is taken as the present regardless of its timestamp.
const NowLabel = "Now"

// SelectHourlyWindow returns the leading HourlyWindowSize samples with
// display labels. Labels after the first are hour-only in loc (UTC if nil).
func SelectHourlyWindow(samples []models.ForecastSample, loc *time.Location) models.HourlyWindow {
	n := min(len(samples), HourlyWindowSize)
	window := make(models.HourlyWindow, 0, n)
	for i, s := range samples[:n] {
		label := NowLabel
		if i > 0 {
			label = HourLabel(s.Timestamp, loc)
		}
		window = append(window, models.HourlyEntry{
			Label:                label,
			Sample:               s,
			Temperature:          Round(s.Temperature),
			PrecipitationPercent: Round(s.PrecipitationProbability * 100),
		})
	}
	return window
}

// HourLabel formats ts as "3 PM" in loc.
func HourLabel(ts int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(ts, 0).In(loc).Format("3 PM")
}
