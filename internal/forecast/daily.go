// Package forecast turns a 3-hour forecast series into the daily trend and
// hourly strip shown on the dashboard. Everything here is pure.
package forecast

import (
	"math"
	"time"

	"github.com/ctrl-sourav/SkyCast/internal/models"
)

// MaxTrendDays bounds the length of a DailyTrend.
const MaxTrendDays = 7

const dateKeyLayout = "2006-01-02"

// DateKey returns the UTC calendar date of a unix timestamp as YYYY-MM-DD.
func DateKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(dateKeyLayout)
}

// GroupByDay folds samples into one summary per UTC date, in the order each
// date first appears. Min and max are seeded from the first sample's own
// bounds, so a day cut short by the feed only reflects what was seen.
func GroupByDay(samples []models.ForecastSample) []models.DaySummary {
	days := newOrderedMap[string, *models.DaySummary]()
	for _, s := range samples {
		key := DateKey(s.Timestamp)
		day, ok := days.Get(key)
		if !ok {
			day = &models.DaySummary{
				CalendarDate:    key,
				MinTemperature:  s.TemperatureMin,
				MaxTemperature:  s.TemperatureMax,
				AnchorTimestamp: s.Timestamp,
			}
			days.Set(key, day)
		}
		day.SampleTemperatures = append(day.SampleTemperatures, s.Temperature)
		day.MinTemperature = math.Min(day.MinTemperature, s.TemperatureMin)
		day.MaxTemperature = math.Max(day.MaxTemperature, s.TemperatureMax)
	}

	out := make([]models.DaySummary, 0, days.Len())
	for _, d := range days.Values() {
		out = append(out, *d)
	}
	return out
}

// AggregateDaily reduces the series to at most MaxTrendDays rounded day
// summaries. An empty series yields an empty trend.
func AggregateDaily(samples []models.ForecastSample) models.DailyTrend {
	days := GroupByDay(samples)
	if len(days) > MaxTrendDays {
		days = days[:MaxTrendDays]
	}

	trend := make(models.DailyTrend, 0, len(days))
	for _, d := range days {
		trend = append(trend, models.TrendPoint{
			CalendarDate:       d.CalendarDate,
			Min:                Round(d.MinTemperature),
			Max:                Round(d.MaxTemperature),
			AnchorTimestamp:    d.AnchorTimestamp,
			SampleTemperatures: d.SampleTemperatures,
		})
	}
	return trend
}

// Round rounds half up, so -2.5 becomes -2.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// DayLabel renders an anchor timestamp like "Mon, Jun 1" in loc.
func DayLabel(anchor int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(anchor, 0).In(loc).Format("Mon, Jan 2")
}
