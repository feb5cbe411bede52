package models

import "time"

type Location struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// WeatherData is a single-point-in-time snapshot for a location, metric units.
type WeatherData struct {
	Name           string    `json:"name"`
	Country        string    `json:"country"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	TempC          float64   `json:"temp_c"`
	FeelsLikeC     float64   `json:"feels_like_c"`
	MinC           float64   `json:"min_c"`
	MaxC           float64   `json:"max_c"`
	Humidity       int       `json:"humidity"`
	PressureHPa    int       `json:"pressure_hpa"`
	VisibilityM    int       `json:"visibility_m"`
	WindSpeedMS    float64   `json:"wind_speed_ms"`
	WindDeg        int       `json:"wind_deg"`
	Condition      Condition `json:"condition"`
	Sunrise        int64     `json:"sunrise"`
	Sunset         int64     `json:"sunset"`
	TimezoneOffset int       `json:"timezone_offset"`
	ObservedAt     int64     `json:"observed_at"`
}

// ForecastSample is one reading of the forecast feed. TemperatureMin and
// TemperatureMax bound that sample's window only, not the whole day.
type ForecastSample struct {
	Timestamp                int64   `json:"dt"`
	Temperature              float64 `json:"temp"`
	TemperatureMin           float64 `json:"temp_min"`
	TemperatureMax           float64 `json:"temp_max"`
	FeelsLike                float64 `json:"feels_like"`
	Humidity                 int     `json:"humidity"`
	WindSpeed                float64 `json:"wind_speed"`
	PrecipitationProbability float64 `json:"pop"`
	ConditionCode            string  `json:"condition"`
	IconID                   string  `json:"icon"`
	ConditionDescription     string  `json:"description"`
}

// ForecastSeries is ascending by Timestamp at a 3 hour cadence.
type ForecastSeries struct {
	City    Location         `json:"city"`
	Samples []ForecastSample `json:"samples"`
}

// DaySummary accumulates the samples of one UTC calendar date.
type DaySummary struct {
	CalendarDate       string
	MinTemperature     float64
	MaxTemperature     float64
	AnchorTimestamp    int64
	SampleTemperatures []float64
}

type TrendPoint struct {
	CalendarDate       string    `json:"date"`
	Label              string    `json:"label,omitempty"`
	Min                int       `json:"min"`
	Max                int       `json:"max"`
	AnchorTimestamp    int64     `json:"anchor"`
	SampleTemperatures []float64 `json:"temps"`
}

type DailyTrend []TrendPoint

type HourlyEntry struct {
	Label                string         `json:"label"`
	Sample               ForecastSample `json:"sample"`
	Temperature          int            `json:"temp"`
	PrecipitationPercent int            `json:"pop_pct"`
}

type HourlyWindow []HourlyEntry

type Dashboard struct {
	RequestID uint64       `json:"request_id"`
	Location  string       `json:"location"`
	Theme     string       `json:"theme"`
	Current   WeatherData  `json:"current"`
	Hourly    HourlyWindow `json:"hourly"`
	Trend     DailyTrend   `json:"trend"`
	FetchedAt time.Time    `json:"fetched_at"`
}
