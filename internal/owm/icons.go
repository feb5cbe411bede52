package owm

import "strings"

// IconURL returns the hosted image for an API icon id such as "10d".
func IconURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://openweathermap.org/img/wn/" + id + "@2x.png"
}

// Theme maps a condition group ("Rain", "Clouds", ...) to a dashboard
// background theme key.
func Theme(conditionMain string) string {
	switch c := strings.ToLower(conditionMain); c {
	case "clear", "clouds", "rain", "snow", "thunderstorm":
		return c
	default:
		return "default"
	}
}
