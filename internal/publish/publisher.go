// Package publish pushes fresh dashboards to an MQTT broker so wall
// displays can render them without polling the HTTP API.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ctrl-sourav/SkyCast/internal/models"
)

// Snapshot is the retained payload published per location.
type Snapshot struct {
	Location  string              `json:"location"`
	Theme     string              `json:"theme"`
	TempC     float64             `json:"temp_c"`
	Condition models.Condition    `json:"condition"`
	Hourly    models.HourlyWindow `json:"hourly"`
	Trend     models.DailyTrend   `json:"trend"`
	FetchedAt int64               `json:"fetched_at"`
}

type Publisher struct {
	client ClientAPI
	prefix string
}

func NewPublisher(client ClientAPI, topicPrefix string) *Publisher {
	return &Publisher{client: client, prefix: strings.TrimRight(topicPrefix, "/")}
}

// Topic returns the retained topic for a location, e.g.
// "skycast/dashboard/london_gb".
func (p *Publisher) Topic(location string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == ',' || r == '-':
			return '_'
		default:
			return -1
		}
	}, location)
	for strings.Contains(slug, "__") {
		slug = strings.ReplaceAll(slug, "__", "_")
	}
	return p.prefix + "/" + strings.Trim(slug, "_")
}

func (p *Publisher) Publish(ctx context.Context, d models.Dashboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(Snapshot{
		Location:  d.Location,
		Theme:     d.Theme,
		TempC:     d.Current.TempC,
		Condition: d.Current.Condition,
		Hourly:    d.Hourly,
		Trend:     d.Trend,
		FetchedAt: d.FetchedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return p.client.PublishWith(p.Topic(d.Location), payload, true)
}
