// Package geo supplies the "use my location" coordinates for the dashboard.
package geo

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDenied means location sharing is switched off.
	ErrDenied = errors.New("geolocation: access denied")
	// ErrUnsupported means no location source is available.
	ErrUnsupported = errors.New("geolocation: not supported")
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %v out of range", c.Lon)
	}
	return nil
}

type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// Static returns a configured home position.
type Static struct {
	Enabled bool
	Home    *Coordinates
}

func (s Static) Locate(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	if !s.Enabled {
		return Coordinates{}, ErrDenied
	}
	if s.Home == nil {
		return Coordinates{}, ErrUnsupported
	}
	return *s.Home, nil
}
