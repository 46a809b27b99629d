package model

import (
	"fmt"
	"time"
)

// Region is a circular geofence watched by the region monitor.
type Region struct {
	ID            string  `json:"id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Radius        float64 `json:"radius"`
	NotifyOnEntry bool    `json:"notify_on_entry"`
	NotifyOnExit  bool    `json:"notify_on_exit"`
}

type RegionEventKind string

const (
	RegionEnter RegionEventKind = "enter"
	RegionExit  RegionEventKind = "exit"
)

// RegionEvent is a boundary crossing reported by the region monitor.
type RegionEvent struct {
	Kind     RegionEventKind `json:"kind"`
	RegionID string          `json:"region_id"`
	At       time.Time       `json:"at"`
}

// Coordinate is a location fix reported by the device.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects fixes outside [-90, 90] x [-180, 180], NaN included.
func (c Coordinate) Validate() error {
	if !(c.Latitude >= -90 && c.Latitude <= 90) {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if !(c.Longitude >= -180 && c.Longitude <= 180) {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}
