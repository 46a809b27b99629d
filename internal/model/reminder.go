package model

import (
	"fmt"
	"math"
)

// DefaultRadius is the geofence radius in meters used when a request omits one.
const DefaultRadius = 500

// Reminder is a persisted geofence with a note, bound to a named location.
type Reminder struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	Note      string  `json:"note"`
}

// DisplayName returns the reminder name, or fallback when it is empty.
func (r Reminder) DisplayName(fallback string) string {
	if r.Name == "" {
		return fallback
	}
	return r.Name
}

// ValidateGeometry reports whether the reminder can be turned into a monitored
// region. NaN and infinite values are rejected.
func (r Reminder) ValidateGeometry() error {
	if !(r.Radius > 0) || math.IsInf(r.Radius, 1) {
		return fmt.Errorf("radius must be a positive number of meters, got %v", r.Radius)
	}
	if !(r.Latitude >= -90 && r.Latitude <= 90) {
		return fmt.Errorf("latitude %v out of range [-90, 90]", r.Latitude)
	}
	if !(r.Longitude >= -180 && r.Longitude <= 180) {
		return fmt.Errorf("longitude %v out of range [-180, 180]", r.Longitude)
	}
	return nil
}

// Region builds the circular region monitored for this reminder.
func (r Reminder) Region() Region {
	return Region{
		ID:            r.ID,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		Radius:        r.Radius,
		NotifyOnEntry: true,
		NotifyOnExit:  true,
	}
}
