package model

import "time"

// LogEntry is one line of the geofence event log.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}
