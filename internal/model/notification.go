package model

import "time"

const (
	GeofenceAlertTitle    = "Geofence Alert"
	TestNotificationTitle = "Test Notification"
	TestNotificationDelay = 5 * time.Second
)

// Trigger decides when a notification request fires. Exactly one of Region
// or Interval is set.
type Trigger struct {
	Region   *Region       `json:"region,omitempty"`
	Interval time.Duration `json:"interval,omitempty"`
	Repeats  bool          `json:"repeats"`
}

// NotificationRequest is a local notification waiting for its trigger.
type NotificationRequest struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Sound   bool    `json:"sound"`
	Trigger Trigger `json:"trigger"`
}

// DeliveredNotification is a notification whose trigger fired.
type DeliveredNotification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	RegionID    string    `json:"region_id,omitempty"`
	Event       string    `json:"event,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
}
