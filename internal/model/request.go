package model

// ReminderRequest attaches a reminder to a point of interest. Radius defaults
// to DefaultRadius when omitted.
type ReminderRequest struct {
	LocationID string   `json:"location_id"`
	Name       string   `json:"name" validate:"max=200"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Radius     *float64 `json:"radius,omitempty"`
	Note       string   `json:"note" validate:"max=1000"`
}

// Location returns the point of interest the reminder is attached to.
func (r ReminderRequest) Location() Location {
	return Location{
		ID:        r.LocationID,
		Name:      r.Name,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}

// RadiusOrDefault returns the requested radius or DefaultRadius.
func (r ReminderRequest) RadiusOrDefault() float64 {
	if r.Radius == nil {
		return DefaultRadius
	}
	return *r.Radius
}

// DeviceLocationRequest is a location fix reported by the device.
type DeviceLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// AuthorizationRequest is the device's answer to a location permission prompt.
type AuthorizationRequest struct {
	Status string `json:"status" validate:"required"`
}
