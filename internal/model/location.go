package model

// Location is a point of interest returned by a fetch. It is never persisted.
type Location struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Category  string  `json:"category"`
}

// MapRegion is the visible map area: a center and a span in degrees.
type MapRegion struct {
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`
	LatitudeDelta   float64 `json:"latitude_delta"`
	LongitudeDelta  float64 `json:"longitude_delta"`
}

// DefaultMapRegion is centered on Central Park.
func DefaultMapRegion() MapRegion {
	return MapRegion{
		CenterLatitude:  40.785091,
		CenterLongitude: -73.968285,
		LatitudeDelta:   0.05,
		LongitudeDelta:  0.05,
	}
}
