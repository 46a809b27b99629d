package util

import (
	"fmt"
	"log"
	"math"

	"github.com/twpayne/go-polyline"
)

const earthRadiusMeters = 6371000

// Coordinate represents a latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// DistanceMeters returns the great-circle distance between two points (haversine).
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Destination returns the point reached by travelling distance meters from
// (lat, lon) along the given bearing in degrees.
func Destination(lat, lon, bearing, distance float64) Coordinate {
	phi1 := lat * math.Pi / 180
	lambda1 := lon * math.Pi / 180
	theta := bearing * math.Pi / 180
	delta := distance / earthRadiusMeters

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	lonDeg := math.Mod(lambda2*180/math.Pi+540, 360) - 180
	return Coordinate{Lat: phi2 * 180 / math.Pi, Lon: lonDeg}
}

// CircleOutline approximates a circle of radius meters around the center with
// the given number of segments. The first point is repeated at the end so the
// ring is closed.
func CircleOutline(lat, lon, radius float64, segments int) []Coordinate {
	if segments < 3 {
		segments = 3
	}
	ring := make([]Coordinate, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := float64(i) * 360 / float64(segments)
		ring = append(ring, Destination(lat, lon, bearing, radius))
	}
	return append(ring, ring[0])
}

// EncodePolyline encodes coordinates with the standard precision 5 polyline algorithm.
func EncodePolyline(coords []Coordinate) string {
	pairs := make([][]float64, len(coords))
	for i, c := range coords {
		pairs[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(pairs))
}

func DecodePolyLines(shape string) ([][]float64, error) {
	decoded, _, err := polyline.DecodeCoords([]byte(shape))
	if err != nil {
		log.Println("error deocoding polyline: ", err)
		return nil, fmt.Errorf("failed to decode polyline %w", err)
	}
	return decoded, nil
}
