package geo

import (
	"errors"
	"math"
)

// earthRadiusMeters is the mean spherical earth radius used for distance
// calculations.
const earthRadiusMeters = 6371000.0

// ErrInvalidCoordinates indicates a latitude or longitude outside the valid range.
var ErrInvalidCoordinates = errors.New("geo: invalid coordinates")

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// ValidateCoordinates reports whether lat is within [-90, 90] and lng within
// [-180, 180].
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 {
		return ErrInvalidCoordinates
	}
	if lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Distance returns the haversine great-circle distance between two points in
// meters on a sphere of radius 6,371,000 m.
func Distance(a, b Point) float64 {
	latA := radians(a.Lat)
	latB := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng

	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether candidate lies within radiusMeters of center,
// along with the computed distance.
func WithinRadius(center, candidate Point, radiusMeters float64) (bool, float64) {
	d := Distance(center, candidate)
	return d <= radiusMeters, d
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
