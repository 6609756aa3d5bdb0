package geofence

import (
	"errors"
	"math"

	"clubattend/pkg/types"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distance
const EarthRadiusKm = 6371.0

var (
	ErrLocationRequired = errors.New("location is required for this club")
	ErrOutsideGeofence  = errors.New("location is outside the club's check-in radius")
)

// Point is a latitude/longitude pair in degrees
type Point struct {
	Latitude  float64
	Longitude float64
}

// Distance returns the haversine great-circle distance between a and b in km
func Distance(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Check applies a club's location policy to a submitted position.
// lat and lon are nil when the client sent no position.
// FUNCTIONAL DISCOVERY: A club that enables the geofence before setting a
// centre accepts any position; requiring coordinates still applies
func Check(loc types.ClubLocation, lat, lon *float64) error {
	if !loc.Enabled {
		return nil
	}
	if lat == nil || lon == nil {
		return ErrLocationRequired
	}
	if !loc.HasCentre() {
		return nil
	}

	centre := Point{Latitude: *loc.Latitude, Longitude: *loc.Longitude}
	if Distance(centre, Point{Latitude: *lat, Longitude: *lon}) > loc.RadiusKm {
		return ErrOutsideGeofence
	}
	return nil
}
