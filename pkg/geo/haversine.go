package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const earthRadiusMeters = 6_371_000.0

// HalfCircumferenceMeters is the largest great-circle distance between
// two points on the sphere used by Haversine.
const HalfCircumferenceMeters = math.Pi * earthRadiusMeters

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance is Haversine over orb points ([lon, lat]).
func Distance(a, b orb.Point) float64 {
	return Haversine(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

var world = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// BoundAround returns the bounding box enclosing every point within
// meters of center, clipped to valid coordinates. Once the radius covers
// the hemisphere the whole world is returned.
func BoundAround(center orb.Point, meters float64) orb.Bound {
	if meters >= HalfCircumferenceMeters/2 {
		return world
	}
	b := orbgeo.NewBoundAroundPoint(center, meters)
	if b.Min[0] < -180 || b.Max[0] > 180 {
		// wrapped across the antimeridian: widen to all longitudes
		b.Min[0], b.Max[0] = -180, 180
	}
	b.Min[1] = math.Max(b.Min[1], -90)
	b.Max[1] = math.Min(b.Max[1], 90)
	return b
}
