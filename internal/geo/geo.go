// Package geo provides straight-line distances between geocoded points and
// the small amount of planar geometry the planners need.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/umahmood/haversine"
)

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point is a geocoded location with a stable caller-owned identifier.
type Point struct {
	ID string `json:"id"`
	LatLng
}

// Orb returns the coordinate as an orb point (x = longitude, y = latitude).
func (c LatLng) Orb() orb.Point { return orb.Point{c.Lng, c.Lat} }

// Valid reports whether the coordinate is finite and within lat/lng range.
func (c LatLng) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// DistanceKm returns the great-circle distance in kilometers.
func DistanceKm(a, b LatLng) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lng},
		haversine.Coord{Lat: b.Lat, Lon: b.Lng},
	)
	return km
}

// DistanceMeters returns the great-circle distance rounded to the nearest meter.
func DistanceMeters(a, b LatLng) int {
	return int(math.Round(DistanceKm(a, b) * 1000))
}

// Centroid returns the mean latitude and longitude of the given coordinates.
// An empty slice yields the zero value.
func Centroid(coords []LatLng) LatLng {
	if len(coords) == 0 {
		return LatLng{}
	}
	mp := make(orb.MultiPoint, len(coords))
	for i, c := range coords {
		mp[i] = c.Orb()
	}
	c, _ := planar.CentroidArea(mp)
	return LatLng{Lat: c.Y(), Lng: c.X()}
}

// Frame is a local equirectangular projection: longitude deltas are scaled by
// the cosine of a reference latitude so that short vectors are roughly planar.
type Frame struct {
	cosLat float64
}

// NewFrame builds a projection referenced at the average latitude of points.
func NewFrame(points []LatLng) Frame {
	if len(points) == 0 {
		return Frame{cosLat: 1}
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Lat
	}
	return Frame{cosLat: math.Cos(sum / float64(len(points)) * math.Pi / 180)}
}

// Vector returns the planar displacement from a to b in scaled degrees
// (x = east, y = north).
func (f Frame) Vector(a, b LatLng) (dx, dy float64) {
	return (b.Lng - a.Lng) * f.cosLat, b.Lat - a.Lat
}
