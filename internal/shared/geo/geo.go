package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0

	// MetersPerDegreeLat is the length of one degree of latitude used for blur offsets.
	MetersPerDegreeLat = 111320.0
)

// Point is a GeoJSON point. Coordinates are stored longitude first.
type Point struct {
	Lng float64
	Lat float64
}

type pointJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var raw pointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "" && raw.Type != "Point" {
		return fmt.Errorf("geo: expected Point, got %q", raw.Type)
	}
	if len(raw.Coordinates) != 2 {
		return fmt.Errorf("geo: point needs 2 coordinates, got %d", len(raw.Coordinates))
	}
	p.Lng, p.Lat = raw.Coordinates[0], raw.Coordinates[1]
	return nil
}

func (p Point) Valid() bool {
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// BBox is an axis-aligned box in degrees.
type BBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

func (b BBox) Valid() bool {
	return Point{Lng: b.West, Lat: b.South}.Valid() &&
		Point{Lng: b.East, Lat: b.North}.Valid() &&
		b.West <= b.East && b.South <= b.North
}

func (b BBox) Contains(p Point) bool {
	return p.Lng >= b.West && p.Lng <= b.East && p.Lat >= b.South && p.Lat <= b.North
}

func (b BBox) Center() Point {
	return Point{Lng: (b.West + b.East) / 2, Lat: (b.South + b.North) / 2}
}

// HaversineKm returns the great-circle distance between two lat/lng pairs.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func DistanceKm(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Blur returns a decoy point uniformly distributed over the disk of radiusKm around center.
// uniform must return values in [0, 1). The radius is drawn as radiusKm*sqrt(U) so that
// density is uniform per area rather than per radius.
func Blur(center Point, radiusKm float64, uniform func() float64) Point {
	if radiusKm <= 0 {
		return center
	}
	angle := 2 * math.Pi * uniform()
	r := radiusKm * 1000 * math.Sqrt(uniform())

	dy := r * math.Sin(angle)
	dx := r * math.Cos(angle)

	// Near the poles a metre spans ever more degrees of longitude.
	cosLat := max(math.Cos(toRad(center.Lat)), minCosLat)

	lat := center.Lat + dy/MetersPerDegreeLat
	lng := center.Lng + dx/(MetersPerDegreeLat*cosLat)
	return Normalize(Point{Lng: lng, Lat: lat})
}

const minCosLat = 1e-6

// Normalize folds a point that crossed a pole back onto the globe and wraps its
// longitude into [-180, 180).
func Normalize(p Point) Point {
	switch {
	case p.Lat > 90:
		p.Lat = 180 - p.Lat
		p.Lng += 180
	case p.Lat < -90:
		p.Lat = -180 - p.Lat
		p.Lng += 180
	}
	if p.Lng < -180 || p.Lng >= 180 {
		p.Lng = math.Mod(p.Lng+180, 360)
		if p.Lng < 0 {
			p.Lng += 360
		}
		p.Lng -= 180
	}
	return p
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
