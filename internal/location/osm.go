package location

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"
)

// OSMExtract is an Overpass response converted with ::geom=geom() and a merged center.
type OSMExtract struct {
	Elements []OSMElement `json:"elements"`
}

type OSMElement struct {
	ID       int64             `json:"id"`
	Type     string            `json:"type"`
	Tags     map[string]string `json:"tags"`
	Geometry *Geometry         `json:"geometry"`
	Center   *geo.Point        `json:"center"`
	Lat      *float64          `json:"lat"`
	Lon      *float64          `json:"lon"`
}

func DecodeOSMExtract(r io.Reader) (OSMExtract, error) {
	var ex OSMExtract
	if err := json.NewDecoder(r).Decode(&ex); err != nil {
		return OSMExtract{}, fmt.Errorf("decode osm extract: %w", err)
	}
	return ex, nil
}

// NewLocationFromOSM maps a sport element onto a location input. The sport tag
// becomes the activity types and is dropped from the remaining tags.
func NewLocationFromOSM(el OSMElement) (NewLocation, error) {
	sport := el.Tags["sport"]
	var activities []string
	for _, a := range strings.Split(sport, ";") {
		if a = strings.TrimSpace(a); a != "" {
			activities = append(activities, a)
		}
	}
	if len(activities) == 0 {
		return NewLocation{}, fmt.Errorf("%w: osm element %d has no sport tag", apperr.ErrInvalidInput, el.ID)
	}

	var center geo.Point
	switch {
	case el.Center != nil:
		center = *el.Center
	case el.Lat != nil && el.Lon != nil:
		center = geo.Point{Lng: *el.Lon, Lat: *el.Lat}
	default:
		return NewLocation{}, fmt.Errorf("%w: osm element %d has no center", apperr.ErrInvalidInput, el.ID)
	}
	if !center.Valid() {
		return NewLocation{}, fmt.Errorf("%w: osm element %d center out of range", apperr.ErrInvalidInput, el.ID)
	}

	tags := make(map[string]string, len(el.Tags))
	for k, v := range el.Tags {
		if k != "sport" && k != "_osm_type" {
			tags[k] = v
		}
	}

	in := NewLocation{
		ActivityTypes: activities,
		Location:      center,
		Tags:          tags,
		Geometry:      el.Geometry,
	}
	if name, ok := el.Tags["name"]; ok {
		in.Name = &name
	}
	id := el.ID
	in.OSMID = &id
	return in, nil
}
