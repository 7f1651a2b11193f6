package location

import (
	"encoding/json"
	"time"

	"backend-meetspot/internal/shared/geo"
)

// CreationSource records how a location entered the system.
type CreationSource string

const (
	SourceApp CreationSource = "APP"
	SourceOSM CreationSource = "OSM"
)

type Creation struct {
	CreatedBy CreationSource `json:"created_by"`
	Date      time.Time      `json:"date"`
	UserID    string         `json:"user_id,omitempty"`
}

type Photo struct {
	UserID       string    `json:"user_id"`
	URL          string    `json:"url"`
	CreationDate time.Time `json:"creation_date"`
}

// Geometry is an optional GeoJSON shape (Point, LineString or GeometryCollection).
// Coordinates and Geometries are kept decoded so two geometries compare with reflect.DeepEqual.
type Geometry struct {
	Type        string           `json:"type"`
	Coordinates any              `json:"coordinates,omitempty"`
	Geometries  []map[string]any `json:"geometries,omitempty"`
}

// Review is a single user review of a location. It is also the element type of ReviewSummary.Recent.
type Review struct {
	ID            string            `json:"id"`
	LocationID    string            `json:"location_id"`
	UserID        string            `json:"user_id"`
	Description   ReviewDescription `json:"description"`
	OverallRating float64           `json:"overall_rating"`
	Details       map[string]any    `json:"details,omitempty"`
	CreationDate  time.Time         `json:"creation_date"`
}

type ReviewDescription struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Detailed is the full location document and the single source of truth.
type Detailed struct {
	ID            string            `json:"id"`
	ActivityTypes []string          `json:"activity_types"`
	Location      geo.Point         `json:"location"`
	Name          *string           `json:"name"`
	TrustScore    int               `json:"trust_score"`
	Tags          map[string]string `json:"tags"`
	Geometry      *Geometry         `json:"geometry"`
	Photos        []Photo           `json:"photos"`
	Reviews       ReviewSummary     `json:"reviews"`
	Creation      Creation          `json:"creation"`
	LastModified  time.Time         `json:"last_modified"`
	OSMID         *int64            `json:"osm_id,omitempty"`

	// Version is the optimistic concurrency token, kept in its own column.
	Version int64 `json:"-"`
}

// Short is the read-optimised projection used by map and list views.
// It is only ever produced by ShortFrom.
type Short struct {
	ID            string    `json:"id"`
	ActivityTypes []string  `json:"activity_types"`
	Location      geo.Point `json:"location"`
	Name          *string   `json:"name"`
	TrustScore    int       `json:"trust_score"`
	AverageRating float64   `json:"average_rating"`
}

// NewLocation is the payload of an organic submission or an import record.
type NewLocation struct {
	ActivityTypes []string          `json:"activity_types" validate:"required,min=1,dive,required"`
	Location      geo.Point         `json:"location"`
	Name          *string           `json:"name"`
	Tags          map[string]string `json:"tags"`
	Geometry      *Geometry         `json:"geometry"`
	OSMID         *int64            `json:"osm_id,omitempty"`
}

// Patch is a before/after claim about a location plus tag changes.
// Before and After stay raw until they are parsed into FieldUpdates.
type Patch struct {
	LocationID string                     `json:"location_id" validate:"required"`
	Before     map[string]json.RawMessage `json:"before"`
	After      map[string]json.RawMessage `json:"after"`
	Tags       map[string]TagChange       `json:"tags"`
}

// HistoryEntry is the immutable audit record of one applied patch.
type HistoryEntry struct {
	ID         string                     `json:"id"`
	LocationID string                     `json:"location_id"`
	UserID     string                     `json:"user_id"`
	Date       time.Time                  `json:"date"`
	Before     map[string]json.RawMessage `json:"before"`
	After      map[string]json.RawMessage `json:"after"`
	Tags       map[string]TagChange       `json:"tags"`
}

type HistoryPage struct {
	NextOffset *int           `json:"next_offset"`
	Entries    []HistoryEntry `json:"entries"`
}

type UpdateReport struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	UpdateID string    `json:"update_id"`
	Reason   string    `json:"reason"`
	Date     time.Time `json:"date"`
}
