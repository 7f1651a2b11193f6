package location

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"

	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"
)

// Field names accepted in Patch.Before and Patch.After.
const (
	FieldName          = "name"
	FieldGeometry      = "geometry"
	FieldActivityTypes = "activity_types"
	FieldLocation      = "location"
)

// FieldUpdate is one validated before/after change of a mutable location field.
// The set of implementations is closed: NameUpdate, GeometryUpdate,
// ActivityTypesUpdate and PointUpdate.
type FieldUpdate interface {
	Field() string
	matches(d *Detailed) bool
	apply(d *Detailed)
}

type NameUpdate struct {
	Before, After *string
}

func (NameUpdate) Field() string { return FieldName }

func (u NameUpdate) matches(d *Detailed) bool {
	if d.Name == nil || u.Before == nil {
		return d.Name == nil && u.Before == nil
	}
	return *d.Name == *u.Before
}

func (u NameUpdate) apply(d *Detailed) { d.Name = u.After }

type GeometryUpdate struct {
	Before, After *Geometry
}

func (GeometryUpdate) Field() string { return FieldGeometry }

func (u GeometryUpdate) matches(d *Detailed) bool { return reflect.DeepEqual(d.Geometry, u.Before) }

func (u GeometryUpdate) apply(d *Detailed) { d.Geometry = u.After }

type ActivityTypesUpdate struct {
	Before, After []string
}

func (ActivityTypesUpdate) Field() string { return FieldActivityTypes }

func (u ActivityTypesUpdate) matches(d *Detailed) bool {
	return slices.Equal(d.ActivityTypes, u.Before)
}

func (u ActivityTypesUpdate) apply(d *Detailed) { d.ActivityTypes = slices.Clone(u.After) }

type PointUpdate struct {
	Before, After geo.Point
}

func (PointUpdate) Field() string { return FieldLocation }

func (u PointUpdate) matches(d *Detailed) bool { return d.Location == u.Before }

func (u PointUpdate) apply(d *Detailed) { d.Location = u.After }

// parseFieldUpdates turns the raw before/after maps into typed updates, ordered by field name.
func parseFieldUpdates(before, after map[string]json.RawMessage) ([]FieldUpdate, error) {
	if before == nil {
		return nil, fmt.Errorf("%w: after given without before", apperr.ErrInvalidHistory)
	}

	keys := make([]string, 0, len(after))
	for k := range after {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]FieldUpdate, 0, len(keys))
	for _, key := range keys {
		if !isMutableField(key) {
			return nil, fmt.Errorf("%w: %q", apperr.ErrInvalidUpdateType, key)
		}
		rawBefore, ok := before[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q missing in before", apperr.ErrInvalidHistory, key)
		}
		u, err := parseFieldUpdate(key, rawBefore, after[key])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", apperr.ErrInvalidHistory, key, err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func isMutableField(key string) bool {
	switch key {
	case FieldName, FieldGeometry, FieldActivityTypes, FieldLocation:
		return true
	}
	return false
}

func parseFieldUpdate(key string, before, after json.RawMessage) (FieldUpdate, error) {
	switch key {
	case FieldName:
		var u NameUpdate
		if err := decodePair(before, after, &u.Before, &u.After); err != nil {
			return nil, err
		}
		return u, nil
	case FieldGeometry:
		var u GeometryUpdate
		if err := decodePair(before, after, &u.Before, &u.After); err != nil {
			return nil, err
		}
		return u, nil
	case FieldActivityTypes:
		var u ActivityTypesUpdate
		if err := decodePair(before, after, &u.Before, &u.After); err != nil {
			return nil, err
		}
		if len(u.After) == 0 {
			return nil, fmt.Errorf("activity types cannot be empty")
		}
		return u, nil
	case FieldLocation:
		var u PointUpdate
		if err := decodePair(before, after, &u.Before, &u.After); err != nil {
			return nil, err
		}
		if !u.After.Valid() {
			return nil, fmt.Errorf("coordinates out of range")
		}
		return u, nil
	}
	return nil, fmt.Errorf("unknown field")
}

func decodePair(before, after json.RawMessage, b, a any) error {
	if err := json.Unmarshal(before, b); err != nil {
		return fmt.Errorf("before: %w", err)
	}
	if err := json.Unmarshal(after, a); err != nil {
		return fmt.Errorf("after: %w", err)
	}
	return nil
}
