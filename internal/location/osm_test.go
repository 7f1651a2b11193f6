package location

import (
	"strings"
	"testing"

	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExtract = `{
  "elements": [
    {
      "id": 4711,
      "type": "way",
      "tags": {"sport": "tennis;padel", "name": "Hardturm courts", "surface": "clay"},
      "geometry": {"type": "Polygon", "coordinates": [[[8.5, 47.3], [8.6, 47.3], [8.6, 47.4], [8.5, 47.3]]]},
      "center": {"type": "Point", "coordinates": [8.55, 47.35]}
    },
    {
      "id": 12,
      "type": "node",
      "tags": {"sport": "table_tennis"},
      "lat": 46.95,
      "lon": 7.44
    }
  ]
}`

func TestNewLocationFromOSM(t *testing.T) {
	ex, err := DecodeOSMExtract(strings.NewReader(sampleExtract))
	require.NoError(t, err)
	require.Len(t, ex.Elements, 2)

	in, err := NewLocationFromOSM(ex.Elements[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"tennis", "padel"}, in.ActivityTypes)
	assert.Equal(t, geo.Point{Lng: 8.55, Lat: 47.35}, in.Location)
	require.NotNil(t, in.Name)
	assert.Equal(t, "Hardturm courts", *in.Name)
	assert.Equal(t, map[string]string{"name": "Hardturm courts", "surface": "clay"}, in.Tags)
	require.NotNil(t, in.Geometry)
	assert.Equal(t, "Polygon", in.Geometry.Type)
	require.NotNil(t, in.OSMID)
	assert.Equal(t, int64(4711), *in.OSMID)

	in, err = NewLocationFromOSM(ex.Elements[1])
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lng: 7.44, Lat: 46.95}, in.Location)
	assert.Nil(t, in.Name)
	assert.Nil(t, in.Geometry)
	assert.Empty(t, in.Tags)
}

func TestNewLocationFromOSMRejectsIncomplete(t *testing.T) {
	_, err := NewLocationFromOSM(OSMElement{ID: 1, Tags: map[string]string{"name": "x"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = NewLocationFromOSM(OSMElement{ID: 2, Tags: map[string]string{"sport": "soccer"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	lat, lon := 95.0, 8.0
	_, err = NewLocationFromOSM(OSMElement{ID: 9, Tags: map[string]string{"sport": "tennis"}, Lat: &lat, Lon: &lon})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
