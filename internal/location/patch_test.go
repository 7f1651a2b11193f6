package location

import (
	"encoding/json"
	"testing"
	"time"

	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func sampleLocation() Detailed {
	name := "Letten court"
	return Detailed{
		ID:            "loc-1",
		ActivityTypes: []string{"basketball"},
		Location:      geo.Point{Lng: 8.54, Lat: 47.37},
		Name:          &name,
		TrustScore:    100,
		Tags:          map[string]string{"surface": "asphalt", "lit": "yes"},
		Geometry:      &Geometry{Type: "Point", Coordinates: []any{8.54, 47.37}},
		Photos:        []Photo{},
		Reviews:       EmptySummary(),
		Creation:      Creation{CreatedBy: SourceApp, Date: fixtureTime, UserID: "user-1"},
		LastModified:  fixtureTime,
		Version:       3,
	}
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestApplyOverwritesOnlyAfterFields(t *testing.T) {
	current := sampleLocation()
	newName := "Letten courts"

	got, err := Apply(current, Patch{
		LocationID: "loc-1",
		Before: map[string]json.RawMessage{
			FieldName:          rawJSON(t, "Letten court"),
			FieldActivityTypes: rawJSON(t, []string{"basketball"}),
		},
		After: map[string]json.RawMessage{
			FieldName:          rawJSON(t, newName),
			FieldActivityTypes: rawJSON(t, []string{"basketball", "streetball"}),
		},
	})
	require.NoError(t, err)

	want := sampleLocation()
	want.Name = &newName
	want.ActivityTypes = []string{"basketball", "streetball"}
	assert.Equal(t, want, got)
	assert.Equal(t, ShortFrom(got), ShortFrom(want))
}

func TestApplyGeometryAndPoint(t *testing.T) {
	current := sampleLocation()

	got, err := Apply(current, Patch{
		LocationID: "loc-1",
		Before: map[string]json.RawMessage{
			FieldGeometry: json.RawMessage(`{"type":"Point","coordinates":[8.54,47.37]}`),
			FieldLocation: json.RawMessage(`{"type":"Point","coordinates":[8.54,47.37]}`),
		},
		After: map[string]json.RawMessage{
			FieldGeometry: json.RawMessage(`{"type":"LineString","coordinates":[[8.54,47.37],[8.55,47.38]]}`),
			FieldLocation: json.RawMessage(`{"type":"Point","coordinates":[8.55,47.38]}`),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lng: 8.55, Lat: 47.38}, got.Location)
	assert.Equal(t, "LineString", got.Geometry.Type)
	assert.Equal(t, "Point", current.Geometry.Type)
}

func TestApplyStaleBeforeLeavesLocationUntouched(t *testing.T) {
	current := sampleLocation()

	_, err := Apply(current, Patch{
		LocationID: "loc-1",
		Before: map[string]json.RawMessage{
			FieldName:     rawJSON(t, "Letten court"),
			FieldLocation: json.RawMessage(`{"type":"Point","coordinates":[0,0]}`),
		},
		After: map[string]json.RawMessage{
			FieldName:     rawJSON(t, "renamed"),
			FieldLocation: json.RawMessage(`{"type":"Point","coordinates":[1,1]}`),
		},
		Tags: map[string]TagChange{"lit": {Mode: TagModeDelete, Content: Single("yes")}},
	})
	require.ErrorIs(t, err, apperr.ErrInvalidBeforeData)
	assert.Equal(t, sampleLocation(), current)
}

func TestApplyRejectsMalformedHistory(t *testing.T) {
	cases := map[string]struct {
		patch Patch
		want  error
	}{
		"unknown field": {
			patch: Patch{
				Before: map[string]json.RawMessage{"trust_score": rawJSON(t, 100)},
				After:  map[string]json.RawMessage{"trust_score": rawJSON(t, 1000)},
			},
			want: apperr.ErrInvalidUpdateType,
		},
		"after without before": {
			patch: Patch{After: map[string]json.RawMessage{FieldName: rawJSON(t, "x")}},
			want:  apperr.ErrInvalidHistory,
		},
		"key missing in before": {
			patch: Patch{
				Before: map[string]json.RawMessage{FieldActivityTypes: rawJSON(t, []string{"basketball"})},
				After:  map[string]json.RawMessage{FieldName: rawJSON(t, "x")},
			},
			want: apperr.ErrInvalidHistory,
		},
		"wrong value type": {
			patch: Patch{
				Before: map[string]json.RawMessage{FieldActivityTypes: rawJSON(t, "basketball")},
				After:  map[string]json.RawMessage{FieldActivityTypes: rawJSON(t, []string{"tennis"})},
			},
			want: apperr.ErrInvalidHistory,
		},
		"empty patch": {
			patch: Patch{},
			want:  apperr.ErrInvalidHistory,
		},
		"pair for add": {
			patch: Patch{Tags: map[string]TagChange{"fee": {Mode: TagModeAdd, Content: Pair("no", "yes")}}},
			want:  apperr.ErrInvalidHistory,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tc.patch.LocationID = "loc-1"
			_, err := Apply(sampleLocation(), tc.patch)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestApplyTagChanges(t *testing.T) {
	got, err := Apply(sampleLocation(), Patch{
		LocationID: "loc-1",
		Tags: map[string]TagChange{
			"fee":     {Mode: TagModeAdd, Content: Single("no")},
			"lit":     {Mode: TagModeDelete, Content: Single("yes")},
			"surface": {Mode: TagModeChange, Content: Pair("asphalt", "tartan")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"fee": "no", "surface": "tartan"}, got.Tags)
}

func TestApplyTagErrors(t *testing.T) {
	cases := map[string]struct {
		change TagChange
		tag    string
		want   error
	}{
		"add existing":       {tag: "lit", change: TagChange{Mode: TagModeAdd, Content: Single("no")}, want: apperr.ErrTagExists},
		"delete missing":     {tag: "fee", change: TagChange{Mode: TagModeDelete, Content: Single("no")}, want: apperr.ErrTagDoesNotExist},
		"change missing":     {tag: "fee", change: TagChange{Mode: TagModeChange, Content: Pair("no", "yes")}, want: apperr.ErrTagDoesNotExist},
		"delete wrong value": {tag: "lit", change: TagChange{Mode: TagModeDelete, Content: Single("no")}, want: apperr.ErrInvalidBeforeData},
		"change wrong old":   {tag: "surface", change: TagChange{Mode: TagModeChange, Content: Pair("grass", "tartan")}, want: apperr.ErrInvalidBeforeData},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			current := sampleLocation()
			_, err := Apply(current, Patch{LocationID: "loc-1", Tags: map[string]TagChange{tc.tag: tc.change}})
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, sampleLocation().Tags, current.Tags)
		})
	}
}

func TestTagChangeDecoding(t *testing.T) {
	var changes map[string]TagChange
	err := json.Unmarshal([]byte(`{
		"fee": {"mode": "add", "content": "no"},
		"surface": {"mode": "change", "content": ["asphalt", "tartan"]}
	}`), &changes)
	require.NoError(t, err)
	assert.Equal(t, Single("no"), changes["fee"].Content)
	assert.Equal(t, Pair("asphalt", "tartan"), changes["surface"].Content)

	err = json.Unmarshal([]byte(`{"x": {"mode": "change", "content": ["a", "b", "c"]}}`), &changes)
	assert.Error(t, err)
}

func TestShortFromDoesNotAlias(t *testing.T) {
	d := sampleLocation()
	d.Reviews.Add(Review{ID: "r1", OverallRating: 4})

	short := ShortFrom(d)
	assert.Equal(t, 4.0, short.AverageRating)

	*short.Name = "changed"
	short.ActivityTypes[0] = "tennis"
	assert.Equal(t, "Letten court", *d.Name)
	assert.Equal(t, "basketball", d.ActivityTypes[0])
}
