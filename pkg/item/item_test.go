package item

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleItem = `{
  "type": "Feature",
  "stac_version": "1.0.0",
  "id": "S2A_52HGH_20221007_0_L2A",
  "collection": "sentinel-2-l2a",
  "geometry": {"type": "Point", "coordinates": [1, 2]},
  "properties": {"datetime": "2022-10-07T01:02:03Z", "s2:mgrs_tile": "52HGH"},
  "links": [{"href": "https://example.com/item.json", "rel": "self", "method": "GET"}],
  "assets": {"B01": {"href": "s3://bucket/B01.tif", "type": "image/tiff", "roles": ["data"], "gsd": 60}},
  "custom:top": {"nested": true}
}`

func TestRoundTripPreservesUnknownFields(t *testing.T) {
	var it Item
	require.NoError(t, json.Unmarshal([]byte(sampleItem), &it))

	assert.Equal(t, "S2A_52HGH_20221007_0_L2A", it.ID)
	assert.Equal(t, "sentinel-2-l2a", it.Collection)
	assert.Equal(t, map[string]any{"nested": true}, it.Extra["custom:top"])
	assert.Equal(t, json.Number("60"), it.Assets["B01"].Extra["gsd"])
	assert.Equal(t, "GET", it.Links[0].Extra["method"])

	data, err := json.Marshal(it)
	require.NoError(t, err)
	assert.JSONEq(t, sampleItem, string(data))
}

func TestLargeIntegersSurviveCloneAndEncode(t *testing.T) {
	const raw = `{"type": "Feature", "id": "a", "geometry": null, "links": [], "assets": {},
	  "properties": {"sequence": 9007199254740993, "ratio": 0.1000000000000000055511151231257827}}`
	var it Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))
	assert.Equal(t, json.Number("9007199254740993"), it.Properties["sequence"])

	c, err := it.Clone()
	require.NoError(t, err)
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sequence":9007199254740993`)
	assert.Contains(t, string(data), `"ratio":0.1000000000000000055511151231257827`)
}

func TestMarshalFillsDefaults(t *testing.T) {
	data, err := json.Marshal(Item{ID: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Feature","id":"x","geometry":null,"properties":{},"links":[],"assets":{}}`, string(data))
}

func TestTree(t *testing.T) {
	it := New("a")
	it.Properties["eo:cloud_cover"] = 3
	tree, err := it.Tree()
	require.NoError(t, err)
	assert.Equal(t, "a", tree["id"])
	assert.Equal(t, json.Number("3"), tree["properties"].(map[string]any)["eo:cloud_cover"])
	_, hasCollection := tree["collection"]
	assert.False(t, hasCollection)
}

func TestDatetime(t *testing.T) {
	it := New("a")
	_, ok := it.Datetime()
	assert.False(t, ok)

	it.Properties["start_datetime"] = "2021-01-02T00:00:00+02:00"
	ts, ok := it.Datetime()
	require.True(t, ok)
	assert.True(t, time.Date(2021, 1, 1, 22, 0, 0, 0, time.UTC).Equal(ts))

	it.Properties["datetime"] = "2022-10-07T01:02:03.5Z"
	ts, ok = it.Datetime()
	require.True(t, ok)
	assert.Equal(t, 2022, ts.Year())
}

func TestSetSoftwareVersionDeduplicatesExtension(t *testing.T) {
	it := New("a")
	it.SetSoftwareVersion("task", "0.1.0")
	it.SetSoftwareVersion("task", "0.2.0")

	assert.Equal(t, []string{ProcessingExtension}, it.StacExtensions)
	assert.Equal(t, map[string]any{"task": "0.2.0"}, it.Properties[ProcessingSoftware])
}

func TestDeriveFrom(t *testing.T) {
	var src Item
	require.NoError(t, json.Unmarshal([]byte(sampleItem), &src))

	derived, err := DeriveFrom(src)
	require.NoError(t, err)

	require.Len(t, derived.Links, 1)
	assert.Equal(t, "derived_from", derived.Links[0].Rel)
	assert.Equal(t, "https://example.com/item.json", derived.Links[0].Href)

	derived.Properties["changed"] = true
	_, leaked := src.Properties["changed"]
	assert.False(t, leaked)
	assert.Len(t, src.Links, 1)
}

func TestDeriveFromWithoutSelfLink(t *testing.T) {
	derived, err := DeriveFrom(New("a"))
	require.NoError(t, err)
	assert.Empty(t, derived.Links)
}
