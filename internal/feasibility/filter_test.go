package feasibility

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSegment() Segment {
	return Segment{
		PersonaName: "Casual gamers",
		Age:         []Age{Age18To24, Age25To34},
		Gender:      []Gender{GenderFemale},
		AssetLists: []AssetListItem{
			{IncludeExclude: Include, App: []string{"com.king.candycrush"}, Site: []string{"king.com"}},
			{IncludeExclude: Include, App: []string{"com.rovio.angrybirds"}, Site: []string{}},
			{IncludeExclude: Exclude, App: []string{}, Site: []string{"casino.example"}},
		},
	}
}

func marshalAgg(t *testing.T, v interface{ Source() any }) []byte {
	t.Helper()
	data, err := json.Marshal(v.Source())
	require.NoError(t, err)
	return data
}

func TestBuildSegmentFilter_IncludeOnly(t *testing.T) {
	segment := Segment{
		Age:    []Age{Age18To24},
		Gender: []Gender{GenderMale},
		AssetLists: []AssetListItem{
			{IncludeExclude: Include, App: []string{"a1"}, Site: []string{"s1"}},
		},
	}

	agg, err := BuildSegmentFilter(segment, "")
	require.NoError(t, err)

	want := `{
		"filter": {"bool": {"filter": [
			{"terms": {"age": ["18_24"]}},
			{"terms": {"gender": ["M"]}},
			{"bool": {"should": [
				{"terms": {"app_asset_list": ["a1"]}},
				{"terms": {"site_asset_list": ["s1"]}}
			]}}
		]}},
		"aggregations": {"distinct-in-segment": {"cardinality": {"field": "odid.keyword"}}}
	}`
	assert.JSONEq(t, want, string(marshalAgg(t, agg)))
}

func TestBuildSegmentFilter_IncludeAndExclude(t *testing.T) {
	agg, err := BuildSegmentFilter(sampleSegment(), "IO-42")
	require.NoError(t, err)

	want := `{
		"filter": {"bool": {
			"filter": [
				{"terms": {"age": ["18_24", "25_34"]}},
				{"terms": {"gender": ["F"]}},
				{"terms": {"io_list": ["IO-42"]}},
				{"bool": {"should": [
					{"terms": {"app_asset_list": ["com.king.candycrush"]}},
					{"terms": {"site_asset_list": ["king.com"]}}
				]}},
				{"bool": {"should": [{"terms": {"app_asset_list": ["com.rovio.angrybirds"]}}]}}
			],
			"must_not": [
				{"bool": {"should": [{"terms": {"site_asset_list": ["casino.example"]}}]}}
			]
		}},
		"aggregations": {"distinct-in-segment": {"cardinality": {"field": "odid.keyword"}}}
	}`
	assert.JSONEq(t, want, string(marshalAgg(t, agg)))
}

func TestBuildSegmentFilter_NoIncludedUniverse(t *testing.T) {
	segment := Segment{
		Age:        []Age{Age18To24},
		Gender:     []Gender{GenderMale},
		AssetLists: []AssetListItem{{IncludeExclude: Exclude, App: []string{"a1"}}},
	}

	_, err := BuildSegmentFilter(segment, "")
	assert.ErrorIs(t, err, ErrNoIncludedUniverse)

	_, err = BuildSegmentFilter(Segment{}, "")
	assert.ErrorIs(t, err, ErrNoIncludedUniverse)
}

func TestBuildSegmentFilter_EmptyUniverseIsPreserved(t *testing.T) {
	segment := Segment{
		AssetLists: []AssetListItem{{IncludeExclude: Include}},
	}

	agg, err := BuildSegmentFilter(segment, "")
	require.NoError(t, err)

	want := `{
		"filter": {"bool": {"filter": [
			{"terms": {"age": []}},
			{"terms": {"gender": []}},
			{"bool": {"should": []}}
		]}},
		"aggregations": {"distinct-in-segment": {"cardinality": {"field": "odid.keyword"}}}
	}`
	assert.JSONEq(t, want, string(marshalAgg(t, agg)))
}

func TestBuildConsentedPopulationFilter(t *testing.T) {
	q := BuildConsentedPopulationFilter([]string{"FR", "DE"})

	data, err := json.Marshal(q.Source())
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool": {
		"filter": [{"terms": {"country": ["FR", "DE"]}}],
		"must_not": [{"terms": {"app_asset_list": ["unknown"]}}]
	}}`, string(data))
}

func TestParseSegmentFilter_RoundTrip(t *testing.T) {
	segment := sampleSegment()

	agg, err := BuildSegmentFilter(segment, "IO-42")
	require.NoError(t, err)

	parsed, err := ParseSegmentFilter(marshalAgg(t, agg))
	require.NoError(t, err)

	assert.Equal(t, []string{"18_24", "25_34"}, parsed.Age)
	assert.Equal(t, []string{"F"}, parsed.Gender)
	assert.Equal(t, "IO-42", parsed.IO)

	var wantIncluded, wantExcluded []AssetListItem
	for _, item := range segment.AssetLists {
		if item.IncludeExclude == Include {
			wantIncluded = append(wantIncluded, item)
		} else {
			wantExcluded = append(wantExcluded, item)
		}
	}
	assert.Equal(t, wantIncluded, parsed.Included)
	assert.Equal(t, wantExcluded, parsed.Excluded)
}

func TestParseSegmentFilter_NoIO(t *testing.T) {
	agg, err := BuildSegmentFilter(sampleSegment(), "")
	require.NoError(t, err)

	parsed, err := ParseSegmentFilter(marshalAgg(t, agg))
	require.NoError(t, err)
	assert.Empty(t, parsed.IO)
	assert.Len(t, parsed.Included, 2)
	assert.Len(t, parsed.Excluded, 1)
}

func TestParseSegmentFilter_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"no filter", `{"aggregations":{}}`},
		{"foreign terms", `{"filter":{"bool":{"filter":[{"terms":{"city":["Paris"]}}]}}}`},
		{"foreign universe field", `{"filter":{"bool":{"filter":[{"bool":{"should":[{"terms":{"tv":["x"]}}]}}]}}}`},
		{"non terms branch", `{"filter":{"bool":{"must_not":[{"bool":{"should":[{"match":{"app":"x"}}]}}]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSegmentFilter([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}
