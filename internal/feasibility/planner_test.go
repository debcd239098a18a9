package feasibility

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-feasibility/internal/search"
)

func TestPlanBatch_EmptySegmentSet(t *testing.T) {
	_, err := PlanBatch([]string{"feasibility_tool_2020-05*"}, []string{"FR"}, nil, "")
	assert.ErrorIs(t, err, ErrEmptySegmentSet)
}

func TestPlanBatch_PropagatesSegmentError(t *testing.T) {
	_, err := PlanBatch([]string{"i"}, []string{"FR"}, []Segment{sampleSegment(), {}}, "")
	assert.ErrorIs(t, err, ErrNoIncludedUniverse)
}

func TestPlanBatch_Body(t *testing.T) {
	segments := []Segment{sampleSegment(), sampleSegment()}
	req, err := PlanBatch([]string{"feasibility_tool_2020-04*", "feasibility_tool_2020-05*"}, []string{"FR"}, segments, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"feasibility_tool_2020-04*", "feasibility_tool_2020-05*"}, req.Indices)
	assert.Equal(t, 0, req.Size)
	require.Len(t, req.Aggregations, 3)
	assert.Contains(t, req.Aggregations, "0")
	assert.Contains(t, req.Aggregations, "1")
	assert.Equal(t, search.Cardinality{Field: "odid.keyword"}, req.Aggregations["distinct-in-population"])

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded struct {
		Size  int `json:"size"`
		Query struct {
			ConstantScore struct {
				Filter json.RawMessage `json:"filter"`
			} `json:"constant_score"`
		} `json:"query"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, 0, decoded.Size)
	assert.JSONEq(t, `{"bool": {
		"filter": [{"terms": {"country": ["FR"]}}],
		"must_not": [{"terms": {"app_asset_list": ["unknown"]}}]
	}}`, string(decoded.Query.ConstantScore.Filter))
}

func TestReadCounts(t *testing.T) {
	resp, err := search.NewResponse([]byte(`{"aggregations": {
		"distinct-in-population": {"value": 10000},
		"0": {"doc_count": 10, "distinct-in-segment": {"value": 2000}},
		"1": {"doc_count": 10, "distinct-in-segment": {"value": 50}}
	}}`))
	require.NoError(t, err)

	counts, err := readCounts(resp, 2)
	require.NoError(t, err)
	assert.Equal(t, []RawCounts{
		{Population: 10000, SegmentVolume: 2000},
		{Population: 10000, SegmentVolume: 50},
	}, counts)
}

func TestReadCounts_MissingAggregation(t *testing.T) {
	resp, err := search.NewResponse([]byte(`{"aggregations": {"distinct-in-population": {"value": 1}}}`))
	require.NoError(t, err)

	_, err = readCounts(resp, 1)
	assert.ErrorIs(t, err, search.ErrMalformedResponse)

	resp, err = search.NewResponse([]byte(`{"aggregations": {}}`))
	require.NoError(t, err)
	_, err = readCounts(resp, 1)
	assert.ErrorIs(t, err, search.ErrMalformedResponse)
}
