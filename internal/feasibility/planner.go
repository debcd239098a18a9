package feasibility

import (
	"strconv"

	"github.com/ignite/audience-feasibility/internal/search"
)

// PlanBatch builds the single search that counts the consented population of
// countries over indices and the distinct users of every segment. Segment i
// is keyed "i" in the aggregations.
func PlanBatch(indices, countries []string, segments []Segment, io string) (search.Request, error) {
	if len(segments) == 0 {
		return search.Request{}, ErrEmptySegmentSet
	}

	aggs := make(map[string]search.Aggregation, len(segments)+1)
	for i, segment := range segments {
		filter, err := BuildSegmentFilter(segment, io)
		if err != nil {
			return search.Request{}, err
		}
		aggs[strconv.Itoa(i)] = filter
	}
	aggs[DistinctInPopulationAggregation] = search.Cardinality{Field: FieldUserID}

	return search.Request{
		Indices:      indices,
		Size:         0,
		Query:        search.ConstantScore{Filter: BuildConsentedPopulationFilter(countries)},
		Aggregations: aggs,
	}, nil
}

// readCounts extracts one RawCounts per planned segment from resp.
func readCounts(resp *search.Response, segments int) ([]RawCounts, error) {
	population, err := resp.Value(DistinctInPopulationAggregation)
	if err != nil {
		return nil, err
	}

	counts := make([]RawCounts, segments)
	for i := range counts {
		volume, err := resp.Value(strconv.Itoa(i), DistinctInSegmentAggregation)
		if err != nil {
			return nil, err
		}
		counts[i] = RawCounts{Population: population, SegmentVolume: volume}
	}
	return counts, nil
}
