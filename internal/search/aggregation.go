package search

// Aggregation is a node of the aggregation DSL.
type Aggregation interface {
	Source() any
}

// Cardinality counts distinct values of a field.
type Cardinality struct {
	Field string
}

// Source implements Aggregation.
func (a Cardinality) Source() any {
	return map[string]any{"cardinality": map[string]any{"field": a.Field}}
}

// TermsAggregation buckets documents by field value.
type TermsAggregation struct {
	Field string
	Size  int // zero keeps the cluster default
}

// Source implements Aggregation.
func (a TermsAggregation) Source() any {
	body := map[string]any{"field": a.Field}
	if a.Size > 0 {
		body["size"] = a.Size
	}
	return map[string]any{"terms": body}
}

// FilterAggregation narrows the documents of its sub-aggregations to those
// matching Filter.
type FilterAggregation struct {
	Filter       Query
	Aggregations map[string]Aggregation
}

// Source implements Aggregation.
func (a FilterAggregation) Source() any {
	body := map[string]any{"filter": a.Filter.Source()}
	if len(a.Aggregations) > 0 {
		body["aggregations"] = aggregationsSource(a.Aggregations)
	}
	return body
}

func aggregationsSource(aggs map[string]Aggregation) map[string]any {
	out := make(map[string]any, len(aggs))
	for name, agg := range aggs {
		out[name] = agg.Source()
	}
	return out
}
