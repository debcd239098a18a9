package search

import (
	"context"
	"encoding/json"
)

// SortField orders hits by a document field.
type SortField struct {
	Field string
	Desc  bool
}

// Request is one search round trip: target indices plus the request body.
type Request struct {
	Indices      []string
	Size         int
	Query        Query
	Aggregations map[string]Aggregation
	Sort         []SortField
}

// Body returns the JSON-ready request body.
func (r Request) Body() map[string]any {
	body := map[string]any{"size": r.Size}
	if r.Query != nil {
		body["query"] = r.Query.Source()
	}
	if len(r.Aggregations) > 0 {
		body["aggregations"] = aggregationsSource(r.Aggregations)
	}
	if len(r.Sort) > 0 {
		sort := make(map[string]any, len(r.Sort))
		for _, s := range r.Sort {
			order := "asc"
			if s.Desc {
				order = "desc"
			}
			sort[s.Field] = map[string]any{"order": order}
		}
		body["sort"] = sort
	}
	return body
}

// MarshalJSON encodes the request body.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Body())
}

// Searcher executes search requests against the cluster. Implementations
// must not retry or cache; the caller owns both policies.
type Searcher interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, req Request) (*Response, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
