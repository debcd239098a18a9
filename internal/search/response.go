package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedResponse is returned when the cluster answer is not JSON or
// lacks a value the request asked for.
var ErrMalformedResponse = errors.New("malformed search response")

// Bucket is one terms-aggregation bucket.
type Bucket struct {
	Key      string
	DocCount int64
}

// Hit is one matched document.
type Hit struct {
	Index  string
	ID     string
	Source json.RawMessage
}

// Response wraps a raw search response body.
type Response struct {
	raw []byte
}

// NewResponse validates raw as JSON and wraps it.
func NewResponse(raw []byte) (*Response, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	return &Response{raw: raw}, nil
}

// Raw returns the response body as received.
func (r *Response) Raw() []byte {
	return r.raw
}

// Value reads the scalar value of the aggregation at path, e.g.
// Value("0", "distinct-in-segment") reads aggregations.0.distinct-in-segment.value.
func (r *Response) Value(path ...string) (int64, error) {
	p := aggregationPath(path...) + ".value"
	res := gjson.GetBytes(r.raw, p)
	if !res.Exists() {
		return 0, fmt.Errorf("%w: aggregation %q has no value", ErrMalformedResponse, strings.Join(path, "."))
	}
	return res.Int(), nil
}

// Buckets reads the buckets of a terms aggregation.
func (r *Response) Buckets(name string) ([]Bucket, error) {
	res := gjson.GetBytes(r.raw, aggregationPath(name)+".buckets")
	if !res.Exists() {
		return nil, fmt.Errorf("%w: aggregation %q has no buckets", ErrMalformedResponse, name)
	}
	items := res.Array()
	buckets := make([]Bucket, 0, len(items))
	for _, item := range items {
		buckets = append(buckets, Bucket{
			Key:      item.Get("key").String(),
			DocCount: item.Get("doc_count").Int(),
		})
	}
	return buckets, nil
}

// Hits returns the matched documents in response order.
func (r *Response) Hits() []Hit {
	items := gjson.GetBytes(r.raw, "hits.hits").Array()
	hits := make([]Hit, 0, len(items))
	for _, item := range items {
		hits = append(hits, Hit{
			Index:  item.Get("_index").String(),
			ID:     item.Get("_id").String(),
			Source: json.RawMessage(item.Get("_source").Raw),
		})
	}
	return hits
}

// Total returns hits.total.value, or zero when the cluster omitted it.
func (r *Response) Total() int64 {
	return gjson.GetBytes(r.raw, "hits.total.value").Int()
}

func aggregationPath(path ...string) string {
	parts := make([]string, 0, len(path)+1)
	parts = append(parts, "aggregations")
	for _, p := range path {
		parts = append(parts, escapePathComponent(p))
	}
	return strings.Join(parts, ".")
}

// escapePathComponent escapes the gjson path metacharacters in a key.
func escapePathComponent(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
