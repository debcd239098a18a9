// Package search describes the query/response contract the feasibility engine
// consumes from the search cluster. It only builds request bodies and reads
// responses; transport lives in package elastic.
package search

// Query is a node of the query DSL. Source returns the JSON-ready form.
type Query interface {
	Source() any
}

// ==========================================
// LEAF QUERIES
// ==========================================

// Terms matches documents whose field holds any of the given values.
type Terms struct {
	Field  string
	Values []string
}

// NewTerms creates a terms query. A nil value set is sent as an empty array.
func NewTerms(field string, values ...string) Terms {
	if values == nil {
		values = []string{}
	}
	return Terms{Field: field, Values: values}
}

// Source implements Query.
func (q Terms) Source() any {
	values := q.Values
	if values == nil {
		values = []string{}
	}
	return map[string]any{"terms": map[string]any{q.Field: values}}
}

// Term matches documents whose field equals exactly one value.
type Term struct {
	Field string
	Value string
}

// Source implements Query.
func (q Term) Source() any {
	return map[string]any{"term": map[string]any{q.Field: q.Value}}
}

// Wildcard matches a field against a pattern using * and ?.
type Wildcard struct {
	Field string
	Value string
	// Long selects the {"field": {"value": ...}} form instead of the short one.
	Long bool
}

// Source implements Query.
func (q Wildcard) Source() any {
	if q.Long {
		return map[string]any{"wildcard": map[string]any{q.Field: map[string]any{"value": q.Value}}}
	}
	return map[string]any{"wildcard": map[string]any{q.Field: q.Value}}
}

// Match is a full-text match query.
type Match struct {
	Field    string
	Query    string
	Operator string // "and" or "or"; empty keeps the cluster default
}

// Source implements Query.
func (q Match) Source() any {
	if q.Operator == "" {
		return map[string]any{"match": map[string]any{q.Field: q.Query}}
	}
	return map[string]any{"match": map[string]any{
		q.Field: map[string]any{"query": q.Query, "operator": q.Operator},
	}}
}

// MatchPhrasePrefix matches a phrase whose last term is a prefix.
type MatchPhrasePrefix struct {
	Field string
	Query string
}

// Source implements Query.
func (q MatchPhrasePrefix) Source() any {
	return map[string]any{"match_phrase_prefix": map[string]any{q.Field: q.Query}}
}

// ==========================================
// COMPOUND QUERIES
// ==========================================

// BoolQuery combines clauses. A nil clause slice is left out of the output,
// while an empty non-nil slice is kept as []. The distinction matters: a
// universe with no assets is emitted as {"bool":{"should":[]}}.
type BoolQuery struct {
	Filter  []Query
	Must    []Query
	Should  []Query
	MustNot []Query
}

// NewBoolQuery returns an empty bool query.
func NewBoolQuery() *BoolQuery {
	return &BoolQuery{}
}

// AddFilter appends non-scoring AND clauses.
func (q *BoolQuery) AddFilter(clauses ...Query) *BoolQuery {
	q.Filter = append(q.Filter, clauses...)
	return q
}

// AddShould appends OR clauses.
func (q *BoolQuery) AddShould(clauses ...Query) *BoolQuery {
	q.Should = append(q.Should, clauses...)
	return q
}

// AddMustNot appends AND-NOT clauses.
func (q *BoolQuery) AddMustNot(clauses ...Query) *BoolQuery {
	q.MustNot = append(q.MustNot, clauses...)
	return q
}

// Source implements Query.
func (q *BoolQuery) Source() any {
	body := map[string]any{}
	putClauses(body, "filter", q.Filter)
	putClauses(body, "must", q.Must)
	putClauses(body, "should", q.Should)
	putClauses(body, "must_not", q.MustNot)
	return map[string]any{"bool": body}
}

func putClauses(body map[string]any, key string, clauses []Query) {
	if clauses == nil {
		return
	}
	out := make([]any, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, c.Source())
	}
	body[key] = out
}

// ConstantScore wraps a filter so every match scores the same. Counting
// queries use it so the cluster never ranks documents.
type ConstantScore struct {
	Filter Query
}

// Source implements Query.
func (q ConstantScore) Source() any {
	return map[string]any{"constant_score": map[string]any{"filter": q.Filter.Source()}}
}

// FieldValueFactor boosts the score with a numeric document field.
type FieldValueFactor struct {
	Field    string
	Factor   float64
	Modifier string
	Missing  float64
}

// FunctionScore rescores the inner query.
type FunctionScore struct {
	Query            Query
	FieldValueFactor *FieldValueFactor
	ScriptScore      string
}

// Source implements Query.
func (q FunctionScore) Source() any {
	body := map[string]any{"query": q.Query.Source()}
	if f := q.FieldValueFactor; f != nil {
		body["field_value_factor"] = map[string]any{
			"field":    f.Field,
			"factor":   f.Factor,
			"modifier": f.Modifier,
			"missing":  f.Missing,
		}
	}
	if q.ScriptScore != "" {
		body["script_score"] = map[string]any{"script": q.ScriptScore}
	}
	return map[string]any{"function_score": body}
}
