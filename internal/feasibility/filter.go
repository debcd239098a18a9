package feasibility

import (
	"encoding/json"
	"fmt"

	"github.com/ignite/audience-feasibility/internal/search"
)

// Index fields the engine filters and counts on.
const (
	FieldAge        = "age"
	FieldGender     = "gender"
	FieldIOList     = "io_list"
	FieldAppAssets  = "app_asset_list"
	FieldSiteAssets = "site_asset_list"
	FieldCountry    = "country"
	FieldUserID     = "odid.keyword"
	FieldIndex      = "_index"

	// UnknownAppAsset marks users whose app universe is unknown, i.e. who
	// did not consent. They never belong to the population.
	UnknownAppAsset = "unknown"

	DistinctInSegmentAggregation    = "distinct-in-segment"
	DistinctInPopulationAggregation = "distinct-in-population"
)

// BuildSegmentFilter turns a segment into a filter aggregation whose
// sub-aggregation counts the distinct users matching it. A non-empty io
// restricts the segment to that insertion order.
func BuildSegmentFilter(segment Segment, io string) (*search.FilterAggregation, error) {
	predicate := search.NewBoolQuery().AddFilter(
		search.NewTerms(FieldAge, agesToStrings(segment.Age)...),
		search.NewTerms(FieldGender, gendersToStrings(segment.Gender)...),
	)

	if io != "" {
		predicate.AddFilter(search.NewTerms(FieldIOList, io))
	}

	included, excluded := universeQueries(segment)
	if len(included) == 0 {
		return nil, ErrNoIncludedUniverse
	}
	predicate.AddFilter(included...)

	if len(excluded) > 0 {
		predicate.AddMustNot(excluded...)
	}

	return &search.FilterAggregation{
		Filter: predicate,
		Aggregations: map[string]search.Aggregation{
			DistinctInSegmentAggregation: search.Cardinality{Field: FieldUserID},
		},
	}, nil
}

// universeQueries builds one OR block per asset list and partitions them.
// A list with no app and no site yields an empty OR, kept on purpose.
func universeQueries(segment Segment) (included, excluded []search.Query) {
	for _, item := range segment.AssetLists {
		should := []search.Query{}
		if len(item.App) > 0 {
			should = append(should, search.NewTerms(FieldAppAssets, item.App...))
		}
		if len(item.Site) > 0 {
			should = append(should, search.NewTerms(FieldSiteAssets, item.Site...))
		}

		universe := &search.BoolQuery{Should: should}
		if item.IncludeExclude == Include {
			included = append(included, universe)
		} else {
			excluded = append(excluded, universe)
		}
	}
	return included, excluded
}

// BuildConsentedPopulationFilter restricts documents to the given countries
// and drops users without a known app universe.
func BuildConsentedPopulationFilter(countries []string) *search.BoolQuery {
	return search.NewBoolQuery().
		AddMustNot(search.NewTerms(FieldAppAssets, UnknownAppAsset)).
		AddFilter(search.NewTerms(FieldCountry, countries...))
}

func agesToStrings(ages []Age) []string {
	out := make([]string, len(ages))
	for i, a := range ages {
		out[i] = string(a)
	}
	return out
}

func gendersToStrings(genders []Gender) []string {
	out := make([]string, len(genders))
	for i, g := range genders {
		out[i] = string(g)
	}
	return out
}

// ==========================================
// PARSING
// ==========================================

// ParsedSegmentFilter is what a segment filter says once read back from its
// wire form.
type ParsedSegmentFilter struct {
	Age      []string
	Gender   []string
	IO       string
	Included []AssetListItem
	Excluded []AssetListItem
}

type wireBool struct {
	Bool struct {
		Filter  []json.RawMessage `json:"filter"`
		Should  []json.RawMessage `json:"should"`
		MustNot []json.RawMessage `json:"must_not"`
	} `json:"bool"`
}

type wireTerms struct {
	Terms map[string][]string `json:"terms"`
}

// ParseSegmentFilter reads a filter aggregation produced by
// BuildSegmentFilter back into its demographic terms and universes.
func ParseSegmentFilter(raw []byte) (ParsedSegmentFilter, error) {
	var agg struct {
		Filter json.RawMessage `json:"filter"`
	}
	if err := json.Unmarshal(raw, &agg); err != nil {
		return ParsedSegmentFilter{}, fmt.Errorf("decode segment filter: %w", err)
	}
	if agg.Filter == nil {
		return ParsedSegmentFilter{}, fmt.Errorf("decode segment filter: missing filter")
	}

	var root wireBool
	if err := json.Unmarshal(agg.Filter, &root); err != nil {
		return ParsedSegmentFilter{}, fmt.Errorf("decode segment filter: %w", err)
	}

	var parsed ParsedSegmentFilter
	for _, clause := range root.Bool.Filter {
		if field, values, ok := parseTerms(clause); ok {
			switch field {
			case FieldAge:
				parsed.Age = values
			case FieldGender:
				parsed.Gender = values
			case FieldIOList:
				if len(values) > 0 {
					parsed.IO = values[0]
				}
			default:
				return ParsedSegmentFilter{}, fmt.Errorf("decode segment filter: unexpected terms field %q", field)
			}
			continue
		}

		item, err := parseUniverse(clause, Include)
		if err != nil {
			return ParsedSegmentFilter{}, err
		}
		parsed.Included = append(parsed.Included, item)
	}

	for _, clause := range root.Bool.MustNot {
		item, err := parseUniverse(clause, Exclude)
		if err != nil {
			return ParsedSegmentFilter{}, err
		}
		parsed.Excluded = append(parsed.Excluded, item)
	}

	return parsed, nil
}

func parseTerms(raw json.RawMessage) (string, []string, bool) {
	var t wireTerms
	if err := json.Unmarshal(raw, &t); err != nil || len(t.Terms) != 1 {
		return "", nil, false
	}
	for field, values := range t.Terms {
		return field, values, true
	}
	return "", nil, false
}

func parseUniverse(raw json.RawMessage, kind IncludeExclude) (AssetListItem, error) {
	var b wireBool
	if err := json.Unmarshal(raw, &b); err != nil {
		return AssetListItem{}, fmt.Errorf("decode universe: %w", err)
	}

	item := AssetListItem{IncludeExclude: kind, App: []string{}, Site: []string{}}
	for _, branch := range b.Bool.Should {
		field, values, ok := parseTerms(branch)
		if !ok {
			return AssetListItem{}, fmt.Errorf("decode universe: branch is not a terms query")
		}
		switch field {
		case FieldAppAssets:
			item.App = values
		case FieldSiteAssets:
			item.Site = values
		default:
			return AssetListItem{}, fmt.Errorf("decode universe: unexpected field %q", field)
		}
	}
	return item, nil
}
