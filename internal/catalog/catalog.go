// Package catalog searches the lookup indices study requests are assembled
// from: targeting keywords and the app and site asset reference.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/audience-feasibility/internal/search"
)

// ErrInvalidQuery is returned for unusable search input.
var ErrInvalidQuery = errors.New("invalid catalog query")

const (
	DefaultKeywordIndex = "keywords"
	DefaultAssetIndex   = "asset_ref"
	DefaultPageSize     = 10

	keywordScript = "1.0 / doc['keyword'].value.length()"
	// Bundles ending in _o are internal duplicates and never offered.
	internalAssetPattern = "*_o"
)

// AssetType is how an asset is presented to study builders.
type AssetType string

const (
	AssetAndroid AssetType = "ANDROID"
	AssetIOS     AssetType = "IOS"
	AssetWeb     AssetType = "WEB"
)

// Keyword is one indexed targeting keyword.
type Keyword struct {
	ID          string `json:"id,omitempty"`
	Value       string `json:"value"`
	CountryCode string `json:"countryCode"`
}

// Asset is one app or site of the asset reference.
type Asset struct {
	Name      string    `json:"name"`
	Bundle    string    `json:"bundle"`
	AssetType AssetType `json:"assetType"`
	Icon      string    `json:"icon,omitempty"`
}

// Options configures index names and page size.
type Options struct {
	KeywordIndex string
	AssetIndex   string
	PageSize     int
}

// Catalog runs keyword and asset lookups.
type Catalog struct {
	searcher search.Searcher
	opts     Options
}

// New creates a Catalog. Zero options fall back to the defaults.
func New(searcher search.Searcher, opts Options) *Catalog {
	if opts.KeywordIndex == "" {
		opts.KeywordIndex = DefaultKeywordIndex
	}
	if opts.AssetIndex == "" {
		opts.AssetIndex = DefaultAssetIndex
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Catalog{searcher: searcher, opts: opts}
}

// ==========================================
// KEYWORDS
// ==========================================

// KeywordsRequest builds the keyword search, shorter keywords ranking first.
func (c *Catalog) KeywordsRequest(term, countryCode string) search.Request {
	filter := search.NewBoolQuery().AddFilter(
		search.NewTerms("lang", LanguageCodes(countryCode)...),
		search.Wildcard{Field: "keyword", Value: "*" + strings.ToLower(term) + "*", Long: true},
	)

	return search.Request{
		Indices: []string{c.opts.KeywordIndex},
		Size:    c.opts.PageSize,
		Query:   search.FunctionScore{Query: filter, ScriptScore: keywordScript},
	}
}

// SearchKeywords finds keywords containing term in the languages of countryCode.
func (c *Catalog) SearchKeywords(ctx context.Context, term, countryCode string) ([]Keyword, error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("%w: term is required", ErrInvalidQuery)
	}

	resp, err := c.searcher.Search(ctx, c.KeywordsRequest(term, countryCode))
	if err != nil {
		return nil, fmt.Errorf("search keywords: %w", err)
	}

	hits := resp.Hits()
	keywords := make([]Keyword, 0, len(hits))
	for _, hit := range hits {
		var src struct {
			KeywordID string `json:"keyword_id"`
			Keyword   string `json:"keyword"`
			Lang      string `json:"lang"`
		}
		if err := json.Unmarshal(hit.Source, &src); err != nil {
			return nil, fmt.Errorf("%w: keyword %s: %v", search.ErrMalformedResponse, hit.ID, err)
		}
		keywords = append(keywords, Keyword{ID: src.KeywordID, Value: src.Keyword, CountryCode: src.Lang})
	}
	return keywords, nil
}

// ==========================================
// ASSETS
// ==========================================

// AssetsRequest builds the asset search. Without a term the most used assets
// come first; with one, name and bundle matches are boosted by usage.
func (c *Catalog) AssetsRequest(term string, exclude []string) search.Request {
	query := &search.BoolQuery{
		Should:  []search.Query{},
		MustNot: []search.Query{search.Wildcard{Field: "asset_technical_name", Value: internalAssetPattern}},
	}
	for _, bundle := range exclude {
		query.AddMustNot(search.Term{Field: "asset_technical_name", Value: bundle})
	}

	req := search.Request{
		Indices: []string{c.opts.AssetIndex},
		Size:    c.opts.PageSize,
	}

	if term == "" {
		req.Query = search.FunctionScore{Query: query}
		req.Sort = []search.SortField{{Field: "volumes", Desc: true}}
		return req
	}

	query.AddShould(
		search.Wildcard{Field: "asset_technical_name", Value: strings.ToLower(term) + "*"},
		search.MatchPhrasePrefix{Field: "asset_name", Query: term},
		search.Match{Field: "asset_name", Query: term, Operator: "and"},
	)
	req.Query = search.FunctionScore{
		Query: query,
		FieldValueFactor: &search.FieldValueFactor{
			Field:    "volumes",
			Factor:   0.3,
			Modifier: "sqrt",
			Missing:  1,
		},
	}
	return req
}

// SearchAssets finds assets matching term, skipping the excluded bundles.
func (c *Catalog) SearchAssets(ctx context.Context, term string, exclude []string) ([]Asset, error) {
	return c.assets(ctx, c.AssetsRequest(term, exclude))
}

// LookupAssets fetches the assets with the given bundles.
func (c *Catalog) LookupAssets(ctx context.Context, bundles []string) ([]Asset, error) {
	if len(bundles) == 0 {
		return []Asset{}, nil
	}
	return c.assets(ctx, search.Request{
		Indices: []string{c.opts.AssetIndex},
		Size:    len(bundles),
		Query:   search.NewTerms("asset_technical_name", bundles...),
	})
}

func (c *Catalog) assets(ctx context.Context, req search.Request) ([]Asset, error) {
	resp, err := c.searcher.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search assets: %w", err)
	}

	hits := resp.Hits()
	assets := make([]Asset, 0, len(hits))
	for _, hit := range hits {
		var src struct {
			AssetType          string `json:"asset_type"`
			AssetTechnicalName string `json:"asset_technical_name"`
			AssetName          string `json:"asset_name"`
			IconPath           string `json:"icon_path"`
		}
		if err := json.Unmarshal(hit.Source, &src); err != nil {
			return nil, fmt.Errorf("%w: asset %s: %v", search.ErrMalformedResponse, hit.ID, err)
		}

		assetType := AssetAndroid
		if src.AssetType == "site" {
			assetType = AssetWeb
		}
		assets = append(assets, Asset{
			Name:      src.AssetName,
			Bundle:    src.AssetTechnicalName,
			AssetType: assetType,
			Icon:      src.IconPath,
		})
	}
	return assets, nil
}
