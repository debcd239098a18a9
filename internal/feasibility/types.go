// Package feasibility estimates whether an audience segment is large and
// distinct enough to be reported on, before a study is commissioned. It turns
// a segment and a scope into one batched search, then maps the distinct-user
// counts to a bounded, tiered verdict.
package feasibility

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ==========================================
// SEGMENT
// ==========================================

// Age is an age-bracket code as stored in the index.
type Age string

const (
	Age13To17   Age = "13_17"
	Age18To24   Age = "18_24"
	Age25To34   Age = "25_34"
	Age35To44   Age = "35_44"
	Age45To54   Age = "45_54"
	Age55To64   Age = "55_64"
	Age65AndOld Age = "65_plus"
)

// Gender is a gender code as stored in the index.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// IncludeExclude tells whether an asset list is a positive or negative universe.
type IncludeExclude string

const (
	Include IncludeExclude = "include"
	Exclude IncludeExclude = "exclude"
)

// UnmarshalJSON accepts the value case-insensitively.
func (ie *IncludeExclude) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch v := IncludeExclude(strings.ToLower(s)); v {
	case Include, Exclude:
		*ie = v
		return nil
	default:
		return fmt.Errorf("%w: includeExclude must be %q or %q, got %q", ErrInvalidRequest, Include, Exclude, s)
	}
}

// AssetListItem is one universe of apps and sites. Its members are ORed.
type AssetListItem struct {
	IncludeExclude IncludeExclude `json:"includeExclude"`
	App            []string       `json:"app"`
	Site           []string       `json:"site"`
}

// Empty reports whether the universe names no asset at all.
func (a AssetListItem) Empty() bool {
	return len(a.App) == 0 && len(a.Site) == 0
}

// Segment is a demographic plus app/site affinity audience definition.
type Segment struct {
	PersonaName string          `json:"personaName"`
	Age         []Age           `json:"age"`
	Gender      []Gender        `json:"gender"`
	AssetLists  []AssetListItem `json:"assetLists"`
}

// ==========================================
// RESULTS
// ==========================================

// Result is the feasibility verdict returned to callers.
type Result struct {
	Feasible      bool `json:"feasible"`
	Volume        int  `json:"volume"`
	Discriminance int  `json:"discriminance"`
}

// NeutralResult is the all-zero verdict.
func NeutralResult() Result {
	return Result{}
}

// RawCounts are the distinct-user counts read from the index for one segment.
type RawCounts struct {
	Population    int64 `json:"population"`
	SegmentVolume int64 `json:"segmentVolume"`
}

// IOResolution is the scope derived from an insertion order.
type IOResolution struct {
	CountryList []string `json:"countryList"`
	Indices     []string `json:"indices"`
}
