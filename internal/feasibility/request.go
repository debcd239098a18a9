package feasibility

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReportType is the study family a feasibility check is run for.
type ReportType string

const (
	PerformerProfile     ReportType = "pp"
	AdvancedPersona      ReportType = "ap"
	BasicPersona         ReportType = "bp"
	CreativeChoiceReport ReportType = "ccr"
)

var reportTypeAliases = map[string]ReportType{
	"pp":                     PerformerProfile,
	"performer_profile":      PerformerProfile,
	"ap":                     AdvancedPersona,
	"advanced_persona":       AdvancedPersona,
	"bp":                     BasicPersona,
	"basic_persona":          BasicPersona,
	"ccr":                    CreativeChoiceReport,
	"creative_choice_report": CreativeChoiceReport,
}

// ParseReportType accepts a shortname or the upper-case family name.
func ParseReportType(s string) (ReportType, error) {
	if rt, ok := reportTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return rt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReportType, s)
}

// Scope is the targeting context of a check. The set of implementations is
// closed: DateRangeScope, IOScope and CampaignScope.
type Scope interface {
	isScope()
	validate() error
}

// DateRangeScope targets explicit countries over a calendar range.
type DateRangeScope struct {
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	CountryList []string `json:"countryList"`
	Segment     Segment  `json:"segment"`
}

// IOScope targets whatever an insertion order delivered on.
type IOScope struct {
	IO      string  `json:"io"`
	Segment Segment `json:"segment"`
}

// CampaignScope asks for the precomputed flag of one campaign ad chooser.
type CampaignScope struct {
	CampaignAdChooserID string `json:"campaignAdChooserId"`
}

func (DateRangeScope) isScope() {}
func (IOScope) isScope()        {}
func (CampaignScope) isScope()  {}

func (s DateRangeScope) validate() error {
	if _, err := ParseDate(s.StartDate); err != nil {
		return err
	}
	if _, err := ParseDate(s.EndDate); err != nil {
		return err
	}
	if len(s.CountryList) == 0 {
		return fmt.Errorf("%w: countryList must contain items", ErrInvalidRequest)
	}
	return validateSegment(s.Segment)
}

func (s IOScope) validate() error {
	if strings.TrimSpace(s.IO) == "" {
		return fmt.Errorf("%w: io is required", ErrInvalidRequest)
	}
	return validateSegment(s.Segment)
}

func (s CampaignScope) validate() error {
	if strings.TrimSpace(s.CampaignAdChooserID) == "" {
		return fmt.Errorf("%w: campaignAdChooserId is required", ErrInvalidRequest)
	}
	return nil
}

// validateSegment checks what the filter builder cannot: every included
// universe must name at least one asset.
func validateSegment(s Segment) error {
	included := 0
	for i, item := range s.AssetLists {
		if item.IncludeExclude == Include {
			if item.Empty() {
				return fmt.Errorf("%w: assetLists[%d] includes no app and no site", ErrInvalidRequest, i)
			}
			included++
		}
	}
	if included == 0 {
		return ErrNoIncludedUniverse
	}
	return nil
}

// Request is one feasibility check.
type Request struct {
	ReportType ReportType
	Scope      Scope
}

// Validate reports malformed input before any search is issued.
func (r Request) Validate() error {
	if r.Scope == nil {
		return fmt.Errorf("%w: config is required", ErrInvalidRequest)
	}

	var ok bool
	switch r.ReportType {
	case PerformerProfile:
		_, ok = r.Scope.(IOScope)
	case AdvancedPersona, BasicPersona:
		_, ok = r.Scope.(DateRangeScope)
	case CreativeChoiceReport:
		_, ok = r.Scope.(CampaignScope)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownReportType, r.ReportType)
	}
	if !ok {
		return fmt.Errorf("%w: report type %q does not take %T", ErrInvalidRequest, r.ReportType, r.Scope)
	}
	return r.Scope.validate()
}

type wireRequest struct {
	ReportTypeName string          `json:"reportTypeName"`
	Config         json.RawMessage `json:"config"`
}

// UnmarshalJSON decodes the {reportTypeName, config} envelope, picking the
// scope variant from the report type.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rt, err := ParseReportType(w.ReportTypeName)
	if err != nil {
		return err
	}
	if len(w.Config) == 0 || string(w.Config) == "null" {
		return fmt.Errorf("%w: config is required", ErrInvalidRequest)
	}

	var scope Scope
	switch rt {
	case PerformerProfile:
		var s IOScope
		err = json.Unmarshal(w.Config, &s)
		scope = s
	case AdvancedPersona, BasicPersona:
		var s DateRangeScope
		err = json.Unmarshal(w.Config, &s)
		scope = s
	case CreativeChoiceReport:
		var s CampaignScope
		err = json.Unmarshal(w.Config, &s)
		scope = s
	}
	if err != nil {
		if IsClientError(err) {
			return err
		}
		return fmt.Errorf("%w: config: %v", ErrInvalidRequest, err)
	}

	r.ReportType = rt
	r.Scope = scope
	return nil
}

// MarshalJSON encodes the request back into its envelope.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ReportTypeName ReportType `json:"reportTypeName"`
		Config         Scope      `json:"config"`
	}{r.ReportType, r.Scope})
}
