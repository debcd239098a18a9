package feasibility

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personaPayload = `{
	"reportTypeName": "ap",
	"config": {
		"startDate": "2020-03-09",
		"endDate": "2020-04-09",
		"countryList": ["AR"],
		"segment": {
			"personaName": "Football fans",
			"age": ["18_24", "25_34"],
			"gender": ["M"],
			"assetLists": [
				{"includeExclude": "include", "app": ["com.fifa.app"], "site": []},
				{"includeExclude": "EXCLUDE", "app": [], "site": ["rugby.example"]}
			]
		}
	}
}`

func TestRequest_UnmarshalDateRange(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(personaPayload), &req))

	assert.Equal(t, AdvancedPersona, req.ReportType)
	scope, ok := req.Scope.(DateRangeScope)
	require.True(t, ok)
	assert.Equal(t, "2020-03-09", scope.StartDate)
	assert.Equal(t, []string{"AR"}, scope.CountryList)
	assert.Equal(t, "Football fans", scope.Segment.PersonaName)
	assert.Equal(t, []Age{Age18To24, Age25To34}, scope.Segment.Age)
	require.Len(t, scope.Segment.AssetLists, 2)
	assert.Equal(t, Exclude, scope.Segment.AssetLists[1].IncludeExclude)

	assert.NoError(t, req.Validate())
}

func TestRequest_UnmarshalVariants(t *testing.T) {
	var io Request
	require.NoError(t, json.Unmarshal([]byte(`{"reportTypeName":"PERFORMER_PROFILE","config":{"io":"IO-1","segment":{}}}`), &io))
	assert.Equal(t, PerformerProfile, io.ReportType)
	assert.Equal(t, IOScope{IO: "IO-1"}, io.Scope)

	var ccr Request
	require.NoError(t, json.Unmarshal([]byte(`{"reportTypeName":"ccr","config":{"campaignAdChooserId":"92312"}}`), &ccr))
	assert.Equal(t, CampaignScope{CampaignAdChooserID: "92312"}, ccr.Scope)
	assert.NoError(t, ccr.Validate())

	var bp Request
	require.NoError(t, json.Unmarshal([]byte(`{"reportTypeName":"bp","config":{}}`), &bp))
	assert.IsType(t, DateRangeScope{}, bp.Scope)
}

func TestRequest_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"unknown type", `{"reportTypeName":"spp","config":{}}`, ErrUnknownReportType},
		{"missing type", `{"config":{}}`, ErrUnknownReportType},
		{"missing config", `{"reportTypeName":"ap"}`, ErrInvalidRequest},
		{"null config", `{"reportTypeName":"ap","config":null}`, ErrInvalidRequest},
		{"bad include flag", `{"reportTypeName":"pp","config":{"io":"x","segment":{"assetLists":[{"includeExclude":"maybe"}]}}}`, ErrInvalidRequest},
		{"wrong field type", `{"reportTypeName":"pp","config":{"io":12}}`, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			err := json.Unmarshal([]byte(tt.payload), &req)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestRequest_Validate(t *testing.T) {
	included := Segment{AssetLists: []AssetListItem{{IncludeExclude: Include, App: []string{"a"}}}}

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"nil scope", Request{ReportType: AdvancedPersona}, ErrInvalidRequest},
		{"unknown type", Request{ReportType: "zz", Scope: CampaignScope{CampaignAdChooserID: "1"}}, ErrUnknownReportType},
		{"mismatched scope", Request{ReportType: PerformerProfile, Scope: CampaignScope{CampaignAdChooserID: "1"}}, ErrInvalidRequest},
		{"bad date", Request{ReportType: BasicPersona, Scope: DateRangeScope{StartDate: "2020/01/01", EndDate: "2020-02-01", CountryList: []string{"FR"}, Segment: included}}, ErrInvalidRequest},
		{"no countries", Request{ReportType: BasicPersona, Scope: DateRangeScope{StartDate: "2020-01-01", EndDate: "2020-02-01", Segment: included}}, ErrInvalidRequest},
		{"blank io", Request{ReportType: PerformerProfile, Scope: IOScope{IO: " ", Segment: included}}, ErrInvalidRequest},
		{"no included universe", Request{ReportType: PerformerProfile, Scope: IOScope{IO: "IO-1"}}, ErrNoIncludedUniverse},
		{"empty included universe", Request{ReportType: PerformerProfile, Scope: IOScope{IO: "IO-1", Segment: Segment{AssetLists: []AssetListItem{{IncludeExclude: Include}}}}}, ErrInvalidRequest},
		{"blank campaign", Request{ReportType: CreativeChoiceReport, Scope: CampaignScope{}}, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.req.Validate(), tt.want)
		})
	}

	ok := Request{ReportType: PerformerProfile, Scope: IOScope{IO: "IO-1", Segment: included}}
	assert.NoError(t, ok.Validate())
}

func TestRequest_MarshalRoundTrip(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(personaPayload), &req))

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var again Request
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, req, again)
}

func TestParseReportType(t *testing.T) {
	for in, want := range map[string]ReportType{
		"pp":               PerformerProfile,
		"ADVANCED_PERSONA": AdvancedPersona,
		" bp ":             BasicPersona,
		"Ccr":              CreativeChoiceReport,
	} {
		got, err := ParseReportType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseReportType("NEW_PERFORMER_PROFILE")
	assert.ErrorIs(t, err, ErrUnknownReportType)
}
