package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// countryLanguages are the keyword languages indexed per country. Countries
// outside the table fall back to English.
var countryLanguages = map[string][]string{
	"US": {"en"},
	"FR": {"fr", "en"},
	"IT": {"it", "en"},
	"ES": {"es", "en"},
	"GB": {"en"},
	"DE": {"de", "en"},
	"NL": {"nl", "en"},
	"AU": {"en"},
	"MX": {"es", "en"},
	"CO": {"es", "en"},
	"PE": {"es", "en"},
	"CL": {"es", "en"},
	"AR": {"es", "en"},
	"CA": {"en", "fr"},
	"BE": {"fr", "nl"},
	"AT": {"de", "en"},
	"IE": {"en"},
	"BR": {"pt", "en"},
	"PT": {"pt", "en"},
}

var fallbackLanguages = []string{"en"}

// LanguageCodes returns the keyword languages for an ISO 3166 alpha-2
// country code, matched case-insensitively.
func LanguageCodes(countryCode string) []string {
	if langs, ok := countryLanguages[strings.ToUpper(countryCode)]; ok {
		return langs
	}
	return fallbackLanguages
}

// ParseCountry validates an ISO 3166 alpha-2 country code and returns it
// upper-cased.
func ParseCountry(code string) (string, error) {
	if len(code) != 2 {
		return "", fmt.Errorf("%w: country code %q must have two letters", ErrInvalidQuery, code)
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return "", fmt.Errorf("%w: unknown country code %q", ErrInvalidQuery, code)
	}
	return region.String(), nil
}
