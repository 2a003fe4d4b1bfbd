// Package extract is the Country Extractors (spec §4.7, C7): country
// detection by ccTLD/marker, dispatch to a family-specific pattern set,
// and the shared "anchor & expand" heuristic. Extractors are pure
// functions (text, context) -> candidates with no shared mutable state
// and no back-reference to the orchestrator, per spec §9's
// cyclic-reference redesign flag. Ported from
// original_source/src/legal_extractor.py and
// original_source/src/country_extractors/*.
package extract

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

const patternSource = "pattern"

// ccTLDCountry implements spec §4.7 priority (a).
var ccTLDCountry = map[string]string{
	"de":   "DE",
	"at":   "AT",
	"ch":   "CH",
	"uk":   "GB",
	"co.uk": "GB",
	"fr":   "FR",
	"it":   "IT",
	"es":   "ES",
}

// countryMarkerCountry implements spec §4.7 priority (b): jurisdiction-specific
// vocabulary found in the isolated text. Each marker keyword maps to the
// country it signals; matched case-insensitively via Aho-Corasick, the
// same multi-pattern matcher C2 uses for blacklist keywords.
var countryMarkerCountry = map[string]string{
	"amtsgericht":      "DE",
	"handelsregister":  "DE",
	"companies house":  "GB",
	"registered office": "GB",
	"rcs":              "FR",
	"siret":            "FR",
	"siren":            "FR",
	"registro imprese": "IT",
	"partita iva":      "IT",
	"registro mercantil": "ES",
}

// markerList fixes an iteration order for countryMarkerCountry's keys so
// markerMatcher's returned indices can be mapped back to a marker string.
var markerList = []string{
	"amtsgericht", "handelsregister", "companies house", "registered office",
	"rcs", "siret", "siren", "registro imprese", "partita iva", "registro mercantil",
}

var markerMatcher = buildMarkerMatcher()

func buildMarkerMatcher() *ahocorasick.Matcher {
	keywords := make([][]byte, 0, len(markerList))
	for _, marker := range markerList {
		keywords = append(keywords, []byte(marker))
	}
	return ahocorasick.NewMatcher(keywords)
}

// DetectCountry implements spec §4.7's two-step priority: ccTLD suffix
// first, then marker presence in the isolated text, defaulting to the
// empty string (dispatches to the generic extractor) when neither signals.
func DetectCountry(domain, text string) string {
	domain = strings.ToLower(domain)
	for _, suffix := range []string{"co.uk", "uk", "de", "at", "ch", "fr", "it", "es"} {
		if strings.HasSuffix(domain, "."+suffix) {
			return ccTLDCountry[suffix]
		}
	}

	lower := strings.ToLower(text)
	hits := markerMatcher.Match([]byte(lower))
	for _, idx := range hits {
		if int(idx) < len(markerList) {
			if country := countryMarkerCountry[markerList[idx]]; country != "" {
				return country
			}
		}
	}
	return ""
}

// familyFor maps a detected country to the jurisdiction family that
// shares a pattern set (spec §4.7 table: DE/AT/CH share one family).
func familyFor(country string) string {
	switch country {
	case "DE", "AT", "CH":
		return "de"
	case "GB":
		return "uk"
	case "FR":
		return "fr"
	case "IT":
		return "it"
	case "ES":
		return "es"
	default:
		return "generic"
	}
}
