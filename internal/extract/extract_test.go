package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCountry(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		text   string
		want   string
	}{
		{"cctld de", "example.de", "nothing relevant here", "DE"},
		{"cctld fr", "example.fr", "", "FR"},
		{"marker overrides generic tld", "example.com", "Registered at Companies House, London", "GB"},
		{"marker handelsregister", "example.com", "Eingetragen im Handelsregister Muenchen", "DE"},
		{"no signal", "example.com", "just some text", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectCountry(tt.domain, tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatchRunsGenericAlongsideCountry(t *testing.T) {
	text := "Example GmbH\nMusterstraße 1\n80331 Munich\nAmtsgericht Muenchen HRB 12345"
	countrySpecific, generic := Dispatch("example.de", "example", text, "DE", nil)

	assert.NotNil(t, generic, "generic fallback always runs")
	assert.NotNil(t, countrySpecific, "DE family extractor should have run")
	assert.True(t, countrySpecific.PostalCode.Present)
}

func TestDispatchUnknownCountryHasNoCountrySpecificPass(t *testing.T) {
	countrySpecific, generic := Dispatch("example.xyz", "example", "some legal text", "", nil)
	assert.Nil(t, countrySpecific)
	assert.NotNil(t, generic)
}

func TestDispatchCountryPatternSetDisablesFamily(t *testing.T) {
	text := "Example GmbH\nMusterstraße 1\n80331 Munich\nAmtsgericht Muenchen HRB 12345"
	countrySpecific, generic := Dispatch("example.de", "example", text, "DE", []string{"uk", "fr"})

	assert.Nil(t, countrySpecific, "DE pack disabled by country_pattern_set should not run")
	assert.NotNil(t, generic, "generic fallback always runs regardless of country_pattern_set")
}

func TestDispatchCountryPatternSetEnablesFamily(t *testing.T) {
	text := "Example GmbH\nMusterstraße 1\n80331 Munich\nAmtsgericht Muenchen HRB 12345"
	countrySpecific, _ := Dispatch("example.de", "example", text, "DE", []string{"de", "uk"})

	assert.NotNil(t, countrySpecific, "DE pack enabled by country_pattern_set should run")
	assert.True(t, countrySpecific.PostalCode.Present)
}
