package assemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"legalcrawl/internal/model"
)

func TestAssemblePrefersStructuredOverPattern(t *testing.T) {
	structured := &model.Candidates{
		Source:    "structured",
		LegalName: model.NewField("Example GmbH", "structured", 1.0),
	}
	pattern := &model.Candidates{
		Source:    "pattern",
		LegalName: model.NewField("Wrong Name GmbH", "pattern", 0.8),
	}

	result, ok := Assemble(context.Background(), Input{
		Domain:      "example.de",
		DomainLabel: "example",
		Structured:  structured,
		Generic:     pattern,
	})

	assert.True(t, ok)
	assert.Equal(t, "Example GmbH", result.LegalName.Value)
	assert.Equal(t, "structured", result.LegalName.Source)
}

func TestAssembleFallsBackWhenStructuredFieldFailsValidation(t *testing.T) {
	structured := &model.Candidates{
		Source:    "structured",
		LegalName: model.NewField("XX", "structured", 1.0), // too short, fails ValidateLegalName
	}
	generic := &model.Candidates{
		Source:    "pattern",
		LegalName: model.NewField("Example GmbH", "pattern", 0.8),
	}

	result, ok := Assemble(context.Background(), Input{
		Domain:      "example.de",
		DomainLabel: "example",
		Structured:  structured,
		Generic:     generic,
	})

	assert.True(t, ok)
	assert.Equal(t, "Example GmbH", result.LegalName.Value)
	assert.Equal(t, "pattern", result.LegalName.Source)
}

func TestAssembleArchiveConfidencePenalty(t *testing.T) {
	structured := &model.Candidates{
		Source:    "structured",
		LegalName: model.NewField("Example GmbH", "structured", 1.0),
	}

	result, ok := Assemble(context.Background(), Input{
		Domain:      "example.de",
		DomainLabel: "example",
		Structured:  structured,
		IsArchive:   true,
	})

	assert.True(t, ok)
	assert.InDelta(t, 0.9, result.LegalName.Confidence, 0.0001)
}

func TestAssembleNoLegalNameIsNotOK(t *testing.T) {
	result, ok := Assemble(context.Background(), Input{
		Domain:      "example.de",
		DomainLabel: "example",
		Generic:     &model.Candidates{Source: "pattern"},
	})

	assert.False(t, ok)
	assert.False(t, result.LegalName.Present)
}

func TestAssembleCountryFallsBackToDetectedCountry(t *testing.T) {
	result, _ := Assemble(context.Background(), Input{
		Domain:          "example.de",
		DomainLabel:     "example",
		Generic:         &model.Candidates{Source: "pattern"},
		DetectedCountry: "DE",
	})

	assert.Equal(t, "Germany", result.Country.Value)
}
