package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"legalcrawl/internal/model"
)

func completeResult() model.CrawlResult {
	return model.CrawlResult{
		Domain:     "example.de",
		LegalName:  model.NewField("Example GmbH", "structured", 1.0),
		Street:     model.NewField("Musterstraße 1", "pattern", 0.8),
		PostalCode: model.NewField("80331", "pattern", 0.8),
		City:       model.NewField("Munich", "pattern", 0.8),
		Country:    model.NewField("Germany", "pattern", 0.8),
	}
}

func TestSatisfiesMandatory(t *testing.T) {
	r := completeResult()
	assert.True(t, satisfiesMandatory(&r))

	r.Street = model.Field{}
	assert.False(t, satisfiesMandatory(&r))
}

func TestRowValuesOrderMatchesColumns(t *testing.T) {
	r := completeResult()
	r.Phones = model.StringSet{Values: []string{"+49 30 1", "+49 30 2"}, Source: "pattern", Confidence: 0.8, Present: true}

	values := rowValues(&r)
	assert.Equal(t, len(columns), len(values))
	assert.Equal(t, "example.de", values[0])
	assert.Equal(t, "Example GmbH", values[4])

	phonesIdx := indexOf(columns, "phones")
	assert.Equal(t, "+49 30 1;+49 30 2", values[phonesIdx])
}

func TestDefaultFilenameIsTimestamped(t *testing.T) {
	ts, err := time.Parse(time.RFC3339, "2026-01-02T15:04:05Z")
	assert.NoError(t, err)

	name := DefaultFilename("csv", ts)
	assert.Contains(t, name, "20260102T150405Z")
	assert.Contains(t, name, ".csv")
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
