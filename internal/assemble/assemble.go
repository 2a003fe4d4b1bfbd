// Package assemble is the Result Assembler (spec §4.9, C9): merges the
// structured, country-specific, and generic candidate sets by priority,
// validates every field through C8 before it is allowed to merge, and
// produces the immutable CrawlResult. Ported from
// original_source/src/robust_legal_extractor.py's _merge_and_validate,
// with the spec's stated priority (Structured > Country-specific >
// Generic) taking precedence over the original's inverted comment where
// the two disagree (see DESIGN.md).
package assemble

import (
	"context"
	"strings"
	"time"

	"legalcrawl/internal/model"
	"legalcrawl/internal/validate"
)

// archiveConfidenceMultiplier implements spec §4.9: "a 0.9 multiplier if
// the page came from the archive fallback."
const archiveConfidenceMultiplier = 0.9

// countryNames maps a detected ISO country code to the display name
// stored in CrawlResult.Country, ported from the original's
// _merge_and_validate country_names table.
var countryNames = map[string]string{
	"DE": "Germany", "AT": "Austria", "CH": "Switzerland",
	"GB": "United Kingdom", "FR": "France", "IT": "Italy",
	"ES": "Spain", "NL": "Netherlands", "BE": "Belgium",
}

// Input bundles everything the assembler needs for one domain's result.
type Input struct {
	Domain         string
	DomainLabel    string // second-level label, e.g. "example" from "example.de"
	LegalSourceURL string
	RunID          string
	CrawledAt      time.Time

	Structured     *model.Candidates
	CountrySpecific *model.Candidates
	Generic        *model.Candidates

	DetectedCountry string // ISO code from extract.DetectCountry, "" if undetected
	IsArchive       bool
	MXCheck         bool

	RobotsAllowed bool
	RobotsReason  string
}

// Assemble runs the priority merge and validation pass, returning the
// finished CrawlResult and whether a validated legal_name was obtained
// (the caller uses this to decide FAILED_EXTRACTION per spec §4.8).
func Assemble(ctx context.Context, in Input) (*model.CrawlResult, bool) {
	isoCountry := in.DetectedCountry

	r := &model.CrawlResult{
		Domain:         in.Domain,
		LegalSourceURL: in.LegalSourceURL,
		RunID:          in.RunID,
		CrawledAt:      in.CrawledAt,
		RobotsAllowed:  in.RobotsAllowed,
		RobotsReason:   in.RobotsReason,
	}

	order := []*model.Candidates{in.Structured, in.CountrySpecific, in.Generic}

	legalNameOK := false
	r.LegalName, legalNameOK = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.LegalName },
		func(v string) (string, bool) { return validate.ValidateLegalName(v, in.DomainLabel) }, in.IsArchive)

	r.LegalForm, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.LegalForm },
		func(v string) (string, bool) { return validate.ValidateLegalForm(v, isoCountry) }, in.IsArchive)

	var registerCourtField model.Field
	registerCourtField, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.RegisterCourt },
		func(v string) (string, bool) { return strings.TrimSpace(v), v != "" }, in.IsArchive)
	r.RegisterCourt = registerCourtField

	r.RegistrationNumber, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.RegistrationNumber },
		func(v string) (string, bool) { return validate.ValidateRegistrationNumber(v, registerCourtField.Value) }, in.IsArchive)

	r.RegisterType, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.RegisterType },
		func(v string) (string, bool) { return strings.TrimSpace(v), v != "" }, in.IsArchive)

	r.VATID, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.VATID },
		validate.ValidateVATID, in.IsArchive)

	r.Street, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.Street },
		validate.ValidateStreet, in.IsArchive)

	r.City, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.City },
		func(v string) (string, bool) { return validate.ValidateCity(v) }, in.IsArchive)

	r.Country, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.Country },
		func(v string) (string, bool) { return strings.TrimSpace(v), v != "" }, in.IsArchive)
	if !r.Country.Present && isoCountry != "" {
		if name, ok := countryNames[isoCountry]; ok {
			r.Country = model.NewField(name, "pattern", 0.8)
		}
	}

	r.PostalCode, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.PostalCode },
		func(v string) (string, bool) { return validate.ValidatePostalCode(v, isoCountry) }, in.IsArchive)

	r.Fax, _ = mergeAndValidate(order, func(c *model.Candidates) model.Field { return c.Fax },
		func(v string) (string, bool) { return validate.ValidateFax(v, isoCountry) }, in.IsArchive)

	r.CEO, r.Directors = mergeDirectors(order, in.IsArchive)
	r.Phones = mergeSet(order, func(c *model.Candidates) []string { return c.Phones },
		func(v string) (string, bool) { return validate.ValidatePhone(v, isoCountry) }, in.IsArchive)
	r.Emails = mergeSet(order, func(c *model.Candidates) []string { return c.Emails },
		func(v string) (string, bool) { return validate.ValidateEmail(ctx, v, in.MXCheck, true) }, in.IsArchive)

	r.Confidence = overallConfidence(r)

	return r, legalNameOK
}

// mergeAndValidate walks passes in priority order and returns the first
// present field whose value survives validateFn.
func mergeAndValidate(passes []*model.Candidates, pick func(*model.Candidates) model.Field, validateFn func(string) (string, bool), isArchive bool) (model.Field, bool) {
	for _, pass := range passes {
		if pass == nil {
			continue
		}
		field := pick(pass)
		if !field.Present {
			continue
		}
		value, ok := validateFn(field.Value)
		if !ok {
			continue
		}
		conf := field.Confidence
		if isArchive {
			conf *= archiveConfidenceMultiplier
		}
		return model.NewField(value, field.Source, conf), true
	}
	return model.Field{}, false
}

// mergeDirectors picks the first pass with a non-empty Directors list
// (after per-name validation), using its first validated name as CEO.
func mergeDirectors(passes []*model.Candidates, isArchive bool) (model.Field, model.PersonList) {
	for _, pass := range passes {
		if pass == nil || len(pass.Directors) == 0 {
			continue
		}
		var validated []string
		for _, name := range pass.Directors {
			if v, ok := validate.ValidatePersonName(name); ok {
				validated = append(validated, v)
			}
		}
		if len(validated) == 0 {
			continue
		}
		conf := 0.8
		if isArchive {
			conf *= archiveConfidenceMultiplier
		}
		ceo := model.NewField(validated[0], pass.Source, conf)
		directors := model.PersonList{Values: validated, Source: pass.Source, Confidence: conf, Present: true}
		return ceo, directors
	}
	return model.Field{}, model.PersonList{}
}

// mergeSet picks the first pass with a non-empty set (after per-value
// validation and dedup), preserving insertion order.
func mergeSet(passes []*model.Candidates, pick func(*model.Candidates) []string, validateFn func(string) (string, bool), isArchive bool) model.StringSet {
	for _, pass := range passes {
		if pass == nil {
			continue
		}
		raw := pick(pass)
		if len(raw) == 0 {
			continue
		}
		seen := make(map[string]struct{})
		var validated []string
		for _, v := range raw {
			value, ok := validateFn(v)
			if !ok {
				continue
			}
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			validated = append(validated, value)
		}
		if len(validated) == 0 {
			continue
		}
		conf := 0.8
		if pass.Source == "structured" {
			conf = 1.0
		}
		if isArchive {
			conf *= archiveConfidenceMultiplier
		}
		return model.StringSet{Values: validated, Source: pass.Source, Confidence: conf, Present: true}
	}
	return model.StringSet{}
}

// overallConfidence is the arithmetic mean of every present field's
// confidence (spec §4.9).
func overallConfidence(r *model.CrawlResult) float64 {
	var sum float64
	var n int
	consider := func(present bool, conf float64) {
		if present {
			sum += conf
			n++
		}
	}
	consider(r.LegalName.Present, r.LegalName.Confidence)
	consider(r.LegalForm.Present, r.LegalForm.Confidence)
	consider(r.RegistrationNumber.Present, r.RegistrationNumber.Confidence)
	consider(r.RegisterCourt.Present, r.RegisterCourt.Confidence)
	consider(r.RegisterType.Present, r.RegisterType.Confidence)
	consider(r.VATID.Present, r.VATID.Confidence)
	consider(r.Street.Present, r.Street.Confidence)
	consider(r.PostalCode.Present, r.PostalCode.Confidence)
	consider(r.City.Present, r.City.Confidence)
	consider(r.Country.Present, r.Country.Confidence)
	consider(r.CEO.Present, r.CEO.Confidence)
	consider(r.Directors.Present, r.Directors.Confidence)
	consider(r.Emails.Present, r.Emails.Confidence)
	consider(r.Phones.Present, r.Phones.Confidence)
	consider(r.Fax.Present, r.Fax.Confidence)
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
