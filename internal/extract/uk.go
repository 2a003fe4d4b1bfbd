package extract

import (
	"regexp"
	"strings"

	"legalcrawl/internal/model"
)

// UK family patterns (spec §4.7 row 2), ported from
// original_source/src/country_extractors/uk_extractor.py.
var (
	ukPostalCity   = regexp.MustCompile(`(?i)([A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2})`)
	ukCompanyNum   = regexp.MustCompile(`(?i)(?:Company\s+(?:Registration\s+)?Number|Registered\s+Number|Companies\s+House)[:\s]*(\d{8})`)
	ukLegalForm    = regexp.MustCompile(`(?i)\b(Public\s+Limited\s+Company|Limited\s+Liability\s+Partnership|Limited|Ltd\.?|PLC|LLP|CIC)\b`)
	ukVAT          = regexp.MustCompile(`(?i)(?:VAT\s+(?:Registration\s+)?Number)[:\s]*(GB\d{9}|\d{9})`)
	ukDirectors    = regexp.MustCompile(`(?i)(?:Director[s]?|Managing\s+Director)[:\s]+([^\n]+)`)
	ukPhone        = regexp.MustCompile(`(?i)(?:Tel\.?|Phone)[:\s]*(\+44[\s\d\-()]{9,15}|0[\d\s\-()]{9,12})`)
	ukEmail        = regexp.MustCompile(`(?i)(?:E-?mail)[:\s]*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)
)

// ExtractUK runs the UK pattern set over the isolated legal text.
func ExtractUK(text, domainLabel string) *model.Candidates {
	c := &model.Candidates{Source: patternSource}
	lines := splitLines(text)

	if anchor := findPostalAnchor(lines, ukPostalCity); anchor != nil {
		c.PostalCode = model.NewField(strings.ToUpper(anchor.postalCode), patternSource, 0.8)
		if street := expandStreet(lines, anchor.lineIndex); street != "" {
			c.Street = model.NewField(street, patternSource, 0.8)
		}
		if name := expandLegalName(lines, anchor.lineIndex, domainLabel); name != "" {
			c.LegalName = model.NewField(name, patternSource, 0.8)
		}
	}

	if regNum := firstMatch(ukCompanyNum, text); regNum != "" {
		c.RegistrationNumber = model.NewField(regNum, patternSource, 0.8)
		c.RegisterCourt = model.NewField("Companies House", patternSource, 0.8)
	}
	if m := ukLegalForm.FindString(text); m != "" {
		c.LegalForm = model.NewField(m, patternSource, 0.8)
	}
	if vat := firstMatch(ukVAT, text); vat != "" {
		c.VATID = model.NewField(strings.ToUpper(vat), patternSource, 0.8)
	}
	if m := ukDirectors.FindStringSubmatch(text); m != nil {
		c.Directors = append(c.Directors, splitPeople(m[1])...)
	}
	if phone := firstMatch(ukPhone, text); phone != "" {
		c.Phones = append(c.Phones, strings.TrimSpace(phone))
	}
	if email := firstMatch(ukEmail, text); email != "" {
		c.Emails = append(c.Emails, email)
	}

	return c
}
