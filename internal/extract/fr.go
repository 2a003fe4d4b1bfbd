package extract

import (
	"regexp"
	"strings"

	"legalcrawl/internal/model"
)

// French family patterns (spec §4.7 row 3), ported from
// original_source/src/country_extractors/french_extractor.py.
var (
	frPostalCity   = regexp.MustCompile(`(\d{5})\s+([A-Za-zÀ-ÿ\- ]+)`)
	frRCS          = regexp.MustCompile(`(?i)RCS\s+([A-Za-zÀ-ÿ\- ]+?)\s+(\d{9}|\d{14})`)
	frSIRET        = regexp.MustCompile(`(?i)SIRET[:\s]*(\d{14})`)
	frSIREN        = regexp.MustCompile(`(?i)SIREN[:\s]*(\d{9})`)
	frLegalForm    = regexp.MustCompile(`(?i)\b(SARL|SASU|SAS|SA|EURL|SNC|SCS|SCA)\b`)
	frTVA          = regexp.MustCompile(`(?i)(?:TVA|N°\s*TVA|Numéro\s*TVA)[:\s]*(FR\s?[A-Z0-9]{2}\s?\d{9})`)
	frGerant       = regexp.MustCompile(`(?i)(?:Gérant|Directeur\s+(?:de\s+)?(?:la\s+)?publication|Président)[:\s]+([^\n]+)`)
	frPhone        = regexp.MustCompile(`(?i)(?:Téléphone|Tél\.?|Tel\.?)[:\s]*([+\d][\d\s\-().]{7,20})`)
	frEmail        = regexp.MustCompile(`(?i)(?:E-?mail|Mail|Courriel)[:\s]*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)
)

// ExtractFR runs the French pattern set over the isolated legal text.
func ExtractFR(text, domainLabel string) *model.Candidates {
	c := &model.Candidates{Source: patternSource}
	lines := splitLines(text)

	if anchor := findPostalAnchor(lines, frPostalCity); anchor != nil {
		c.PostalCode = model.NewField(anchor.postalCode, patternSource, 0.8)
		if anchor.city != "" {
			c.City = model.NewField(strings.TrimSpace(anchor.city), patternSource, 0.8)
		}
		if street := expandStreet(lines, anchor.lineIndex); street != "" {
			c.Street = model.NewField(street, patternSource, 0.8)
		}
		if name := expandLegalName(lines, anchor.lineIndex, domainLabel); name != "" {
			c.LegalName = model.NewField(name, patternSource, 0.8)
		}
	}

	if m := frRCS.FindStringSubmatch(text); m != nil {
		c.RegisterCourt = model.NewField("RCS "+strings.TrimSpace(m[1]), patternSource, 0.8)
		c.RegistrationNumber = model.NewField("RCS "+strings.TrimSpace(m[1])+" "+m[2], patternSource, 0.8)
		c.RegisterType = model.NewField("RCS", patternSource, 0.8)
	}
	if siret := firstMatch(frSIRET, text); siret != "" && !c.RegistrationNumber.Present {
		c.RegistrationNumber = model.NewField(siret, patternSource, 0.8)
		c.RegisterType = model.NewField("SIRET", patternSource, 0.8)
	} else if siren := firstMatch(frSIREN, text); siren != "" && !c.RegistrationNumber.Present {
		c.RegistrationNumber = model.NewField(siren, patternSource, 0.8)
		c.RegisterType = model.NewField("SIREN", patternSource, 0.8)
	}
	if m := frLegalForm.FindString(text); m != "" {
		c.LegalForm = model.NewField(strings.ToUpper(m), patternSource, 0.8)
	}
	if tva := firstMatch(frTVA, text); tva != "" {
		c.VATID = model.NewField(strings.ToUpper(strings.ReplaceAll(tva, " ", "")), patternSource, 0.8)
	}
	if m := frGerant.FindStringSubmatch(text); m != nil {
		c.Directors = append(c.Directors, splitPeople(m[1])...)
	}
	if phone := firstMatch(frPhone, text); phone != "" {
		c.Phones = append(c.Phones, strings.TrimSpace(phone))
	}
	if email := firstMatch(frEmail, text); email != "" {
		c.Emails = append(c.Emails, email)
	}

	return c
}
