package extract

import (
	"regexp"
	"strings"

	"legalcrawl/internal/model"
)

// German/Austrian/Swiss family patterns (spec §4.7 row 1), ported from
// original_source/src/country_extractors/german_extractor.py.
var (
	dePostalCity    = regexp.MustCompile(`(\d{4,5})\s+([A-ZÄÖÜ][a-zäöüß\- ]+)`)
	deRegisterFull  = regexp.MustCompile(`(?i)(?:Amtsgericht|Registergericht)\s+([A-ZÄÖÜa-zäöüß\- ]+?)[,\s]+(?:unter\s+)?(HRB|HRA)\s*(\d+)(?:\s*([A-Z])\b)?`)
	deHRB           = regexp.MustCompile(`(?i)(HRB|HRA)\s*(\d+)(?:\s*([A-Z])\b)?`)
	deCourtOnly     = regexp.MustCompile(`(?i)(?:Amtsgericht|Registergericht)\s+([A-ZÄÖÜa-zäöüß\- ]+)`)
	deLegalForm     = regexp.MustCompile(`(?i)\b(GmbH\s*&?\s*Co\.?\s*K?G|GmbH|AG|UG\s*\(?haftungsbeschränkt\)?|UG|SE|KG|OHG|e\.?\s*V\.?|eG|GbR|PartG|KGaA)\b`)
	deVAT           = regexp.MustCompile(`(?i)(?:USt\.?-?Id\.?-?Nr\.?|Umsatzsteuer-?Identifikations-?nummer|UID)[:\s]*([A-Z]{2}\s?\d{8,9})`)
	deDirectors     = regexp.MustCompile(`(?i)(?:Geschäftsführer|Geschäftsführung|Vorstand|Inhaber|Vertretungsberechtigt)[:\s]+([^\n]+)`)
	dePhone         = regexp.MustCompile(`(?i)(?:Tel(?:efon)?\.?|Fon)[:\s]*([+0][\d\s\-/().]{8,20})`)
	deEmail         = regexp.MustCompile(`(?i)(?:E-?Mail|Mail)[:\s]*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)
	deFax           = regexp.MustCompile(`(?i)(?:Fax)[:\s]*([+0][\d\s\-/().]{8,20})`)
)

// ExtractDE runs the DE/AT/CH pattern set over the isolated legal text.
// region is the ISO country code (DE, AT, or CH); it is not consulted,
// since all three countries share this one pattern set.
func ExtractDE(text, domainLabel, region string) *model.Candidates {
	c := &model.Candidates{Source: patternSource}
	lines := splitLines(text)

	if anchor := findPostalAnchor(lines, dePostalCity); anchor != nil {
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

	if m := deRegisterFull.FindStringSubmatch(text); m != nil {
		c.RegisterCourt = model.NewField("Amtsgericht "+strings.TrimSpace(m[1]), patternSource, 0.8)
		c.RegisterType = model.NewField(strings.ToUpper(m[2]), patternSource, 0.8)
		regNum := strings.ToUpper(m[2]) + " " + m[3]
		if m[4] != "" {
			regNum += " " + m[4]
		}
		c.RegistrationNumber = model.NewField(regNum, patternSource, 0.8)
	} else {
		if m := deHRB.FindStringSubmatch(text); m != nil {
			regNum := strings.ToUpper(m[1]) + " " + m[2]
			if m[3] != "" {
				regNum += " " + m[3]
			}
			c.RegistrationNumber = model.NewField(regNum, patternSource, 0.8)
			c.RegisterType = model.NewField(strings.ToUpper(m[1]), patternSource, 0.8)
		}
		if court := firstMatch(deCourtOnly, text); court != "" {
			c.RegisterCourt = model.NewField("Amtsgericht "+court, patternSource, 0.8)
		}
	}

	if m := deLegalForm.FindString(text); m != "" {
		c.LegalForm = model.NewField(m, patternSource, 0.8)
	}
	if vat := firstMatch(deVAT, text); vat != "" {
		c.VATID = model.NewField(strings.ReplaceAll(vat, " ", ""), patternSource, 0.8)
	}
	if m := deDirectors.FindStringSubmatch(text); m != nil {
		for _, name := range splitPeople(m[1]) {
			c.Directors = append(c.Directors, name)
		}
	}
	if phone := firstMatch(dePhone, text); phone != "" {
		c.Phones = append(c.Phones, strings.TrimSpace(phone))
	}
	if fax := firstMatch(deFax, text); fax != "" {
		c.Fax = model.NewField(strings.TrimSpace(fax), patternSource, 0.8)
	}
	if email := firstMatch(deEmail, text); email != "" {
		c.Emails = append(c.Emails, email)
	}

	return c
}

// splitPeople breaks a label's captured value into individual names on
// common separators ("; ", ", ", " und ", " and "), matching the
// original's Geschäftsführer list splitting.
func splitPeople(raw string) []string {
	raw = strings.TrimSpace(raw)
	for _, sep := range []string{" und ", " and ", ";"} {
		raw = strings.ReplaceAll(raw, sep, ",")
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
