package extract

import (
	"regexp"
	"strings"

	"legalcrawl/internal/model"
)

// Italian family patterns (spec §4.7 row 4), ported from
// original_source/src/legal_extractor.py's multilang_patterns['IT']
// table (managing_director, register_court) plus the shared VAT/P.IVA
// pattern.
var (
	itPostalCity  = regexp.MustCompile(`(\d{5})\s+([A-Za-zÀ-ÿ\- ]+)`)
	itRegister    = regexp.MustCompile(`(?i)Registro\s+(?:delle\s+)?Imprese:?\s*([^,\n]+)`)
	itLegalForm   = regexp.MustCompile(`(?i)\b(S\.r\.l\.|Srl|S\.p\.A\.|SpA|S\.a\.s\.|S\.n\.c\.)\b`)
	itVAT         = regexp.MustCompile(`(?i)P\.?\s*IVA\s*[:.]?\s*(IT\s?\d{11}|\d{11})`)
	itDirectors   = regexp.MustCompile(`(?i)(?:Amministratore|Direttore)[:\s]+([^\n]+)`)
	itPhone       = regexp.MustCompile(`(?i)(?:Telefono|Tel\.?)[:\s]*([+\d][\d\s\-().]{7,20})`)
	itEmail       = regexp.MustCompile(`(?i)(?:E-?mail|Posta\s+elettronica)[:\s]*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)
)

// ExtractIT runs the Italian pattern set over the isolated legal text.
func ExtractIT(text, domainLabel string) *model.Candidates {
	c := &model.Candidates{Source: patternSource}
	lines := splitLines(text)

	if anchor := findPostalAnchor(lines, itPostalCity); anchor != nil {
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

	if court := firstMatch(itRegister, text); court != "" {
		c.RegisterCourt = model.NewField(court, patternSource, 0.8)
	}
	if m := itLegalForm.FindString(text); m != "" {
		c.LegalForm = model.NewField(m, patternSource, 0.8)
	}
	if vat := firstMatch(itVAT, text); vat != "" {
		c.VATID = model.NewField(strings.ToUpper(strings.ReplaceAll(vat, " ", "")), patternSource, 0.8)
	}
	if m := itDirectors.FindStringSubmatch(text); m != nil {
		c.Directors = append(c.Directors, splitPeople(m[1])...)
	}
	if phone := firstMatch(itPhone, text); phone != "" {
		c.Phones = append(c.Phones, strings.TrimSpace(phone))
	}
	if email := firstMatch(itEmail, text); email != "" {
		c.Emails = append(c.Emails, email)
	}

	return c
}
