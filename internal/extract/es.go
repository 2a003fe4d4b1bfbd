package extract

import (
	"regexp"
	"strings"

	"legalcrawl/internal/model"
)

// Spanish family patterns (spec §4.7 row 5), ported from
// original_source/src/legal_extractor.py's multilang_patterns['ES']
// table (managing_director, register_court).
var (
	esPostalCity  = regexp.MustCompile(`(\d{5})\s+([A-Za-zÀ-ÿ\- ]+)`)
	esRegister    = regexp.MustCompile(`(?i)Registro\s+Mercantil:?\s*([^,\n]+)`)
	esLegalForm   = regexp.MustCompile(`(?i)\b(S\.L\.L\.|S\.L\.|SL|S\.A\.|SA|S\.C\.)\b`)
	esVAT         = regexp.MustCompile(`(?i)(?:CIF|NIF)[:\s]*(ES\s?[A-Z0-9]\d{7}[A-Z0-9]|[A-Z]\d{7}[A-Z0-9])`)
	esDirectors   = regexp.MustCompile(`(?i)(?:Administrador|Director\s+General)[:\s]+([^\n]+)`)
	esPhone       = regexp.MustCompile(`(?i)(?:Teléfono|Tel\.?)[:\s]*([+\d][\d\s\-().]{7,20})`)
	esEmail       = regexp.MustCompile(`(?i)(?:Correo\s+electrónico|E-?mail)[:\s]*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)
)

// ExtractES runs the Spanish pattern set over the isolated legal text.
func ExtractES(text, domainLabel string) *model.Candidates {
	c := &model.Candidates{Source: patternSource}
	lines := splitLines(text)

	if anchor := findPostalAnchor(lines, esPostalCity); anchor != nil {
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

	if court := firstMatch(esRegister, text); court != "" {
		c.RegisterCourt = model.NewField(court, patternSource, 0.8)
	}
	if m := esLegalForm.FindString(text); m != "" {
		c.LegalForm = model.NewField(m, patternSource, 0.8)
	}
	if vat := firstMatch(esVAT, text); vat != "" {
		c.VATID = model.NewField(strings.ToUpper(strings.ReplaceAll(vat, " ", "")), patternSource, 0.8)
	}
	if m := esDirectors.FindStringSubmatch(text); m != nil {
		c.Directors = append(c.Directors, splitPeople(m[1])...)
	}
	if phone := firstMatch(esPhone, text); phone != "" {
		c.Phones = append(c.Phones, strings.TrimSpace(phone))
	}
	if email := firstMatch(esEmail, text); email != "" {
		c.Emails = append(c.Emails, email)
	}

	return c
}
