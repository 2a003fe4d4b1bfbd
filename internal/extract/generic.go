package extract

import (
	"regexp"
	"strings"

	"legalcrawl/internal/model"
)

// Generic fallback pattern set (spec §4.7 row 6), a fixed set,
// ported from original_source/src/country_extractors/generic_extractor.py.
var (
	genericCompanyName = regexp.MustCompile(`(?i)(?:Company Name|Legal Name|Business Name|Registered Name|Firma|Raison sociale)[:\s]+([^\n]+)`)
	genericPostalCity  = regexp.MustCompile(`(\d{4,6})\s+([A-Za-zÀ-ÿ\- ]+)`)
	genericRegistration = regexp.MustCompile(`(?i)(?:Registration|Registered|Company No|Reg\.?\s*No)[:\s]*([A-Z0-9\s\-]{3,30})`)
	genericVAT         = regexp.MustCompile(`(?i)(?:VAT|TVA|USt|IVA|BTW|MWST|GST)[\s\-.]*(?:No\.?|Number|ID|Nr\.?)?[:\s]*([A-Z]{2}\s*[\dA-Z\s]{7,15})`)
	genericDirector    = regexp.MustCompile(`(?i)(?:CEO|Director|Managing Director)[:\s]+([^\n]+)`)
	genericPhone       = regexp.MustCompile(`(?i)(?:Phone|Telephone|Tel)[:\s]*([+\d][\d\s\-().]{7,20})`)
	genericFax         = regexp.MustCompile(`(?i)(?:Fax|Telefax)[:\s]*([+\d][\d\s\-().]{7,20})`)
	genericEmail       = regexp.MustCompile(`(?i)(?:Email|E-mail|Mail)[:\s]*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)
)

// ExtractGeneric runs the country-agnostic fallback pattern set, which
// the assembler folds in below any matched country-specific pass
// (spec §4.9 priority order, §4.7 "Generic" row).
func ExtractGeneric(text, domainLabel string) *model.Candidates {
	c := &model.Candidates{Source: patternSource}
	lines := splitLines(text)

	if anchor := findPostalAnchor(lines, genericPostalCity); anchor != nil {
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

	if name := firstMatch(genericCompanyName, text); name != "" && !c.LegalName.Present {
		c.LegalName = model.NewField(strings.TrimSpace(name), patternSource, 0.8)
	}
	for _, form := range allLegalFormTokens {
		if strings.Contains(text, form) {
			c.LegalForm = model.NewField(form, patternSource, 0.8)
			break
		}
	}
	if reg := firstMatch(genericRegistration, text); reg != "" {
		c.RegistrationNumber = model.NewField(strings.TrimSpace(reg), patternSource, 0.8)
	}
	if vat := firstMatch(genericVAT, text); vat != "" {
		c.VATID = model.NewField(strings.ToUpper(strings.ReplaceAll(vat, " ", "")), patternSource, 0.8)
	}
	if m := genericDirector.FindStringSubmatch(text); m != nil {
		c.Directors = append(c.Directors, splitPeople(m[1])...)
	}
	if phone := firstMatch(genericPhone, text); phone != "" {
		c.Phones = append(c.Phones, strings.TrimSpace(phone))
	}
	if fax := firstMatch(genericFax, text); fax != "" {
		c.Fax = model.NewField(strings.TrimSpace(fax), patternSource, 0.8)
	}
	if email := firstMatch(genericEmail, text); email != "" {
		c.Emails = append(c.Emails, email)
	}

	return c
}

// allLegalFormTokens is the generic extractor's legal-form vocabulary
// (spec §4.7 "Generic" row), ported from GenericExtractor.ALL_LEGAL_FORMS.
// It is a fixed list: no configuration option adds tokens to it.
var allLegalFormTokens = []string{
	"GmbH", "AG", "KG", "UG", "OHG", "GbR", "e.K.", "KGaA", "PartG", "eG", "e.V.",
	"Ltd", "Ltd.", "Limited", "PLC", "LLP", "CIC",
	"Inc.", "Inc", "LLC", "Corp.", "Corp", "Corporation", "LP", "PC",
	"SARL", "SAS", "SASU", "SA", "EURL", "SNC", "SCS", "SCA",
	"S.r.l.", "Srl", "S.p.A.", "SpA", "S.a.s.", "S.n.c.",
	"S.L.", "SL", "S.A.", "S.L.L.", "S.C.",
	"B.V.", "BV", "N.V.", "NV", "V.O.F.", "C.V.",
	"BVBA", "CVBA", "VOF",
}

// Dispatch runs the full C7 pass (spec §4.7): it detects the country,
// runs the matched family extractor, and always runs the generic
// fallback so the assembler can fill gaps the country-specific pass
// left behind. Returns (countryCandidates, genericCandidates); either
// may be nil/empty when its pass found nothing.
//
// enabledPacks is the country_pattern_set configuration option (spec
// §6): the set of family extractor packs ("de", "uk", "fr", "it", "es",
// "generic") the operator has enabled. An empty set enables every
// built-in family, matching the pre-configuration behaviour. A family
// not present in enabledPacks is skipped entirely, falling through to
// the generic pass only.
func Dispatch(domain, domainLabel, text string, country string, enabledPacks []string) (countrySpecific, generic *model.Candidates) {
	generic = ExtractGeneric(text, domainLabel)

	family := familyFor(country)
	if !packEnabled(family, enabledPacks) {
		return nil, generic
	}

	switch family {
	case "de":
		countrySpecific = ExtractDE(text, domainLabel, country)
	case "uk":
		countrySpecific = ExtractUK(text, domainLabel)
	case "fr":
		countrySpecific = ExtractFR(text, domainLabel)
	case "it":
		countrySpecific = ExtractIT(text, domainLabel)
	case "es":
		countrySpecific = ExtractES(text, domainLabel)
	default:
		countrySpecific = nil
	}
	return countrySpecific, generic
}

// packEnabled reports whether family is present in enabledPacks. An
// empty enabledPacks enables every family, so deployments that never set
// country_pattern_set keep running all five plus generic, as before this
// option selected anything.
func packEnabled(family string, enabledPacks []string) bool {
	if len(enabledPacks) == 0 {
		return true
	}
	for _, pack := range enabledPacks {
		if strings.EqualFold(pack, family) {
			return true
		}
	}
	return false
}
