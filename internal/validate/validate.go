// Package validate is the Validator (spec §4.8, C8): one function per
// field, each returning the cleaned value and whether it may propagate.
// A field that fails its validator is dropped, never coerced. Ported
// from original_source/src/field_validators.py's FieldValidators.
package validate

import (
	"context"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// NoiseWords flags fragments that indicate the extractor grabbed
// navigation, cookie-banner, or boilerplate text instead of the legal
// section proper (original's NOISE_WORDS, trimmed to the cross-language
// subset relevant to every country extractor).
var NoiseWords = []string{
	"navigation", "menu", "cookie", "newsletter", "anmelden", "login",
	"suche", "search", "warenkorb", "cart", "wishlist", "account",
	"registrieren", "register", "abonnieren", "subscribe", "footer",
	"header", "sidebar", "widget", "banner", "popup", "modal",
	"javascript", "undefined", "null", "kontakt", "anschrift", "adresse",
	"home", "impressum", "datenschutz", "privacy policy", "legal notice",
	"disclosure", "offenlegung",
}

// KnownLegalForms lists the legal-form tokens recognised per country
// (spec §4.7 table, original's LEGAL_FORMS), used both by
// ValidateLegalForm and by the extractor's anchor&expand legal-form
// token test.
var KnownLegalForms = map[string][]string{
	"DE": {"GmbH & Co. KG", "GmbH", "AG", "KG", "OHG", "GbR", "e.K.", "UG", "KGaA", "PartG", "eG", "e.V.", "mbH"},
	"AT": {"GmbH", "AG", "KG", "OG", "GesbR", "e.U."},
	"CH": {"AG", "GmbH", "Sarl", "SA", "Sagl", "KlG"},
	"GB": {"Ltd", "Ltd.", "Limited", "PLC", "LLP", "CIC"},
	"FR": {"SARL", "SA", "SAS", "SASU", "EURL", "SNC", "SCS", "SCA"},
	"IT": {"S.r.l.", "Srl", "S.p.A.", "SpA", "S.a.s.", "S.n.c."},
	"ES": {"S.L.", "SL", "S.A.", "SA", "S.L.L.", "S.C."},
	"US": {"Inc.", "Inc", "LLC", "Corp.", "Corp", "Corporation", "Ltd.", "LLP", "LP", "PC"},
	"NL": {"B.V.", "BV", "N.V.", "NV", "V.O.F.", "C.V."},
	"BE": {"BVBA", "NV", "CVBA", "VOF", "BV", "SRL"},
}

// AllLegalForms is KnownLegalForms flattened, for matching a legal form
// against any country when the form itself is the only signal available.
var AllLegalForms = func() []string {
	var out []string
	for _, forms := range KnownLegalForms {
		out = append(out, forms...)
	}
	return out
}()

// vatPatterns is spec §4.8's "country-specific pattern and, where
// applicable, checksum" (checksum omitted: no pack example implements
// VAT checksum arithmetic, and the spec only requires it "where
// applicable").
var vatPatterns = map[string]*regexp.Regexp{
	"DE": regexp.MustCompile(`^DE\d{9}$`),
	"AT": regexp.MustCompile(`^ATU\d{8}$`),
	"CH": regexp.MustCompile(`^CHE\d{9}(MWST)?$`),
	"GB": regexp.MustCompile(`^GB\d{9,12}$`),
	"FR": regexp.MustCompile(`^FR[A-Z0-9]{2}\d{9}$`),
	"IT": regexp.MustCompile(`^IT\d{11}$`),
	"ES": regexp.MustCompile(`^ES[A-Z0-9]\d{7}[A-Z0-9]$`),
	"NL": regexp.MustCompile(`^NL\d{9}B\d{2}$`),
	"BE": regexp.MustCompile(`^BE0\d{9}$`),
}

// postalPatterns implements spec §4.7's postal-code column per family.
var postalPatterns = map[string]*regexp.Regexp{
	"DE": regexp.MustCompile(`^\d{4,5}$`),
	"AT": regexp.MustCompile(`^\d{4,5}$`),
	"CH": regexp.MustCompile(`^\d{4}$`),
	"FR": regexp.MustCompile(`^\d{5}$`),
	"IT": regexp.MustCompile(`^\d{5}$`),
	"ES": regexp.MustCompile(`^\d{5}$`),
	"GB": regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2}$`),
}

var digitRun = regexp.MustCompile(`\d{5,}`)
var hrbPattern = regexp.MustCompile(`(?i)^(HRB|HRA)\s*(\d+)\s*([A-Z])?$`)
var ukCompanyNumber = regexp.MustCompile(`^\d{8}$`)
var rcsPattern = regexp.MustCompile(`(?i)^RCS\s+([A-Za-z\- ]+)\s+(\d{9}|\d{14})$`)
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var personalEmailPattern = regexp.MustCompile(`(?i)^[a-z]+\.[a-z]+@`)
var placeholderEmailDomains = []string{"example.com", "test.com", "email.com", "domain.com"}

// titlePrefixes are stripped from person names (spec §4.8 ceo/directors).
var titlePrefixes = []string{"Dr.", "Prof.", "Herr", "Frau", "Dr", "Prof"}

func containsNoise(s string) bool {
	lower := strings.ToLower(s)
	for _, noise := range NoiseWords {
		if strings.Contains(lower, noise) {
			return true
		}
	}
	return false
}

// ValidateLegalName implements spec §4.8's legal_name rule: length bound,
// known legal-form token or fuzzy domain match, no long digit runs, not
// entirely navigation noise.
func ValidateLegalName(name, domainLabel string) (string, bool) {
	name = strings.Join(strings.Fields(name), " ")
	if len(name) < 3 || len(name) > 120 {
		return "", false
	}
	if containsNoise(name) {
		return "", false
	}
	if digitRun.MatchString(name) {
		return "", false
	}
	hasForm := false
	for _, form := range AllLegalForms {
		if strings.Contains(name, form) {
			hasForm = true
			break
		}
	}
	if !hasForm && FuzzyRatio(strings.ToLower(name), strings.ToLower(domainLabel)) < 0.6 {
		return "", false
	}
	return name, true
}

// ValidateLegalForm requires exact membership in KnownLegalForms[country]
// (spec §4.8). An empty country checks every known form.
func ValidateLegalForm(form, country string) (string, bool) {
	form = strings.TrimSpace(form)
	if form == "" {
		return "", false
	}
	forms := KnownLegalForms[country]
	if forms == nil {
		forms = AllLegalForms
	}
	for _, known := range forms {
		if strings.EqualFold(form, known) {
			return known, true
		}
	}
	return "", false
}

// ValidatePostalCode checks code against country's pattern (spec §4.8).
// An unrecognised country falls back to the bare 4-6 digit European
// shape, matching the original's "Most European ZIPs" fallback.
func ValidatePostalCode(code, country string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	if pattern, ok := postalPatterns[country]; ok {
		normalized := strings.ToUpper(strings.ReplaceAll(code, " ", ""))
		if country == "GB" {
			if pattern.MatchString(strings.ToUpper(code)) {
				return strings.ToUpper(code), true
			}
			return "", false
		}
		if pattern.MatchString(normalized) {
			return normalized, true
		}
		return "", false
	}
	if regexp.MustCompile(`^\d{4,6}$`).MatchString(code) {
		return code, true
	}
	return "", false
}

var streetSuffixToken = regexp.MustCompile(`(?i)(str(aße|\.)?|weg|platz|allee|gasse|ring|damm|street|st\.|road|rd\.|avenue|ave\.|lane|rue|via|calle)`)

// ValidateStreet requires a digit (house number) and rejects noise
// (spec §4.8).
func ValidateStreet(street string) (string, bool) {
	street = strings.Join(strings.Fields(street), " ")
	if len(street) < 3 || len(street) > 150 {
		return "", false
	}
	if containsNoise(street) {
		return "", false
	}
	hasDigit := false
	for _, r := range street {
		if r >= '0' && r <= '9' {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return "", false
	}
	return street, true
}

// ValidateCity requires a minimum length and a mostly-letters shape
// (spec §4.8).
func ValidateCity(city string) (string, bool) {
	city = strings.Join(strings.Fields(city), " ")
	if len(city) < 2 || len(city) > 50 {
		return "", false
	}
	letters := 0
	for _, r := range city {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127 {
			letters++
		}
	}
	if float64(letters) < float64(len([]rune(city)))*0.7 {
		return "", false
	}
	return city, true
}

// ValidatePhone parses phone with regionHint and formats it
// international-style (spec §4.8), using the international phone
// library the original also relies on (nyaruka/phonenumbers, the Go
// port of Python's `phonenumbers`).
func ValidatePhone(phone, regionHint string) (string, bool) {
	if phone == "" {
		return "", false
	}
	num, err := phonenumbers.Parse(phone, regionHint)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL), true
}

// ValidateFax is ValidatePhone under another name (spec §4.8 folds fax
// into the same rule as phones).
func ValidateFax(fax, regionHint string) (string, bool) {
	return ValidatePhone(fax, regionHint)
}

// ValidateEmail checks structure, optional MX presence, and excludes
// firstname.lastname@ personal addresses unless onLegalPage is true
// (spec §4.8).
func ValidateEmail(ctx context.Context, email string, mxCheck bool, onLegalPage bool) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", false
	}
	for _, fake := range placeholderEmailDomains {
		if strings.HasSuffix(email, "@"+fake) {
			return "", false
		}
	}
	if !onLegalPage && personalEmailPattern.MatchString(email) {
		return "", false
	}
	if mxCheck {
		domain := email[strings.LastIndex(email, "@")+1:]
		resolver := &net.Resolver{}
		lctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if mx, err := resolver.LookupMX(lctx, domain); err != nil || len(mx) == 0 {
			return "", false
		}
	}
	return email, true
}

// ValidateVATID checks the country pattern (spec §4.8).
func ValidateVATID(vat string) (string, bool) {
	clean := strings.ToUpper(strings.ReplaceAll(vat, " ", ""))
	for _, pattern := range vatPatterns {
		if pattern.MatchString(clean) {
			return clean, true
		}
	}
	return "", false
}

// ValidateRegistrationNumber checks the country pattern and that it
// co-occurs with a register court/authority (spec §4.8).
func ValidateRegistrationNumber(regNum, registerCourt string) (string, bool) {
	regNum = strings.TrimSpace(regNum)
	if regNum == "" || registerCourt == "" {
		return "", false
	}
	if m := hrbPattern.FindStringSubmatch(regNum); m != nil {
		prefix := strings.ToUpper(m[1])
		out := prefix + " " + m[2]
		if m[3] != "" {
			out += " " + m[3]
		}
		return out, true
	}
	if ukCompanyNumber.MatchString(regNum) {
		return regNum, true
	}
	if m := rcsPattern.FindStringSubmatch(regNum); m != nil {
		return "RCS " + strings.TrimSpace(m[1]) + " " + m[2], true
	}
	return "", false
}

// ValidatePersonName implements spec §4.8's ceo/directors rule: 2-4
// tokens, no digits, no legal-form/label tokens, titles stripped.
func ValidatePersonName(name string) (string, bool) {
	name = strings.Join(strings.Fields(name), " ")
	for stripped := true; stripped; {
		stripped = false
		for _, title := range titlePrefixes {
			if strings.HasPrefix(name, title+" ") {
				name = strings.TrimSpace(strings.TrimPrefix(name, title+" "))
				stripped = true
			}
		}
	}
	tokens := strings.Fields(name)
	if len(tokens) < 2 || len(tokens) > 4 {
		return "", false
	}
	if containsNoise(name) {
		return "", false
	}
	for _, tok := range tokens {
		for _, r := range tok {
			if r >= '0' && r <= '9' {
				return "", false
			}
		}
		for _, form := range AllLegalForms {
			if strings.EqualFold(tok, form) {
				return "", false
			}
		}
	}
	return name, true
}

// FuzzyRatio approximates difflib.SequenceMatcher.ratio() via
// normalised Levenshtein distance: 1 - distance/max(len(a), len(b)).
// No pack example ships a fuzzy-matching library (see DESIGN.md); this
// is the one piece of domain logic built on a hand-rolled algorithm
// rather than an ecosystem dependency.
func FuzzyRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein(ra, rb)
	return 1.0 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			min := curr[j-1] + 1
			if prev[j]+1 < min {
				min = prev[j] + 1
			}
			if prev[j-1]+cost < min {
				min = prev[j-1] + cost
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}
