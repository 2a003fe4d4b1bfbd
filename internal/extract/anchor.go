package extract

import (
	"regexp"
	"strings"

	"legalcrawl/internal/validate"
)

// anchorDenylist are label words that disqualify a line as a legal-name
// candidate even if it otherwise looks plausible (spec §4.7 anchor &
// expand, clause iii).
var anchorDenylist = []string{"kontakt", "anschrift", "adresse", "home", "menu"}

var streetSuffixToken = regexp.MustCompile(`(?i)(str(aße|\.)?|weg|platz|allee|gasse|ring|damm|ufer|chaussee|promenade|street|st\.|road|rd\.|avenue|ave\.|lane|rue|via|calle)`)

type addressMatch struct {
	postalCode string
	city       string
	lineIndex  int
}

// findPostalAnchor implements spec §4.7's anchor step: locate the
// postal-code/city anchor line using postalPattern, which must contain
// exactly one capture group for the code (the optional second group, if
// present, captures the city on the same line).
func findPostalAnchor(lines []string, postalPattern *regexp.Regexp) *addressMatch {
	for i, line := range lines {
		m := postalPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		am := &addressMatch{postalCode: m[1], lineIndex: i}
		if len(m) > 2 {
			am.city = strings.TrimSpace(m[2])
		}
		return am
	}
	return nil
}

// expandStreet implements spec §4.7's street-candidate rule: the anchor
// line itself, or the line immediately above it, whichever contains a
// street-suffix token and a number.
func expandStreet(lines []string, anchorIdx int) string {
	candidates := []int{anchorIdx}
	if anchorIdx > 0 {
		candidates = append(candidates, anchorIdx-1)
	}
	for _, idx := range candidates {
		line := lines[idx]
		if streetSuffixToken.MatchString(line) && containsDigit(line) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// expandLegalName implements spec §4.7's legal-name-candidate rule: the
// nearest non-empty line at most 3 lines above the anchor that (i)
// contains a known legal-form token or (ii) fuzzy-matches domainLabel
// with ratio >= 0.6, and (iii) is not on the label-word denylist.
func expandLegalName(lines []string, anchorIdx int, domainLabel string) string {
	start := anchorIdx - 1
	if start < 0 {
		return ""
	}
	limit := anchorIdx - 3
	if limit < 0 {
		limit = 0
	}
	for i := start; i >= limit; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		denied := false
		for _, word := range anchorDenylist {
			if lower == word || strings.Contains(lower, word) {
				denied = true
				break
			}
		}
		if denied {
			continue
		}

		hasForm := false
		for _, form := range validate.AllLegalForms {
			if strings.Contains(line, form) {
				hasForm = true
				break
			}
		}
		if hasForm || validate.FuzzyRatio(lower, strings.ToLower(domainLabel)) >= 0.6 {
			return line
		}
	}
	return ""
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// splitLines splits the isolated section text into candidate lines,
// trimming trailing spaces and tabs only; empty lines are kept, matching
// the line-sensitivity section.Isolate already preserves.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimRight(l, " \t"))
	}
	return lines
}

// firstMatch returns the first capture group of pattern's first match in
// text, or "" if none.
func firstMatch(pattern *regexp.Regexp, text string) string {
	m := pattern.FindStringSubmatch(text)
	if m == nil || len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
