// Package section is the Section Isolator (spec §4.5, C5): strips
// navigation/boilerplate and returns the densest legal-content text
// region, line-normalised because downstream patterns are line-sensitive.
// Ported from original_source/src/section_extractor.py's NOISE_SELECTORS
// and four-strategy find_legal_section cascade.
package section

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// noiseSelectors are removed outright before any extraction runs. Compiled
// once at package init, as a single cascadia.Selector Matcher, rather than
// re-parsed by goquery.Find on every Isolate call, since this runs once per
// fetched page for the lifetime of a crawl.
var noiseSelectors = cascadia.MustCompile(strings.Join([]string{
	"nav", "header", "footer", "aside", "script", "style", "noscript",
	".navigation", ".nav", ".menu", ".cookie", ".cookie-banner", ".popup",
	".modal", "[role=navigation]", "[role=banner]", "[role=contentinfo]",
}, ", "))

// legalSectionKeywords score candidate containers in strategy 3.
var legalSectionKeywords = []string{
	"impressum", "imprint", "legal", "mentions-legales", "datenschutz", "privacy",
}

var collapseBlankLines = regexp.MustCompile(`\n{3,}`)

// Isolate removes noise and returns the main legal-content text for the
// given HTML, following spec §4.5's four-strategy cascade.
func Isolate(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.FindMatcher(noiseSelectors).Remove()

	section := findLegalSection(doc)
	text := blockText(section)
	text = collapseBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

// findLegalSection is the four-strategy fallback from
// original_source/src/section_extractor.py's find_legal_section:
// id/class pattern match -> <main>/<article> -> keyword-density div/section
// search -> <body> fallback.
func findLegalSection(doc *goquery.Document) *goquery.Selection {
	for _, kw := range legalSectionKeywords {
		sel := doc.Find(`[id*="` + kw + `"], [class*="` + kw + `"]`)
		if sel.Length() > 0 {
			return sel.First()
		}
	}

	if main := doc.Find("main"); main.Length() > 0 {
		return main.First()
	}
	if article := doc.Find("article"); article.Length() > 0 {
		return article.First()
	}

	best, bestScore := (*goquery.Selection)(nil), -1
	doc.Find("div, section").Each(func(_ int, s *goquery.Selection) {
		score := keywordDensity(s.Text())
		if score > bestScore {
			bestScore = score
			best = s
		}
	})
	if best != nil && bestScore > 0 {
		return best
	}

	return doc.Find("body")
}

func keywordDensity(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range legalSectionKeywords {
		count += strings.Count(lower, kw)
	}
	return count
}

// blockText walks block-level descendants and joins their text with
// newlines, so multi-line address/registration blocks keep their line
// structure instead of collapsing into one run-on sentence.
func blockText(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	var lines []string
	blocks := sel.Find("p, div, li, br, td, h1, h2, h3, h4, address")
	if blocks.Length() == 0 {
		return sel.Text()
	}
	blocks.Each(func(_ int, b *goquery.Selection) {
		line := strings.TrimSpace(b.Text())
		if line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return sel.Text()
	}
	return strings.Join(lines, "\n")
}
