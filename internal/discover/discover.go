// Package discover is the Link Discoverer (spec §4.4, C4): from the home
// page DOM, find candidate legal-notice URLs by label and path
// heuristics, ranked with the teacher's binary-heap PriorityQueue
// (repointed from blog/comment scoring to the legal lexicon below).
package discover

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// legalLexicon is the multilingual label/path token list from spec
// §4.4 signal 1-2, ported from original_source/src/link_discoverer.py's
// legal_keywords table.
var legalLexicon = []string{
	"impressum", "imprint", "mentions légales", "mentions-legales",
	"aviso legal", "note legali", "legal notice", "datenschutz",
	"legal", "privacy", "disclosure", "company-info", "about-us/legal",
}

// Candidate is one ranked legal-URL proposal.
type Candidate struct {
	URL      string
	Score    float64
}

// Discover returns up to k candidate legal URLs from the home page's
// HTML, ranked per spec §4.4: label match > path match > footer
// proximity, external/nofollow links excluded.
func Discover(homeURL, html string, k int) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(homeURL)
	if err != nil {
		return nil, err
	}

	anchors := doc.Find("a")
	total := anchors.Length()
	if total == 0 {
		return []Candidate{{URL: homeURL, Score: 0}}, nil
	}

	pq := newPriorityQueue()
	seen := make(map[string]struct{})

	anchors.Each(func(i int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if rel, _ := a.Attr("rel"); strings.Contains(strings.ToLower(rel), "nofollow") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Host != "" && resolved.Host != base.Host {
			return
		}
		resolved.Fragment = ""
		absURL := resolved.String()
		if _, dup := seen[absURL]; dup {
			return
		}
		seen[absURL] = struct{}{}

		score := scoreAnchor(a.Text(), resolved.Path, i, total)
		if score > 0 {
			pq.push(urlItem{url: absURL, priority: score})
		}
	})

	var out []Candidate
	for len(out) < k {
		item, ok := pq.pop()
		if !ok {
			break
		}
		out = append(out, Candidate{URL: item.url, Score: item.priority})
	}

	if len(out) == 0 {
		// spec §4.4: "If none are found, the home URL itself is used."
		out = append(out, Candidate{URL: homeURL, Score: 0})
	}
	return out, nil
}

func scoreAnchor(text, path string, index, total int) float64 {
	lowerText := strings.ToLower(strings.TrimSpace(text))
	lowerPath := strings.ToLower(path)

	score := 0.0
	for _, token := range legalLexicon {
		if strings.Contains(lowerText, token) {
			score += 1.0
			break
		}
	}
	for _, token := range legalLexicon {
		if strings.Contains(lowerPath, token) {
			score += 0.5
			break
		}
	}
	// Footer proximity: links in the last 20% of the anchor order get a
	// small bump (spec §4.4 signal 3), and tie-break by shallower paths.
	if total > 0 && float64(index)/float64(total) >= 0.8 {
		score += 0.2
	}
	depthPenalty := float64(strings.Count(strings.Trim(path, "/"), "/")) * 0.01
	return score - depthPenalty
}
