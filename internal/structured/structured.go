// Package structured is the Structured-Data Pass (spec §4.6, C6): it
// parses embedded JSON-LD annotations and emits a Candidates set tagged
// source="structured", confidence=1.0, ahead of any validation. Ported
// from original_source/src/robust_legal_extractor.py's
// _extract_from_structured_data, including its @graph/bare-list handling.
package structured

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"legalcrawl/internal/model"
)

// organizationTypes are the JSON-LD @type values treated as an entity
// annotation (spec §4.6 plus LegalService, matching the original's
// ['Organization', 'Corporation', 'LocalBusiness', 'Company'] list).
var organizationTypes = map[string]bool{
	"Organization":  true,
	"Corporation":   true,
	"LocalBusiness": true,
	"Company":       true,
	"LegalService":  true,
}

const source = "structured"

// Extract scans html for application/ld+json blocks and returns the
// densest Organization-like annotation as a Candidates set, or nil if
// none is found.
func Extract(html string) (*model.Candidates, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var best *model.Candidates
	bestPopulated := -1

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var raw interface{}
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return
		}
		for _, item := range flattenItems(raw) {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			typ, _ := obj["@type"].(string)
			if !organizationTypes[typ] {
				continue
			}
			cand := fromAnnotation(obj)
			if n := populated(cand); n > bestPopulated {
				bestPopulated = n
				best = cand
			}
		}
	})

	return best, nil
}

// flattenItems handles the three JSON-LD shapes the teacher's original
// parser tolerated: a bare object, a bare list, and a {"@graph": [...]}
// wrapper.
func flattenItems(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case map[string]interface{}:
		if graph, ok := v["@graph"].([]interface{}); ok {
			return graph
		}
		return []interface{}{v}
	case []interface{}:
		return v
	default:
		return nil
	}
}

func fromAnnotation(obj map[string]interface{}) *model.Candidates {
	c := &model.Candidates{Source: source}

	if name := firstString(obj["legalName"], obj["name"]); name != "" {
		c.LegalName = model.NewField(name, source, 1.0)
	}
	if vat := firstString(obj["vatID"], obj["taxID"]); vat != "" {
		c.VATID = model.NewField(vat, source, 1.0)
	}

	if addr, ok := obj["address"].(map[string]interface{}); ok {
		if v := asString(addr["streetAddress"]); v != "" {
			c.Street = model.NewField(v, source, 1.0)
		}
		if v := asString(addr["postalCode"]); v != "" {
			c.PostalCode = model.NewField(v, source, 1.0)
		}
		if v := asString(addr["addressLocality"]); v != "" {
			c.City = model.NewField(v, source, 1.0)
		}
		if v := asString(addr["addressCountry"]); v != "" {
			c.Country = model.NewField(v, source, 1.0)
		}
	}

	if phone := asString(obj["telephone"]); phone != "" {
		c.Phones = append(c.Phones, phone)
	}
	if email := asString(obj["email"]); email != "" {
		c.Emails = append(c.Emails, email)
	}
	if fax := asString(obj["faxNumber"]); fax != "" {
		c.Fax = model.NewField(fax, source, 1.0)
	}

	for _, cp := range contactPoints(obj["contactPoint"]) {
		if v := asString(cp["telephone"]); v != "" {
			c.Phones = append(c.Phones, v)
		}
		if v := asString(cp["email"]); v != "" {
			c.Emails = append(c.Emails, v)
		}
	}

	return c
}

func contactPoints(raw interface{}) []map[string]interface{} {
	switch v := raw.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{v}
	case []interface{}:
		var out []map[string]interface{}
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// asString coerces a JSON-decoded value to a trimmed string, returning ""
// for anything that isn't a plain string (numbers, nested objects).
func asString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// firstString returns the first non-empty value among candidates; some
// annotations give "name" as a list (JSON-LD alternate names), matching
// the original's "handle list input" bugfix comment.
func firstString(candidates ...interface{}) string {
	for _, c := range candidates {
		switch v := c.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return ""
}

// populated counts how many fields an annotation contributed, used to
// pick the densest of several competing annotations (spec §4.6).
func populated(c *model.Candidates) int {
	n := 0
	for _, f := range []model.Field{c.LegalName, c.VATID, c.Street, c.PostalCode, c.City, c.Country, c.Fax} {
		if f.Present {
			n++
		}
	}
	n += len(c.Phones) + len(c.Emails)
	return n
}
