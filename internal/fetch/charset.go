package fetch

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"
)

// detectCharset mirrors the teacher's detectCharset: Content-Type header
// first, then a walk of <meta> tags, defaulting to utf-8.
func detectCharset(contentType string, body []byte) string {
	if contentType != "" {
		for _, part := range strings.Split(contentType, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(strings.ToLower(part), "charset=") {
				return strings.Trim(strings.TrimPrefix(strings.ToLower(part), "charset="), `"'`)
			}
		}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err == nil {
		if cs := findMetaCharset(doc); cs != "" {
			return cs
		}
	}
	return "utf-8"
}

func findMetaCharset(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var httpEquiv, content, charsetAttr string
		for _, attr := range n.Attr {
			switch strings.ToLower(attr.Key) {
			case "http-equiv":
				httpEquiv = strings.ToLower(attr.Val)
			case "content":
				content = attr.Val
			case "charset":
				charsetAttr = attr.Val
			}
		}
		if charsetAttr != "" {
			return charsetAttr
		}
		if httpEquiv == "content-type" && content != "" {
			for _, part := range strings.Split(content, ";") {
				part = strings.TrimSpace(part)
				if strings.HasPrefix(strings.ToLower(part), "charset=") {
					return strings.TrimPrefix(strings.ToLower(part), "charset=")
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if cs := findMetaCharset(c); cs != "" {
			return cs
		}
	}
	return ""
}

// convertToUTF8 mirrors the teacher's convertToUTF8: no-op for utf-8,
// best-effort decode via htmlindex for anything else, falling back to
// the original bytes rather than erroring.
func convertToUTF8(body []byte, charsetName string) []byte {
	charsetName = strings.ToLower(strings.TrimSpace(charsetName))
	if charsetName == "" || charsetName == "utf-8" || charsetName == "utf8" {
		return body
	}

	enc, err := htmlindex.Get(charsetName)
	if err != nil {
		return body
	}
	dec := enc.NewDecoder()
	decoded, err := dec.Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}
