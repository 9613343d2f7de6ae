// Package citation parses the structured citation markers the answer model
// embeds in its responses and renders them as display strings or footnotes.
//
// The marker grammar is a compatibility contract shared with the system
// prompt in the answer composer: [Doc: <id>, Art: <a>, Sec: <s>, Page: <n>]
// where Art, Sec, and Page are each optional but appear in that order.
// Changing it breaks every stored response.
package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var markerRe = regexp.MustCompile(
	`\[Doc:\s*([a-zA-Z0-9-]+)` +
		`(?:,\s*Art:\s*([a-zA-Z0-9.]+))?` +
		`(?:,\s*Sec:\s*([a-zA-Z0-9.]+))?` +
		`(?:,\s*Page:\s*(\d+))?\]`)

var multiSpaceRe = regexp.MustCompile(` {2,}`)

// Citation is one parsed reference. Page is 0 when absent; Article and
// Section are empty when absent. Raw preserves the exact matched marker.
type Citation struct {
	DocumentID string `json:"document_id"`
	Article    string `json:"article,omitempty"`
	Section    string `json:"section,omitempty"`
	Page       int    `json:"page,omitempty"`
	Raw        string `json:"raw"`
}

// Segment is one piece of a parsed answer: either plain text or a citation,
// never both.
type Segment struct {
	Text     string
	Citation *Citation
}

// Parsed is the lossless decomposition of an answer string. Concatenating
// segment text and citation Raw values in order reproduces Original exactly.
type Parsed struct {
	Original  string
	Citations []Citation
	Segments  []Segment
}

// Extract returns every citation marker in text, in reading order.
// Malformed markers simply fail to match and are left as plain text.
func Extract(text string) []Citation {
	matches := markerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	citations := make([]Citation, 0, len(matches))
	for _, m := range matches {
		citations = append(citations, buildCitation(text, m))
	}
	return citations
}

// Parse splits text into alternating text/citation segments covering the
// whole input with no gaps or overlaps.
func Parse(text string) Parsed {
	p := Parsed{Original: text}
	matches := markerRe.FindAllStringSubmatchIndex(text, -1)

	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			p.Segments = append(p.Segments, Segment{Text: text[pos:m[0]]})
		}
		c := buildCitation(text, m)
		p.Citations = append(p.Citations, c)
		p.Segments = append(p.Segments, Segment{Citation: &p.Citations[len(p.Citations)-1]})
		pos = m[1]
	}
	if pos < len(text) {
		p.Segments = append(p.Segments, Segment{Text: text[pos:]})
	}
	return p
}

// Has reports whether text contains at least one citation marker.
func Has(text string) bool {
	return markerRe.MatchString(text)
}

// Strip removes every citation marker, collapses the double spaces left
// behind, and trims the result.
func Strip(text string) string {
	out := markerRe.ReplaceAllString(text, "")
	out = multiSpaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Style selects a display format for Format.
type Style string

const (
	// StyleShort renders the document name plus either the article or the
	// page, for inline badges.
	StyleShort Style = "short"
	// StyleFull renders the document name plus every present locator,
	// comma-joined, for footnotes.
	StyleFull Style = "full"
)

// Format renders a citation for display. Short form shows "Art. N" when an
// article is present, otherwise "p.N" when a page is; the section never
// appears in short form. Full form lists article, section, and page.
func Format(c Citation, style Style) string {
	name := DocumentName(c.DocumentID)

	if style == StyleShort {
		switch {
		case c.Article != "":
			return fmt.Sprintf("%s Art. %s", name, c.Article)
		case c.Page > 0:
			return fmt.Sprintf("%s p.%d", name, c.Page)
		default:
			return name
		}
	}

	parts := []string{name}
	if c.Article != "" {
		parts = append(parts, "Article "+c.Article)
	}
	if c.Section != "" {
		parts = append(parts, "Section "+c.Section)
	}
	if c.Page > 0 {
		parts = append(parts, "Page "+strconv.Itoa(c.Page))
	}
	return strings.Join(parts, ", ")
}

// Marker renders a citation back into marker form. Round-trips with Extract:
// a marker built here parses to the same fields (Raw aside).
func Marker(c Citation) string {
	var sb strings.Builder
	sb.WriteString("[Doc: ")
	sb.WriteString(c.DocumentID)
	if c.Article != "" {
		sb.WriteString(", Art: ")
		sb.WriteString(c.Article)
	}
	if c.Section != "" {
		sb.WriteString(", Sec: ")
		sb.WriteString(c.Section)
	}
	if c.Page > 0 {
		sb.WriteString(", Page: ")
		sb.WriteString(strconv.Itoa(c.Page))
	}
	sb.WriteString("]")
	return sb.String()
}

// DocumentName title-cases a hyphenated document ID: "northern-california"
// becomes "Northern California".
func DocumentName(documentID string) string {
	words := strings.Split(documentID, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func buildCitation(text string, m []int) Citation {
	c := Citation{
		DocumentID: text[m[2]:m[3]],
		Raw:        text[m[0]:m[1]],
	}
	if m[4] >= 0 {
		c.Article = text[m[4]:m[5]]
	}
	if m[6] >= 0 {
		c.Section = text[m[6]:m[7]]
	}
	if m[8] >= 0 {
		// The pattern only admits digits; ignore the impossible error.
		c.Page, _ = strconv.Atoi(text[m[8]:m[9]])
	}
	return c
}
