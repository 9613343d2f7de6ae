package citation

import (
	"fmt"
	"strings"
)

// Footnote is a numbered, deduplicated source reference.
type Footnote struct {
	Number   int
	Citation Citation
}

// sourceKey identifies "the same source": two citations collapse into one
// footnote when document, article, section, and page all match.
func sourceKey(c Citation) string {
	return fmt.Sprintf("%s|%s|%s|%d", c.DocumentID, c.Article, c.Section, c.Page)
}

// Number assigns footnote numbers to citations in reading order. The first
// occurrence of a distinct source gets the next number; repeats reuse the
// original. The returned slice is parallel to citations.
func Number(citations []Citation) ([]int, []Footnote) {
	numbers := make([]int, len(citations))
	seen := make(map[string]int)
	var footnotes []Footnote

	for i, c := range citations {
		key := sourceKey(c)
		if n, ok := seen[key]; ok {
			numbers[i] = n
			continue
		}
		n := len(footnotes) + 1
		seen[key] = n
		numbers[i] = n
		footnotes = append(footnotes, Footnote{Number: n, Citation: c})
	}
	return numbers, footnotes
}

// TransformToFootnotes replaces every citation marker in text with a
// markdown footnote reference and appends the deduplicated footnote list,
// rendered in full style. Text without markers is returned unchanged.
func TransformToFootnotes(text string) string {
	parsed := Parse(text)
	if len(parsed.Citations) == 0 {
		return text
	}

	numbers, footnotes := Number(parsed.Citations)

	var sb strings.Builder
	ci := 0
	for _, seg := range parsed.Segments {
		if seg.Citation == nil {
			sb.WriteString(seg.Text)
			continue
		}
		sb.WriteString(fmt.Sprintf("[^%d]", numbers[ci]))
		ci++
	}

	sb.WriteString("\n\n")
	for _, fn := range footnotes {
		sb.WriteString(fmt.Sprintf("[^%d]: %s\n", fn.Number, Format(fn.Citation, StyleFull)))
	}
	return sb.String()
}
