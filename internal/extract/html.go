package extract

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// FromHTML extracts plain text from an HTML contract page (some riders and
// MOUs are published as web pages rather than PDFs). The result is a
// single-page Document; web pages have no printed pagination to preserve.
func FromHTML(r io.Reader, documentID, title string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var sb strings.Builder
	collectText(root, &sb)

	text := strings.Join(strings.Fields(sb.String()), " ")
	if text == "" {
		return nil, fmt.Errorf("html document %s yielded no text", documentID)
	}

	if title == "" {
		title = findTitle(root)
	}
	return FromText(documentID, title, text), nil
}

// collectText walks the DOM appending text nodes, skipping non-content
// subtrees.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "head", "nav", "footer":
			return
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
