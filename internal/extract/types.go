// Package extract turns contract source files (PDF, HTML, plain text) into
// per-page plain text ready for chunking.
package extract

// Page is the extracted text of a single page. PageNumber is 1-indexed.
type Page struct {
	PageNumber int
	Text       string
}

// Document is the result of text extraction for one contract document.
// Pages are in reading order with strictly increasing page numbers
// starting at 1, and len(Pages) == PageCount.
type Document struct {
	DocumentID string
	Title      string
	PageCount  int
	Pages      []Page
}

// FromText wraps already-plain text as a single-page Document. Used for
// inline ingestion and tests.
func FromText(documentID, title, text string) *Document {
	return &Document{
		DocumentID: documentID,
		Title:      title,
		PageCount:  1,
		Pages:      []Page{{PageNumber: 1, Text: text}},
	}
}
