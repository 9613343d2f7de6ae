package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FromPDF extracts per-page plain text from the PDF at path.
//
// Pages that fail text extraction are kept as empty pages rather than
// dropped, so page numbers stay aligned with the printed document — the
// chunker's page-offset math and the citation page numbers depend on that.
func FromPDF(path, documentID, title string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf %s has no pages", path)
	}

	doc := &Document{
		DocumentID: documentID,
		Title:      title,
		PageCount:  total,
		Pages:      make([]Page, 0, total),
	}

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		text := ""
		if !page.V.IsNull() {
			extracted, err := page.GetPlainText(fonts)
			if err == nil {
				text = normalizeExtracted(extracted)
			}
		}
		doc.Pages = append(doc.Pages, Page{PageNumber: i, Text: text})
	}

	if empty(doc) {
		return nil, fmt.Errorf("pdf %s yielded no extractable text", path)
	}
	return doc, nil
}

// normalizeExtracted collapses the run-together whitespace PDF text
// extraction tends to produce while preserving sentence boundaries.
func normalizeExtracted(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func empty(doc *Document) bool {
	for _, p := range doc.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}
