package chunker

import (
	"regexp"

	"github.com/shoptalk/shoptalk/internal/extract"
)

var (
	articleRe = regexp.MustCompile(`(?i)\barticle\s+(\d+)`)
	sectionRe = regexp.MustCompile(`(?i)\bsection\s+(\d+(?:\.\d+)?(?:\([a-zA-Z]\))?)`)
)

// DetectSectionHeaders scans page text for "Article N" and "Section N"
// boundaries, returning them in detection order: page order, articles
// before sections within a page, left to right within each pass.
//
// The running current-article value persists across pages. Each page is
// scanned in two independent passes — all article matches first, then all
// section matches — so every section on a page is attributed to the last
// article seen by the article pass, even when the section precedes that
// article in the page's reading order. Known attribution quirk at article
// boundaries; stored chunk metadata depends on it, do not collapse the
// passes into a single combined scan.
func DetectSectionHeaders(pages []extract.Page) []SectionHeader {
	var headers []SectionHeader
	currentArticle := ""

	for _, page := range pages {
		for _, m := range articleRe.FindAllStringSubmatchIndex(page.Text, -1) {
			article := page.Text[m[2]:m[3]]
			headers = append(headers, SectionHeader{
				Article:    article,
				HeaderText: page.Text[m[0]:m[1]],
				PageNumber: page.PageNumber,
				Offset:     m[0],
			})
			currentArticle = article
		}

		for _, m := range sectionRe.FindAllStringSubmatchIndex(page.Text, -1) {
			headers = append(headers, SectionHeader{
				Article:    currentArticle,
				Section:    page.Text[m[2]:m[3]],
				HeaderText: page.Text[m[0]:m[1]],
				PageNumber: page.PageNumber,
				Offset:     m[0],
			})
		}
	}

	return headers
}
