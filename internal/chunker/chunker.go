package chunker

import (
	"fmt"
	"math"
	"strings"

	"github.com/shoptalk/shoptalk/internal/extract"
)

// pageSeparator joins page texts into one full-text string. Two characters;
// the page-offset math assumes its length.
const pageSeparator = "\n\n"

// ChunkDocument splits an extracted document into overlapping chunks. Sentences
// accumulate greedily; a chunk closes when adding the next sentence would
// push the token estimate past cfg.MaxTokens and the chunk already holds at
// least one sentence. A single sentence larger than MaxTokens is emitted
// oversized rather than split mid-sentence.
//
// The input is assumed well-formed (contiguous 1-indexed pages); the
// extract package validates at the boundary.
func ChunkDocument(doc *extract.Document, cfg Config) *ChunkedDocument {
	headers := DetectSectionHeaders(doc.Pages)

	pageOffsets := buildPageOffsets(doc.Pages)
	fullText := joinPages(doc.Pages)
	sentences := splitSentences(fullText)

	out := &ChunkedDocument{
		DocumentID: doc.DocumentID,
		Title:      doc.Title,
		Headers:    headers,
	}

	var cur []string
	curTokens := 0
	chunkStart := 0

	for _, sentence := range sentences {
		tokens := estimateTokens(sentence)

		if curTokens+tokens > cfg.MaxTokens && len(cur) > 0 {
			content := strings.Join(cur, " ")
			end := chunkStart + len(content)
			out.Chunks = append(out.Chunks, buildChunk(doc, cfg, content, curTokens, chunkStart, end, pageOffsets, headers, len(out.Chunks)))

			overlap, overlapTokens := trailingOverlap(cur, cfg.OverlapTokens)
			// New start is approximated from the closed chunk's end; see the
			// overlap note in DESIGN.md.
			chunkStart = end - len(strings.Join(overlap, " "))
			cur = overlap
			curTokens = overlapTokens
		}

		cur = append(cur, sentence)
		curTokens += tokens
	}

	if len(cur) > 0 {
		content := strings.Join(cur, " ")
		out.Chunks = append(out.Chunks, buildChunk(doc, cfg, content, curTokens, chunkStart, len(fullText), pageOffsets, headers, len(out.Chunks)))
	}

	return out
}

func buildChunk(doc *extract.Document, cfg Config, content string, tokens, start, end int, pageOffsets []int, headers []SectionHeader, index int) Chunk {
	article, section := headerContext(headers, pageOffsets, doc.Pages, start)
	return Chunk{
		ID:      fmt.Sprintf("%s-chunk-%04d", doc.DocumentID, index),
		Content: content,
		Metadata: Metadata{
			DocumentID: doc.DocumentID,
			Article:    article,
			Section:    section,
			PageStart:  pageForOffset(doc.Pages, pageOffsets, start),
			PageEnd:    pageForOffset(doc.Pages, pageOffsets, end),
			TokenCount: tokens,
			ChunkIndex: index,
		},
	}
}

// buildPageOffsets returns the absolute character offset of each page's
// text within the joined full-text string. Each page contributes its length
// plus the separator.
func buildPageOffsets(pages []extract.Page) []int {
	offsets := make([]int, len(pages))
	running := 0
	for i, p := range pages {
		offsets[i] = running
		running += len(p.Text) + len(pageSeparator)
	}
	return offsets
}

func joinPages(pages []extract.Page) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, pageSeparator)
}

// pageForOffset returns the 1-indexed page whose window contains the given
// absolute offset, defaulting to the last page when the offset runs past
// every window.
func pageForOffset(pages []extract.Page, pageOffsets []int, offset int) int {
	for i, p := range pages {
		if offset < pageOffsets[i]+len(p.Text)+len(pageSeparator) {
			return p.PageNumber
		}
	}
	if len(pages) == 0 {
		return 0
	}
	return pages[len(pages)-1].PageNumber
}

// headerContext resolves the article/section in effect at the given chunk
// start offset: the last header at or before it wins. An article header
// with no section resets the tracked section, so a fresh article never
// inherits the previous article's section number.
func headerContext(headers []SectionHeader, pageOffsets []int, pages []extract.Page, start int) (article, section string) {
	pageIndex := make(map[int]int, len(pages))
	for i, p := range pages {
		pageIndex[p.PageNumber] = i
	}

	for _, h := range headers {
		i, ok := pageIndex[h.PageNumber]
		if !ok {
			continue
		}
		abs := pageOffsets[i] + h.Offset
		if abs > start {
			continue
		}
		if h.Section != "" {
			section = h.Section
			if h.Article != "" {
				article = h.Article
			}
		} else if h.Article != "" {
			article = h.Article
			section = ""
		}
	}
	return article, section
}

// trailingOverlap walks backward through the closed chunk's sentences,
// accumulating trailing sentences (kept in original order) until adding one
// more would exceed the overlap budget.
func trailingOverlap(sentences []string, overlapTokens int) ([]string, int) {
	var overlap []string
	total := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		tokens := estimateTokens(sentences[i])
		if total+tokens > overlapTokens {
			break
		}
		overlap = append([]string{sentences[i]}, overlap...)
		total += tokens
	}
	return overlap, total
}

// splitSentences breaks text at `.`, `!`, or `?` followed by whitespace.
// Terminal punctuation stays with its sentence; the whitespace run between
// sentences is consumed. Empty fragments are dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && i+1 < len(text) && isSpace(text[i+1]) {
			if frag := text[start : i+1]; strings.TrimSpace(frag) != "" {
				sentences = append(sentences, frag)
			}
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(text) {
		if frag := text[start:]; strings.TrimSpace(frag) != "" {
			sentences = append(sentences, frag)
		}
	}
	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// estimateTokens approximates the token count of English text as
// ceil(words * 1.3). Not a real tokenizer; every consumer of chunk token
// counts must use the same estimate.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.3))
}
