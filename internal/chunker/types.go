// Package chunker splits extracted contract text into overlapping,
// page-accurate chunks sized for embedding, tracking the article and
// section each chunk falls under.
package chunker

// Config controls chunk sizing. Pass it explicitly; there is no ambient
// default state.
//
// TargetTokens and PreserveArticleBoundaries are carried for compatibility
// with stored ingestion configs but do not influence chunk boundaries:
// chunks close only when MaxTokens would be exceeded.
type Config struct {
	TargetTokens              int
	MaxTokens                 int
	OverlapTokens             int
	PreserveArticleBoundaries bool
}

// DefaultConfig returns the sizing used for contract ingestion.
func DefaultConfig() Config {
	return Config{
		TargetTokens:              400,
		MaxTokens:                 512,
		OverlapTokens:             50,
		PreserveArticleBoundaries: true,
	}
}

// SectionHeader is a detected article/section boundary within a page.
// Offset is the character offset of the match within that page's text.
type SectionHeader struct {
	Article    string // empty when the header is a bare section with no known article
	Section    string // empty for article headers
	HeaderText string
	PageNumber int
	Offset     int
}

// Metadata describes where a chunk came from. Article and Section are
// empty strings when no header context applies.
type Metadata struct {
	DocumentID string `json:"document_id"`
	Article    string `json:"article,omitempty"`
	Section    string `json:"section,omitempty"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	TokenCount int    `json:"token_count"`
	ChunkIndex int    `json:"chunk_index"`
}

// Chunk is one unit of retrievable text.
type Chunk struct {
	ID       string
	Content  string
	Metadata Metadata
}

// ChunkedDocument is the full chunking result for one document.
type ChunkedDocument struct {
	DocumentID string
	Title      string
	Headers    []SectionHeader
	Chunks     []Chunk
}
