package answer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shoptalk/shoptalk/internal/citation"
	"github.com/shoptalk/shoptalk/internal/contracts"
	"github.com/shoptalk/shoptalk/internal/gateway"
	"github.com/shoptalk/shoptalk/internal/retrieval"
)

const defaultMaxContextTokens = 4000

const systemPromptTemplate = `You are a union steward's assistant answering questions from UPS Teamsters about their contracts. Answer using ONLY the contract excerpts provided below. If the excerpts do not cover the question, say so plainly — never guess at contract language.

Citation rules:
- Every claim about contract terms must carry a citation marker copied from the excerpt it came from, in the exact form [Doc: <id>, Art: <n>, Sec: <n>, Page: <n>] (Art, Sec, and Page appear only when known).
- Place the marker immediately after the sentence it supports.
- When a supplement or rider conflicts with the master agreement, the supplement or rider controls for that member; note the conflict and cite both.`

// Composer assembles the cloud chat request from a member's question and the
// retrieved contract chunks. Chunks are injected highest-score first under a
// token budget.
type Composer struct {
	MaxContextTokens int
}

// NewComposer creates a Composer with the given token budget for injected
// contract excerpts. If maxContextTokens <= 0, the default (4000) is used.
func NewComposer(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{MaxContextTokens: maxContextTokens}
}

// Compose builds the chat messages: a system message carrying the citation
// contract and the selected excerpts, then the member's question. History
// holds earlier turns of the conversation, oldest first.
func (c *Composer) Compose(question string, localNumber int, chunks []retrieval.ContractChunk, history []gateway.ChatMessage) []gateway.ChatMessage {
	var sb strings.Builder
	sb.WriteString(systemPromptTemplate)

	if localNumber > 0 {
		fmt.Fprintf(&sb, "\n\nThe member asking belongs to Teamsters Local %d.", localNumber)
		if local, ok := contracts.LookupLocal(localNumber); ok {
			fmt.Fprintf(&sb, " (%s, %s — %s region)", local.City, local.State, local.Region)
		}
	}

	selected := c.selectChunks(chunks)
	if len(selected) > 0 {
		sb.WriteString("\n\n[Contract Excerpts]\n")
		for _, entry := range selected {
			sb.WriteString(entry)
		}
	}

	messages := make([]gateway.ChatMessage, 0, len(history)+2)
	messages = append(messages, gateway.ChatMessage{Role: "system", Content: sb.String()})
	messages = append(messages, history...)
	messages = append(messages, gateway.ChatMessage{Role: "user", Content: question})
	return messages
}

// selectChunks formats chunks highest-score first, dropping any that would
// exceed the token budget.
func (c *Composer) selectChunks(chunks []retrieval.ContractChunk) []string {
	if len(chunks) == 0 {
		return nil
	}

	sorted := make([]retrieval.ContractChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	remaining := c.MaxContextTokens
	var selected []string
	for _, ch := range sorted {
		entry := formatChunk(ch)
		tokens := EstimateTokens(entry)
		if tokens > remaining {
			continue
		}
		selected = append(selected, entry)
		remaining -= tokens
	}
	return selected
}

// formatChunk labels an excerpt with its citation marker so the model can
// copy it verbatim into the answer.
func formatChunk(ch retrieval.ContractChunk) string {
	marker := citation.Marker(citation.Citation{
		DocumentID: ch.DocumentID,
		Article:    ch.Article,
		Section:    ch.Section,
		Page:       ch.PageStart,
	})
	return fmt.Sprintf("%s\n%s\n\n", marker, ch.Text)
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
