package answer

import (
	"strings"
	"testing"

	"github.com/shoptalk/shoptalk/internal/gateway"
	"github.com/shoptalk/shoptalk/internal/retrieval"
)

func TestCompose_Structure(t *testing.T) {
	c := NewComposer(0)
	chunks := []retrieval.ContractChunk{
		{ID: "master-chunk-0001", DocumentID: "master", Article: "40", Section: "2", PageStart: 118, Text: "Overtime is paid at time and a half.", Score: 0.9},
	}
	history := []gateway.ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}

	msgs := c.Compose("What is the overtime rate?", 705, chunks, history)

	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Errorf("msgs[0].Role = %q, want system", msgs[0].Role)
	}
	if msgs[1].Content != "earlier question" || msgs[2].Content != "earlier answer" {
		t.Errorf("history not preserved in order")
	}
	if msgs[3].Role != "user" || msgs[3].Content != "What is the overtime rate?" {
		t.Errorf("last message = %+v, want the question", msgs[3])
	}

	sys := msgs[0].Content
	if !strings.Contains(sys, "[Doc: master, Art: 40, Sec: 2, Page: 118]") {
		t.Errorf("system prompt missing the excerpt's citation marker:\n%s", sys)
	}
	if !strings.Contains(sys, "Overtime is paid at time and a half.") {
		t.Errorf("system prompt missing the excerpt text")
	}
	if !strings.Contains(sys, "Local 705") {
		t.Errorf("system prompt missing the member's Local")
	}
}

func TestCompose_NoChunksNoLocal(t *testing.T) {
	c := NewComposer(0)
	msgs := c.Compose("general question", 0, nil, nil)

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if strings.Contains(msgs[0].Content, "[Contract Excerpts]") {
		t.Error("excerpt section present with no chunks")
	}
	if strings.Contains(msgs[0].Content, "Local ") && strings.Contains(msgs[0].Content, "belongs to") {
		t.Error("local mention present with local 0")
	}
}

// TestCompose_TokenBudget verifies low-scoring chunks are dropped once the
// budget is exhausted, while smaller later chunks may still fit.
func TestCompose_TokenBudget(t *testing.T) {
	// Budget of ~50 tokens: the big chunk (well over budget) is skipped,
	// both small ones fit.
	c := NewComposer(50)
	big := strings.Repeat("contract language ", 100) // ~1800 chars, ~450 tokens
	chunks := []retrieval.ContractChunk{
		{ID: "a", DocumentID: "master", Text: "short clause one", Score: 0.9},
		{ID: "b", DocumentID: "master", Text: big, Score: 0.8},
		{ID: "c", DocumentID: "master", Text: "short clause two", Score: 0.7},
	}

	msgs := c.Compose("q", 0, chunks, nil)
	sys := msgs[0].Content

	if !strings.Contains(sys, "short clause one") {
		t.Error("highest-scoring small chunk missing")
	}
	if strings.Contains(sys, big) {
		t.Error("over-budget chunk was included")
	}
	if !strings.Contains(sys, "short clause two") {
		t.Error("small chunk after the oversized one should still fit")
	}
}

// TestCompose_ScoreOrder verifies excerpts appear highest score first.
func TestCompose_ScoreOrder(t *testing.T) {
	c := NewComposer(0)
	chunks := []retrieval.ContractChunk{
		{ID: "low", DocumentID: "master", Text: "LOWSCORE", Score: 0.2},
		{ID: "high", DocumentID: "master", Text: "HIGHSCORE", Score: 0.9},
	}

	msgs := c.Compose("q", 0, chunks, nil)
	sys := msgs[0].Content

	hi := strings.Index(sys, "HIGHSCORE")
	lo := strings.Index(sys, "LOWSCORE")
	if hi == -1 || lo == -1 {
		t.Fatal("both chunks should be present")
	}
	if hi > lo {
		t.Error("chunks not ordered by score descending")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range tests {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tc.text), got, tc.want)
		}
	}
}
