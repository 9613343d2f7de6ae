package localdetect

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/shoptalk/shoptalk/internal/contracts"
	"github.com/shoptalk/shoptalk/internal/engine"
)

const detectionTimeout = 3 * time.Second

// localRe matches explicit mentions like "Local 705", "local #89".
var localRe = regexp.MustCompile(`(?i)\blocal\s+#?(\d+)\b`)

// Detector extracts the union Local number a question is asked about. A
// regex fast path handles explicit mentions; when the caller enables it, a
// fast local model covers phrasings the regex misses ("I drive out of the
// Louisville air hub"). Detection never blocks the answer pipeline: any
// failure yields 0, which callers treat as "unknown Local".
type Detector struct {
	engine engine.Engine
	model  string
}

// NewDetector creates a Detector. A nil engine (or empty model) disables the
// model fallback, leaving only the regex fast path.
func NewDetector(eng engine.Engine, model string) *Detector {
	return &Detector{engine: eng, model: model}
}

// Detect returns the Local number mentioned in the question, or 0 when none
// can be determined. Numbers that match the regex but are not registered
// Locals still win over the model fallback — the member knows their own
// Local better than the model does.
func (d *Detector) Detect(ctx context.Context, question string) int {
	if question == "" {
		return 0
	}

	if m := localRe.FindStringSubmatch(question); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n
		}
	}

	if d.engine == nil || d.model == "" {
		return 0
	}
	return d.detectWithModel(ctx, question)
}

func (d *Detector) detectWithModel(ctx context.Context, question string) int {
	ctx, cancel := context.WithTimeout(ctx, detectionTimeout)
	defer cancel()

	prompt := "Identify which Teamsters union Local number the following question is about, if any.\n" +
		"Question: " + question + "\n" +
		`Respond with only a JSON object: {"local_number": <int>} using 0 when no Local can be determined.`

	schema := &engine.Schema{
		Type: "object",
		Properties: map[string]engine.SchemaProperty{
			"local_number": {Type: "integer", Description: "Teamsters Local number, 0 if unknown"},
		},
		Required: []string{"local_number"},
	}

	raw, err := d.engine.Chat(ctx, d.model, []engine.Message{
		{Role: "user", Content: prompt},
	}, schema)
	if err != nil {
		slog.Warn("local detection chat failed", "error", err)
		return 0
	}

	var result struct {
		LocalNumber int `json:"local_number"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("failed to unmarshal local number from model response", "error", err, "response", raw)
		return 0
	}
	if result.LocalNumber < 0 {
		return 0
	}

	// The model can hallucinate plausible-looking numbers; only trust ones
	// in the registry. Regex matches skip this check because the member
	// typed the number themselves.
	if _, ok := contracts.LookupLocal(result.LocalNumber); !ok {
		return 0
	}
	return result.LocalNumber
}
