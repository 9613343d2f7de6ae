package engine

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady checks that the inference backend is running and that the
// models the service depends on are available, pulling any that are missing
// with progress written to w. Returns an error if the backend is
// unreachable or a pull fails.
func EnsureReady(ctx context.Context, eng Engine, models []string, w io.Writer) error {
	if !eng.IsRunning(ctx) {
		return fmt.Errorf("inference backend is not running; start it with: ollama serve")
	}

	for _, model := range models {
		if model == "" {
			continue
		}
		if eng.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: ready\n", model)
			continue
		}

		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := eng.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	return nil
}
