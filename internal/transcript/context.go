package transcript

import (
	"strings"
	"time"
)

// DefaultContextWindow is how much of a window's tail is handed to the
// next window as context. It matches the default planner overlap so the
// context and the shared audio describe the same region.
const DefaultContextWindow = time.Minute

// ExtractContext renders the trailing lines of prev as the context
// preamble for the next window. Lines whose timestamps fall within the
// final contextWindow of prev's span are returned in their original
// order, in the same wire format the model is asked to produce, with
// speaker labels preserved verbatim. Returns "" when prev is nil or no
// lines fall in the trailing region.
func ExtractContext(prev *WindowResult, contextWindow time.Duration) string {
	if prev == nil || len(prev.Lines) == 0 {
		return ""
	}

	cutoff := prev.Window.Span() - contextWindow
	if cutoff < 0 {
		cutoff = 0
	}

	var rendered []string
	for _, line := range prev.Lines {
		if line.Timestamp >= cutoff {
			rendered = append(rendered, line.String())
		}
	}
	return strings.Join(rendered, "\n")
}
