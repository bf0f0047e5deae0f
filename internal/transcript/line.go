// Package transcript holds the transcript line model and the pure parts
// of the pipeline: parsing raw model output, extracting trailing context
// for the next window, and merging per-window results into one timeline.
package transcript

import (
	"fmt"
	"time"

	"github.com/rivol/llm-transcribe/internal/chunk"
)

// Line is a single utterance as produced for one window. Timestamp is
// relative to the owning window's start. Speaker is passed through
// verbatim: a name, a role word, or "Speaker N".
type Line struct {
	Timestamp time.Duration
	Speaker   string
	Text      string
}

// String renders the line in the wire format [HH:MM:SS] speaker: text.
func (l Line) String() string {
	return fmt.Sprintf("%s %s: %s", FormatTimestamp(l.Timestamp), l.Speaker, l.Text)
}

// WindowResult is the parsed output of one transcribed window.
type WindowResult struct {
	Window chunk.Window
	Lines  []Line
}

// MergedLine is one utterance on the final timeline. Timestamp is
// absolute within the whole recording.
type MergedLine struct {
	Timestamp time.Duration
	Speaker   string
	Text      string
}

func (l MergedLine) String() string {
	return fmt.Sprintf("%s %s: %s", FormatTimestamp(l.Timestamp), l.Speaker, l.Text)
}
