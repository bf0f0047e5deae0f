// Package output renders the merged transcript in the supported export
// formats: plain text in the wire grammar with absolute timestamps,
// WebVTT, JSON, and a human-readable summary report.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rivol/llm-transcribe/internal/transcript"
)

// Formats supported by Export.
const (
	FormatText   = "txt"
	FormatWebVTT = "vtt"
	FormatJSON   = "json"
	FormatReport = "report"
)

// Summary describes a completed run for the JSON export and the report.
type Summary struct {
	JobID          string
	InputFile      string
	OutputFile     string
	Model          string
	AudioDuration  time.Duration
	Windows        int
	Attempts       int
	ProcessingTime time.Duration
}

// Text writes lines in the wire grammar with absolute timestamps, one
// utterance per line.
func Text(w io.Writer, lines []transcript.MergedLine) error {
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}
	return nil
}

// vttTS converts d into the 00:00:00.000 WebVTT timestamp form.
func vttTS(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// WebVTT writes lines as WebVTT cues. A cue ends where the next one
// starts; the final cue ends at total, the recording's duration.
func WebVTT(w io.Writer, lines []transcript.MergedLine, total time.Duration) error {
	if _, err := fmt.Fprintf(w, "WEBVTT\n"); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	for i, line := range lines {
		end := total
		if i+1 < len(lines) {
			end = lines[i+1].Timestamp
		}
		if end <= line.Timestamp {
			end = line.Timestamp + time.Second
		}
		if _, err := fmt.Fprintf(w, "\n%s --> %s\n", vttTS(line.Timestamp), vttTS(end)); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		if _, err := fmt.Fprintf(w, "<v %s>%s\n", line.Speaker, line.Text); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}
	return nil
}

type jsonLine struct {
	Timestamp string  `json:"timestamp"`
	Seconds   float64 `json:"seconds"`
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
}

type jsonDoc struct {
	JobID           string     `json:"job_id"`
	InputFile       string     `json:"input_file"`
	Model           string     `json:"model"`
	DurationSeconds float64    `json:"duration_seconds"`
	Windows         int        `json:"windows"`
	Lines           []jsonLine `json:"lines"`
}

// JSON writes the transcript plus run metadata as an indented document.
func JSON(w io.Writer, sum Summary, lines []transcript.MergedLine) error {
	doc := jsonDoc{
		JobID:           sum.JobID,
		InputFile:       sum.InputFile,
		Model:           sum.Model,
		DurationSeconds: sum.AudioDuration.Seconds(),
		Windows:         sum.Windows,
		Lines:           make([]jsonLine, 0, len(lines)),
	}
	for _, line := range lines {
		doc.Lines = append(doc.Lines, jsonLine{
			Timestamp: transcript.FormatTimestamp(line.Timestamp),
			Seconds:   line.Timestamp.Seconds(),
			Speaker:   line.Speaker,
			Text:      line.Text,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

// Report writes a human-readable summary of the run.
func Report(w io.Writer, sum Summary, lines []transcript.MergedLine) error {
	speakers := map[string]int{}
	for _, line := range lines {
		speakers[line.Speaker]++
	}

	rtf := math.NaN()
	if sum.AudioDuration > 0 {
		rtf = sum.ProcessingTime.Seconds() / sum.AudioDuration.Seconds()
	}

	_, err := fmt.Fprintf(w, `Transcription Summary
=====================

Job:             %s
Input:           %s
Output:          %s
Model:           %s

Audio duration:  %s
Windows:         %d
Backend calls:   %d
Lines:           %d
Speakers:        %d
Processing time: %s
Realtime factor: %.2f
`,
		sum.JobID,
		sum.InputFile,
		sum.OutputFile,
		sum.Model,
		sum.AudioDuration.Round(time.Second),
		sum.Windows,
		sum.Attempts,
		len(lines),
		len(speakers),
		sum.ProcessingTime.Round(time.Millisecond),
		rtf,
	)
	if err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

// Export writes the transcript to outputPath in each requested format.
// The txt format uses outputPath itself; the others swap its extension.
// The final text file is written once, fully, at the end of the run.
func Export(formats []string, outputPath string, sum Summary, lines []transcript.MergedLine) error {
	for _, format := range formats {
		format = strings.TrimSpace(strings.ToLower(format))
		path := outputPath
		render := func(w io.Writer) error { return Text(w, lines) }

		switch format {
		case FormatText:
		case FormatWebVTT:
			path = withExt(outputPath, ".vtt")
			render = func(w io.Writer) error { return WebVTT(w, lines, sum.AudioDuration) }
		case FormatJSON:
			path = withExt(outputPath, ".json")
			render = func(w io.Writer) error { return JSON(w, sum, lines) }
		case FormatReport:
			path = withExt(outputPath, ".report.txt")
			render = func(w io.Writer) error { return Report(w, sum, lines) }
		default:
			return fmt.Errorf("unknown export format %q", format)
		}

		if err := writeFile(path, render); err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
	}
	return nil
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func writeFile(path string, render func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
