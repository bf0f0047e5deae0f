// Package chunk plans the overlapping time windows a recording is
// transcribed in. Windows overlap so that each one carries enough shared
// audio with its predecessor to keep speaker labels and conversation flow
// consistent across the whole recording.
package chunk

import (
	"errors"
	"fmt"
	"time"
)

// MaxWindowLength is the hard cap on a single window's span, derived from
// the backend model's audio input limit.
const MaxWindowLength = 11 * time.Minute

const (
	DefaultWindowLength = 10 * time.Minute
	DefaultOverlap      = time.Minute
)

var (
	// ErrInvalidDuration indicates a non-positive recording duration.
	ErrInvalidDuration = errors.New("recording duration must be positive")
	// ErrInvalidConfig indicates an unusable window/overlap combination.
	ErrInvalidConfig = errors.New("invalid window configuration")
)

// Window is one planned span of the recording. Start/End are absolute
// offsets from the beginning of the recording.
type Window struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// Span returns the window's length.
func (w Window) Span() time.Duration {
	return w.End - w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("window %d [%v - %v]", w.Index, w.Start, w.End)
}

// PlanOptions configure window length and overlap.
type PlanOptions struct {
	WindowLength time.Duration
	Overlap      time.Duration
}

// DefaultPlanOptions returns the standard 10 minute windows with 1 minute
// of overlap.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{
		WindowLength: DefaultWindowLength,
		Overlap:      DefaultOverlap,
	}
}

// Plan computes the ordered window sequence covering [0, total). The last
// window is clamped to total and no window starts at or past the end of
// the recording. Plan is pure and deterministic.
func Plan(total time.Duration, opts PlanOptions) ([]Window, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidDuration, total)
	}
	if opts.WindowLength <= 0 {
		return nil, fmt.Errorf("%w: window length %v must be positive", ErrInvalidConfig, opts.WindowLength)
	}
	if opts.WindowLength > MaxWindowLength {
		return nil, fmt.Errorf("%w: window length %v exceeds model limit %v", ErrInvalidConfig, opts.WindowLength, MaxWindowLength)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.WindowLength {
		return nil, fmt.Errorf("%w: overlap %v must be shorter than window length %v", ErrInvalidConfig, opts.Overlap, opts.WindowLength)
	}

	stride := opts.WindowLength - opts.Overlap

	var windows []Window
	for t := time.Duration(0); t < total; t += stride {
		end := t + opts.WindowLength
		if end > total {
			end = total
		}
		windows = append(windows, Window{
			Index: len(windows),
			Start: t,
			End:   end,
		})
		if end >= total {
			break
		}
	}
	return windows, nil
}
