// Package engine drives the transcription pipeline: it plans the
// overlapping windows, transcribes them strictly in order (each window's
// prompt needs the previous window's output as context), retries
// transient backend failures with backoff, and merges the per-window
// results into the final timeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rivol/llm-transcribe/internal/chunk"
	"github.com/rivol/llm-transcribe/internal/llm"
	"github.com/rivol/llm-transcribe/internal/transcript"
)

// Backend is the opaque transcription capability.
type Backend interface {
	Transcribe(ctx context.Context, audioWAV []byte, contextText, hint string) (string, error)
}

// AudioSource yields the recording's duration and each planned window's
// audio bytes.
type AudioSource interface {
	Duration() time.Duration
	Window(start, end time.Duration) ([]byte, error)
}

// WindowError decorates a per-window failure with the window's index and
// absolute time span, so a user can resume or inspect that portion of
// the recording.
type WindowError struct {
	Index int
	Start time.Duration
	End   time.Duration
	Err   error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("window %d (%s - %s): %v",
		e.Index,
		transcript.FormatTimestamp(e.Start),
		transcript.FormatTimestamp(e.End),
		e.Err)
}

func (e *WindowError) Unwrap() error {
	return e.Err
}

// Options configure the pipeline. Overlap and ContextWindow treat zero
// as a real value (disjoint windows, no context); a negative value
// selects the default.
type Options struct {
	WindowLength   time.Duration
	Overlap        time.Duration
	ContextWindow  time.Duration // trailing span handed to the next window
	Hint           string        // free-text background about the recording
	Strict         bool          // fail a window on any malformed output line
	MaxAttempts    int           // per-window attempt budget
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.WindowLength == 0 {
		o.WindowLength = chunk.DefaultWindowLength
	}
	if o.Overlap < 0 {
		o.Overlap = chunk.DefaultOverlap
	}
	if o.ContextWindow < 0 {
		o.ContextWindow = transcript.DefaultContextWindow
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff == 0 {
		o.InitialBackoff = 2 * time.Second
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = llm.DefaultRequestTimeout
	}
}

// Stats summarize a run.
type Stats struct {
	JobID         string
	Windows       int
	WindowsDone   int
	Lines         int
	Attempts      int
	AudioDuration time.Duration
	Elapsed       time.Duration
}

// Result is the outcome of a run. On failure Results holds every window
// completed before the error and Lines their partial merge, so a run can
// be inspected or resumed.
type Result struct {
	Lines   []transcript.MergedLine
	Results []transcript.WindowResult
	Stats   Stats
}

// Engine owns one pipeline configuration and can run many recordings.
type Engine struct {
	backend Backend
	parser  *transcript.Parser
	opts    Options
	logger  *logrus.Logger
}

// New returns an Engine using backend with opts. Unset option fields
// get defaults; zero Overlap and ContextWindow are honored as written.
func New(backend Backend, opts Options, logger *logrus.Logger) *Engine {
	opts.setDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		backend: backend,
		parser:  transcript.NewParser(opts.Strict, logger),
		opts:    opts,
		logger:  logger,
	}
}

// Run transcribes src end to end. Windows are processed strictly
// sequentially because each prompt carries the previous window's tail.
// On any error the returned Result still carries the windows completed
// so far and their partial merge; a partially transcribed window is
// never included.
func (e *Engine) Run(ctx context.Context, src AudioSource) (*Result, error) {
	started := time.Now()
	jobID := uuid.NewString()
	logger := e.logger.WithField("job", jobID)

	windows, err := chunk.Plan(src.Duration(), chunk.PlanOptions{
		WindowLength: e.opts.WindowLength,
		Overlap:      e.opts.Overlap,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Stats: Stats{
			JobID:         jobID,
			Windows:       len(windows),
			AudioDuration: src.Duration(),
		},
	}
	logger.WithFields(logrus.Fields{
		"windows":  len(windows),
		"duration": src.Duration(),
	}).Info("starting transcription")

	var prev *transcript.WindowResult
	for _, w := range windows {
		contextText := transcript.ExtractContext(prev, e.opts.ContextWindow)

		audioWAV, err := src.Window(w.Start, w.End)
		if err != nil {
			return e.finish(res, started), &WindowError{Index: w.Index, Start: w.Start, End: w.End, Err: err}
		}

		wr, attempts, err := e.transcribeWindow(ctx, logger, w, audioWAV, contextText)
		res.Stats.Attempts += attempts
		if err != nil {
			return e.finish(res, started), &WindowError{Index: w.Index, Start: w.Start, End: w.End, Err: err}
		}

		res.Results = append(res.Results, wr)
		res.Stats.WindowsDone++
		prev = &res.Results[len(res.Results)-1]

		logger.WithFields(logrus.Fields{
			"window": w.Index,
			"span":   fmt.Sprintf("%s - %s", transcript.FormatTimestamp(w.Start), transcript.FormatTimestamp(w.End)),
			"lines":  len(wr.Lines),
		}).Infof("window %d/%d done", w.Index+1, len(windows))
	}

	logger.WithField("elapsed", time.Since(started)).Info("transcription complete")
	return e.finish(res, started), nil
}

// finish merges whatever windows completed and fills the run stats.
func (e *Engine) finish(res *Result, started time.Time) *Result {
	merged, err := transcript.Merge(res.Results)
	if err != nil {
		// Results are appended in plan order; this cannot happen.
		e.logger.WithError(err).Error("merging completed windows")
	}
	res.Lines = merged
	res.Stats.Lines = len(merged)
	res.Stats.Elapsed = time.Since(started)
	return res
}

// transcribeWindow performs one window's backend call and parse, retrying
// transient backend failures up to the configured attempt budget.
func (e *Engine) transcribeWindow(ctx context.Context, logger *logrus.Entry, w chunk.Window, audioWAV []byte, contextText string) (transcript.WindowResult, int, error) {
	var lastErr error
	for attempt := 0; attempt < e.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return transcript.WindowResult{}, attempt, err
		}
		if attempt > 0 {
			delay := backoffDelay(attempt-1, e.opts.InitialBackoff, e.opts.MaxBackoff)
			logger.WithFields(logrus.Fields{
				"window":  w.Index,
				"attempt": attempt + 1,
				"delay":   delay,
			}).Warn("retrying window after backend failure")
			if err := sleep(ctx, delay); err != nil {
				return transcript.WindowResult{}, attempt, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
		raw, err := e.backend.Transcribe(attemptCtx, audioWAV, contextText, e.opts.Hint)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return transcript.WindowResult{}, attempt + 1, ctx.Err()
			}
			lastErr = err
			if !retryable(err) {
				return transcript.WindowResult{}, attempt + 1, err
			}
			continue
		}

		lines, err := e.parser.Parse(raw)
		if err != nil {
			// Strict parse failures are not retried: the response arrived,
			// its content is the problem.
			return transcript.WindowResult{}, attempt + 1, err
		}
		return transcript.WindowResult{Window: w, Lines: lines}, attempt + 1, nil
	}
	return transcript.WindowResult{}, e.opts.MaxAttempts, fmt.Errorf("retries exhausted after %d attempts: %w", e.opts.MaxAttempts, lastErr)
}

func retryable(err error) bool {
	var berr *llm.BackendError
	if errors.As(err, &berr) {
		return berr.Retryable()
	}
	return false
}

// backoffDelay grows exponentially from initial, capped at max.
func backoffDelay(attempt int, initial, max time.Duration) time.Duration {
	d := time.Duration(float64(initial) * math.Pow(2, float64(attempt)))
	if d > max || d <= 0 {
		return max
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
