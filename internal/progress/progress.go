package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for category passes and batch runs. A nil
// *Tracker is valid and does nothing, so callers can pass one through
// unconditionally.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
	out   io.Writer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWriter sends the bar and finish messages to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(t *Tracker) {
		t.out = w
	}
}

// NewSpinner creates a spinner for operations with unknown total count.
func NewSpinner(label string, opts ...Option) *Tracker {
	t := &Tracker{label: label, out: os.Stderr}
	for _, opt := range opts {
		opt(t)
	}
	t.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return t
}

// NewTracker creates a progress bar with the given label and total count.
func NewTracker(label string, total int, opts ...Option) *Tracker {
	t := &Tracker{label: label, out: os.Stderr}
	for _, opt := range opts {
		opt(t)
	}
	t.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return t
}

// Label returns the tracker's label.
func (t *Tracker) Label() string {
	if t == nil {
		return ""
	}
	return t.label
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t == nil {
		return
	}
	_ = t.bar.Add(1)
}

// Step increments the progress by 1 and shows what is being worked on.
func (t *Tracker) Step(detail string) {
	if t == nil {
		return
	}
	t.bar.Describe(fmt.Sprintf("%s: %s", t.label, detail))
	_ = t.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	if t == nil {
		return
	}
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishSkipped clears the bar and prints a skip message.
func (t *Tracker) FinishSkipped(reason string) {
	if t == nil {
		return
	}
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.out, "  %s skipped (%s)\n", t.label, reason)
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	if t == nil {
		return
	}
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.out, "  %s error: %v\n", t.label, err)
}
