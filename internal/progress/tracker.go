package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker tracks how many objects an export has rendered.
type Tracker struct {
	bar       *progressbar.ProgressBar
	out       io.Writer
	total     int64
	current   atomic.Int64
	failed    atomic.Int64
	startTime time.Time
}

// New creates a tracker writing to stderr.
func New() *Tracker {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a tracker writing to w.
func NewWithWriter(w io.Writer) *Tracker {
	return &Tracker{
		out:       w,
		startTime: time.Now(),
	}
}

// SetTotal sets the number of objects to render, resets the counters and
// starts the bar.
func (t *Tracker) SetTotal(total int64) {
	t.total = total
	t.current.Store(0)
	t.failed.Store(0)
	t.startTime = time.Now()
	t.bar = progressbar.NewOptions64(
		total,
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionSetDescription("Rendering"),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("objects"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Add records n rendered objects.
func (t *Tracker) Add(n int64) {
	t.current.Add(n)
	if t.bar != nil {
		t.bar.Add64(n)
	}
}

// Fail records one object that could not be rendered. It still advances the bar.
func (t *Tracker) Fail() {
	t.failed.Add(1)
	if t.bar != nil {
		t.bar.Add64(1)
	}
}

// Current returns the number of rendered objects.
func (t *Tracker) Current() int64 {
	return t.current.Load()
}

// Failed returns the number of failed objects.
func (t *Tracker) Failed() int64 {
	return t.failed.Load()
}

// Finish completes the bar and prints a summary line.
func (t *Tracker) Finish() {
	if t.bar != nil {
		t.bar.Finish()
	}

	elapsed := time.Since(t.startTime)
	fmt.Fprintln(t.out)
	fmt.Fprintf(t.out, "Rendered %d of %d objects in %s (%d failed)\n",
		t.current.Load(), t.total, elapsed.Round(time.Millisecond), t.failed.Load())
}
