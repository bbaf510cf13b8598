package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker draws a bar for a batch of files. Report may be called from
// several goroutines.
type Tracker struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	out   io.Writer
	label string
}

var theme = progressbar.Theme{
	Saucer:        "=",
	SaucerHead:    ">",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// New creates a tracker drawing to w, starting at 0 of total.
func New(w io.Writer, label string, total int) *Tracker {
	return &Tracker{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionSetElapsedTime(false),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetTheme(theme),
		),
		out:   w,
		label: label,
	}
}

// Report sets the bar to done of total. Totals only grow, since later
// stages may announce more work than the first. It satisfies
// analyzer.ProgressFunc.
func (t *Tracker) Report(done, total int, _ string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if total > t.bar.GetMax() {
		t.bar.ChangeMax(total)
	}
	_ = t.bar.Set(done)
}

// Finish removes the bar. A non-nil err is printed in its place.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	t.mu.Unlock()

	if err != nil {
		fmt.Fprintf(t.out, "  %s failed: %v\n", t.label, err)
	}
}
