// Package progress renders the one-shot scan spinner.
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

const updateInterval = 50 * time.Millisecond

// Spinner wraps progressbar's indeterminate mode with enabled/disabled
// handling. All methods are no-ops when disabled, so callers never branch.
type Spinner struct {
	bar *progressbar.ProgressBar
}

// New creates a scan spinner writing to stderr.
// If enabled=false, returns a Spinner where all methods are no-ops.
func New(enabled bool) *Spinner {
	if !enabled {
		return &Spinner{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(false),
	)
	return &Spinner{bar: bar}
}

// Describe updates the live status text next to the spinner.
func (s *Spinner) Describe(v fmt.Stringer) {
	if s.bar != nil {
		s.bar.Describe(v.String())
	}
}

// Finish clears the spinner and prints the final status line.
func (s *Spinner) Finish(v fmt.Stringer) {
	if s.bar != nil {
		_ = s.bar.Finish()
		fmt.Fprintln(os.Stderr, "✔ "+v.String())
	}
}
