package scanner

import (
	"errors"

	"go.uber.org/zap"

	"github.com/yorha59/surf/internal/types"
)

// ErrInterrupted is returned by Collect and Result when the scan was
// cancelled before it finished.
var ErrInterrupted = errors.New("scan interrupted")

// DefaultLimit is the top-N capacity used when a caller does not choose one.
const DefaultLimit = 20

// Config describes a single scan.
type Config struct {
	Root            string
	MinSize         uint64   // files smaller than this are skipped
	Threads         int      // concurrent directory readers; values < 1 are coerced to 1
	ExcludePatterns []string // glob patterns matched against full paths
	StaleDays       int      // negative disables stale-file detection
	Limit           int      // top-N capacity; 0 keeps no ranked entries
	Logger          *zap.Logger
}

// Progress is a point-in-time snapshot of scan counters.
// Counters are monotone non-decreasing until the scan terminates.
type Progress struct {
	ScannedFiles       uint64
	ScannedBytes       uint64
	TotalBytesEstimate *uint64 // nil when no estimate is available
}

// Status is what Poll reports: whether the walk has terminated, the
// current progress, and the terminal error if any.
type Status struct {
	Done     bool
	Progress Progress
	Err      error
}

// Summary aggregates whole-scan totals.
type Summary struct {
	Root           string
	TotalFiles     uint64
	TotalDirs      uint64
	TotalSizeBytes uint64
	ElapsedSeconds float64
}

// ExtensionStat accumulates per-extension counts. Files without an
// extension are grouped under the "no_extension" sentinel.
type ExtensionStat struct {
	Ext            string
	FileCount      uint64
	TotalSizeBytes uint64
}

// Result is the full aggregated outcome of a completed scan.
type Result struct {
	Summary     Summary
	TopFiles    []types.FileEntry // size descending, path descending on ties
	ByExtension []ExtensionStat   // total size descending, then file count descending
	StaleFiles  []types.FileEntry
	Entries     []types.FileEntry // the flat list, size descending
}
