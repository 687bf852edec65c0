package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yorha59/surf/internal/progress"
	"github.com/yorha59/surf/internal/scanner"
	"github.com/yorha59/surf/internal/sizefmt"
	"github.com/yorha59/surf/internal/trash"
	"github.com/yorha59/surf/internal/tui"
)

// scanStats renders the live spinner text from the engine's counters.
type scanStats struct {
	handle *scanner.Handle
	start  time.Time
}

func (s *scanStats) String() string {
	p := s.handle.Poll().Progress
	return fmt.Sprintf("Scanned %d files (%s) in %.1fs",
		p.ScannedFiles, humanize.IBytes(p.ScannedBytes), time.Since(s.start).Seconds())
}

func buildConfig(opts *options) (scanner.Config, error) {
	minSize, err := sizefmt.Parse(opts.minSizeStr)
	if err != nil {
		return scanner.Config{}, fmt.Errorf("invalid --min-size: %w", err)
	}
	if opts.limit < 0 {
		return scanner.Config{}, fmt.Errorf("invalid --limit: must be >= 0")
	}
	return scanner.Config{
		Root:            opts.path,
		MinSize:         minSize,
		Threads:         opts.threads,
		ExcludePatterns: opts.excludes,
		StaleDays:       opts.staleDays,
		Limit:           opts.limit,
	}, nil
}

// runOneShot scans once and prints the report. Ctrl+C cancels the scan and
// exits with code 130.
func runOneShot(opts *options) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	h, err := scanner.Start(cfg)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	stats := &scanStats{handle: h, start: time.Now()}
	spinner := progress.New(!opts.jsonOut && !opts.noProgress)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
poll:
	for {
		select {
		case <-sigCh:
			h.Cancel()
		case <-ticker.C:
			if h.Poll().Done {
				break poll
			}
			spinner.Describe(stats)
		}
	}

	res, err := h.Result()
	if errors.Is(err, scanner.ErrInterrupted) {
		return &exitCodeError{code: 130, msg: "scan interrupted by user"}
	}
	if err != nil {
		return err
	}
	spinner.Finish(stats)

	if opts.jsonOut {
		return writeJSON(os.Stdout, res, opts.limit)
	}
	printReport(res, opts)
	return nil
}

// runTUI scans and opens the interactive browser over the result.
func runTUI(opts *options) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	h, err := scanner.Start(cfg)
	if err != nil {
		return err
	}

	interrupted, err := tui.Run(cfg.Root, h, trash.Move)
	if err != nil {
		return err
	}
	if interrupted {
		return &exitCodeError{code: 130, msg: "interrupted by user"}
	}
	return nil
}

// jsonEntry is the machine-readable output row.
type jsonEntry struct {
	Path  string `json:"path"`
	Size  uint64 `json:"size"`
	IsDir bool   `json:"is_dir"`
}

type jsonReport struct {
	Root    string      `json:"root"`
	Entries []jsonEntry `json:"entries"`
}

func writeJSON(w *os.File, res *scanner.Result, limit int) error {
	entries := res.Entries
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	report := jsonReport{Root: res.Summary.Root, Entries: make([]jsonEntry, 0, len(entries))}
	for _, e := range entries {
		report.Entries = append(report.Entries, jsonEntry{Path: e.Path, Size: e.Size})
	}
	enc := json.NewEncoder(w)
	return enc.Encode(report)
}

func printReport(res *scanner.Result, opts *options) {
	s := res.Summary
	fmt.Printf("%s: %d files, %d dirs, %s in %.2fs\n\n",
		s.Root, s.TotalFiles, s.TotalDirs, humanize.IBytes(s.TotalSizeBytes), s.ElapsedSeconds)

	if len(res.TopFiles) > 0 {
		fmt.Printf("Top %d files:\n", len(res.TopFiles))
		for _, e := range res.TopFiles {
			fmt.Printf("  %10s  %s\n", humanize.IBytes(e.Size), e.Path)
		}
		fmt.Println()
	}

	if len(res.ByExtension) > 0 {
		fmt.Println("By extension:")
		for _, st := range res.ByExtension {
			fmt.Printf("  %10s  %6d  %s\n", humanize.IBytes(st.TotalSizeBytes), st.FileCount, st.Ext)
		}
		fmt.Println()
	}

	if opts.staleDays >= 0 {
		fmt.Printf("Stale files (older than %d days): %d\n", opts.staleDays, len(res.StaleFiles))
		for _, e := range res.StaleFiles {
			fmt.Printf("  %10s  %s\n", humanize.IBytes(e.Size), e.Path)
		}
	}
}
