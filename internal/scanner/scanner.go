// Package scanner implements the parallel scan engine.
//
// A scan is driven by a pool of walker goroutines. Each walker claims a
// semaphore slot, reads one directory, handles the file entries inline and
// spawns a new walker per subdirectory. Discovered files stream over a
// buffered channel into a single collector goroutine; ranking and
// per-extension statistics are maintained by mutex-guarded aggregators fed
// directly from the walkers. Cancellation is cooperative: a single atomic
// flag is checked at every directory boundary and before every aggregator
// admission, so cancel latency is bounded by one in-flight directory read.
package scanner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/yorha59/surf/internal/types"
)

// Start validates the root, spawns the supervisor goroutine and returns
// immediately. A missing root fails with a wrapped fs.ErrNotExist before
// any worker is created. Threads below 1 are coerced to 1.
func Start(cfg Config) (*Handle, error) {
	if _, err := os.Stat(cfg.Root); err != nil {
		return nil, fmt.Errorf("scan root %q: %w", cfg.Root, err)
	}

	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("starting scan",
		zap.String("root", cfg.Root),
		zap.Int("threads", threads),
		zap.Uint64("min_size", cfg.MinSize))

	h := &Handle{finished: make(chan struct{})}
	go h.run(cfg, threads, logger)
	return h, nil
}

// walker carries the per-scan state shared by all worker goroutines.
type walker struct {
	h            *Handle
	minSize      uint64
	patterns     []string
	staleEnabled bool
	staleCutoff  time.Time

	wg       sync.WaitGroup
	sem      types.Semaphore
	resultCh chan types.FileEntry

	top   *topList
	exts  *extMap
	stale *staleList
}

// run is the supervisor: it drives the walk, joins the workers, and
// publishes the terminal result exactly once.
func (h *Handle) run(cfg Config, threads int, logger *zap.Logger) {
	start := time.Now()

	w := &walker{
		h:        h,
		minSize:  cfg.MinSize,
		patterns: cfg.ExcludePatterns,
		sem:      types.NewSemaphore(threads),
		resultCh: make(chan types.FileEntry, 1024), // buffer smooths producer/consumer rates
		top:      newTopList(cfg.Limit),
		exts:     newExtMap(),
		stale:    &staleList{},
	}
	if cfg.StaleDays >= 0 {
		w.staleEnabled = true
		w.staleCutoff = time.Now().Add(-time.Duration(cfg.StaleDays) * 24 * time.Hour)
	}

	var entries []types.FileEntry
	collectorDone := make(chan struct{})
	go func() {
		for e := range w.resultCh {
			entries = append(entries, e)
		}
		close(collectorDone)
	}()

	// The root is read in the supervisor itself so its failure can be
	// distinguished from the silently-skipped subtree errors.
	w.sem.Acquire()
	rootErr := w.processDir(cfg.Root)
	w.sem.Release()

	w.wg.Wait()
	close(w.resultCh)
	<-collectorDone

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Size != entries[j].Size {
			return entries[i].Size > entries[j].Size
		}
		return entries[i].Path > entries[j].Path
	})

	h.mu.Lock()
	switch {
	case rootErr != nil:
		h.err = fmt.Errorf("scan root %q: %w", cfg.Root, rootErr)
	case h.cancelled.Load():
		h.err = ErrInterrupted
	default:
		h.result = &Result{
			Summary: Summary{
				Root:           cfg.Root,
				TotalFiles:     h.files.Load(),
				TotalDirs:      h.dirs.Load(),
				TotalSizeBytes: h.bytes.Load(),
				ElapsedSeconds: time.Since(start).Seconds(),
			},
			TopFiles:    w.top.Drain(),
			ByExtension: w.exts.Snapshot(),
			StaleFiles:  w.stale.Snapshot(),
			Entries:     entries,
		}
	}
	err := h.err
	h.mu.Unlock()

	h.done.Store(true)
	close(h.finished)

	if err != nil {
		logger.Debug("scan terminated", zap.String("root", cfg.Root), zap.Error(err))
		return
	}
	logger.Debug("scan completed",
		zap.String("root", cfg.Root),
		zap.Uint64("files", h.files.Load()),
		zap.Uint64("bytes", h.bytes.Load()),
		zap.Duration("elapsed", time.Since(start)))
}

// spawn schedules one directory as a new work item.
//
// The WaitGroup is incremented before the goroutine starts to avoid racing
// Wait; the semaphore slot is claimed inside the goroutine, so the number
// of pending walkers is bounded only by directory count while concurrent
// directory reads stay bounded by the thread budget.
func (w *walker) spawn(dir string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sem.Acquire()
		defer w.sem.Release()
		// Subtree read failures are skipped, never fatal.
		_ = w.processDir(dir)
	}()
}

// processDir reads one directory and classifies its entries. Only the
// returned error of the root read is ever inspected.
func (w *walker) processDir(dir string) error {
	if w.h.cancelled.Load() {
		return nil
	}
	w.h.dirs.Add(1)

	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// Batched reads bound memory on directories with very many entries.
	const batchSize = 1024
	for {
		batch, err := f.ReadDir(batchSize)
		if len(batch) == 0 {
			if err != nil && err != io.EOF {
				return err
			}
			return nil
		}
		for _, entry := range batch {
			if w.h.cancelled.Load() {
				return nil
			}
			w.processEntry(dir, entry)
		}
	}
}

func (w *walker) processEntry(dir string, entry os.DirEntry) {
	full := filepath.Join(dir, entry.Name())

	if entry.IsDir() {
		if w.excluded(full) {
			return
		}
		w.spawn(full)
		return
	}
	if !entry.Type().IsRegular() {
		return
	}
	if w.excluded(full) {
		return
	}

	// Info may stat; failures skip the file (racing deletes, permissions).
	info, err := entry.Info()
	if err != nil {
		return
	}
	size := uint64(info.Size())
	if size < w.minSize {
		return
	}

	if w.h.cancelled.Load() {
		return
	}

	e := types.FileEntry{
		Path:    full,
		Size:    size,
		ModTime: info.ModTime(),
		Ext:     types.ExtOf(full),
	}

	w.h.files.Add(1)
	w.h.bytes.Add(size)
	w.top.Offer(e)
	w.exts.Offer(e.Ext, size)
	if w.staleEnabled && !e.ModTime.IsZero() && e.ModTime.Before(w.staleCutoff) {
		w.stale.Offer(e)
	}
	w.resultCh <- e
}

// excluded reports whether the full path matches any exclusion glob.
func (w *walker) excluded(path string) bool {
	if len(w.patterns) == 0 {
		return false
	}
	slashed := filepath.ToSlash(path)
	for _, pattern := range w.patterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}
