// Package types provides shared types used across the surf codebase.
package types

import (
	"path/filepath"
	"strings"
	"time"
)

// FileEntry holds the metadata the scan engine records for a single file.
// Entries are immutable once emitted.
type FileEntry struct {
	Path    string
	Size    uint64
	ModTime time.Time // zero when the timestamp could not be read
	Ext     string    // lowercased final dotted suffix, "" when none
}

// ExtOf extracts the lowercased extension of path without the leading dot.
// Returns "" for files with no extension and for dotfiles like ".gitignore".
func ExtOf(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit is reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
