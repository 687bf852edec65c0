package scanner

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/yorha59/surf/internal/types"
)

// entryHeap is a min-heap of file entries keyed on size, path ascending on
// ties, so the root is always the entry a larger newcomer should evict.
type entryHeap []types.FileEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Size != h[j].Size {
		return h[i].Size < h[j].Size
	}
	return h[i].Path < h[j].Path
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(types.FileEntry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// topList retains the `limit` largest entries seen. Zero-sized entries are
// never admitted; on a full heap an incoming entry replaces the minimum only
// when its size strictly exceeds it, so ties never evict.
type topList struct {
	mu    sync.Mutex
	limit int
	heap  entryHeap
}

func newTopList(limit int) *topList {
	if limit < 0 {
		limit = 0
	}
	return &topList{limit: limit, heap: make(entryHeap, 0, limit)}
}

func (t *topList) Offer(e types.FileEntry) {
	if e.Size == 0 || t.limit == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.heap) < t.limit {
		heap.Push(&t.heap, e)
		return
	}
	if e.Size > t.heap[0].Size {
		t.heap[0] = e
		heap.Fix(&t.heap, 0)
	}
}

// Drain empties the heap into a slice sorted by size descending,
// path descending on ties.
func (t *topList) Drain() []types.FileEntry {
	t.mu.Lock()
	out := make([]types.FileEntry, len(t.heap))
	copy(out, t.heap)
	t.heap = t.heap[:0]
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Path > out[j].Path
	})
	return out
}

// NoExtension is the extension-map key for files without a suffix.
const NoExtension = "no_extension"

type extCount struct {
	count uint64
	size  uint64
}

// extMap accumulates per-extension file counts and byte totals.
type extMap struct {
	mu sync.Mutex
	m  map[string]*extCount
}

func newExtMap() *extMap {
	return &extMap{m: make(map[string]*extCount)}
}

func (e *extMap) Offer(ext string, size uint64) {
	if ext == "" {
		ext = NoExtension
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.m[ext]
	if c == nil {
		c = &extCount{}
		e.m[ext] = c
	}
	c.count++
	c.size += size
}

// Snapshot returns stats sorted by total size descending, then file count
// descending, then extension ascending for determinism.
func (e *extMap) Snapshot() []ExtensionStat {
	e.mu.Lock()
	out := make([]ExtensionStat, 0, len(e.m))
	for ext, c := range e.m {
		out = append(out, ExtensionStat{Ext: ext, FileCount: c.count, TotalSizeBytes: c.size})
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSizeBytes != out[j].TotalSizeBytes {
			return out[i].TotalSizeBytes > out[j].TotalSizeBytes
		}
		if out[i].FileCount != out[j].FileCount {
			return out[i].FileCount > out[j].FileCount
		}
		return out[i].Ext < out[j].Ext
	})
	return out
}

// staleList collects files whose last-modified time precedes the stale cutoff.
type staleList struct {
	mu      sync.Mutex
	entries []types.FileEntry
}

func (s *staleList) Offer(e types.FileEntry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

func (s *staleList) Snapshot() []types.FileEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.FileEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
