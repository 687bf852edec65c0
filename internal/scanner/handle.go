package scanner

import (
	"sync"
	"sync/atomic"

	"github.com/yorha59/surf/internal/types"
)

// Handle is the opaque value returned by Start. It bundles the
// cancellation flag, the live progress counters and the join point. The
// task record and the workers share it; whichever side drops it last
// releases the aggregated state.
type Handle struct {
	cancelled atomic.Bool
	done      atomic.Bool
	finished  chan struct{}

	files atomic.Uint64
	bytes atomic.Uint64
	dirs  atomic.Uint64

	mu     sync.Mutex
	result *Result
	err    error
}

// Poll returns a snapshot of the scan state. It never blocks; Done is true
// once the walk has terminated for any reason.
func (h *Handle) Poll() Status {
	st := Status{
		Done: h.done.Load(),
		Progress: Progress{
			ScannedFiles: h.files.Load(),
			ScannedBytes: h.bytes.Load(),
		},
	}
	if st.Done {
		h.mu.Lock()
		st.Err = h.err
		h.mu.Unlock()
	}
	return st
}

// Cancel requests cooperative termination. Idempotent; workers observe the
// flag at the next directory boundary and drain without emitting new files.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
}

// Collect waits for termination and returns the size-sorted flat file
// list. A cancelled scan fails with ErrInterrupted; a failed walk returns
// the underlying error.
func (h *Handle) Collect() ([]types.FileEntry, error) {
	res, err := h.Result()
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// Result waits for termination and returns the full aggregated snapshot.
func (h *Handle) Result() (*Result, error) {
	<-h.finished
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	return h.result, nil
}
