// Package task owns the lifecycle of scan tasks: identifier allocation,
// state-machine bookkeeping, idempotent cancellation, and TTL-based cleanup
// of terminal records. All mutations are serialized by a single mutex; the
// mutex is never held across engine calls other than Cancel, which is
// non-blocking.
package task

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yorha59/surf/internal/scanner"
)

// State is the lifecycle position of a task.
type State int

const (
	Queued State = iota
	Running
	Completed
	Failed
	Canceled
)

func (s State) String() string {
	switch s {
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Canceled
}

// Info is the metadata record of one scan task. Get and ListActive return
// copies; Handle is shared with the engine.
type Info struct {
	ID           string
	Path         string
	MinSizeBytes uint64
	Threads      int
	Limit        int
	Tag          string
	StartedAt    time.Time
	UpdatedAt    time.Time
	State        State
	Err          string // terminal failure text, "" otherwise
	Handle       *scanner.Handle
}

// Manager allocates task identifiers and tracks task records in memory.
// The catalog does not survive process restarts.
type Manager struct {
	mu    sync.Mutex
	tasks map[string]*Info
	seq   atomic.Uint64
	ttl   time.Duration // retention of terminal tasks; <= 0 keeps them forever
}

// NewManager creates a manager that retains terminal tasks for ttl after
// their last state change.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{tasks: make(map[string]*Info), ttl: ttl}
}

// Register stores a new task record and returns its identifier. StartedAt
// is set once here and never modified afterwards.
func (m *Manager) Register(path string, minSize uint64, threads, limit int, tag string, state State, h *scanner.Handle) string {
	id := strconv.FormatUint(m.seq.Add(1), 10)
	now := time.Now()
	info := &Info{
		ID:           id,
		Path:         path,
		MinSizeBytes: minSize,
		Threads:      threads,
		Limit:        limit,
		Tag:          tag,
		StartedAt:    now,
		UpdatedAt:    now,
		State:        state,
		Handle:       h,
	}

	m.mu.Lock()
	m.tasks[id] = info
	m.mu.Unlock()
	return id
}

// Get returns a snapshot copy of the task record.
func (m *Manager) Get(id string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.tasks[id]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// UpdateState replaces the task's state and refreshes UpdatedAt. Returns
// the previous state and the updated snapshot. Callers are responsible for
// requesting only legal transitions.
func (m *Manager) UpdateState(id string, state State) (State, Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.tasks[id]
	if !ok {
		return 0, Info{}, false
	}
	prev := info.State
	info.State = state
	info.UpdatedAt = time.Now()
	return prev, *info, true
}

// fail records a terminal failure with its diagnostic text.
func (m *Manager) fail(id, msg string) (State, Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.tasks[id]
	if !ok {
		return 0, Info{}, false
	}
	prev := info.State
	info.State = Failed
	info.Err = msg
	info.UpdatedAt = time.Now()
	return prev, *info, true
}

// Cancel transitions a Queued or Running task to Canceled and signals the
// engine handle; a terminal task is left unchanged. UpdatedAt is refreshed
// either way, so repeated cancels are observable but harmless.
func (m *Manager) Cancel(id string) (State, Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.tasks[id]
	if !ok {
		return 0, Info{}, false
	}
	prev := info.State
	if prev == Queued || prev == Running {
		info.State = Canceled
		if info.Handle != nil {
			info.Handle.Cancel()
		}
	}
	info.UpdatedAt = time.Now()
	return prev, *info, true
}

// ListActive returns snapshots of all non-terminal tasks, ordered by
// ascending numeric identifier.
func (m *Manager) ListActive() []Info {
	m.mu.Lock()
	out := make([]Info, 0, len(m.tasks))
	for _, info := range m.tasks {
		if !info.State.Terminal() {
			out = append(out, *info)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.ParseUint(out[i].ID, 10, 64)
		b, _ := strconv.ParseUint(out[j].ID, 10, 64)
		return a < b
	})
	return out
}

// Advance performs lazy state advancement: a Running task whose engine
// handle reports done is moved to Completed, or to Failed when the handle
// carries an error. The handle is polled outside the map mutex.
func (m *Manager) Advance(id string) {
	info, ok := m.Get(id)
	if !ok || info.State != Running || info.Handle == nil {
		return
	}
	st := info.Handle.Poll()
	if !st.Done {
		return
	}
	if st.Err != nil {
		m.fail(id, st.Err.Error())
		return
	}
	m.UpdateState(id, Completed)
}

// AdvanceAll applies Advance to every task currently Running.
func (m *Manager) AdvanceAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.tasks))
	for id, info := range m.tasks {
		if info.State == Running {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Advance(id)
	}
}

// Sweep drops terminal tasks whose last update is older than the TTL and
// returns how many were removed. A non-positive TTL disables cleanup.
func (m *Manager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, info := range m.tasks {
		if info.State.Terminal() && now.Sub(info.UpdatedAt) > m.ttl {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}
