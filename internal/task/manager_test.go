package task

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/yorha59/surf/internal/scanner"
)

func TestRegisterAndGet(t *testing.T) {
	m := NewManager(0)
	id := m.Register("/data", 1024, 4, 20, "nightly", Running, nil)
	if id == "" {
		t.Fatal("empty task id")
	}

	info, ok := m.Get(id)
	if !ok {
		t.Fatal("registered task not found")
	}
	if info.Path != "/data" || info.MinSizeBytes != 1024 || info.Threads != 4 ||
		info.Limit != 20 || info.Tag != "nightly" || info.State != Running {
		t.Errorf("snapshot mismatch: %+v", info)
	}
	if info.StartedAt.IsZero() || !info.StartedAt.Equal(info.UpdatedAt) {
		t.Errorf("timestamps: started %v updated %v", info.StartedAt, info.UpdatedAt)
	}
}

func TestIDsMonotonic(t *testing.T) {
	m := NewManager(0)
	a := m.Register("/a", 0, 1, 20, "", Queued, nil)
	b := m.Register("/b", 0, 1, 20, "", Queued, nil)
	if a == b {
		t.Errorf("ids must be unique, both %q", a)
	}
	an, _ := strconv.ParseUint(a, 10, 64)
	bn, _ := strconv.ParseUint(b, 10, 64)
	if bn <= an {
		t.Errorf("ids must increase: %q then %q", a, b)
	}
}

func TestGetUnknown(t *testing.T) {
	m := NewManager(0)
	if _, ok := m.Get("999"); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestUpdateState(t *testing.T) {
	m := NewManager(0)
	id := m.Register("/a", 0, 1, 20, "", Queued, nil)

	before, _ := m.Get(id)
	time.Sleep(time.Millisecond)
	prev, updated, ok := m.UpdateState(id, Running)
	if !ok || prev != Queued || updated.State != Running {
		t.Errorf("transition: prev %v updated %+v ok %v", prev, updated, ok)
	}
	if !updated.UpdatedAt.After(before.UpdatedAt) {
		t.Error("UpdatedAt should be refreshed")
	}
	if !updated.StartedAt.Equal(before.StartedAt) {
		t.Error("StartedAt must never change")
	}
}

func TestCancelRunning(t *testing.T) {
	m := NewManager(0)
	id := m.Register("/a", 0, 1, 20, "", Running, nil)

	prev, updated, ok := m.Cancel(id)
	if !ok || prev != Running || updated.State != Canceled {
		t.Errorf("cancel: prev %v state %v", prev, updated.State)
	}
}

func TestCancelIdempotentOnTerminal(t *testing.T) {
	m := NewManager(0)
	id := m.Register("/a", 0, 1, 20, "", Queued, nil)
	m.UpdateState(id, Running)
	m.UpdateState(id, Completed)

	prev, updated, ok := m.Cancel(id)
	if !ok {
		t.Fatal("cancel of known task must resolve")
	}
	if prev != Completed || updated.State != Completed {
		t.Errorf("terminal cancel must be a no-op: prev %v current %v", prev, updated.State)
	}

	// A second cancel observes previous == current as well.
	prev, updated, _ = m.Cancel(id)
	if prev != updated.State {
		t.Errorf("repeat cancel: prev %v != current %v", prev, updated.State)
	}
}

func TestCancelSignalsEngine(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.bin"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := scanner.Start(scanner.Config{Root: root, StaleDays: -1, Limit: 20})
	if err != nil {
		t.Fatal(err)
	}

	m := NewManager(0)
	id := m.Register(root, 0, 1, 20, "", Running, h)
	m.Cancel(id)

	// The engine flag is set; Poll eventually reports done either way.
	deadline := time.Now().Add(5 * time.Second)
	for !h.Poll().Done {
		if time.Now().After(deadline) {
			t.Fatal("engine never terminated after cancel")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestListActiveExcludesTerminal(t *testing.T) {
	m := NewManager(0)
	done := m.Register("/done", 0, 1, 20, "", Queued, nil)
	m.UpdateState(done, Running)
	m.UpdateState(done, Completed)
	queued := m.Register("/queued", 0, 1, 20, "", Queued, nil)
	running := m.Register("/running", 0, 1, 20, "", Running, nil)

	active := m.ListActive()
	if len(active) != 2 {
		t.Fatalf("active = %d, want 2", len(active))
	}
	if active[0].ID != queued || active[1].ID != running {
		t.Errorf("active order = %s, %s; want %s, %s", active[0].ID, active[1].ID, queued, running)
	}
	for _, info := range active {
		if info.State.Terminal() {
			t.Errorf("terminal task %s listed as active", info.ID)
		}
	}
}

func TestAdvanceCompletesFinishedScan(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.bin"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := scanner.Start(scanner.Config{Root: root, StaleDays: -1, Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Result(); err != nil {
		t.Fatal(err)
	}

	m := NewManager(0)
	id := m.Register(root, 0, 1, 20, "", Running, h)
	m.Advance(id)

	info, _ := m.Get(id)
	if info.State != Completed {
		t.Errorf("state after advance = %v, want completed", info.State)
	}
}

func TestAdvanceMirrorsEngineOutcome(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.bin"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := scanner.Start(scanner.Config{Root: root, StaleDays: -1, Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	h.Cancel()

	deadline := time.Now().Add(5 * time.Second)
	for !h.Poll().Done {
		if time.Now().After(deadline) {
			t.Fatal("engine never terminated")
		}
		time.Sleep(time.Millisecond)
	}

	m := NewManager(0)
	id := m.Register(root, 0, 1, 20, "", Running, h)
	m.Advance(id)

	// Whether the cancel landed before or after the walk drained is a
	// scheduling race; the task state must mirror the handle either way.
	info, _ := m.Get(id)
	if st := h.Poll(); st.Err != nil {
		if info.State != Failed || info.Err == "" {
			t.Errorf("state = %v err %q, want failed with text", info.State, info.Err)
		}
	} else if info.State != Completed {
		t.Errorf("state = %v, want completed", info.State)
	}
}

func TestAdvanceLeavesUnfinishedRunning(t *testing.T) {
	m := NewManager(0)
	id := m.Register("/a", 0, 1, 20, "", Running, nil)
	m.Advance(id) // nil handle: nothing to observe
	info, _ := m.Get(id)
	if info.State != Running {
		t.Errorf("state = %v, want running", info.State)
	}
}

func TestSweepRemovesExpiredTerminal(t *testing.T) {
	m := NewManager(time.Minute)
	done := m.Register("/done", 0, 1, 20, "", Queued, nil)
	m.UpdateState(done, Running)
	m.UpdateState(done, Completed)
	live := m.Register("/live", 0, 1, 20, "", Running, nil)

	if n := m.Sweep(time.Now()); n != 0 {
		t.Errorf("fresh terminal task swept early: %d", n)
	}
	if n := m.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if _, ok := m.Get(done); ok {
		t.Error("expired terminal task still present")
	}
	if _, ok := m.Get(live); !ok {
		t.Error("running task must survive sweep")
	}
}

func TestSweepDisabled(t *testing.T) {
	m := NewManager(0)
	done := m.Register("/done", 0, 1, 20, "", Queued, nil)
	m.UpdateState(done, Completed)
	if n := m.Sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("ttl 0 must disable sweeping, removed %d", n)
	}
}
