// Package tui implements the interactive browser: it polls the scan engine
// while the walk runs, builds the directory tree from the flat result, and
// supports navigation plus trash-based deletion with confirmed re-aggregation.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/yorha59/surf/internal/dirtree"
	"github.com/yorha59/surf/internal/scanner"
	"github.com/yorha59/surf/internal/trash"
)

type phase int

const (
	phaseScanning phase = iota
	phaseBrowse
	phaseConfirm
)

// --- Message types ---

// scanDoneMsg is sent when the engine terminates.
type scanDoneMsg struct {
	result *scanner.Result
	err    error
}

// tickMsg drives progress refreshes while the walk is running.
type tickMsg time.Time

// Model is the bubbletea model for the browser.
type Model struct {
	root   string
	handle *scanner.Handle
	mover  trash.Mover

	phase    phase
	progress scanner.Progress
	tree     *dirtree.Node
	crumbs   []*dirtree.Node // navigation stack; last element is the current directory
	cursor   int
	confirm  int    // index pending deletion while in phaseConfirm
	banner   string // latest error text, "" when clear

	interrupted bool
}

// New builds the model around an already-started scan handle.
func New(root string, handle *scanner.Handle, mover trash.Mover) Model {
	if mover == nil {
		mover = trash.Move
	}
	return Model{root: root, handle: handle, mover: mover}
}

// Run drives the program to completion and reports whether the user left
// with Ctrl+C, which the CLI maps to exit code 130.
func Run(root string, handle *scanner.Handle, mover trash.Mover) (bool, error) {
	final, err := tea.NewProgram(New(root, handle, mover), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(Model)
	return ok && m.interrupted, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForScan(m.handle), tick())
}

func waitForScan(h *scanner.Handle) tea.Cmd {
	return func() tea.Msg {
		res, err := h.Result()
		return scanDoneMsg{result: res, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.phase == phaseScanning {
			m.progress = m.handle.Poll().Progress
			return m, tick()
		}
		return m, nil

	case scanDoneMsg:
		if msg.err != nil {
			m.banner = msg.err.Error()
			return m, nil
		}
		m.tree = dirtree.Build(m.root, msg.result.Entries)
		m.crumbs = []*dirtree.Node{m.tree}
		m.cursor = 0
		m.phase = phaseBrowse
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.handle != nil {
			m.handle.Cancel()
		}
		m.interrupted = true
		return m, tea.Quit
	}

	switch m.phase {
	case phaseScanning:
		if key := msg.String(); key == "q" || key == "esc" {
			if m.handle != nil {
				m.handle.Cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case phaseConfirm:
		switch msg.String() {
		case "y", "enter":
			m.deleteConfirmed()
			m.phase = phaseBrowse
		case "n", "esc":
			m.phase = phaseBrowse
		}
		return m, nil
	}

	// phaseBrowse
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.current().Children)-1 {
			m.cursor++
		}
	case "enter", "l", "right":
		if child := m.selected(); child != nil && child.IsDir() {
			m.crumbs = append(m.crumbs, child)
			m.cursor = 0
		}
	case "h", "left", "backspace":
		if len(m.crumbs) > 1 {
			m.crumbs = m.crumbs[:len(m.crumbs)-1]
			m.cursor = 0
		}
	case "d":
		if m.selected() != nil {
			m.confirm = m.cursor
			m.phase = phaseConfirm
		}
	}
	return m, nil
}

func (m *Model) current() *dirtree.Node {
	return m.crumbs[len(m.crumbs)-1]
}

func (m *Model) selected() *dirtree.Node {
	cur := m.current()
	if m.cursor < 0 || m.cursor >= len(cur.Children) {
		return nil
	}
	return cur.Children[m.cursor]
}

// deleteConfirmed moves the marked child to the trash and re-establishes
// the tree invariants: detach, one Recompute over the whole tree, re-sort.
func (m *Model) deleteConfirmed() {
	cur := m.current()
	if m.confirm < 0 || m.confirm >= len(cur.Children) {
		return
	}
	child := cur.Children[m.confirm]
	if err := m.mover(child.FullPath); err != nil {
		m.banner = fmt.Sprintf("failed to move to trash: %v", err)
		return
	}
	cur.RemoveChildAt(m.confirm)
	dirtree.Recompute(m.tree)
	m.tree.SortBySize()
	m.banner = ""
	if m.cursor >= len(cur.Children) {
		m.cursor = len(cur.Children) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	switch m.phase {
	case phaseScanning:
		s := fmt.Sprintf("Surf — scanning %s\n\nFiles: %d\nBytes: %s\n",
			m.root, m.progress.ScannedFiles, humanize.IBytes(m.progress.ScannedBytes))
		if m.banner != "" {
			s += "\n! " + m.banner + "\n"
		}
		s += "\nq/Esc: cancel  Ctrl+C: interrupt\n"
		return s

	case phaseConfirm:
		target := "?"
		if m.confirm >= 0 && m.confirm < len(m.current().Children) {
			c := m.current().Children[m.confirm]
			target = fmt.Sprintf("%s (%s)", c.FullPath, humanize.IBytes(c.Size))
		}
		return fmt.Sprintf("Surf — confirm delete\n\nMove to trash?\n  %s\n\ny/Enter: confirm  n/Esc: cancel  Ctrl+C: interrupt\n", target)
	}

	cur := m.current()
	s := fmt.Sprintf("Surf — %s (%s)\n\n", cur.FullPath, humanize.IBytes(cur.Size))
	if len(cur.Children) == 0 {
		s += "  (empty)\n"
	}
	for i, c := range cur.Children {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		kind := " "
		if c.IsDir() {
			kind = "/"
		}
		s += fmt.Sprintf("%s%-10s %s%s\n", marker, humanize.IBytes(c.Size), c.Name, kind)
	}
	if m.banner != "" {
		s += "\n! " + m.banner + "\n"
	}
	s += "\n↑/↓ move  Enter: open  h: up  d: delete  q/Esc: quit  Ctrl+C: interrupt\n"
	return s
}
