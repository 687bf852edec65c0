// Package dirtree reconstructs a hierarchical, size-aggregated directory
// tree from the flat file list produced by a scan. The TUI navigates and
// mutates it; after any structural change the caller re-establishes the
// aggregate sizes with one Recompute pass over the whole tree.
package dirtree

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/yorha59/surf/internal/types"
)

// Kind distinguishes file leaves from directory nodes.
type Kind int

const (
	File Kind = iota
	Directory
)

// Node is one entry in the tree. For a Directory, Size is the sum of the
// sizes of all descendant files; for a File, Children is empty.
type Node struct {
	Name     string
	FullPath string
	Kind     Kind
	Size     uint64
	Children []*Node
}

func newFile(path string, size uint64) *Node {
	return &Node{Name: filepath.Base(path), FullPath: path, Kind: File, Size: size}
}

func newDirectory(path string) *Node {
	return &Node{Name: filepath.Base(path), FullPath: path, Kind: Directory}
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.Kind == Directory }

// Build consumes a flat list of file entries and produces the full
// hierarchy rooted at root. Every level is sorted by size descending.
// Entries whose path does not live under root attach directly to the root
// node.
func Build(root string, entries []types.FileEntry) *Node {
	tree := newDirectory(root)
	for _, e := range entries {
		insert(tree, root, e.Path, e.Size)
	}
	tree.SortBySize()
	return tree
}

// insert walks the ancestor chain of path below root, creating directory
// nodes as needed and accumulating size along the way, then appends the
// file leaf at the terminal directory.
func insert(root *Node, rootPath, path string, size uint64) {
	root.Size += size

	ancestors := ancestorsBelow(rootPath, path)
	node := root
	for _, dir := range ancestors {
		child := node.childDir(dir)
		if child == nil {
			child = newDirectory(dir)
			node.Children = append(node.Children, child)
		}
		child.Size += size
		node = child
	}
	node.Children = append(node.Children, newFile(path, size))
}

// ancestorsBelow returns the directories between rootPath (exclusive) and
// path (exclusive), outermost first. An empty slice means the file hangs
// directly off the root, which is also the fallback for paths that escape
// the root.
func ancestorsBelow(rootPath, path string) []string {
	sep := string(filepath.Separator)
	prefix := strings.TrimSuffix(rootPath, sep) + sep
	if !strings.HasPrefix(path, prefix) {
		return nil
	}

	var dirs []string
	dir := filepath.Dir(path)
	for dir != rootPath && strings.HasPrefix(dir, prefix) {
		dirs = append(dirs, dir)
		dir = filepath.Dir(dir)
	}
	// Reverse to outermost-first order.
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}

func (n *Node) childDir(path string) *Node {
	for _, c := range n.Children {
		if c.IsDir() && c.FullPath == path {
			return c
		}
	}
	return nil
}

// Find locates a node by full-path equality anywhere under n, including n
// itself. Returns nil when absent. The returned pointer aliases the tree,
// so callers may mutate through it.
func (n *Node) Find(path string) *Node {
	if n.FullPath == path {
		return n
	}
	if !n.IsDir() {
		return nil
	}
	for _, c := range n.Children {
		if found := c.Find(path); found != nil {
			return found
		}
	}
	return nil
}

// RemoveChildAt detaches the i-th child and subtracts its size from n,
// saturating at zero. Returns nil when the index is out of range.
func (n *Node) RemoveChildAt(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	child := n.Children[i]
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	if child.Size > n.Size {
		n.Size = 0
	} else {
		n.Size -= child.Size
	}
	return child
}

// SortBySize orders every directory's children by size descending,
// recursively. Ties keep name ascending for stable display.
func (n *Node) SortBySize() {
	sort.SliceStable(n.Children, func(i, j int) bool {
		if n.Children[i].Size != n.Children[j].Size {
			return n.Children[i].Size > n.Children[j].Size
		}
		return n.Children[i].Name < n.Children[j].Name
	})
	for _, c := range n.Children {
		if c.IsDir() {
			c.SortBySize()
		}
	}
}

// Recompute walks the tree post-order, resetting every directory's size to
// the sum of its children's recomputed sizes, and returns the new total.
// Call it once after a mutation to re-establish ancestor aggregates; it
// does not re-sort.
func Recompute(n *Node) uint64 {
	if !n.IsDir() {
		return n.Size
	}
	var total uint64
	for _, c := range n.Children {
		total += Recompute(c)
	}
	n.Size = total
	return total
}
