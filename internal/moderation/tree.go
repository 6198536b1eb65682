package moderation

import (
	"sort"
	"time"

	"github.com/medshare/moderation/internal/models"
)

// Author is the public identity attached to an entry.
type Author struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Anonymous bool   `json:"anonymous"`
}

// Entry is the read view of a content item or comment.
type Entry struct {
	Category  models.Category   `json:"category"`
	ID        int64             `json:"id"`
	OwnerID   int64             `json:"-"`
	Author    Author            `json:"author"`
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"body"`
	Parent    *models.ParentRef `json:"parent,omitempty"`
	Depth     int               `json:"depth"`
	CreatedAt time.Time         `json:"created_at"`
}

// Target returns the ledger key of the entry.
func (e *Entry) Target() models.Target {
	return models.Target{Category: e.Category, ID: e.ID}
}

// Node is an entry with its replies.
type Node struct {
	Entry
	Children []*Node `json:"children"`
}

// Tree is a comment forest under one root.
type Tree struct {
	Roots []*Node `json:"comments"`
	// Duplicates lists ids seen more than once in the input. Only the first
	// occurrence is kept.
	Duplicates []int64 `json:"-"`
	// Orphans counts entries whose parent is not in the tree.
	Orphans int `json:"-"`
}

// Count returns the number of nodes in the forest.
func (t Tree) Count() int {
	n := 0
	stack := append([]*Node(nil), t.Roots...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, node.Children...)
	}
	return n
}

// BuildTree nests a flat list of comments under root. Siblings are ordered by
// creation time, then id, at every level. Entries whose parent chain does
// not reach root are dropped and counted in Orphans, so
// Count() == len(entries) - len(Duplicates) - Orphans. The input is not
// modified.
func BuildTree(entries []Entry, root models.ParentRef) Tree {
	var tree Tree
	seen := make(map[int64]bool, len(entries))
	children := make(map[int64][]*Node)
	kept := 0

	for _, e := range entries {
		if seen[e.ID] {
			tree.Duplicates = append(tree.Duplicates, e.ID)
			continue
		}
		seen[e.ID] = true
		kept++

		if e.Parent == nil {
			continue
		}
		node := &Node{Entry: e, Children: []*Node{}}
		switch parent := *e.Parent; {
		case parent == root:
			tree.Roots = append(tree.Roots, node)
		case !parent.IsRoot():
			children[parent.ID()] = append(children[parent.ID()], node)
		}
	}

	sortSiblings(tree.Roots)
	attached := len(tree.Roots)
	queue := append([]*Node(nil), tree.Roots...)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		kids, ok := children[node.ID]
		if !ok {
			continue
		}
		delete(children, node.ID)
		sortSiblings(kids)
		node.Children = kids
		attached += len(kids)
		queue = append(queue, kids...)
	}
	if tree.Roots == nil {
		tree.Roots = []*Node{}
	}
	tree.Orphans = kept - attached
	return tree
}

func sortSiblings(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
