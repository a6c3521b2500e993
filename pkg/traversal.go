package pkg

import (
	sets "github.com/deckarep/golang-set"
)

type VisibleRow struct {
	Node  *ProcessTreeNode
	Depth int
	// HasToggle is set for nodes with at least one child.
	HasToggle bool
	Expanded  bool
}

// VisibleRows walks the forest in pre-order and emits the rows an operator
// sees. A node's children are walked only while the node is expanded in
// store; a collapsed subtree is skipped entirely.
func VisibleRows(forest []*ProcessTreeNode, store *ExpansionStore) []VisibleRow {
	var rows []VisibleRow
	seen := sets.NewThreadUnsafeSet()

	var visit func(node *ProcessTreeNode, depth int)
	visit = func(node *ProcessTreeNode, depth int) {
		if !seen.Add(node) {
			return
		}
		expanded := store.IsExpanded(node.Pid())
		rows = append(rows, VisibleRow{
			Node:      node,
			Depth:     depth,
			HasToggle: node.HasChildren(),
			Expanded:  expanded,
		})
		if !expanded {
			return
		}
		for _, child := range node.Children {
			visit(child, depth+1)
		}
	}

	for _, root := range forest {
		visit(root, 0)
	}
	return rows
}
