package pkg

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// BuildProcessTree turns one snapshot's flat process list into a forest.
//
// A process is a root when its parent is RootParent or when no process in the
// list carries the parent pid. Parent links that loop back on themselves are
// broken at the member with the lowest pid, which then becomes a root too, so
// every process appears exactly once. Roots and children keep input order.
func BuildProcessTree(processes []Process) []*ProcessTreeNode {
	unique := make([]Process, 0, len(processes))
	index := make(map[int32]int, len(processes))
	for _, p := range processes {
		if _, ok := index[p.Pid]; ok {
			logrus.WithField("pid", p.Pid).Warningln("duplicate pid in snapshot, keep the first one")
			continue
		}
		index[p.Pid] = len(unique)
		unique = append(unique, p)
	}

	// root pid -> promoted (orphan or cycle breaker)
	roots := map[int32]bool{}
	for _, p := range unique {
		if p.Parent == RootParent {
			roots[p.Pid] = false
			continue
		}
		if _, ok := index[p.Parent]; !ok {
			roots[p.Pid] = true
		}
	}
	for _, pid := range cycleBreakers(unique, roots) {
		roots[pid] = true
	}

	children := map[int32][]int32{}
	for _, p := range unique {
		if _, ok := roots[p.Pid]; ok {
			continue
		}
		children[p.Parent] = append(children[p.Parent], p.Pid)
	}

	var build func(pid int32, depth int) *ProcessTreeNode
	build = func(pid int32, depth int) *ProcessTreeNode {
		node := &ProcessTreeNode{
			Process: unique[index[pid]],
			Depth:   depth,
		}
		for _, child := range children[pid] {
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}

	var forest []*ProcessTreeNode
	for _, p := range unique {
		orphan, ok := roots[p.Pid]
		if !ok {
			continue
		}
		node := build(p.Pid, 0)
		node.Orphan = orphan
		forest = append(forest, node)
	}
	return forest
}

// cycleBreakers returns one pid per parent cycle among the non-root processes.
// Every non-root has exactly one incoming parent edge, so each strongly
// connected component larger than one node is a simple cycle.
func cycleBreakers(processes []Process, roots map[int32]bool) []int32 {
	g := simple.NewDirectedGraph()
	var breakers []int32
	for _, p := range processes {
		if _, ok := roots[p.Pid]; ok {
			continue
		}
		if p.Parent == p.Pid {
			breakers = append(breakers, p.Pid)
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(p.Parent), simple.Node(p.Pid)))
	}

	for _, component := range topo.TarjanSCC(g) {
		if len(component) < 2 {
			continue
		}
		lowest := component[0].ID()
		for _, n := range component[1:] {
			if n.ID() < lowest {
				lowest = n.ID()
			}
		}
		logrus.WithField("pid", lowest).Warningln("parent cycle detected, promote to root")
		breakers = append(breakers, int32(lowest))
	}
	sort.Slice(breakers, func(i, j int) bool { return breakers[i] < breakers[j] })
	return breakers
}

// CountNodes returns the number of nodes in the forest.
func CountNodes(forest []*ProcessTreeNode) int {
	count := 0
	for _, root := range forest {
		root.Walk(func(*ProcessTreeNode) { count++ })
	}
	return count
}

// FindNode looks pid up in the forest.
func FindNode(forest []*ProcessTreeNode, pid int32) *ProcessTreeNode {
	var found *ProcessTreeNode
	for _, root := range forest {
		root.Walk(func(n *ProcessTreeNode) {
			if found == nil && n.Pid() == pid {
				found = n
			}
		})
		if found != nil {
			break
		}
	}
	return found
}
