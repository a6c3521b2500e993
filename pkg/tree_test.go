package pkg

import (
	"testing"
)

func pidsOf(nodes []*ProcessTreeNode) []int32 {
	var pids []int32
	for _, n := range nodes {
		pids = append(pids, n.Pid())
	}
	return pids
}

func equalPids(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildProcessTreePromotesOrphans(t *testing.T) {
	forest := BuildProcessTree([]Process{
		{Pid: 1, Name: "init", Parent: 0},
		{Pid: 2, Name: "sshd", Parent: 1},
		{Pid: 3, Name: "lost", Parent: 99},
	})

	if got := pidsOf(forest); !equalPids(got, []int32{1, 3}) {
		t.Fatalf("expected roots [1 3], got %v", got)
	}
	if forest[0].Orphan {
		t.Fatalf("pid 1 has parent 0 and must not be marked orphan")
	}
	if !forest[1].Orphan {
		t.Fatalf("pid 3 should be marked orphan")
	}
	if got := pidsOf(forest[0].Children); !equalPids(got, []int32{2}) {
		t.Fatalf("expected pid 1 children [2], got %v", got)
	}
	if forest[0].Children[0].Depth != 1 {
		t.Fatalf("expected depth 1, got %d", forest[0].Children[0].Depth)
	}
	if forest[1].HasChildren() {
		t.Fatalf("pid 3 should be a leaf")
	}
}

func TestBuildProcessTreeKeepsPidZeroAsRoot(t *testing.T) {
	forest := BuildProcessTree([]Process{
		{Pid: 0, Name: "idle", Parent: 0},
		{Pid: 1, Name: "init", Parent: 0},
		{Pid: 4, Name: "worker", Parent: 1},
	})
	if got := pidsOf(forest); !equalPids(got, []int32{0, 1}) {
		t.Fatalf("expected roots [0 1], got %v", got)
	}
	if forest[0].HasChildren() {
		t.Fatalf("parent 0 is reserved, pid 0 must not adopt children")
	}
	if CountNodes(forest) != 3 {
		t.Fatalf("expected 3 nodes, got %d", CountNodes(forest))
	}
}

func TestBuildProcessTreeIsComplete(t *testing.T) {
	processes := []Process{
		{Pid: 1, Parent: 0},
		{Pid: 10, Parent: 1},
		{Pid: 11, Parent: 1},
		{Pid: 12, Parent: 10},
		{Pid: 13, Parent: 12},
		{Pid: 20, Parent: 7},
		{Pid: 21, Parent: 20},
	}
	forest := BuildProcessTree(processes)

	if CountNodes(forest) != len(processes) {
		t.Fatalf("expected %d nodes, got %d", len(processes), CountNodes(forest))
	}
	for _, p := range processes {
		node := FindNode(forest, p.Pid)
		if node == nil {
			t.Fatalf("pid %d missing from tree", p.Pid)
		}
		for _, c := range node.Children {
			if c.Process.Parent != p.Pid {
				t.Fatalf("pid %d listed under %d but parent is %d", c.Pid(), p.Pid, c.Process.Parent)
			}
			if c.Depth != node.Depth+1 {
				t.Fatalf("pid %d depth %d under depth %d", c.Pid(), c.Depth, node.Depth)
			}
		}
	}
	if got := pidsOf(FindNode(forest, 1).Children); !equalPids(got, []int32{10, 11}) {
		t.Fatalf("children should keep input order, got %v", got)
	}
}

func TestBuildProcessTreeBreaksCycles(t *testing.T) {
	forest := BuildProcessTree([]Process{
		{Pid: 3, Parent: 0},
		{Pid: 7, Parent: 5},
		{Pid: 5, Parent: 7},
		{Pid: 8, Parent: 5},
		{Pid: 9, Parent: 9},
	})

	if CountNodes(forest) != 5 {
		t.Fatalf("expected every process once, got %d nodes", CountNodes(forest))
	}
	if got := pidsOf(forest); !equalPids(got, []int32{3, 5, 9}) {
		t.Fatalf("expected roots [3 5 9], got %v", got)
	}
	five := FindNode(forest, 5)
	if !five.Orphan || five.Depth != 0 {
		t.Fatalf("lowest cycle member should be a promoted root: %+v", five)
	}
	if got := pidsOf(five.Children); !equalPids(got, []int32{7, 8}) {
		t.Fatalf("expected pid 5 children [7 8], got %v", got)
	}
	if nine := FindNode(forest, 9); !nine.Orphan || nine.HasChildren() {
		t.Fatalf("self parented pid should be a childless orphan root: %+v", nine)
	}
}

func TestBuildProcessTreeDropsDuplicates(t *testing.T) {
	forest := BuildProcessTree([]Process{
		{Pid: 1, Name: "first", Parent: 0},
		{Pid: 2, Parent: 1},
		{Pid: 1, Name: "second", Parent: 0},
	})
	if CountNodes(forest) != 2 {
		t.Fatalf("expected 2 nodes, got %d", CountNodes(forest))
	}
	if forest[0].Process.Name != "first" {
		t.Fatalf("expected first occurrence kept, got %q", forest[0].Process.Name)
	}
}

func TestBuildProcessTreeEmpty(t *testing.T) {
	if forest := BuildProcessTree(nil); len(forest) != 0 {
		t.Fatalf("expected empty forest, got %d roots", len(forest))
	}
	if FindNode(nil, 1) != nil {
		t.Fatalf("expected no node in empty forest")
	}
}
