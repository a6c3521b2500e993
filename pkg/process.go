package pkg

// RootParent is the parent pid reserved for "no parent".
const RootParent int32 = 0

type Process struct {
	Pid      int32  `json:"pid"`
	Name     string `json:"name"`
	User     string `json:"user"`
	State    string `json:"state"`
	Resident uint64 `json:"ram"`
	Parent   int32  `json:"parent"`
}

// ProcessTreeNode wraps one process and the nodes whose parent it is.
type ProcessTreeNode struct {
	Process  Process
	Children []*ProcessTreeNode
	Depth    int
	// Orphan marks a root promoted because its parent link was broken or cyclic.
	Orphan bool
}

func (n *ProcessTreeNode) Pid() int32 {
	return n.Process.Pid
}

func (n *ProcessTreeNode) HasChildren() bool {
	return len(n.Children) > 0
}

// Walk visits n and all its descendants in pre-order.
func (n *ProcessTreeNode) Walk(fn func(node *ProcessTreeNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
