package pkg

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Gateway is the inspector as seen by the dashboard. *Client implements it.
type Gateway interface {
	Terminate(ctx context.Context, pid int32) error
	FetchMemoryMap(ctx context.Context, pid int32) (*MemoryMap, error)
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// MemoryRequest tags one memory map fetch with the pid it was issued for and
// a sequence number, so late answers can be recognised and dropped.
type MemoryRequest struct {
	Pid int32
	Seq uint64
}

type MemoryView struct {
	Pid     int32
	Summary MemorySummary
	Regions []MemoryRegion
	// Percent is valid only when HasPercent is set.
	Percent    float64
	HasPercent bool
}

// Dashboard owns all mutable view state: the current snapshot and its tree,
// the expansion flags, the selected process and the last memory view. It is
// not safe for concurrent use; a Session serialises access to it.
type Dashboard struct {
	expansion *ExpansionStore
	snapshot  *Snapshot
	forest    []*ProcessTreeNode
	// snapshotSeq is the tag of the newest applied snapshot fetch.
	snapshotSeq uint64

	selected    int32
	hasSelected bool
	seq         uint64
	memory      *MemoryView

	status string
}

func NewDashboard() *Dashboard {
	return &Dashboard{
		expansion: NewExpansionStore(),
		snapshot:  NewSnapshot(),
	}
}

// ApplySnapshot replaces the process list, rebuilds the tree and forgets
// expansion flags of processes that are gone.
func (d *Dashboard) ApplySnapshot(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}
	d.snapshot = snapshot
	d.forest = BuildProcessTree(snapshot.Processes)
	if removed := d.expansion.Prune(snapshot.Pids()); removed > 0 {
		logrus.WithField("removed", removed).Debugln("pruned stale expansion flags")
	}
}

// ApplySnapshotSeq applies a snapshot whose fetch was tagged with seq. It
// reports false and keeps the current snapshot when a fetch started later
// has already been applied.
func (d *Dashboard) ApplySnapshotSeq(seq uint64, snapshot *Snapshot) bool {
	if snapshot == nil {
		return false
	}
	if seq <= d.snapshotSeq {
		logrus.WithFields(logrus.Fields{"seq": seq, "applied": d.snapshotSeq}).Debugln("drop stale snapshot")
		return false
	}
	d.snapshotSeq = seq
	d.ApplySnapshot(snapshot)
	return true
}

func (d *Dashboard) Snapshot() *Snapshot {
	return d.snapshot
}

func (d *Dashboard) Forest() []*ProcessTreeNode {
	return d.forest
}

func (d *Dashboard) Expansion() *ExpansionStore {
	return d.expansion
}

// Rows returns the rows currently visible under the expansion flags.
func (d *Dashboard) Rows() []VisibleRow {
	return VisibleRows(d.forest, d.expansion)
}

// Toggle expands or collapses pid. Only processes with children can be toggled.
func (d *Dashboard) Toggle(pid int32) (bool, error) {
	node := FindNode(d.forest, pid)
	if node == nil {
		return false, fmt.Errorf("%w: pid %d not in the process tree", ErrInvalidInput, pid)
	}
	if !node.HasChildren() {
		return false, fmt.Errorf("%w: pid %d has no children", ErrInvalidInput, pid)
	}
	return d.expansion.Toggle(pid), nil
}

// ExpandAll expands every process that has children.
func (d *Dashboard) ExpandAll() {
	for _, root := range d.forest {
		root.Walk(func(n *ProcessTreeNode) {
			if n.HasChildren() && !d.expansion.IsExpanded(n.Pid()) {
				d.expansion.Toggle(n.Pid())
			}
		})
	}
}

// Select makes pid the current process and returns the tag its memory
// fetch must carry. Answers to earlier requests become stale.
func (d *Dashboard) Select(pid int32) MemoryRequest {
	d.seq++
	d.selected = pid
	d.hasSelected = true
	return MemoryRequest{Pid: pid, Seq: d.seq}
}

// ClearSelection closes the memory view.
func (d *Dashboard) ClearSelection() {
	d.seq++
	d.hasSelected = false
	d.memory = nil
}

func (d *Dashboard) Selected() (int32, bool) {
	return d.selected, d.hasSelected
}

// ApplyMemory stores the answer to req. It reports false without error when
// req is no longer the latest request for the selected process. A failed
// fetch leaves the previous view in place and returns the error.
func (d *Dashboard) ApplyMemory(req MemoryRequest, result *MemoryMap, err error) (bool, error) {
	if !d.hasSelected || req.Pid != d.selected || req.Seq != d.seq {
		logrus.WithFields(logrus.Fields{"pid": req.Pid, "seq": req.Seq}).Debugln("drop stale memory map")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, &GatewayError{Op: opMemory, Pid: req.Pid, Kind: ErrMalformedResponse}
	}

	view := &MemoryView{
		Pid:     req.Pid,
		Summary: AggregateMemory(result.Blocks),
		Regions: result.Blocks,
	}
	if percent, err := d.snapshot.UsagePercent(req.Pid); err == nil {
		view.Percent = percent
		view.HasPercent = true
	}
	d.memory = view
	return true, nil
}

// Memory is the last applied memory view, nil when none.
func (d *Dashboard) Memory() *MemoryView {
	return d.memory
}

func (d *Dashboard) SetStatus(format string, args ...interface{}) {
	d.status = fmt.Sprintf(format, args...)
}

func (d *Dashboard) Status() string {
	return d.status
}
