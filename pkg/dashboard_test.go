package pkg

import (
	"errors"
	"testing"
)

func sampleSnapshot() *Snapshot {
	snapshot := NewSnapshot()
	snapshot.Memory = SystemMemory{Total: 1000, Free: 600, Used: 400}
	snapshot.Processes = []Process{
		{Pid: 1, Name: "init", User: "root", State: "sleep", Resident: 100, Parent: 0},
		{Pid: 2, Name: "sshd", User: "root", State: "sleep", Resident: 50, Parent: 1},
		{Pid: 3, Name: "bash", User: "dev", State: "running", Resident: 25, Parent: 2},
	}
	snapshot.CountStates()
	return snapshot
}

func sampleMemory() *MemoryMap {
	return &MemoryMap{
		TotalResident: 3,
		TotalSize:     10,
		Blocks: []MemoryRegion{
			{InitialAddress: "0x10", FinalAddress: "0x20", Resident: 1, Size: 4},
			{InitialAddress: "0x30", FinalAddress: "0x40", Resident: 2, Size: 6},
		},
	}
}

func TestDashboardApplySnapshotPrunesExpansion(t *testing.T) {
	d := NewDashboard()
	d.ApplySnapshot(sampleSnapshot())
	if _, err := d.Toggle(2); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	next := sampleSnapshot()
	next.Processes = next.Processes[:1]
	d.ApplySnapshot(next)
	if d.Expansion().IsExpanded(2) {
		t.Fatalf("expansion of a vanished pid should be pruned")
	}
	if CountNodes(d.Forest()) != 1 {
		t.Fatalf("expected 1 node, got %d", CountNodes(d.Forest()))
	}
}

func TestDashboardToggle(t *testing.T) {
	d := NewDashboard()
	d.ApplySnapshot(sampleSnapshot())

	if _, err := d.Toggle(3); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("leaf toggle should be invalid, got %v", err)
	}
	if _, err := d.Toggle(99); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown pid toggle should be invalid, got %v", err)
	}
	expanded, err := d.Toggle(1)
	if err != nil || !expanded {
		t.Fatalf("expected pid 1 expanded, got %v %v", expanded, err)
	}
	if got := rowPids(d.Rows()); !equalPids(got, []int32{1, 2}) {
		t.Fatalf("expected [1 2], got %v", got)
	}

	d.ExpandAll()
	if got := rowPids(d.Rows()); !equalPids(got, []int32{1, 2, 3}) {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
}

func TestDashboardApplyMemory(t *testing.T) {
	d := NewDashboard()
	d.ApplySnapshot(sampleSnapshot())

	req := d.Select(1)
	applied, err := d.ApplyMemory(req, sampleMemory(), nil)
	if err != nil || !applied {
		t.Fatalf("expected memory applied, got %v %v", applied, err)
	}
	view := d.Memory()
	if view.Pid != 1 || view.Summary.RangeStart != "0x10" || view.Summary.RangeEnd != "0x40" {
		t.Fatalf("unexpected view %+v", view)
	}
	if !view.HasPercent || view.Percent != 10 {
		t.Fatalf("expected 10%% usage, got %v", view.Percent)
	}
}

func TestDashboardDropsStaleMemory(t *testing.T) {
	d := NewDashboard()
	d.ApplySnapshot(sampleSnapshot())

	first := d.Select(1)
	second := d.Select(2)

	applied, err := d.ApplyMemory(first, sampleMemory(), nil)
	if err != nil || applied {
		t.Fatalf("answer for pid 1 should be dropped, got %v %v", applied, err)
	}
	if d.Memory() != nil {
		t.Fatalf("stale answer must not be shown")
	}

	if applied, _ := d.ApplyMemory(second, sampleMemory(), nil); !applied {
		t.Fatalf("latest answer should be applied")
	}
	if d.Memory().Pid != 2 {
		t.Fatalf("expected pid 2 view, got %d", d.Memory().Pid)
	}

	// reselecting the same pid still invalidates the older request
	again := d.Select(2)
	if applied, _ := d.ApplyMemory(second, sampleMemory(), nil); applied {
		t.Fatalf("older request for the same pid should be dropped")
	}
	if applied, _ := d.ApplyMemory(again, sampleMemory(), nil); !applied {
		t.Fatalf("latest request should be applied")
	}

	d.ClearSelection()
	if applied, _ := d.ApplyMemory(again, sampleMemory(), nil); applied {
		t.Fatalf("answer after close should be dropped")
	}
	if _, ok := d.Selected(); ok {
		t.Fatalf("expected no selection")
	}
}

func TestDashboardMemoryFailureKeepsView(t *testing.T) {
	d := NewDashboard()
	d.ApplySnapshot(sampleSnapshot())

	req := d.Select(1)
	d.ApplyMemory(req, sampleMemory(), nil)

	req = d.Select(1)
	failure := &GatewayError{Op: "fetch memory map", Pid: 1, Kind: ErrBackend}
	if _, err := d.ApplyMemory(req, nil, failure); !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	if d.Memory() == nil || d.Memory().Pid != 1 {
		t.Fatalf("failed fetch should keep the previous view")
	}

	req = d.Select(1)
	if _, err := d.ApplyMemory(req, nil, nil); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestDashboardMemoryWithoutTotal(t *testing.T) {
	d := NewDashboard()
	snapshot := sampleSnapshot()
	snapshot.Memory.Total = 0
	d.ApplySnapshot(snapshot)

	req := d.Select(1)
	if applied, err := d.ApplyMemory(req, sampleMemory(), nil); !applied || err != nil {
		t.Fatalf("expected view without percent, got %v %v", applied, err)
	}
	if d.Memory().HasPercent {
		t.Fatalf("percent should be unavailable when total memory is zero")
	}
}

func TestDashboardExpansionSurvivesRefresh(t *testing.T) {
	d := NewDashboard()
	d.ApplySnapshot(sampleSnapshot())
	d.Toggle(1)
	d.Toggle(2)

	next := sampleSnapshot()
	next.Processes = append(next.Processes, Process{Pid: 8, Name: "new", Parent: 1})
	d.ApplySnapshot(next)

	if !d.Expansion().IsExpanded(1) || !d.Expansion().IsExpanded(2) {
		t.Fatalf("expansion of pids still present should survive a refresh, got %v", d.Expansion().Expanded())
	}
	if got := rowPids(d.Rows()); !equalPids(got, []int32{1, 2, 3, 8}) {
		t.Fatalf("expected [1 2 3 8], got %v", got)
	}
}

func TestDashboardApplySnapshotSeq(t *testing.T) {
	d := NewDashboard()
	newer := sampleSnapshot()
	newer.Processes = newer.Processes[:2]

	if !d.ApplySnapshotSeq(2, newer) {
		t.Fatalf("first tagged snapshot should be applied")
	}
	if d.ApplySnapshotSeq(1, sampleSnapshot()) {
		t.Fatalf("snapshot from an older fetch should be dropped")
	}
	if _, ok := d.Snapshot().Process(3); ok {
		t.Fatalf("older snapshot must not replace the newer one")
	}
	if d.ApplySnapshotSeq(2, sampleSnapshot()) {
		t.Fatalf("same tag should not be applied twice")
	}
	if !d.ApplySnapshotSeq(3, sampleSnapshot()) {
		t.Fatalf("newer fetch should be applied")
	}
	if d.ApplySnapshotSeq(4, nil) {
		t.Fatalf("nil snapshot should be ignored")
	}
}
