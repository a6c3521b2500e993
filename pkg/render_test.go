package pkg

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableRenderMarkers(t *testing.T) {
	d := NewDashboard()
	snapshot := sampleSnapshot()
	snapshot.Processes = append(snapshot.Processes, Process{Pid: 77, Name: "stray", State: "sleep", Parent: 5000})
	snapshot.CountStates()
	d.ApplySnapshot(snapshot)
	d.Toggle(1)

	var buf bytes.Buffer
	if err := NewTableRender(0).Write(&buf, d); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[-] init", "[+] sshd", "77*", "4 total", "10.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "bash") {
		t.Fatalf("collapsed child should be hidden:\n%s", out)
	}
}

func TestTableRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableRender(0).Write(&buf, NewDashboard()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !strings.Contains(buf.String(), "No processes") {
		t.Fatalf("expected empty notice, got:\n%s", buf.String())
	}
}

func TestTableRenderMemoryUnknownRange(t *testing.T) {
	view := &MemoryView{
		Pid:     9,
		Summary: AggregateMemory([]MemoryRegion{{Resident: 1, Size: 2, Permissions: []string{"read", "write"}}}),
		Regions: []MemoryRegion{{Resident: 1, Size: 2, Permissions: []string{"read", "write"}}},
	}
	var buf bytes.Buffer
	if err := NewTableRender(0).WriteMemory(&buf, view); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	out := buf.String()
	for _, want := range []string{"unknown - unknown", "Usage:    -", "read - write", "1.000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTableRenderCutsWidth(t *testing.T) {
	d := NewDashboard()
	d.ApplySnapshot(sampleSnapshot())
	var buf bytes.Buffer
	if err := NewTableRender(20).Write(&buf, d); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		if len([]rune(line)) > 20 {
			t.Fatalf("line longer than 20 runes: %q", line)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		input    uint64
		expected string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.input); got != tc.expected {
			t.Fatalf("%d: expected %q, got %q", tc.input, tc.expected, got)
		}
	}
}
