package pkg

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// TableRender prints the dashboard as plain text tables.
type TableRender struct {
	// Width cuts every line to this many runes, 0 keeps full lines.
	Width int
	// ChartWidth is the length of the longest memory bar.
	ChartWidth int
}

func NewTableRender(width int) *TableRender {
	return &TableRender{Width: width, ChartWidth: 40}
}

// Write prints the status line, the visible process rows and, when a
// process is selected, its memory view.
func (r *TableRender) Write(w io.Writer, d *Dashboard) error {
	var buf bytes.Buffer
	snapshot := d.Snapshot()
	fmt.Fprintf(&buf, "Processes: %d total, %d running, %d sleeping, %d stopped, %d zombie | CPUs: %d | RAM: %s / %s\n",
		snapshot.Counters.Total, snapshot.Counters.Running, snapshot.Counters.Sleeping,
		snapshot.Counters.Stopped, snapshot.Counters.Zombie, snapshot.CPUs,
		formatBytes(snapshot.Memory.Used), formatBytes(snapshot.Memory.Total))
	if status := d.Status(); status != "" {
		fmt.Fprintf(&buf, "[%s]\n", status)
	}
	buf.WriteString("\n")

	r.writeRows(&buf, d.Rows(), snapshot.Memory.Total)

	if view := d.Memory(); view != nil {
		buf.WriteString("\n")
		r.writeMemory(&buf, view)
	}
	_, err := w.Write(r.cut(buf.Bytes()))
	return err
}

// WriteTree prints only the visible process rows.
func (r *TableRender) WriteTree(w io.Writer, rows []VisibleRow, totalMemory uint64) error {
	var buf bytes.Buffer
	r.writeRows(&buf, rows, totalMemory)
	_, err := w.Write(r.cut(buf.Bytes()))
	return err
}

// WriteMemory prints one memory view.
func (r *TableRender) WriteMemory(w io.Writer, view *MemoryView) error {
	var buf bytes.Buffer
	r.writeMemory(&buf, view)
	_, err := w.Write(r.cut(buf.Bytes()))
	return err
}

func (r *TableRender) writeRows(buf *bytes.Buffer, rows []VisibleRow, totalMemory uint64) {
	if len(rows) == 0 {
		buf.WriteString("No processes in snapshot\n")
		return
	}
	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNAME\tUSER\tSTATE\tRAM(%)\tPARENT")
	for _, row := range rows {
		p := row.Node.Process
		pid := strconv.Itoa(int(p.Pid))
		if row.Depth == 0 && row.Node.Orphan {
			pid += "*"
		}
		percent := "-"
		if value, err := EstimateUsagePercent(p.Resident, totalMemory); err == nil {
			percent = strconv.FormatFloat(value, 'f', 2, 64)
		}
		fmt.Fprintf(tw, "%s\t%s%s %s\t%s\t%s\t%s\t%d\n",
			pid, strings.Repeat("  ", row.Depth), toggleMarker(row), p.Name, p.User, p.State, percent, p.Parent)
	}
	tw.Flush()
}

func toggleMarker(row VisibleRow) string {
	switch {
	case !row.HasToggle:
		return "   "
	case row.Expanded:
		return "[-]"
	default:
		return "[+]"
	}
}

func (r *TableRender) writeMemory(buf *bytes.Buffer, view *MemoryView) {
	summary := view.Summary
	fmt.Fprintf(buf, "Memory map of pid %d\n", view.Pid)
	fmt.Fprintf(buf, "  Resident: %.3f MB\n", summary.TotalResident)
	fmt.Fprintf(buf, "  Virtual:  %.3f MB\n", summary.TotalMapped)
	if view.HasPercent {
		fmt.Fprintf(buf, "  Usage:    %.2f %%\n", view.Percent)
	} else {
		buf.WriteString("  Usage:    -\n")
	}
	start, end := summary.RangeStart, summary.RangeEnd
	if start == "" {
		start = "unknown"
	}
	if end == "" {
		end = "unknown"
	}
	fmt.Fprintf(buf, "  Range:    %s - %s\n\n", start, end)

	rssBar, sizeBar := r.bars(summary.TotalResident, summary.TotalMapped)
	fmt.Fprintf(buf, "  vmRSS  |%s\n", rssBar)
	fmt.Fprintf(buf, "  vmSize |%s\n\n", sizeBar)

	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tFILE\tSTART\tEND\tPERMISSIONS\tRSS(MB)\tSIZE(MB)")
	for _, region := range view.Regions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.3f\t%.3f\n",
			blank(region.Device), blank(region.File), blank(region.InitialAddress), blank(region.FinalAddress),
			blank(strings.Join(region.Permissions, " - ")), region.Resident, region.Size)
	}
	tw.Flush()
}

// bars scales resident and mapped sizes against the larger of the two.
func (r *TableRender) bars(resident, mapped float64) (string, string) {
	peak := resident
	if mapped > peak {
		peak = mapped
	}
	if peak <= 0 || r.ChartWidth <= 0 {
		return "", ""
	}
	scale := func(v float64) string {
		return strings.Repeat("#", int(v/peak*float64(r.ChartWidth)))
	}
	return scale(resident), scale(mapped)
}

func (r *TableRender) cut(data []byte) []byte {
	if r.Width <= 0 {
		return data
	}
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		runes := []rune(line)
		if len(runes) > r.Width {
			lines[i] = string(runes[:r.Width])
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

func blank(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
