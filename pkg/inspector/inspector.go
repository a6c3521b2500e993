// Package inspector serves process snapshots, termination and memory maps of
// the local host over HTTP.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"

	"github.com/FFengIll/psdash/pkg"
)

// ErrNoProcess is returned for a pid that does not exist.
var ErrNoProcess = errors.New("no such process")

// Inspector is the data source behind the HTTP server.
type Inspector interface {
	Snapshot(ctx context.Context) (*pkg.Snapshot, error)
	Terminate(ctx context.Context, pid int32) error
	MemoryMap(ctx context.Context, pid int32) (*pkg.MemoryMap, error)
}

// HostInspector reads the local machine through gopsutil and /proc.
type HostInspector struct{}

func NewHostInspector() *HostInspector {
	return &HostInspector{}
}

func (h *HostInspector) Snapshot(ctx context.Context) (*pkg.Snapshot, error) {
	snapshot := pkg.NewSnapshot()
	log := logrus.WithField("at", snapshot.TakenAt.Format(time.RFC3339))

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		// the process may be gone by now
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		user, _ := p.UsernameWithContext(ctx)
		ppid, _ := p.PpidWithContext(ctx)

		state := ""
		if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
			state = status[0]
		}
		var rss uint64
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			rss = info.RSS
		}

		snapshot.Processes = append(snapshot.Processes, pkg.Process{
			Pid:      p.Pid,
			Name:     name,
			User:     user,
			State:    state,
			Resident: rss,
			Parent:   ppid,
		})
	}
	// skipped lookups would hide a cancelled walk
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	snapshot.CountStates()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory: %w", err)
	}
	snapshot.Memory = pkg.SystemMemory{
		Total: vm.Total,
		Free:  vm.Free,
		Used:  vm.Used,
	}
	if cpus, err := cpu.CountsWithContext(ctx, true); err == nil {
		snapshot.CPUs = cpus
	}

	log.WithField("processes", len(snapshot.Processes)).Debugln("take snapshot")
	return snapshot, nil
}

// Terminate sends SIGTERM to pid.
func (h *HostInspector) Terminate(ctx context.Context, pid int32) error {
	p, err := h.lookup(ctx, pid)
	if err != nil {
		return err
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	logrus.WithField("pid", pid).Infoln("process terminated")
	return nil
}

func (h *HostInspector) MemoryMap(ctx context.Context, pid int32) (*pkg.MemoryMap, error) {
	if _, err := h.lookup(ctx, pid); err != nil {
		return nil, err
	}
	return ReadSmaps(pid)
}

func (h *HostInspector) lookup(ctx context.Context, pid int32) (*process.Process, error) {
	exists, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("pid %d: %w", pid, ErrNoProcess)
	}
	return process.NewProcessWithContext(ctx, pid)
}
