package pkg

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type SystemMemory struct {
	Total uint64 `json:"total"`
	Free  uint64 `json:"free"`
	Used  uint64 `json:"used"`
}

type StateCounters struct {
	Running  int `json:"running"`
	Sleeping int `json:"sleeping"`
	Stopped  int `json:"stopped"`
	Zombie   int `json:"zombie"`
	Total    int `json:"total"`
}

// Snapshot is one refresh of the host as reported by the inspector.
type Snapshot struct {
	Memory    SystemMemory  `json:"memory"`
	CPUs      int           `json:"cpus"`
	Counters  StateCounters `json:"counters"`
	Processes []Process     `json:"processes"`
	TakenAt   time.Time     `json:"taken_at"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Processes: []Process{},
		TakenAt:   time.Now(),
	}
}

// CountStates fills Counters from the process states.
func (s *Snapshot) CountStates() {
	c := StateCounters{Total: len(s.Processes)}
	for _, p := range s.Processes {
		switch p.State {
		case "running":
			c.Running++
		case "sleep", "sleeping", "idle", "wait":
			c.Sleeping++
		case "stop", "stopped":
			c.Stopped++
		case "zombie":
			c.Zombie++
		}
	}
	s.Counters = c
}

func (s *Snapshot) Pids() []int32 {
	pids := make([]int32, 0, len(s.Processes))
	for _, p := range s.Processes {
		pids = append(pids, p.Pid)
	}
	return pids
}

func (s *Snapshot) Process(pid int32) (Process, bool) {
	for _, p := range s.Processes {
		if p.Pid == pid {
			return p, true
		}
	}
	return Process{}, false
}

// UsagePercent is the memory share of pid against the snapshot total.
func (s *Snapshot) UsagePercent(pid int32) (float64, error) {
	p, ok := s.Process(pid)
	if !ok {
		return 0, fmt.Errorf("%w: pid %d not in snapshot", ErrInvalidInput, pid)
	}
	return EstimateUsagePercent(p.Resident, s.Memory.Total)
}

func (s *Snapshot) Dump() ([]byte, error) {
	return json.Marshal(s)
}

// DumpFile writes the snapshot as JSON. An empty path gets a timestamped name.
func (s *Snapshot) DumpFile(path string) (string, error) {
	if path == "" {
		now := time.Now()
		path = fmt.Sprintf("snapshot-%s-%02d%02d%02d.json", now.Format("2006-01-02"), now.Hour(), now.Minute(), now.Second())
	}
	logrus.WithField("path", path).Infoln("dump snapshot")
	data, err := s.Dump()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snapshot := NewSnapshot()
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snapshot, nil
}
