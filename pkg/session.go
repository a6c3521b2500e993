package pkg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type CommandKind int

const (
	CmdRefresh CommandKind = iota
	CmdToggle
	CmdExpandAll
	CmdKill
	CmdMemory
	CmdClose
	CmdQuit
)

type Command struct {
	Kind CommandKind
	Pid  int32
}

// ParseCommand reads one operator line:
//
//	r        refresh
//	t <pid>  toggle subtree
//	e        expand all
//	k <pid>  terminate
//	m <pid>  show memory map
//	c        close memory map
//	q        quit
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrInvalidInput)
	}

	simple := map[string]CommandKind{"r": CmdRefresh, "e": CmdExpandAll, "c": CmdClose, "q": CmdQuit}
	withPid := map[string]CommandKind{"t": CmdToggle, "k": CmdKill, "m": CmdMemory}

	name := strings.ToLower(fields[0])
	if kind, ok := simple[name]; ok {
		return Command{Kind: kind}, nil
	}
	kind, ok := withPid[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrInvalidInput, fields[0])
	}
	if len(fields) != 2 {
		return Command{}, fmt.Errorf("%w: %s needs one pid", ErrInvalidInput, name)
	}
	pid, err := ParsePid(fields[1])
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: kind, Pid: pid}, nil
}

// ParsePid parses a non-negative decimal pid.
func ParsePid(s string) (int32, error) {
	pid, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || pid < 0 {
		return 0, fmt.Errorf("%w: invalid pid %q", ErrInvalidInput, s)
	}
	return int32(pid), nil
}

type result interface {
	apply(s *Session)
}

type snapshotResult struct {
	seq      uint64
	snapshot *Snapshot
	err      error
}

func (r snapshotResult) apply(s *Session) {
	if r.err != nil {
		s.dash.SetStatus("refresh failed: %v", r.err)
		return
	}
	if !s.dash.ApplySnapshotSeq(r.seq, r.snapshot) {
		return
	}
	s.dash.SetStatus("refreshed at %s", r.snapshot.TakenAt.Format(time.TimeOnly))
}

type memoryResult struct {
	req    MemoryRequest
	memory *MemoryMap
	err    error
}

func (r memoryResult) apply(s *Session) {
	applied, err := s.dash.ApplyMemory(r.req, r.memory, r.err)
	if err != nil {
		s.dash.SetStatus("memory map of pid %d failed: %v", r.req.Pid, err)
		return
	}
	if applied {
		s.dash.SetStatus("memory map of pid %d loaded", r.req.Pid)
	}
}

type terminateResult struct {
	pid int32
	err error
	// snapshot is taken right after a successful terminate, nil if that failed.
	snapshot    *Snapshot
	snapshotSeq uint64
}

func (r terminateResult) apply(s *Session) {
	if r.err != nil {
		s.dash.SetStatus("terminate pid %d failed: %v", r.pid, r.err)
		return
	}
	if r.snapshot != nil {
		s.dash.ApplySnapshotSeq(r.snapshotSeq, r.snapshot)
	}
	s.dash.SetStatus("terminated pid %d", r.pid)
}

// Session drives a Dashboard from operator commands, periodic refreshes and
// gateway answers. Gateway calls run in their own goroutines and report back
// through one channel, so the dashboard is only touched by the Run loop.
type Session struct {
	dash     *Dashboard
	gateway  Gateway
	timeout  time.Duration
	interval time.Duration

	// OnChange is called from the Run loop after every state change.
	OnChange func(d *Dashboard)

	results      chan result
	inflight     sync.WaitGroup
	cancelMemory context.CancelFunc
	// snapshotSeq tags snapshot fetches in the order they start.
	snapshotSeq atomic.Uint64
}

func NewSession(dash *Dashboard, gateway Gateway, cfg *Config) *Session {
	return &Session{
		dash:     dash,
		gateway:  gateway,
		timeout:  cfg.RequestTimeout,
		interval: cfg.RefreshInterval,
		results:  make(chan result, 16),
	}
}

func (s *Session) Dashboard() *Dashboard {
	return s.dash
}

// Run processes commands until ctx ends, CmdQuit arrives or commands is
// closed. On a command-driven exit it waits for in-flight calls and applies
// their answers before returning.
func (s *Session) Run(ctx context.Context, commands <-chan Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refresh(ctx)

	var drained chan struct{}
	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			return ctx.Err()
		case <-drained:
			for {
				select {
				case r := <-s.results:
					r.apply(s)
					s.changed()
				default:
					s.stopMemory()
					return nil
				}
			}
		case <-ticker.C:
			if drained == nil {
				s.refresh(ctx)
			}
		case cmd, ok := <-commands:
			if !ok || cmd.Kind == CmdQuit {
				commands = nil
				drained = s.drain()
				continue
			}
			s.handle(ctx, cmd)
			s.changed()
		case r := <-s.results:
			r.apply(s)
			s.changed()
		}
	}
}

func (s *Session) handle(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CmdRefresh:
		s.refresh(ctx)
	case CmdToggle:
		if _, err := s.dash.Toggle(cmd.Pid); err != nil {
			s.dash.SetStatus("toggle: %v", err)
		}
	case CmdExpandAll:
		s.dash.ExpandAll()
	case CmdKill:
		s.terminate(ctx, cmd.Pid)
	case CmdMemory:
		s.fetchMemory(ctx, cmd.Pid)
	case CmdClose:
		s.stopMemory()
		s.dash.ClearSelection()
	}
}

func (s *Session) refresh(ctx context.Context) {
	s.spawn(ctx, func(callCtx context.Context) result {
		seq := s.snapshotSeq.Add(1)
		snapshot, err := s.gateway.FetchSnapshot(callCtx)
		return snapshotResult{seq: seq, snapshot: snapshot, err: err}
	})
}

func (s *Session) terminate(ctx context.Context, pid int32) {
	logrus.WithField("pid", pid).Infoln("request terminate")
	s.spawn(ctx, func(callCtx context.Context) result {
		if err := s.gateway.Terminate(callCtx, pid); err != nil {
			return terminateResult{pid: pid, err: err}
		}
		// the row stays until a snapshot shows the process gone
		seq := s.snapshotSeq.Add(1)
		snapshot, err := s.gateway.FetchSnapshot(callCtx)
		if err != nil {
			logrus.WithError(err).Warningln("refresh after terminate failed")
		}
		return terminateResult{pid: pid, snapshot: snapshot, snapshotSeq: seq}
	})
}

// fetchMemory selects pid and cancels the previous memory fetch, whose answer
// would be dropped anyway.
func (s *Session) fetchMemory(ctx context.Context, pid int32) {
	s.stopMemory()
	req := s.dash.Select(pid)

	memCtx, cancel := context.WithCancel(ctx)
	s.cancelMemory = cancel
	s.spawn(memCtx, func(callCtx context.Context) result {
		memory, err := s.gateway.FetchMemoryMap(callCtx, req.Pid)
		return memoryResult{req: req, memory: memory, err: err}
	})
}

func (s *Session) stopMemory() {
	if s.cancelMemory != nil {
		s.cancelMemory()
		s.cancelMemory = nil
	}
}

// spawn runs call under the request timeout and posts its result back to Run.
func (s *Session) spawn(ctx context.Context, call func(ctx context.Context) result) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		r := call(callCtx)
		select {
		case s.results <- r:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) drain() chan struct{} {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	return done
}

func (s *Session) changed() {
	if s.OnChange != nil {
		s.OnChange(s.dash)
	}
}
