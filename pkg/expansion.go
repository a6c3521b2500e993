package pkg

import (
	"sort"

	sets "github.com/deckarep/golang-set"
)

// ExpansionStore remembers which process subtrees are shown. Entries are
// keyed by pid only, so they survive snapshot refreshes. A missing entry
// means collapsed.
type ExpansionStore struct {
	expanded map[int32]bool
}

func NewExpansionStore() *ExpansionStore {
	return &ExpansionStore{
		expanded: map[int32]bool{},
	}
}

// Toggle flips the flag of pid and returns the new value. The first toggle
// expands; collapsing drops the entry, since absent already reads as collapsed.
func (s *ExpansionStore) Toggle(pid int32) bool {
	if s.expanded[pid] {
		delete(s.expanded, pid)
		return false
	}
	s.expanded[pid] = true
	return true
}

func (s *ExpansionStore) IsExpanded(pid int32) bool {
	return s.expanded[pid]
}

// Prune drops entries whose pid is not in present and returns how many were removed.
func (s *ExpansionStore) Prune(present []int32) int {
	alive := sets.NewThreadUnsafeSet()
	for _, pid := range present {
		alive.Add(pid)
	}
	removed := 0
	for pid := range s.expanded {
		if !alive.Contains(pid) {
			delete(s.expanded, pid)
			removed++
		}
	}
	return removed
}

// Expanded lists the expanded pids in ascending order.
func (s *ExpansionStore) Expanded() []int32 {
	var pids []int32
	for pid := range s.expanded {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

func (s *ExpansionStore) Len() int {
	return len(s.expanded)
}
