package pkg

// MemoryRegion is one mapping of a process address space. Sizes are in MB.
// An empty address means the bound is unknown.
type MemoryRegion struct {
	Device         string   `json:"device"`
	File           string   `json:"file"`
	InitialAddress string   `json:"initial_address"`
	FinalAddress   string   `json:"final_address"`
	Permissions    []string `json:"permissions"`
	Resident       float64  `json:"rss"`
	Size           float64  `json:"size"`
}

// MemoryMap is the payload served for one process by the inspector.
type MemoryMap struct {
	TotalResident float64        `json:"total_rss"`
	TotalSize     float64        `json:"total_size"`
	Blocks        []MemoryRegion `json:"blocks"`
}

type MemorySummary struct {
	TotalResident float64
	TotalMapped   float64
	// RangeStart and RangeEnd are empty when no region carries the bound.
	RangeStart string
	RangeEnd   string
}

// HasRange reports whether both address bounds are known.
func (s MemorySummary) HasRange() bool {
	return s.RangeStart != "" && s.RangeEnd != ""
}

// AggregateMemory sums region sizes and picks the address span: the first
// non-empty initial address and the last non-empty final address. Regions
// without addresses still count towards the totals.
func AggregateMemory(regions []MemoryRegion) MemorySummary {
	var summary MemorySummary
	for _, r := range regions {
		summary.TotalResident += r.Resident
		summary.TotalMapped += r.Size
		if summary.RangeStart == "" && r.InitialAddress != "" {
			summary.RangeStart = r.InitialAddress
		}
	}
	for i := len(regions) - 1; i >= 0; i-- {
		if regions[i].FinalAddress != "" {
			summary.RangeEnd = regions[i].FinalAddress
			break
		}
	}
	return summary
}
