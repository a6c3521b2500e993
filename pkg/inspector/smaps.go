package inspector

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FFengIll/psdash/pkg"
)

// procReadFile allows tests to stub reading /proc/PID/smaps.
var procReadFile = os.ReadFile

// ReadSmaps parses /proc/<pid>/smaps.
func ReadSmaps(pid int32) (*pkg.MemoryMap, error) {
	path := filepath.Join("/proc", strconv.Itoa(int(pid)), "smaps")
	data, err := procReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseSmaps(bytes.NewReader(data))
}

// ParseSmaps turns smaps text into memory regions. A region is emitted when
// its Rss line is read; sizes are converted from kB to MB.
func ParseSmaps(r io.Reader) (*pkg.MemoryMap, error) {
	result := &pkg.MemoryMap{Blocks: []pkg.MemoryRegion{}}
	var current *pkg.MemoryRegion

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if region, ok := parseMapping(fields); ok {
			current = &region
			continue
		}
		if current == nil {
			continue
		}
		switch fields[0] {
		case "Size:":
			current.Size = kbToMB(fields)
		case "Rss:":
			current.Resident = kbToMB(fields)
			result.Blocks = append(result.Blocks, *current)
			result.TotalSize += current.Size
			result.TotalResident += current.Resident
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// parseMapping reads a header line such as
// "7f2c1a000000-7f2c1a021000 rw-p 00000000 00:00 0  [heap]".
func parseMapping(fields []string) (pkg.MemoryRegion, bool) {
	if len(fields) < 5 || strings.HasSuffix(fields[0], ":") {
		return pkg.MemoryRegion{}, false
	}
	addresses := strings.Split(fields[0], "-")
	if len(addresses) != 2 || len(fields[1]) != 4 {
		return pkg.MemoryRegion{}, false
	}
	for _, a := range addresses {
		if _, err := strconv.ParseUint(a, 16, 64); err != nil {
			return pkg.MemoryRegion{}, false
		}
	}
	return pkg.MemoryRegion{
		InitialAddress: addresses[0],
		FinalAddress:   addresses[1],
		Permissions:    mapPermissions(fields[1]),
		Device:         fields[3],
		File:           strings.Join(fields[5:], " "),
	}, true
}

func mapPermissions(perms string) []string {
	mapped := []string{}
	if perms[0] == 'r' {
		mapped = append(mapped, "read")
	}
	if perms[1] == 'w' {
		mapped = append(mapped, "write")
	}
	if perms[2] == 'x' {
		mapped = append(mapped, "execute")
	}
	return mapped
}

func kbToMB(fields []string) float64 {
	if len(fields) < 2 {
		return 0
	}
	kb, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0
	}
	return kb / 1024
}
