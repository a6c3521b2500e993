package inspector

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"
)

const sampleSmaps = `55d4a3e00000-55d4a3e02000 r--p 00000000 08:01 1312  /usr/bin/cat
Size:                  8 kB
KernelPageSize:        4 kB
Rss:                   8 kB
Pss:                   8 kB
55d4a3e02000-55d4a3e07000 r-xp 00002000 08:01 1312  /usr/bin/cat
Size:                 20 kB
Rss:                  16 kB
7ffd2c5e1000-7ffd2c602000 rw-p 00000000 00:00 0  [stack]
Size:               1024 kB
Rss:                 512 kB
VmFlags: rd wr mr mw me gd ac
7f00aa000000-7f00aa001000 ---p 00000000 00:00 0
Size:                  4 kB
Rss:                   0 kB
`

func TestParseSmaps(t *testing.T) {
	memory, err := ParseSmaps(strings.NewReader(sampleSmaps))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(memory.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(memory.Blocks))
	}

	first := memory.Blocks[0]
	if first.InitialAddress != "55d4a3e00000" || first.FinalAddress != "55d4a3e02000" {
		t.Fatalf("unexpected addresses %+v", first)
	}
	if first.Device != "08:01" || first.File != "/usr/bin/cat" {
		t.Fatalf("unexpected device or file %+v", first)
	}
	if math.Abs(first.Size-8.0/1024) > 1e-9 || math.Abs(first.Resident-8.0/1024) > 1e-9 {
		t.Fatalf("unexpected sizes %+v", first)
	}

	if got := strings.Join(memory.Blocks[1].Permissions, ","); got != "read,execute" {
		t.Fatalf("unexpected permissions %q", got)
	}
	if got := strings.Join(memory.Blocks[2].Permissions, ","); got != "read,write" {
		t.Fatalf("unexpected permissions %q", got)
	}
	if memory.Blocks[2].File != "[stack]" {
		t.Fatalf("unexpected file %q", memory.Blocks[2].File)
	}
	if perms := memory.Blocks[3].Permissions; perms == nil || len(perms) != 0 {
		t.Fatalf("expected empty permissions, got %#v", perms)
	}
	if memory.Blocks[3].File != "" {
		t.Fatalf("anonymous mapping should have no file, got %q", memory.Blocks[3].File)
	}

	if math.Abs(memory.TotalSize-1056.0/1024) > 1e-9 {
		t.Fatalf("unexpected total size %v", memory.TotalSize)
	}
	if math.Abs(memory.TotalResident-536.0/1024) > 1e-9 {
		t.Fatalf("unexpected total rss %v", memory.TotalResident)
	}
}

func TestParseSmapsEmpty(t *testing.T) {
	memory, err := ParseSmaps(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if memory.Blocks == nil || len(memory.Blocks) != 0 {
		t.Fatalf("expected empty non-nil blocks, got %#v", memory.Blocks)
	}
}

func TestReadSmapsUsesProcPath(t *testing.T) {
	t.Cleanup(func() { procReadFile = os.ReadFile })
	var requested string
	procReadFile = func(path string) ([]byte, error) {
		requested = path
		if path == "/proc/42/smaps" {
			return []byte(sampleSmaps), nil
		}
		return nil, os.ErrNotExist
	}

	memory, err := ReadSmaps(42)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if requested != "/proc/42/smaps" || len(memory.Blocks) != 4 {
		t.Fatalf("unexpected read of %s with %d blocks", requested, len(memory.Blocks))
	}

	if _, err := ReadSmaps(7); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}
