package logsink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSinkAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ingest.log")
	s := NewFileSink(path)

	s.Append("INFO:first")
	s.Append("INFO:second")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
	if !strings.HasSuffix(lines[0], "INFO:first") {
		t.Errorf("line 0 = %q", lines[0])
	}
	// Timestamp prefix format: [YYYY-MM-DD HH:MM:SS]
	if !strings.HasPrefix(lines[1], "[") || !strings.Contains(lines[1], "] INFO:second") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestFileSinkUnwritablePathIsSilent(t *testing.T) {
	s := NewFileSink(string([]byte{0}) + "/nope/ingest.log")
	s.Append("dropped") // must not panic
}

func TestEmptyPathReturnsNop(t *testing.T) {
	if _, ok := NewFileSink("").(Nop); !ok {
		t.Error("empty path should return Nop sink")
	}
}
