// Package logsink provides the append-only operation log written during
// ingestion. Sink failures never affect the caller's control flow.
package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Sink accepts one log line at a time. Implementations must not return
// errors to callers; a sink that cannot write simply drops the line.
type Sink interface {
	Append(message string)
}

// Nop discards every line.
type Nop struct{}

func (Nop) Append(string) {}

// FileSink appends timestamped lines to a single file, creating the parent
// directory on first use. Write errors are swallowed.
type FileSink struct {
	path string
}

// NewFileSink returns a sink writing to path, or Nop when path is empty.
func NewFileSink(path string) Sink {
	if path == "" {
		return Nop{}
	}
	return &FileSink{path: path}
}

func (s *FileSink) Append(message string) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), message)
}
