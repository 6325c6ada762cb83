// Package history persists the chat stream as an append-only text log.
package history

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// TimeLayout is the minute-resolution stamp put in front of every line.
const TimeLayout = "02.01.06 15:04"

// Record is one inbound chat line together with its arrival time.
type Record struct {
	Received time.Time
	Text     string
}

// Format renders a record as it appears in the live view and on disk,
// without a trailing newline.
func Format(r Record) string {
	return fmt.Sprintf("[%s] %s", r.Received.Local().Format(TimeLayout), r.Text)
}

// WriteError reports a record that could not be appended.
type WriteError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to add record to history file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// File appends records to a file on disk. Every Append opens, writes and
// closes the file so nothing is buffered between records. Appends are
// serialised, so a File may be shared between goroutines.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a sink for path. The file is created on first append.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file the sink writes to.
func (f *File) Path() string {
	return f.path
}

// Append writes one formatted record followed by a newline.
func (f *File) Append(r Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &WriteError{Path: f.path, Err: err}
	}

	// One write call per record keeps partial lines out of concurrent readers.
	_, werr := file.Write([]byte(Format(r) + "\n"))
	cerr := file.Close()
	if werr != nil {
		return &WriteError{Path: f.path, Err: werr}
	}
	if cerr != nil {
		return &WriteError{Path: f.path, Err: cerr}
	}
	return nil
}
