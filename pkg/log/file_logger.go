package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileExtension is the conventional extension of capture files.
const FileExtension = ".sslog"

// FileLogger appends CBOR-encoded events to a capture file.
// It is safe for concurrent use.
type FileLogger struct {
	mu      sync.Mutex
	out     *os.File
	enc     *cbor.Encoder
	dropped int
	done    bool
}

// NewFileLogger opens (or creates with mode 0644) the capture file at path.
// New files start with the capture marker; existing captures are appended to.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err == nil && info.Size() == 0 {
		_, err = f.Write(captureMagic)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("capture %s: %w", path, err)
	}
	return &FileLogger{out: f, enc: NewEncoder(f)}, nil
}

// Log writes an event. Encoding failures are counted, never returned:
// capture must not disturb serving.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return
	}
	if l.enc.Encode(event) != nil {
		l.dropped++
	}
}

// Dropped returns the number of events that failed to encode.
func (l *FileLogger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close closes the capture file; later Log calls are ignored.
// Closing twice returns nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return nil
	}
	l.done = true
	return l.out.Close()
}

var _ Logger = (*FileLogger)(nil)
