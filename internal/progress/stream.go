package progress

import (
	"bytes"
	"io"
	"sync"
)

// StreamWriter prefixes every line written through it. Partial lines are
// held until their newline arrives or Flush is called. It is safe for
// concurrent use, so stdout and stderr of one command can share it.
type StreamWriter struct {
	mu     sync.Mutex
	writer io.Writer
	prefix []byte
	buffer []byte
}

// NewStreamWriter creates a new stream writer with a prefix
func NewStreamWriter(w io.Writer, prefix string) *StreamWriter {
	return &StreamWriter{
		writer: w,
		prefix: []byte(prefix),
		buffer: make([]byte, 0, 4096),
	}
}

// Write implements io.Writer
func (sw *StreamWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.buffer = append(sw.buffer, p...)
	for {
		idx := bytes.IndexByte(sw.buffer, '\n')
		if idx == -1 {
			break
		}
		if err := sw.emit(sw.buffer[:idx+1]); err != nil {
			return 0, err
		}
		sw.buffer = sw.buffer[idx+1:]
	}
	return len(p), nil
}

// Flush writes any buffered partial line, terminated with a newline
func (sw *StreamWriter) Flush() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if len(sw.buffer) == 0 {
		return nil
	}
	line := append(sw.buffer, '\n')
	sw.buffer = sw.buffer[:0]
	return sw.emit(line)
}

func (sw *StreamWriter) emit(line []byte) error {
	out := make([]byte, 0, len(sw.prefix)+len(line))
	out = append(out, sw.prefix...)
	out = append(out, line...)
	_, err := sw.writer.Write(out)
	return err
}
