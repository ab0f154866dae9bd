package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestLogger captures full request/response payloads to disk when enabled.
// Each exchange is written to its own file so translation problems can be
// diagnosed from the exact wire bytes.
type RequestLogger struct {
	enabled bool
	logsDir string
}

// NewRequestLogger creates a file-based request logger rooted at logsDir.
func NewRequestLogger(enabled bool, logsDir string) *RequestLogger {
	return &RequestLogger{enabled: enabled, logsDir: logsDir}
}

// IsEnabled reports whether request logging is active.
func (l *RequestLogger) IsEnabled() bool {
	return l.enabled
}

// LogRequest records a complete non-streaming exchange: the inbound request,
// the translated upstream request, and both response payloads.
func (l *RequestLogger) LogRequest(path string, inbound, upstream, upstreamResponse, response []byte, statusCode int) {
	if !l.enabled {
		return
	}
	f, err := l.create(path)
	if err != nil {
		log.Errorf("request log: %v", err)
		return
	}
	defer func() { _ = f.Close() }()

	fmt.Fprintf(f, "=== %s (%d) ===\n", path, statusCode)
	fmt.Fprintf(f, "--- inbound request ---\n%s\n", inbound)
	fmt.Fprintf(f, "--- upstream request ---\n%s\n", upstream)
	fmt.Fprintf(f, "--- upstream response ---\n%s\n", upstreamResponse)
	fmt.Fprintf(f, "--- response ---\n%s\n", response)
}

// LogStreamingRequest opens a log for a streaming exchange and returns a
// writer that appends chunks asynchronously. The writer is a no-op when
// request logging is disabled.
func (l *RequestLogger) LogStreamingRequest(path string, inbound, upstream []byte) *StreamingLogWriter {
	if !l.enabled {
		return &StreamingLogWriter{}
	}
	f, err := l.create(path)
	if err != nil {
		log.Errorf("request log: %v", err)
		return &StreamingLogWriter{}
	}

	fmt.Fprintf(f, "=== %s (stream) ===\n", path)
	fmt.Fprintf(f, "--- inbound request ---\n%s\n", inbound)
	fmt.Fprintf(f, "--- upstream request ---\n%s\n", upstream)
	fmt.Fprintf(f, "--- chunks ---\n")

	w := &StreamingLogWriter{
		file:      f,
		chunkChan: make(chan []byte, 100),
		closeChan: make(chan struct{}),
	}
	go w.run()
	return w
}

func (l *RequestLogger) create(path string) (*os.File, error) {
	if err := os.MkdirAll(l.logsDir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s_%s_%s.log",
		time.Now().Format("20060102-150405"),
		filepath.Base(path),
		uuid.NewString()[:8])
	return os.Create(filepath.Join(l.logsDir, name))
}

// StreamingLogWriter appends streaming chunks to a request log file without
// blocking the response path. The zero value discards everything.
type StreamingLogWriter struct {
	file      *os.File
	chunkChan chan []byte
	closeChan chan struct{}
}

// WriteChunk queues one chunk for logging. Chunks are dropped if the writer
// cannot keep up, never blocking the stream.
func (w *StreamingLogWriter) WriteChunk(chunk []byte) {
	if w.file == nil {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	select {
	case w.chunkChan <- buf:
	default:
	}
}

// Close flushes pending chunks and closes the log file.
func (w *StreamingLogWriter) Close() {
	if w.file == nil {
		return
	}
	close(w.chunkChan)
	<-w.closeChan
}

func (w *StreamingLogWriter) run() {
	for chunk := range w.chunkChan {
		_, _ = w.file.Write(chunk)
		_, _ = w.file.Write([]byte("\n"))
	}
	_ = w.file.Close()
	close(w.closeChan)
}
