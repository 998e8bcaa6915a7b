package execshell

import (
	"bytes"
	"strings"
	"sync"
)

// lineWriter splits a byte stream into lines and forwards them to a handler.
// Real-ESRGAN and ffmpeg both redraw progress with '\r', so a carriage
// return terminates a line just like '\n' does.
type lineWriter struct {
	handler LineHandler
	lock    *sync.Mutex
	pending bytes.Buffer
}

func newLineWriter(handler LineHandler, lock *sync.Mutex) *lineWriter {
	return &lineWriter{handler: handler, lock: lock}
}

func (writer *lineWriter) Write(data []byte) (int, error) {
	for _, character := range data {
		if character == '\n' || character == '\r' {
			writer.emit()
			continue
		}
		writer.pending.WriteByte(character)
	}
	return len(data), nil
}

// Flush forwards any trailing text that was not newline terminated.
func (writer *lineWriter) Flush() {
	writer.emit()
}

func (writer *lineWriter) emit() {
	line := strings.TrimSpace(writer.pending.String())
	writer.pending.Reset()
	if line == "" {
		return
	}
	writer.lock.Lock()
	defer writer.lock.Unlock()
	writer.handler(line)
}
