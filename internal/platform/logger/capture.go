package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// Capture is a thread-safe buffer that collects JSON log lines, for tests.
type Capture struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

// NewCapture returns a capture buffer and a debug-level logger writing to it.
func NewCapture() (*Capture, *slog.Logger) {
	c := &Capture{}
	return c, New(c, slog.LevelDebug)
}

// Write implements io.Writer.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// String returns everything written so far.
func (c *Capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Entries parses each captured line as a JSON object. Unparseable lines are skipped.
func (c *Capture) Entries() []map[string]any {
	lines := strings.Split(c.String(), "\n")
	entries := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// HasMessage reports whether any entry has the given msg at the given level.
func (c *Capture) HasMessage(level slog.Level, msg string) bool {
	for _, e := range c.Entries() {
		if e["msg"] == msg && e["level"] == level.String() {
			return true
		}
	}
	return false
}
