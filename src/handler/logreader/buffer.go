package logreader

import (
	"regexp"
	"strings"
	"sync"
)

// circularBuffer is a fixed-capacity FIFO of the most recent lines for one
// terminal, grounded on original_source/utils/log_scheduler.py's LogBuffer
// (a collections.deque(maxlen=N)). Append is O(1); join/match are O(capacity).
type circularBuffer struct {
	mu       sync.Mutex
	capacity int
	lines    []string
}

func newCircularBuffer(capacity int) *circularBuffer {
	return &circularBuffer{capacity: capacity}
}

func (b *circularBuffer) append(line string) {
	if line == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	if overflow := len(b.lines) - b.capacity; overflow > 0 {
		b.lines = b.lines[overflow:]
	}
}

func (b *circularBuffer) join() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

func (b *circularBuffer) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

// matchesPattern reports whether the buffer's joined content matches pattern.
// An invalid regex is swallowed and reported as no match, matching the
// Python original's `except re.error: return False`.
func (b *circularBuffer) matchesPattern(pattern string) bool {
	if pattern == "" {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(b.join())
}
