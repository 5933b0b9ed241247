// Package logreader implements the O(1) Incremental Log Reader (§4.C):
// per-terminal byte-offset tracking plus a bounded circular line buffer, so
// idleness detection on an append-only log is constant-time regardless of
// the log's total size. Grounded on
// original_source/utils/log_scheduler.py's O1LogReader/FilePositionTracker/LogBuffer.
package logreader

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
)

// Reader tracks read position and a recent-lines buffer per terminal-id.
// All operations on a single id are serialized by a per-id mutex; distinct
// ids progress independently (§4.C Concurrency).
type Reader struct {
	logDir   string
	capacity int

	mu         sync.RWMutex
	positions  map[string]int64
	buffers    map[string]*circularBuffer
	fileLocks  map[string]*sync.Mutex
}

// New creates a Log Reader rooted at logDir with the given per-terminal
// circular buffer capacity (pass constants.DefaultCircularBufferCapacity for
// the spec default).
func New(logDir string, capacity int) *Reader {
	return &Reader{
		logDir:    logDir,
		capacity:  capacity,
		positions: make(map[string]int64),
		buffers:   make(map[string]*circularBuffer),
		fileLocks: make(map[string]*sync.Mutex),
	}
}

func (r *Reader) logPath(id string) string {
	return filepath.Join(r.logDir, id+".log")
}

func (r *Reader) fileLock(id string) *sync.Mutex {
	r.mu.RLock()
	lock, ok := r.fileLocks[id]
	r.mu.RUnlock()
	if ok {
		return lock
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if lock, ok := r.fileLocks[id]; ok {
		return lock
	}
	lock = &sync.Mutex{}
	r.fileLocks[id] = lock
	return lock
}

func (r *Reader) buffer(id string) *circularBuffer {
	r.mu.RLock()
	buf, ok := r.buffers[id]
	r.mu.RUnlock()
	if ok {
		return buf
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if buf, ok := r.buffers[id]; ok {
		return buf
	}
	buf = newCircularBuffer(r.capacity)
	r.buffers[id] = buf
	return buf
}

func (r *Reader) position(id string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.positions[id]
}

func (r *Reader) setPosition(id string, pos int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[id] = pos
}

// ReadNewContent reads whatever bytes have been appended to <id>.log since
// the last read. Returns ok=false only when the log file does not exist yet.
// Truncation (recorded position beyond the current file size) is treated as
// rotation: position resets to zero and the full current file is returned.
func (r *Reader) ReadNewContent(id string) (content string, ok bool, err error) {
	path := r.logPath(id)

	lock := r.fileLock(id)
	lock.Lock()
	defer lock.Unlock()

	f, openErr := os.Open(path)
	if openErr != nil {
		if os.IsNotExist(openErr) {
			return "", false, nil
		}
		return "", false, openErr
	}
	defer f.Close()

	info, statErr := f.Stat()
	if statErr != nil {
		return "", false, statErr
	}
	size := info.Size()

	pos := r.position(id)
	if pos > size {
		logrus.WithField("terminal_id", id).Info("log file truncated, resetting read position")
		pos = 0
	}

	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return "", false, err
	}

	data, readErr := io.ReadAll(f)
	if readErr != nil {
		return "", false, readErr
	}

	r.setPosition(id, pos+int64(len(data)))
	return string(data), true, nil
}

// UpdateBuffer splits content on newlines, discards empty lines, and appends
// the rest to id's circular buffer.
func (r *Reader) UpdateBuffer(id string, content string) {
	if content == "" {
		return
	}
	buf := r.buffer(id)
	for _, line := range strings.Split(content, "\n") {
		buf.append(line)
	}
}

// GetBufferedContent returns the current buffer content for id, newline-joined.
func (r *Reader) GetBufferedContent(id string) string {
	return r.buffer(id).join()
}

// MatchesIdlePattern reports whether id's buffered content matches pattern.
func (r *Reader) MatchesIdlePattern(id, pattern string) bool {
	return r.buffer(id).matchesPattern(pattern)
}

// SyncAndCheck is the scheduler's primary entrypoint (§4.C): sync new log
// content into the buffer, then report the buffer content if idlePattern
// matches, or ok=false if it doesn't.
func (r *Reader) SyncAndCheck(id, idlePattern string) (content string, ok bool) {
	newContent, exists, err := r.ReadNewContent(id)
	if err != nil {
		logrus.WithField("terminal_id", id).WithError(err).Debug("error reading log for idle check")
		return "", false
	}
	if !exists {
		return "", false
	}

	if newContent != "" {
		r.UpdateBuffer(id, newContent)
	}

	if r.MatchesIdlePattern(id, idlePattern) {
		return r.GetBufferedContent(id), true
	}
	return "", false
}

// ResetTerminal discards tracked position and buffer for id, e.g. on destroy.
func (r *Reader) ResetTerminal(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.positions, id)
	delete(r.fileLocks, id)
	if buf, ok := r.buffers[id]; ok {
		buf.clear()
	}
	delete(r.buffers, id)
}

// ClearAll discards all tracked state, for tests and full restarts.
func (r *Reader) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = make(map[string]int64)
	r.buffers = make(map[string]*circularBuffer)
	r.fileLocks = make(map[string]*sync.Mutex)
}

// DefaultCapacity is a convenience re-export so callers need not import constants too.
const DefaultCapacity = constants.DefaultCircularBufferCapacity
