// Package logstats incrementally parses the proxy's access log into request
// counters. The tracker keeps a durable cursor into the file so counts
// survive panel restarts and log rotation.
package logstats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nghyane/proxypanel/internal/json"
	log "github.com/nghyane/proxypanel/internal/logging"
)

// saveInterval bounds opportunistic cursor persistence.
const saveInterval = 5 * time.Second

// Cursor is the tracker's durable pointer into the log file plus the
// counters accumulated from it. Base counters hold everything from prior
// file incarnations; window counters cover the current incarnation since the
// offset was last reset.
type Cursor struct {
	Initialized bool   `json:"initialized"`
	Offset      int64  `json:"offset"`
	LastSize    int64  `json:"last_size"`
	LastMtime   int64  `json:"last_mtime,omitempty"` // unix nanoseconds, 0 when unknown
	Total       uint64 `json:"total"`
	Success     uint64 `json:"success"`
	Failed      uint64 `json:"failed"`
	LastTime    string `json:"last_time,omitempty"`
	BaseTotal   uint64 `json:"base_total"`
	BaseSuccess uint64 `json:"base_success"`
	BaseFailed  uint64 `json:"base_failed"`

	// buffer carries at most one unterminated trailing line between polls.
	// Never persisted: a restart re-reads from the offset.
	buffer string
}

// Result is a point-in-time view of the tracked counters.
type Result struct {
	Count    uint64 `json:"count"`
	LastTime string `json:"last_time,omitempty"`
	Success  uint64 `json:"success"`
	Failed   uint64 `json:"failed"`
}

// Tracker tails the proxy log and accumulates request counters. All state is
// guarded by a single lock held for the duration of one Poll so concurrent
// pollers cannot interleave offset advancement.
type Tracker struct {
	mu        sync.Mutex
	logPath   string
	statePath string
	cursor    Cursor
	lastSaved time.Time
	now       func() time.Time
}

// New returns a tracker for logPath, restoring its cursor from statePath
// when a prior checkpoint exists. A missing or unreadable checkpoint starts
// tracking from scratch.
func New(logPath, statePath string) *Tracker {
	t := &Tracker{
		logPath:   logPath,
		statePath: statePath,
		now:       time.Now,
	}
	if err := t.loadState(); err != nil {
		log.Warnf("logstats: failed to load cursor state: %v", err)
	}
	return t
}

// SetClock replaces the tracker's time source. Test hook.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

func (t *Tracker) loadState() error {
	data, err := os.ReadFile(t.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return fmt.Errorf("decode cursor: %w", err)
	}
	cursor.buffer = ""
	t.cursor = cursor
	return nil
}

// saveStateLocked persists the cursor. Opportunistic saves are rate-limited;
// rotation and reset force a write. Persistence failures are logged and
// retried at the next save window, never surfaced to the poller.
func (t *Tracker) saveStateLocked(force bool) {
	now := t.now()
	if !force && now.Sub(t.lastSaved) < saveInterval {
		return
	}
	t.lastSaved = now

	data, err := json.MarshalIndent(t.cursor, "", "  ")
	if err != nil {
		log.Warnf("logstats: failed to encode cursor: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.statePath), 0o755); err != nil {
		log.Warnf("logstats: failed to create state dir: %v", err)
		return
	}
	if err := os.WriteFile(t.statePath, data, 0o644); err != nil {
		log.Warnf("logstats: failed to save cursor: %v", err)
	}
}

// Save forces the cursor to disk, used on graceful shutdown.
func (t *Tracker) Save() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saveStateLocked(true)
}

// Reset zeroes the cursor and all counters, forcing an immediate checkpoint.
// Used when the operator clears the proxy logs.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursor = Cursor{}
	t.saveStateLocked(true)
}

// Poll stats the log file, ingests any new bytes, and returns the combined
// counters. Rotation detection strictly precedes reading, reading precedes
// counting, and counting precedes persistence; reordering would lose lines
// on a crash.
func (t *Tracker) Poll() Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, err := os.Stat(t.logPath)
	if err != nil {
		// File absent or transiently unreadable: report only the folded base
		// counters. The in-memory window stays intact so the fold still runs
		// when the file reappears.
		return t.baseResultLocked()
	}
	size := info.Size()
	mtime := info.ModTime().UnixNano()

	rotated := false
	switch {
	case !t.cursor.Initialized:
		rotated = true
	case size < t.cursor.LastSize:
		rotated = true
	case t.cursor.LastMtime != 0 && mtime < t.cursor.LastMtime:
		rotated = true
	case t.cursor.Offset > size:
		// Offset past EOF after an external truncation we otherwise missed.
		rotated = true
	}

	if rotated {
		if t.cursor.Initialized {
			t.cursor.BaseTotal += t.cursor.Total
			t.cursor.BaseSuccess += t.cursor.Success
			t.cursor.BaseFailed += t.cursor.Failed
			log.Debugf("logstats: rotation detected (size=%d last_size=%d)", size, t.cursor.LastSize)
		}
		t.cursor.Offset = 0
		t.cursor.Total = 0
		t.cursor.Success = 0
		t.cursor.Failed = 0
		t.cursor.LastTime = ""
		t.cursor.buffer = ""
	}
	changed := rotated

	newData, newOffset, err := readFrom(t.logPath, t.cursor.Offset)
	if err != nil {
		log.Warnf("logstats: failed to read log: %v", err)
		return t.resultLocked()
	}

	combined := t.cursor.buffer + newData
	lines := strings.SplitAfter(combined, "\n")
	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		t.cursor.buffer = last
		lines = lines[:len(lines)-1]
	} else {
		t.cursor.buffer = ""
	}

	for _, line := range lines {
		if !IsRequestLine(line) || IsExcludedPath(line) {
			continue
		}
		t.cursor.Total++
		if ts := ExtractTimestamp(line); ts != "" {
			t.cursor.LastTime = ts
		}
		switch code := ExtractStatus(line); {
		case code >= 200 && code < 300:
			t.cursor.Success++
		case code >= 400:
			t.cursor.Failed++
		}
		changed = true
	}

	t.cursor.Initialized = true
	t.cursor.Offset = newOffset
	t.cursor.LastSize = size
	t.cursor.LastMtime = mtime

	if rotated {
		t.saveStateLocked(true)
	} else if changed {
		t.saveStateLocked(false)
	}

	return t.resultLocked()
}

func (t *Tracker) baseResultLocked() Result {
	return Result{
		Count:    t.cursor.BaseTotal,
		LastTime: t.cursor.LastTime,
		Success:  t.cursor.BaseSuccess,
		Failed:   t.cursor.BaseFailed,
	}
}

func (t *Tracker) resultLocked() Result {
	return Result{
		Count:    t.cursor.BaseTotal + t.cursor.Total,
		LastTime: t.cursor.LastTime,
		Success:  t.cursor.BaseSuccess + t.cursor.Success,
		Failed:   t.cursor.BaseFailed + t.cursor.Failed,
	}
}

// LastSeen parses the last observed request timestamp. ok is false when no
// request has been seen or the timestamp does not parse.
func (t *Tracker) LastSeen() (time.Time, bool) {
	t.mu.Lock()
	lastTime := t.cursor.LastTime
	t.mu.Unlock()

	if lastTime == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(TimestampLayout, lastTime)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func readFrom(path string, offset int64) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", offset, err
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return "", offset, err
		}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", offset, err
	}
	return string(data), offset + int64(len(data)), nil
}
