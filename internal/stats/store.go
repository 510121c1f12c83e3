// Package stats maintains the panel's cumulative request and token counters
// with rate-limited durable persistence.
package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nghyane/proxypanel/internal/json"
	log "github.com/nghyane/proxypanel/internal/logging"
)

// saveInterval bounds how often unforced saves reach disk.
const saveInterval = 10 * time.Second

// Counters are the durable cumulative totals. Monotonically non-decreasing
// except on an explicit operator reset.
type Counters struct {
	TotalRequests      uint64            `json:"total_requests"`
	SuccessfulRequests uint64            `json:"successful_requests"`
	FailedRequests     uint64            `json:"failed_requests"`
	InputTokens        uint64            `json:"input_tokens"`
	OutputTokens       uint64            `json:"output_tokens"`
	CachedTokens       uint64            `json:"cached_tokens"`
	ModelUsage         map[string]uint64 `json:"model_usage"`
	SavedAt            string            `json:"saved_at,omitempty"`
}

// Store owns the counters and their backing file. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	path      string
	counters  Counters
	lastSaved time.Time
	now       func() time.Time
}

// NewStore loads counters from path when present; absence means starting
// from zero, never an error.
func NewStore(path string) *Store {
	s := &Store{
		path: path,
		counters: Counters{
			ModelUsage: make(map[string]uint64),
		},
		now: time.Now,
	}
	if err := s.load(); err != nil {
		log.Warnf("stats: failed to load persistent counters: %v", err)
	}
	return s
}

// SetClock replaces the store's time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var loaded Counters
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("decode counters: %w", err)
	}
	if loaded.ModelUsage == nil {
		loaded.ModelUsage = make(map[string]uint64)
	}
	s.counters = loaded
	log.Infof("stats: restored persistent counters (%d total requests)", loaded.TotalRequests)
	return nil
}

// RecordRequest adds one request outcome to the cumulative counters.
func (s *Store) RecordRequest(model string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.TotalRequests++
	if success {
		s.counters.SuccessfulRequests++
	} else {
		s.counters.FailedRequests++
	}
	if model == "" {
		model = "unknown"
	}
	s.counters.ModelUsage[model]++
}

// SetRequestTotals replaces the request counters with reconciled values when
// they exceed the stored ones, preserving monotonicity.
func (s *Store) SetRequestTotals(total, success, failed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total > s.counters.TotalRequests {
		s.counters.TotalRequests = total
	}
	if success > s.counters.SuccessfulRequests {
		s.counters.SuccessfulRequests = success
	}
	if failed > s.counters.FailedRequests {
		s.counters.FailedRequests = failed
	}
}

// SetTokenTotals replaces the token counters with reconciled values when
// they exceed the stored ones, preserving monotonicity.
func (s *Store) SetTokenTotals(input, output, cached uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if input > s.counters.InputTokens {
		s.counters.InputTokens = input
	}
	if output > s.counters.OutputTokens {
		s.counters.OutputTokens = output
	}
	if cached > s.counters.CachedTokens {
		s.counters.CachedTokens = cached
	}
}

// Snapshot returns a copy of the current counters.
func (s *Store) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := s.counters
	copied.ModelUsage = make(map[string]uint64, len(s.counters.ModelUsage))
	for k, v := range s.counters.ModelUsage {
		copied.ModelUsage[k] = v
	}
	return copied
}

// Reset zeroes every counter and forces an immediate save.
func (s *Store) Reset() {
	s.mu.Lock()
	s.counters = Counters{ModelUsage: make(map[string]uint64)}
	s.mu.Unlock()
	if err := s.Save(true); err != nil {
		log.Warnf("stats: failed to persist reset: %v", err)
	}
}

// Save writes the counters to disk. Unforced saves are rate-limited to one
// per window; graceful shutdown and reset force a write. A failed write
// leaves in-memory state intact for the next attempt.
func (s *Store) Save(force bool) error {
	s.mu.Lock()
	now := s.now()
	if !force && now.Sub(s.lastSaved) < saveInterval {
		s.mu.Unlock()
		return nil
	}
	s.lastSaved = now
	payload := s.counters
	payload.ModelUsage = make(map[string]uint64, len(s.counters.ModelUsage))
	for k, v := range s.counters.ModelUsage {
		payload.ModelUsage[k] = v
	}
	payload.SavedAt = now.UTC().Format(time.RFC3339)
	s.mu.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode counters: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write counters: %w", err)
	}
	return nil
}

// RunSaver periodically flushes the counters until stop is closed, forcing a
// final save on the way out.
func (s *Store) RunSaver(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Save(false); err != nil {
				log.Warnf("stats: periodic save failed: %v", err)
			}
		case <-stop:
			if err := s.Save(true); err != nil {
				log.Warnf("stats: final save failed: %v", err)
			}
			return
		}
	}
}
