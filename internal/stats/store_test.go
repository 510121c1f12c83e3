package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAbsentFileStartsFromZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistent_stats.json")
	s := NewStore(path)

	c := s.Snapshot()
	if c.TotalRequests != 0 || c.InputTokens != 0 || len(c.ModelUsage) != 0 {
		t.Errorf("expected zeroed counters, got %+v", c)
	}

	s.RecordRequest("gpt-4o", true)
	if err := s.Save(true); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected backing file created on first save: %v", err)
	}
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistent_stats.json")

	s := NewStore(path)
	s.RecordRequest("gpt-4o", true)
	s.RecordRequest("gpt-4o", true)
	s.RecordRequest("claude-sonnet", false)
	s.SetTokenTotals(100, 50, 10)
	if err := s.Save(true); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewStore(path)
	c := restored.Snapshot()
	if c.TotalRequests != 3 || c.SuccessfulRequests != 2 || c.FailedRequests != 1 {
		t.Errorf("request counters did not survive restart: %+v", c)
	}
	if c.InputTokens != 100 || c.OutputTokens != 50 || c.CachedTokens != 10 {
		t.Errorf("token counters did not survive restart: %+v", c)
	}
	if c.ModelUsage["gpt-4o"] != 2 || c.ModelUsage["claude-sonnet"] != 1 {
		t.Errorf("model usage did not survive restart: %+v", c.ModelUsage)
	}
}

func TestUnforcedSaveIsRateLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistent_stats.json")
	now := time.Unix(1000, 0)
	s := NewStore(path)
	s.SetClock(func() time.Time { return now })

	s.RecordRequest("m", true)
	if err := s.Save(false); err != nil {
		t.Fatalf("save: %v", err)
	}

	s.RecordRequest("m", true)
	now = now.Add(3 * time.Second)
	if err := s.Save(false); err != nil {
		t.Fatalf("save: %v", err)
	}
	if onDisk := NewStore(path).Snapshot(); onDisk.TotalRequests != 1 {
		t.Errorf("save inside the rate-limit window should be skipped, file has %d requests", onDisk.TotalRequests)
	}

	now = now.Add(saveInterval)
	if err := s.Save(false); err != nil {
		t.Fatalf("save: %v", err)
	}
	restored := NewStore(path)
	if restored.Snapshot().TotalRequests != 2 {
		t.Error("save after the window should have flushed new counters")
	}
}

func TestTotalsNeverRegress(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "persistent_stats.json"))
	s.SetTokenTotals(100, 200, 300)
	s.SetTokenTotals(50, 250, 0)

	c := s.Snapshot()
	if c.InputTokens != 100 {
		t.Errorf("input tokens regressed: %d", c.InputTokens)
	}
	if c.OutputTokens != 250 {
		t.Errorf("output tokens should advance: %d", c.OutputTokens)
	}
	if c.CachedTokens != 300 {
		t.Errorf("cached tokens regressed: %d", c.CachedTokens)
	}

	s.SetRequestTotals(10, 8, 2)
	s.SetRequestTotals(5, 9, 1)
	c = s.Snapshot()
	if c.TotalRequests != 10 || c.SuccessfulRequests != 9 || c.FailedRequests != 2 {
		t.Errorf("request totals regressed: %+v", c)
	}
}

func TestResetZeroesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistent_stats.json")
	s := NewStore(path)
	s.RecordRequest("m", true)
	s.SetTokenTotals(1, 2, 3)

	s.Reset()

	restored := NewStore(path)
	c := restored.Snapshot()
	if c.TotalRequests != 0 || c.InputTokens != 0 || len(c.ModelUsage) != 0 {
		t.Errorf("reset did not persist zeroed counters: %+v", c)
	}
}
