package usage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/sjson"

	"github.com/nghyane/proxypanel/internal/cache"
	log "github.com/nghyane/proxypanel/internal/logging"
)

const (
	snapshotCacheKey = "usage_snapshot"
	snapshotCacheTTL = 2 * time.Second
)

// Reconciler fetches the proxy's authoritative usage snapshot, keeping a
// short-lived cached copy and a durable on-disk fallback for the stretches
// when the proxy is unreachable.
type Reconciler struct {
	client       *Client
	cache        *cache.Cache
	snapshotPath string

	// diskMu serializes fallback-file writes; reads tolerate racing writers
	// because the file is rewritten whole.
	diskMu sync.Mutex
}

// NewReconciler wires a reconciler to the shared cache and the fallback
// snapshot path.
func NewReconciler(client *Client, c *cache.Cache, snapshotPath string) *Reconciler {
	return &Reconciler{
		client:       client,
		cache:        c,
		snapshotPath: snapshotPath,
	}
}

// FetchSnapshot returns the freshest usage snapshot available, or nil when
// neither the proxy nor the disk fallback has one. It never returns an
// error: absence of usage data degrades a status report, it must not fail
// one. On a successful remote fetch the snapshot is cached and persisted as
// the new fallback.
func (r *Reconciler) FetchSnapshot(ctx context.Context, useCache bool) []byte {
	if useCache {
		if cached, ok := cache.GetTyped[[]byte](r.cache, snapshotCacheKey, snapshotCacheTTL); ok {
			return cached
		}
	}

	snapshot, err := r.client.FetchUsage(ctx)
	if err == nil {
		r.cache.Set(snapshotCacheKey, snapshot)
		r.saveFallback(snapshot)
		return snapshot
	}
	log.Debugf("usage: remote fetch failed, falling back to disk: %v", err)

	fallback := r.loadFallback()
	if fallback != nil {
		r.cache.Set(snapshotCacheKey, fallback)
	}
	return fallback
}

// ImportFallback pushes the last durable snapshot back into the proxy,
// typically right after the proxy restarts with empty in-memory counters.
func (r *Reconciler) ImportFallback(ctx context.Context) {
	snapshot := r.loadFallback()
	if snapshot == nil {
		return
	}
	if err := r.client.ImportUsage(ctx, snapshot); err != nil {
		log.Warnf("usage: snapshot import failed: %v", err)
	}
}

func (r *Reconciler) saveFallback(snapshot []byte) {
	r.diskMu.Lock()
	defer r.diskMu.Unlock()

	stamped, err := sjson.SetBytes(snapshot, "fetched_at", time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		stamped = snapshot
	}
	if err := os.MkdirAll(filepath.Dir(r.snapshotPath), 0o755); err != nil {
		log.Warnf("usage: failed to create snapshot dir: %v", err)
		return
	}
	if err := os.WriteFile(r.snapshotPath, stamped, 0o644); err != nil {
		log.Warnf("usage: failed to save snapshot fallback: %v", err)
	}
}

func (r *Reconciler) loadFallback() []byte {
	data, err := os.ReadFile(r.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("usage: failed to load snapshot fallback: %v", err)
		}
		return nil
	}
	return data
}

// RunRefresher re-fetches the snapshot on a fixed interval until stop is
// closed, keeping the cache and the disk fallback warm even when nobody is
// watching. The last known snapshot is imported into the proxy first.
func (r *Reconciler) RunRefresher(interval time.Duration, stop <-chan struct{}) {
	r.ImportFallback(context.Background())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.FetchSnapshot(context.Background(), false)
		case <-stop:
			return
		}
	}
}
