// Package panel wires the telemetry and control subsystems together and
// runs their background workers.
package panel

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/nghyane/proxypanel/internal/cache"
	"github.com/nghyane/proxypanel/internal/config"
	"github.com/nghyane/proxypanel/internal/history"
	log "github.com/nghyane/proxypanel/internal/logging"
	"github.com/nghyane/proxypanel/internal/logstats"
	"github.com/nghyane/proxypanel/internal/logtail"
	"github.com/nghyane/proxypanel/internal/servicectl"
	"github.com/nghyane/proxypanel/internal/stats"
	"github.com/nghyane/proxypanel/internal/updater"
	"github.com/nghyane/proxypanel/internal/usage"
	"github.com/nghyane/proxypanel/internal/watcher"
)

const (
	requestCountsCacheKey = "request_count_logs"
	requestCountsCacheTTL = 2 * time.Second

	requestLogsCacheKey = "request_logs"
	requestLogsCacheTTL = 2 * time.Second

	countersSyncInterval  = 30 * time.Second
	usageRefreshInterval  = 60 * time.Second
	historySampleInterval = 5 * time.Minute
	sampleRetention       = 90 * 24 * time.Hour

	defaultLogLines = 200
)

// Panel owns every subsystem and hands them to the HTTP layer.
type Panel struct {
	Cache      *cache.Cache
	Tracker    *logstats.Tracker
	Store      *stats.Store
	Reconciler *usage.Reconciler
	Service    *servicectl.Controller
	Updater    *updater.Updater
	History    history.Backend
	Watcher    *watcher.Watcher

	mu  sync.Mutex
	cfg *config.Config

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New assembles a panel from configuration. The update-history backend is
// optional; a DSN error disables history rather than aborting startup.
func New(cfg *config.Config) *Panel {
	c := cache.New()

	hist, err := history.NewBackend(cfg.HistoryDSN)
	if err != nil {
		log.WithError(err).Warnf("Update history disabled")
		hist = nil
	}

	tracker := logstats.New(cfg.ProxyLog, cfg.LogStatsPath())
	store := stats.NewStore(cfg.PersistentStatsPath())
	client := usage.NewClient(cfg.APIBase, cfg.APIPort, cfg.ManagementKey, 0)
	reconciler := usage.NewReconciler(client, c, cfg.UsageSnapshotPath())
	service := servicectl.New(cfg.ServiceName, c)
	up := updater.New(cfg, c, service, hist, tracker.LastSeen)

	return &Panel{
		Cache:      c,
		Tracker:    tracker,
		Store:      store,
		Reconciler: reconciler,
		Service:    service,
		Updater:    up,
		History:    hist,
		cfg:        cfg,
		stop:       make(chan struct{}),
	}
}

// Config returns the live configuration.
func (p *Panel) Config() *config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// RequestCounts polls the access log and returns the request counters.
// Polls are cached briefly to keep dashboard refreshes cheap.
func (p *Panel) RequestCounts() logstats.Result {
	if cached, ok := cache.GetTyped[logstats.Result](p.Cache, requestCountsCacheKey, requestCountsCacheTTL); ok {
		return cached
	}
	result := p.Tracker.Poll()
	p.Cache.Set(requestCountsCacheKey, result)
	return result
}

// RequestLogs returns the newest request lines from the access log,
// falling back to the stderr log when the access log is empty.
func (p *Panel) RequestLogs(limit int) []string {
	if limit <= 0 {
		limit = defaultLogLines
	}
	if cached, ok := cache.GetTyped[[]string](p.Cache, requestLogsCacheKey, requestLogsCacheTTL); ok && len(cached) >= limit {
		return cached[len(cached)-limit:]
	}

	cfg := p.Config()
	lines := logtail.ReadTail(cfg.ProxyLog, limit)
	if len(lines) == 0 && cfg.ProxyStderrLog != "" {
		lines = logtail.ReadTail(cfg.ProxyStderrLog, limit)
	}
	p.Cache.Set(requestLogsCacheKey, lines)
	return lines
}

// ParsedRequestLogs returns the structured request lines from the tail of
// the access log, excluding the panel's own management traffic.
func (p *Panel) ParsedRequestLogs(limit int) []logstats.RequestLine {
	raw := p.RequestLogs(defaultLogLines)
	parsed := make([]logstats.RequestLine, 0, limit)
	for i := len(raw) - 1; i >= 0 && len(parsed) < limit; i-- {
		line := raw[i]
		if !logstats.IsRequestLine(line) || logstats.IsExcludedPath(line) {
			continue
		}
		entry, ok := logstats.ParseRequestLine(line)
		if !ok {
			continue
		}
		parsed = append(parsed, entry)
	}
	// Newest last, matching the raw log order.
	for i, j := 0, len(parsed)-1; i < j; i, j = i+1, j-1 {
		parsed[i], parsed[j] = parsed[j], parsed[i]
	}
	return parsed
}

// ClearLogs truncates the proxy's log files and resets the log counters.
func (p *Panel) ClearLogs() error {
	cfg := p.Config()
	for _, path := range []string{cfg.ProxyLog, cfg.ProxyStderrLog} {
		if path == "" {
			continue
		}
		if err := os.Truncate(path, 0); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	p.Tracker.Reset()
	p.Cache.Invalidate(requestCountsCacheKey)
	p.Cache.Invalidate(requestLogsCacheKey)
	log.Infof("Proxy logs cleared and request counters reset")
	return nil
}

// RecordRequest folds one request outcome pushed by the proxy into the
// persistent counters and triggers an opportunistic save.
func (p *Panel) RecordRequest(model string, success bool) {
	p.Store.RecordRequest(model, success)
	if err := p.Store.Save(false); err != nil {
		log.Warnf("Failed to save counters: %v", err)
	}
}

// ClearStats zeroes the persistent counters, then clears the proxy logs so
// the emptied request totals are not re-derived from the old lines.
func (p *Panel) ClearStats() error {
	p.Store.Reset()
	return p.ClearLogs()
}

// Pricing returns the current per-million-token prices.
func (p *Panel) Pricing() usage.Pricing {
	cfg := p.Config()
	return usage.Pricing{Input: cfg.PricingInput, Output: cfg.PricingOutput, Cache: cfg.PricingCache}
}

// UsageReport is the reconciled usage view served to the dashboard.
type UsageReport struct {
	Tokens   usage.TokenTotals   `json:"tokens"`
	Requests usage.RequestTotals `json:"requests"`
	Costs    usage.Costs         `json:"costs"`
	HasData  bool                `json:"has_data"`
}

// UsageReport fetches the usage snapshot and folds it into totals and
// costs with the configured pricing.
func (p *Panel) UsageReport(ctx context.Context) UsageReport {
	snapshot := p.Reconciler.FetchSnapshot(ctx, true)
	if len(snapshot) == 0 {
		return UsageReport{}
	}
	tokens, requests := usage.Aggregate(snapshot)
	return UsageReport{
		Tokens:   tokens,
		Requests: requests,
		Costs:    usage.ComputeCosts(tokens, p.Pricing()),
		HasData:  true,
	}
}

// SyncCounters folds the latest log counts and usage snapshot into the
// persistent counters. Both sources only ever advance the stored values.
func (p *Panel) SyncCounters(ctx context.Context) {
	counts := p.RequestCounts()
	p.Store.SetRequestTotals(counts.Count, counts.Success, counts.Failed)

	if snapshot := p.Reconciler.FetchSnapshot(ctx, true); len(snapshot) > 0 {
		tokens, _ := usage.Aggregate(snapshot)
		p.Store.SetTokenTotals(tokens.InputTokens, tokens.OutputTokens, tokens.CachedTokens)
	}
}

// updateConfig swaps in a modified copy of the config so readers never
// observe a half-applied change.
func (p *Panel) updateConfig(mutate func(*config.Config)) *config.Config {
	p.mu.Lock()
	next := *p.cfg
	mutate(&next)
	p.cfg = &next
	p.mu.Unlock()
	return &next
}

// SetPricing adopts new per-million-token prices.
func (p *Panel) SetPricing(pricing usage.Pricing) {
	p.updateConfig(func(cfg *config.Config) {
		cfg.PricingInput = pricing.Input
		cfg.PricingOutput = pricing.Output
		cfg.PricingCache = pricing.Cache
	})
}

// SetIdleThreshold adopts a new idle gate, in seconds.
func (p *Panel) SetIdleThreshold(seconds int) {
	p.updateConfig(func(cfg *config.Config) { cfg.IdleThresholdSeconds = seconds })
	p.Updater.SetIdleThreshold(time.Duration(seconds) * time.Second)
}

// SetCheckInterval adopts a new auto-update poll cadence, in seconds.
func (p *Panel) SetCheckInterval(seconds int) {
	p.updateConfig(func(cfg *config.Config) { cfg.AutoUpdateCheckInterval = seconds })
}

// SetAutoUpdateEnabled toggles the auto-update worker.
func (p *Panel) SetAutoUpdateEnabled(enabled bool) {
	p.updateConfig(func(cfg *config.Config) { cfg.AutoUpdateEnabled = enabled })
}

// ApplyConfig adopts runtime-tunable settings from a reloaded config.
func (p *Panel) ApplyConfig(cfg *config.Config) {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	p.Updater.SetIdleThreshold(time.Duration(cfg.IdleThresholdSeconds) * time.Second)
}

// StartWorkers launches the background loops. Call Shutdown to stop them.
func (p *Panel) StartWorkers() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runCounterSync()
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Reconciler.RunRefresher(usageRefreshInterval, p.stop)
	}()

	cfg := p.Config()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Updater.RunAutoUpdate(
			time.Duration(cfg.AutoUpdateCheckInterval)*time.Second,
			func() bool { return p.Config().AutoUpdateEnabled },
			p.stop,
		)
	}()

	if p.History != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runHistorySampler()
		}()
	}
}

// runCounterSync keeps the persistent counters current and saved.
func (p *Panel) runCounterSync() {
	ticker := time.NewTicker(countersSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			p.SyncCounters(ctx)
			cancel()
			if err := p.Store.Save(false); err != nil {
				log.WithError(err).Warnf("Failed to save persistent counters")
			}
		case <-p.stop:
			return
		}
	}
}

// runHistorySampler records periodic counter samples and prunes old ones.
func (p *Panel) runHistorySampler() {
	ticker := time.NewTicker(historySampleInterval)
	defer ticker.Stop()
	pruneTicker := time.NewTicker(24 * time.Hour)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ticker.C:
			counters := p.Store.Snapshot()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := p.History.RecordSample(ctx, history.Sample{
				TotalRequests:      counters.TotalRequests,
				SuccessfulRequests: counters.SuccessfulRequests,
				FailedRequests:     counters.FailedRequests,
				InputTokens:        counters.InputTokens,
				OutputTokens:       counters.OutputTokens,
			})
			cancel()
			if err != nil {
				log.WithError(err).Warnf("Failed to record counter sample")
			}
		case <-pruneTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if pruned, err := p.History.PruneSamples(ctx, time.Now().Add(-sampleRetention)); err != nil {
				log.WithError(err).Warnf("Failed to prune counter samples")
			} else if pruned > 0 {
				log.Infof("Pruned %d old counter samples", pruned)
			}
			cancel()
		case <-p.stop:
			return
		}
	}
}

// Shutdown stops the workers and forces a final save of all durable state.
func (p *Panel) Shutdown() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()

	if p.Watcher != nil {
		p.Watcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	p.SyncCounters(ctx)
	cancel()

	p.Tracker.Save()
	if err := p.Store.Save(true); err != nil {
		log.WithError(err).Warnf("Final counters save failed")
	}
	if p.History != nil {
		if err := p.History.Close(); err != nil {
			log.WithError(err).Warnf("History backend close failed")
		}
	}
	log.Infof("Panel state flushed")
}
