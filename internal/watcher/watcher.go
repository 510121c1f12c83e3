// Package watcher reloads the panel config file when it changes on disk.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nghyane/proxypanel/internal/config"
	log "github.com/nghyane/proxypanel/internal/logging"
)

// debounceDelay coalesces the event bursts editors produce when saving.
const debounceDelay = 500 * time.Millisecond

// ReloadFunc receives the previous and freshly loaded configuration.
type ReloadFunc func(old, current *config.Config)

// Watcher observes one config file and reloads it on change.
type Watcher struct {
	path string

	mu       sync.Mutex
	current  *config.Config
	lastHash string
	onReload []ReloadFunc

	fw   *fsnotify.Watcher
	stop chan struct{}
	once sync.Once
}

// New prepares a watcher for the config file at path. current is the
// config the panel booted with.
func New(path string, current *config.Config) *Watcher {
	return &Watcher{
		path:     path,
		current:  current,
		lastHash: fileHash(path),
		stop:     make(chan struct{}),
	}
}

// OnReload registers a callback invoked after each successful reload.
// Register callbacks before calling Start.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	w.onReload = append(w.onReload, fn)
	w.mu.Unlock()
}

// Start begins watching. The containing directory is watched because
// most editors replace the file instead of writing it in place.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return err
	}
	w.fw = fw

	go w.loop()
	log.Debugf("Watching %s for config changes", w.path)
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
}

func (w *Watcher) loop() {
	defer w.fw.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerC = timer.C
			} else {
				timer.Reset(debounceDelay)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warnf("Config watcher error")
		case <-w.stop:
			return
		}
	}
}

// reload re-reads the config file and notifies callbacks when its
// content actually changed.
func (w *Watcher) reload() {
	hash := fileHash(w.path)
	w.mu.Lock()
	unchanged := hash != "" && hash == w.lastHash
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, err := config.LoadConfig(w.path)
	if err != nil {
		log.WithError(err).Errorf("Config reload failed, keeping previous settings")
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = cfg
	w.lastHash = hash
	callbacks := make([]ReloadFunc, len(w.onReload))
	copy(callbacks, w.onReload)
	w.mu.Unlock()

	changes := buildConfigChangeDetails(old, cfg)
	if len(changes) == 0 {
		log.Debugf("Config file touched but no effective changes")
		return
	}
	for _, change := range changes {
		log.Infof("Config change: %s", change)
	}
	for _, fn := range callbacks {
		fn(old, cfg)
	}
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}
