package fingerprint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits after the last file
// event before reloading, so editors that write in several bursts trigger
// one reload.
const DefaultDebounceInterval = 100 * time.Millisecond

// Provider hands out the current fingerprint Spec. The spec is swapped
// atomically, so readers on the handshake path never block and never see a
// partially applied override.
type Provider struct {
	spec   atomic.Pointer[Spec]
	logger *slog.Logger

	// Watch state
	mu      sync.Mutex
	running bool
}

// NewProvider creates a provider holding the compiled-in default spec.
func NewProvider(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{logger: logger}
	p.spec.Store(DefaultSpec())
	return p
}

// Current returns the active spec. The returned value must be treated as
// read-only.
func (p *Provider) Current() *Spec {
	return p.spec.Load()
}

// LoadFile replaces the active spec with the contents of a YAML override
// file. On any error the previous spec stays active.
func (p *Provider) LoadFile(path string) error {
	spec, err := LoadSpecFile(path)
	if err != nil {
		return err
	}

	p.spec.Store(spec)
	p.logger.Info("Fingerprint spec loaded",
		"path", path,
		"app_versions", len(spec.AppVersions),
		"android_min", spec.AndroidVersionMin,
		"android_max", spec.AndroidVersionMax,
	)
	return nil
}

// Watch reloads the override file whenever it changes. This is a blocking
// operation that runs until the context is cancelled. A reload failure is
// logged and the previous spec stays active; the watch continues.
func (p *Provider) Watch(ctx context.Context, path string) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("fingerprint watcher already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch fingerprint spec %q: %w", path, err)
	}

	debounce := NewDebouncer(DefaultDebounceInterval)
	defer debounce.Stop()

	p.logger.Info("Fingerprint watcher started",
		"path", path,
		"debounce_ms", DefaultDebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Fingerprint watcher stopped (context cancelled)")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			p.logger.Debug("Fingerprint file event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			debounce.Trigger(func() {
				if err := p.LoadFile(path); err != nil {
					p.logger.Error("Fingerprint reload failed", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			p.logger.Error("Fingerprint watcher error", "error", err)
			// Continue watching despite errors
		}
	}
}

// Debouncer collapses rapid event bursts into a single callback after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger arms the debouncer with a new event. The callback runs after the
// debounce interval if no further events arrive.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()

			if cb != nil {
				cb()
			}
		}
	})
}

// Stop stops the debouncer and cancels any pending callback.
func (d *Debouncer) Stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
