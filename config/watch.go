package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/logger"
)

// DefaultDebounce coalesces the event bursts editors and atomic writers
// produce into one rebuild.
var DefaultDebounce = 200 * time.Millisecond

// Watcher rebuilds a configuration whenever its file changes. Successful
// rebuilds are delivered on Configs and to OnReload callbacks; failed
// rebuilds are logged and skipped, keeping the last good configuration
// current.
type Watcher struct {
	fsw      *fsnotify.Watcher
	builder  *Builder
	path     string
	debounce time.Duration
	log      logger.Logger

	mu       sync.RWMutex
	onReload []func(*Config)

	configs   chan *Config
	stopCh    chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// Watch starts watching the builder's primary file and rebuilding on
// change. The watcher runs until Close or until ctx is canceled.
func (b *Builder) Watch(ctx context.Context, path string) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to resolve watch path").
			WithTextCode("WATCH_PATH_INVALID").
			WithMetadata(map[string]any{"path": path})
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to create file watcher").
			WithTextCode("WATCHER_CREATE_FAILED")
	}
	if err := fsw.Add(absPath); err != nil {
		fsw.Close()
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to watch configuration file").
			WithTextCode("WATCH_ADD_FAILED").
			WithMetadata(map[string]any{"path": absPath})
	}
	w := &Watcher{
		fsw:      fsw,
		builder:  b,
		path:     absPath,
		debounce: DefaultDebounce,
		log:      b.log,
		configs:  make(chan *Config, 1),
		stopCh:   make(chan struct{}),
	}
	w.startOnce.Do(func() {
		go w.handleEvents(ctx)
	})
	return w, nil
}

// Configs delivers every successful rebuild. The channel holds one pending
// configuration; a slow consumer only ever misses intermediate states, the
// latest rebuild is always retained.
func (w *Watcher) Configs() <-chan *Config {
	return w.configs
}

// OnReload registers a callback invoked on every successful rebuild.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

func (w *Watcher) handleEvents(ctx context.Context) {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// atomic save: the path is replaced, not rewritten; re-add
				// after the new file lands
				go w.rearm(ctx)
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.rebuild(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.log.Error("watch error", "error", err)
			}

		case <-ctx.Done():
			w.Close()
			return

		case <-w.stopCh:
			return
		}
	}
}

// rearm re-adds a replaced path, retrying briefly while the writer finishes.
func (w *Watcher) rearm(ctx context.Context) {
	for i := 0; i < 10; i++ {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
		if err := w.fsw.Add(w.path); err == nil {
			w.rebuild(ctx)
			return
		}
	}
	w.log.Error("watched file disappeared", "path", w.path)
}

func (w *Watcher) rebuild(ctx context.Context) {
	cfg, err := w.builder.Build(ctx)
	if err != nil {
		w.log.Error("configuration reload failed", "path", w.path, "error", err)
		return
	}
	w.log.Info("configuration reloaded", "path", w.path)

	// keep only the latest pending config
	select {
	case w.configs <- cfg:
	default:
		select {
		case <-w.configs:
		default:
		}
		select {
		case w.configs <- cfg:
		default:
		}
	}

	w.mu.RLock()
	callbacks := make([]func(*Config), len(w.onReload))
	copy(callbacks, w.onReload)
	w.mu.RUnlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
}

// Close stops watching. It is idempotent and safe to call concurrently.
func (w *Watcher) Close() error {
	var closeErr error
	w.closeOnce.Do(func() {
		close(w.stopCh)
		if err := w.fsw.Close(); err != nil {
			closeErr = errors.Wrap(err, errors.CategoryOperation, "failed to close watcher").
				WithTextCode("WATCHER_CLOSE_FAILED")
		}
	})
	return closeErr
}
