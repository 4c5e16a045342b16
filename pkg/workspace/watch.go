package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// manifestWatcher invalidates a root's cache entry when its manifest
// changes, so long-lived processes do not serve a stale dependency summary
// for the whole TTL after an install.
type manifestWatcher struct {
	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	watched map[string]bool
}

// Watch starts manifest watching for every root the cache builds from now
// on. It runs until ctx is done. Intended for the long-lived serve path;
// one-shot CLI runs skip it.
func (c *Cache) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start manifest watcher: %w", err)
	}

	w := &manifestWatcher{fsw: fsw, watched: make(map[string]bool)}
	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !isManifest(filepath.Base(event.Name)) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					c.Invalidate(filepath.Dir(event.Name))
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
				// Watch errors degrade to TTL-only expiry.
			}
		}
	}()
	return nil
}

// observeRoot registers a freshly built root with the watcher, when active.
func (c *Cache) observeRoot(root string) {
	c.mu.RLock()
	w := c.watcher
	c.mu.RUnlock()
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[root] {
		return
	}
	if err := w.fsw.Add(root); err != nil {
		return
	}
	w.watched[root] = true
}

func isManifest(name string) bool {
	for _, candidate := range manifestNames {
		if name == candidate {
			return true
		}
	}
	return false
}
